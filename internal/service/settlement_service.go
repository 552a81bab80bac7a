package service

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/dto"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementService recomputes a location's business-day settlement summary
// from the session store. The summary is derived data: it is rebuilt from
// scratch on every call and never cached, so it always reflects the latest
// committed close events.
type SettlementService interface {
	Summary(ctx context.Context, locationID uuid.UUID, businessDate string) (*dto.SettlementSummary, error)
}

type settlementService struct {
	sessions  repository.SessionRepository
	locations repository.LocationRepository
}

func NewSettlementService(sessions repository.SessionRepository, locations repository.LocationRepository) SettlementService {
	return &settlementService{sessions: sessions, locations: locations}
}

// dayWindow resolves a business date to its [00:00, 24:00) interval in the
// location's local timezone. Calendar-day match, not UTC truncation.
func dayWindow(businessDate string, tz string) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	day, err := time.ParseInLocation("2006-01-02", businessDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse business date %q: %w", businessDate, err)
	}
	return day, day.AddDate(0, 0, 1), nil
}

func (s *settlementService) Summary(ctx context.Context, locationID uuid.UUID, businessDate string) (*dto.SettlementSummary, error) {
	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("settlement: location %s: %w", locationID, err)
	}

	from, to, err := dayWindow(businessDate, location.Timezone)
	if err != nil {
		return nil, err
	}

	// Only sessions that actually closed on this local date settle; open
	// sessions are excluded entirely. The repository returns them most
	// recently closed first.
	sessions, err := s.sessions.ListClosedInWindow(ctx, locationID, from, to)
	if err != nil {
		return nil, fmt.Errorf("settlement: list sessions: %w", err)
	}

	summary := &dto.SettlementSummary{
		LocationID:   locationID.String(),
		BusinessDate: businessDate,
		Sessions:     make([]dto.SessionRecap, 0, len(sessions)),
	}

	totalExpected := decimal.Zero
	totalCounted := decimal.Zero
	interimCount := 0

	for i := range sessions {
		recap := buildRecap(&sessions[i])
		totalExpected = totalExpected.Add(recap.Expected)
		totalCounted = totalCounted.Add(recap.Counted)
		interimCount += len(recap.Interims)
		summary.Sessions = append(summary.Sessions, recap)
	}

	// Total variance comes from the totals themselves, not from summing the
	// per-row variances, so many-row rounding can never drift.
	summary.Totals = dto.SettlementTotals{
		Expected:     totalExpected,
		Counted:      totalCounted,
		Variance:     totalCounted.Sub(totalExpected),
		InterimCount: interimCount,
	}
	return summary, nil
}

func buildRecap(s *model.Session) dto.SessionRecap {
	expected := decimal.Zero
	if s.ExpectedCash != nil {
		expected = *s.ExpectedCash
	}
	// A temporarily closed session has no count yet — it settles as zero
	// until its permanent close lands.
	counted := decimal.Zero
	if s.CountedCash != nil {
		counted = *s.CountedCash
	}

	recap := dto.SessionRecap{
		SessionID:      s.ID.String(),
		SessionNumber:  s.Number,
		CashierName:    s.CashierName,
		Status:         s.Status,
		Expected:       expected,
		Counted:        counted,
		Variance:       counted.Sub(expected),
		VarianceReason: s.VarianceReason,
		Interims:       make([]dto.InterimResponse, 0, len(s.Interims)),
	}
	if s.ClosedAt != nil {
		recap.ClosedAt = s.ClosedAt.UTC().Format(time.RFC3339)
	}
	for _, entry := range s.Interims {
		recap.Interims = append(recap.Interims, dto.InterimResponse{
			Sequence:   entry.Sequence,
			Amount:     entry.Amount,
			ReasonType: entry.ReasonType,
			ReasonName: entry.ReasonName,
			RecordedAt: entry.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return recap
}
