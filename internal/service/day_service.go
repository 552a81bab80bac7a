package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tillpoint/internal/dto"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportDispatcher enqueues the async settlement-report job after a
// successful day close. Implemented by worker.Dispatcher; nil disables it.
type ReportDispatcher interface {
	EnqueueDayReport(ctx context.Context, dayID uuid.UUID) error
}

// DayService owns the business-day lifecycle: one open record per
// (location, business date), closed exactly once through the checklist gate.
type DayService interface {
	OpenDay(ctx context.Context, req dto.OpenDayRequest) (*dto.DayResponse, error)
	CloseDay(ctx context.Context, dayID uuid.UUID, req dto.CloseDayRequest) (*dto.CloseDayResponse, error)
	Get(ctx context.Context, dayID uuid.UUID) (*dto.DayResponse, error)
}

type dayService struct {
	days       repository.DayRepository
	locations  repository.LocationRepository
	settlement SettlementService
	dispatcher ReportDispatcher
}

func NewDayService(
	days repository.DayRepository,
	locations repository.LocationRepository,
	settlement SettlementService,
	dispatcher ReportDispatcher,
) DayService {
	return &dayService{days: days, locations: locations, settlement: settlement, dispatcher: dispatcher}
}

// ── OpenDay ──────────────────────────────────────────────────────────────────

func (s *dayService) OpenDay(ctx context.Context, req dto.OpenDayRequest) (*dto.DayResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("invalid location_id: %w", err)
	}
	if _, err := s.locations.FindByID(ctx, locationID); err != nil {
		return nil, fmt.Errorf("location %s: %w", locationID, err)
	}
	businessDate, err := time.Parse("2006-01-02", req.BusinessDate)
	if err != nil {
		return nil, fmt.Errorf("parse business date %q: %w", req.BusinessDate, err)
	}

	// At most one record per (location, business date). The unique index is
	// the backstop for a racing double-open.
	if existing, err := s.days.FindByLocationDate(ctx, locationID, businessDate); err == nil && existing != nil {
		return nil, fmt.Errorf("day already opened for %s %s: %w",
			req.LocationID, req.BusinessDate, ErrInvalidStateTransition)
	}

	day := &model.DayRecord{
		LocationID:   locationID,
		BusinessDate: businessDate,
		Status:       model.DayOpen,
		Checklist:    model.Checklist{},
		OpenedAt:     time.Now(),
	}
	if err := s.days.Create(ctx, day); err != nil {
		return nil, fmt.Errorf("create day record: %w", err)
	}
	return dayToResponse(day), nil
}

// ── CloseDay ─────────────────────────────────────────────────────────────────
//
// Sequence: load → reject closed → checklist gate → recompute settlement
// summary (audit attachment, not a gate) → single conditional write. The
// checklist is evaluated against the supplied map at commit time — never a
// cached copy from an earlier read.

func (s *dayService) CloseDay(ctx context.Context, dayID uuid.UUID, req dto.CloseDayRequest) (*dto.CloseDayResponse, error) {
	day, err := s.days.FindByID(ctx, dayID)
	if err != nil {
		return nil, ErrDayNotFound
	}
	if day.Status == model.DayClosed {
		return nil, ErrAlreadyClosed
	}

	checklist := model.Checklist(req.Checklist)
	if missing := MissingChecklistKeys(checklist); len(missing) > 0 {
		return nil, &ChecklistIncompleteError{Missing: missing}
	}

	summary, err := s.settlement.Summary(ctx, day.LocationID, day.BusinessDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("recompute settlement: %w", err)
	}
	snapshot, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal settlement snapshot: %w", err)
	}

	closedAt := time.Now()
	applied, err := s.closeWithRetry(ctx, dayID, closedAt, checklist, snapshot)
	if err != nil {
		return nil, err
	}
	if !applied {
		// The conditional write found status != open: a concurrent close
		// won. Exactly one caller ever gets the success response.
		return nil, ErrAlreadyClosed
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueDayReport(ctx, dayID); err != nil {
			// The close is committed; report delivery is recovered by the
			// retry cron scanning unreported closed days.
			log.Warn().Err(err).Str("day_id", dayID.String()).Msg("day report enqueue failed")
		}
	}

	closed, err := s.days.FindByID(ctx, dayID)
	if err != nil {
		return nil, fmt.Errorf("reload closed day: %w", err)
	}
	return &dto.CloseDayResponse{Day: *dayToResponse(closed), Settlement: *summary}, nil
}

// closeWithRetry retries the conditional close once on a transient storage
// error. Safe: if the first attempt actually landed, the retry simply finds
// status=closed and reports applied=false, which the caller surfaces as
// AlreadyClosed — never a second snapshot.
func (s *dayService) closeWithRetry(ctx context.Context, dayID uuid.UUID, closedAt time.Time, checklist model.Checklist, snapshot json.RawMessage) (bool, error) {
	applied, err := s.days.Close(ctx, dayID, closedAt, checklist, snapshot)
	if err == nil {
		return applied, nil
	}
	log.Warn().Err(err).Str("day_id", dayID.String()).Msg("day close write failed, retrying once")

	applied, err = s.days.Close(ctx, dayID, closedAt, checklist, snapshot)
	if err != nil {
		return false, fmt.Errorf("%v: %w", err, ErrStorageUnavailable)
	}
	return applied, nil
}

// ── Get ──────────────────────────────────────────────────────────────────────

func (s *dayService) Get(ctx context.Context, dayID uuid.UUID) (*dto.DayResponse, error) {
	day, err := s.days.FindByID(ctx, dayID)
	if err != nil {
		return nil, ErrDayNotFound
	}
	return dayToResponse(day), nil
}

func dayToResponse(d *model.DayRecord) *dto.DayResponse {
	resp := &dto.DayResponse{
		DayID:        d.ID.String(),
		LocationID:   d.LocationID.String(),
		BusinessDate: d.BusinessDate.Format("2006-01-02"),
		Status:       d.Status,
		Checklist:    d.Checklist,
		OpenedAt:     d.OpenedAt.UTC().Format(time.RFC3339),
	}
	if resp.Checklist == nil {
		resp.Checklist = map[string]bool{}
	}
	if d.ClosedAt != nil {
		t := d.ClosedAt.UTC().Format(time.RFC3339)
		resp.ClosedAt = &t
	}
	return resp
}
