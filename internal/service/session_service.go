package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tillpoint/internal/dto"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Close modes accepted by CloseSession.
const (
	CloseModeTemporary = "temporary"
	CloseModePermanent = "permanent"
)

// ErrCountedCashRequired: permanent close submitted without a counted amount.
var ErrCountedCashRequired = errors.New("counted cash is required for permanent close")

// ReopenAuthorizer validates the opaque authorization token supplied with a
// reopen request. The token's meaning belongs to the external approval
// policy — the core never interprets it.
type ReopenAuthorizer interface {
	Authorize(ctx context.Context, token string) error
}

// ReopenAuthorizerFunc adapts a plain function to the interface.
type ReopenAuthorizerFunc func(ctx context.Context, token string) error

func (f ReopenAuthorizerFunc) Authorize(ctx context.Context, token string) error {
	return f(ctx, token)
}

// SessionService enforces the cashier session state machine:
//
//	open ──closeTemporary──▶ temporarily_closed ──reopen──▶ open
//	open ──closePermanent──▶ permanently_closed (terminal)
//	temporarily_closed ──closePermanent──▶ permanently_closed (terminal)
//
// Every transition is committed through a conditional write keyed on the
// observed status, so a racing second close loses cleanly with AlreadyClosed
// instead of double-applying a counted-cash value.
type SessionService interface {
	Open(ctx context.Context, cashierID uuid.UUID, cashierName string, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	Close(ctx context.Context, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error)
	Reopen(ctx context.Context, sessionID uuid.UUID, req dto.ReopenSessionRequest) (*dto.SessionResponse, error)
	RecordMovement(ctx context.Context, sessionID uuid.UUID, req dto.RecordMovementRequest) error
	RecordInterim(ctx context.Context, sessionID uuid.UUID, req dto.RecordInterimRequest) (*dto.InterimResponse, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error)
}

type sessionService struct {
	repo       repository.SessionRepository
	interims   repository.InterimRepository
	locations  repository.LocationRepository
	rdb        *redis.Client
	authorizer ReopenAuthorizer
}

func NewSessionService(
	repo repository.SessionRepository,
	interims repository.InterimRepository,
	locations repository.LocationRepository,
	rdb *redis.Client,
	authorizer ReopenAuthorizer,
) SessionService {
	if authorizer == nil {
		// Default policy: any non-empty token passes. Real deployments
		// inject the approval-service client here.
		authorizer = ReopenAuthorizerFunc(func(_ context.Context, token string) error {
			if token == "" {
				return errors.New("authorization token required")
			}
			return nil
		})
	}
	return &sessionService{repo: repo, interims: interims, locations: locations, rdb: rdb, authorizer: authorizer}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Open(ctx context.Context, cashierID uuid.UUID, cashierName string, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, fmt.Errorf("invalid location_id: %w", err)
	}
	location, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", locationID, err)
	}

	// Guard: one open session per terminal
	if existing, err := s.repo.FindOpenByTerminal(ctx, locationID, req.TerminalID); err == nil && existing != nil {
		return nil, fmt.Errorf("terminal %s already has an open session: %w", req.TerminalID, ErrInvalidStateTransition)
	}

	now := time.Now()
	number, err := s.nextSessionNumber(ctx, location, req.TerminalID, now)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		Number:      number,
		CashierID:   cashierID,
		CashierName: cashierName,
		LocationID:  locationID,
		TerminalID:  req.TerminalID,
		OpenedAt:    now,
		OpeningCash: req.OpeningCash,
		Status:      model.SessionOpen,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sessionToResponse(session), nil
}

// nextSessionNumber allocates a human-readable label like T3-20240110-0004.
// Primary allocator is a Redis counter per (location, local date); when Redis
// is unavailable the DB row count works as a fallback — uniqueness is still
// enforced by the index on number.
func (s *sessionService) nextSessionNumber(ctx context.Context, location *model.Location, terminalID string, now time.Time) (string, error) {
	tz, err := time.LoadLocation(location.Timezone)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", location.Timezone, err)
	}
	localDay := now.In(tz)
	dayStart := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, tz)

	if s.rdb != nil {
		key := fmt.Sprintf("seq:sessions:%s:%s", location.Code, localDay.Format("20060102"))
		seq, err := s.rdb.Incr(ctx, key).Result()
		if err == nil {
			s.rdb.Expire(ctx, key, 48*time.Hour)
			return fmt.Sprintf("%s-%s-%04d", terminalID, localDay.Format("20060102"), seq), nil
		}
	}

	n, err := s.repo.CountForDate(ctx, location.ID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return "", fmt.Errorf("session number fallback: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", terminalID, localDay.Format("20060102"), n+1), nil
}

// ── Close ────────────────────────────────────────────────────────────────────

func (s *sessionService) Close(ctx context.Context, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	switch req.Mode {
	case CloseModeTemporary:
		return s.closeTemporary(ctx, session)
	case CloseModePermanent:
		return s.closePermanent(ctx, session, req)
	default:
		return nil, fmt.Errorf("unknown close mode %q", req.Mode)
	}
}

func (s *sessionService) closeTemporary(ctx context.Context, session *model.Session) (*dto.SessionResponse, error) {
	if session.Status != model.SessionOpen {
		return nil, fmt.Errorf("close temporary from %s: %w", session.Status, ErrInvalidStateTransition)
	}

	applied, err := s.repo.CloseTemporary(ctx, session.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrStorageUnavailable)
	}
	if !applied {
		return nil, ErrAlreadyClosed
	}
	return s.Get(ctx, session.ID)
}

// closePermanent settles the session: expected cash is recomputed from the
// opening float plus the movement ledger, the variance is counted − expected,
// and a non-zero variance must carry a reason. Permanent close is allowed
// both from open and from temporarily_closed.
func (s *sessionService) closePermanent(ctx context.Context, session *model.Session, req dto.CloseSessionRequest) (*dto.SessionResponse, error) {
	switch session.Status {
	case model.SessionOpen, model.SessionTemporarilyClosed:
	case model.SessionPermanentlyClosed:
		return nil, ErrAlreadyClosed
	default:
		return nil, fmt.Errorf("close permanent from %s: %w", session.Status, ErrInvalidStateTransition)
	}

	if req.CountedCash == nil {
		return nil, ErrCountedCashRequired
	}

	saleTotal, err := s.repo.SumMovements(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrStorageUnavailable)
	}
	expected := session.OpeningCash.Add(saleTotal)
	counted := *req.CountedCash
	variance := counted.Sub(expected)

	// The controller records whatever reason policy supplies, but refuses to
	// settle a non-zero variance silently.
	if !variance.IsZero() && (req.VarianceReason == nil || *req.VarianceReason == "") {
		return nil, ErrMissingVarianceReason
	}

	applied, err := s.repo.ClosePermanent(ctx, session.ID, session.Status, repository.SessionClose{
		ClosedAt:       time.Now(),
		ExpectedCash:   expected,
		CountedCash:    counted,
		Variance:       variance,
		VarianceReason: req.VarianceReason,
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrStorageUnavailable)
	}
	if !applied {
		// Lost the conditional write — someone closed (or reopened) it
		// between our read and the commit.
		return nil, ErrAlreadyClosed
	}
	return s.Get(ctx, session.ID)
}

// ── Reopen ───────────────────────────────────────────────────────────────────

func (s *sessionService) Reopen(ctx context.Context, sessionID uuid.UUID, req dto.ReopenSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionTemporarilyClosed {
		return nil, fmt.Errorf("reopen from %s: %w", session.Status, ErrInvalidStateTransition)
	}
	if err := s.authorizer.Authorize(ctx, req.Authorization); err != nil {
		return nil, fmt.Errorf("reopen not authorized: %w", err)
	}

	applied, err := s.repo.Reopen(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrStorageUnavailable)
	}
	if !applied {
		return nil, ErrAlreadyClosed
	}
	return s.Get(ctx, sessionID)
}

// ── Movements & interim settlements ──────────────────────────────────────────

func (s *sessionService) RecordMovement(ctx context.Context, sessionID uuid.UUID, req dto.RecordMovementRequest) error {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return ErrSessionNotFound
	}
	if session.Status != model.SessionOpen {
		return fmt.Errorf("record movement on %s session: %w", session.Status, ErrInvalidStateTransition)
	}
	return s.repo.AppendMovement(ctx, &model.CashMovement{
		SessionID: sessionID,
		Amount:    req.Amount,
		Reference: req.Reference,
		CreatedAt: time.Now(),
	})
}

func (s *sessionService) RecordInterim(ctx context.Context, sessionID uuid.UUID, req dto.RecordInterimRequest) (*dto.InterimResponse, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != model.SessionOpen {
		return nil, fmt.Errorf("interim settlement on %s session: %w", session.Status, ErrInvalidStateTransition)
	}

	amount := req.Amount
	if req.ReasonType == model.InterimCashDrop && amount.IsPositive() {
		// Drops remove cash from the drawer; store them signed.
		amount = amount.Neg()
	}
	entry := &model.InterimSettlement{
		SessionID:  sessionID,
		Amount:     amount,
		ReasonType: req.ReasonType,
		ReasonName: req.ReasonName,
		RecordedAt: time.Now(),
	}
	if err := s.interims.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append interim: %w", err)
	}
	return &dto.InterimResponse{
		Sequence:   entry.Sequence,
		Amount:     entry.Amount,
		ReasonType: entry.ReasonType,
		ReasonName: entry.ReasonName,
		RecordedAt: entry.RecordedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ── Get ──────────────────────────────────────────────────────────────────────

func (s *sessionService) Get(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return sessionToResponse(session), nil
}

func sessionToResponse(s *model.Session) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		SessionID:      s.ID.String(),
		SessionNumber:  s.Number,
		CashierID:      s.CashierID.String(),
		CashierName:    s.CashierName,
		LocationID:     s.LocationID.String(),
		TerminalID:     s.TerminalID,
		Status:         s.Status,
		OpeningCash:    s.OpeningCash,
		ExpectedCash:   s.ExpectedCash,
		CountedCash:    s.CountedCash,
		Variance:       s.Variance,
		VarianceReason: s.VarianceReason,
		OpenedAt:       s.OpenedAt.UTC().Format(time.RFC3339),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.UTC().Format(time.RFC3339)
		resp.ClosedAt = &t
	}
	for _, entry := range s.Interims {
		resp.Interims = append(resp.Interims, dto.InterimResponse{
			Sequence:   entry.Sequence,
			Amount:     entry.Amount,
			ReasonType: entry.ReasonType,
			ReasonName: entry.ReasonName,
			RecordedAt: entry.RecordedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp
}
