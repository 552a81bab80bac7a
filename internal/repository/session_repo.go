package repository

import (
	"context"
	"time"

	"tillpoint/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionClose carries the settlement fields written by a permanent close.
type SessionClose struct {
	ClosedAt       time.Time
	ExpectedCash   decimal.Decimal
	CountedCash    decimal.Decimal
	Variance       decimal.Decimal
	VarianceReason *string
}

// SessionRepository is the durable session record store. All status
// transitions are conditional writes keyed on the current status: the bool
// result reports whether the write was applied, so a lost race surfaces as
// applied=false instead of a silent double-apply.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	FindOpenByTerminal(ctx context.Context, locationID uuid.UUID, terminalID string) (*model.Session, error)

	// CloseTemporary applies open → temporarily_closed.
	CloseTemporary(ctx context.Context, id uuid.UUID, closedAt time.Time) (applied bool, err error)
	// ClosePermanent applies fromStatus → permanently_closed with the
	// settlement fields. fromStatus must be the status the caller observed.
	ClosePermanent(ctx context.Context, id uuid.UUID, fromStatus string, close SessionClose) (applied bool, err error)
	// Reopen applies temporarily_closed → open and clears closed_at.
	Reopen(ctx context.Context, id uuid.UUID) (applied bool, err error)

	// ListClosedInWindow returns sessions whose closed_at falls in [from, to)
	// for the location, most recently closed first. Open sessions never match.
	ListClosedInWindow(ctx context.Context, locationID uuid.UUID, from, to time.Time) ([]model.Session, error)

	AppendMovement(ctx context.Context, m *model.CashMovement) error
	SumMovements(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error)
	// CountForDate counts sessions opened for the location whose business
	// date window overlaps [from, to) — used for session number fallback.
	CountForDate(ctx context.Context, locationID uuid.UUID, from, to time.Time) (int64, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) Create(ctx context.Context, s *model.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Preload("Movements").
		Preload("Interims", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&s, id).Error
	return &s, err
}

func (r *sessionRepo) FindOpenByTerminal(ctx context.Context, locationID uuid.UUID, terminalID string) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND terminal_id = ? AND status = ?", locationID, terminalID, model.SessionOpen).
		First(&s).Error
	return &s, err
}

func (r *sessionRepo) CloseTemporary(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionOpen).
		Updates(map[string]interface{}{
			"status":    model.SessionTemporarilyClosed,
			"closed_at": closedAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *sessionRepo) ClosePermanent(ctx context.Context, id uuid.UUID, fromStatus string, close SessionClose) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":          model.SessionPermanentlyClosed,
			"closed_at":       close.ClosedAt,
			"expected_cash":   close.ExpectedCash,
			"counted_cash":    close.CountedCash,
			"variance":        close.Variance,
			"variance_reason": close.VarianceReason,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *sessionRepo) Reopen(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionTemporarilyClosed).
		Updates(map[string]interface{}{
			"status":    model.SessionOpen,
			"closed_at": nil,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *sessionRepo) ListClosedInWindow(ctx context.Context, locationID uuid.UUID, from, to time.Time) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Preload("Interims", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Where("location_id = ? AND status <> ? AND closed_at >= ? AND closed_at < ?",
			locationID, model.SessionOpen, from, to).
		Order("closed_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) AppendMovement(ctx context.Context, m *model.CashMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *sessionRepo) SumMovements(ctx context.Context, sessionID uuid.UUID) (decimal.Decimal, error) {
	var raw *string
	err := r.db.WithContext(ctx).Model(&model.CashMovement{}).
		Where("session_id = ?", sessionID).
		Select("SUM(amount)").
		Row().Scan(&raw)
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*raw)
}

func (r *sessionRepo) CountForDate(ctx context.Context, locationID uuid.UUID, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Session{}).
		Where("location_id = ? AND opened_at >= ? AND opened_at < ?", locationID, from, to).
		Count(&n).Error
	return n, err
}
