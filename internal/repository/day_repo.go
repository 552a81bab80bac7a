package repository

import (
	"context"
	"encoding/json"
	"time"

	"tillpoint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DayRepository is the durable day record store. Close is a single
// conditional write on status=open so that two concurrent close requests can
// never both succeed.
type DayRepository interface {
	Create(ctx context.Context, d *model.DayRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DayRecord, error)
	FindByLocationDate(ctx context.Context, locationID uuid.UUID, businessDate time.Time) (*model.DayRecord, error)

	// Close applies open → closed, freezing the checklist and settlement
	// snapshots. applied=false means the day was already closed.
	Close(ctx context.Context, id uuid.UUID, closedAt time.Time, checklist model.Checklist, snapshot json.RawMessage) (applied bool, err error)

	MarkReportSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	// ListClosedUnreported finds closed days whose settlement report has not
	// gone out yet — consumed by the report retry cron.
	ListClosedUnreported(ctx context.Context, closedBefore time.Time, limit int) ([]model.DayRecord, error)
}

type dayRepo struct{ db *gorm.DB }

func NewDayRepository(db *gorm.DB) DayRepository { return &dayRepo{db: db} }

func (r *dayRepo) Create(ctx context.Context, d *model.DayRecord) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *dayRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DayRecord, error) {
	var d model.DayRecord
	err := r.db.WithContext(ctx).First(&d, id).Error
	return &d, err
}

func (r *dayRepo) FindByLocationDate(ctx context.Context, locationID uuid.UUID, businessDate time.Time) (*model.DayRecord, error) {
	var d model.DayRecord
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND business_date = ?", locationID, businessDate).
		First(&d).Error
	return &d, err
}

func (r *dayRepo) Close(ctx context.Context, id uuid.UUID, closedAt time.Time, checklist model.Checklist, snapshot json.RawMessage) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.DayRecord{}).
		Where("id = ? AND status = ?", id, model.DayOpen).
		Updates(map[string]interface{}{
			"status":              model.DayClosed,
			"closed_at":           closedAt,
			"checklist":           checklist,
			"settlement_snapshot": snapshot,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *dayRepo) MarkReportSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.DayRecord{}).
		Where("id = ?", id).
		Update("report_sent_at", sentAt).Error
}

func (r *dayRepo) ListClosedUnreported(ctx context.Context, closedBefore time.Time, limit int) ([]model.DayRecord, error) {
	var days []model.DayRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND report_sent_at IS NULL AND closed_at < ?", model.DayClosed, closedBefore).
		Order("closed_at ASC").
		Limit(limit).
		Find(&days).Error
	return days, err
}
