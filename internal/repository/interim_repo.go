package repository

import (
	"context"

	"tillpoint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InterimRepository is the append-only interim settlement ledger. Rows are
// never updated or deleted; Sequence is allocated inside the insert
// transaction and backed by a unique (session_id, sequence) index.
type InterimRepository interface {
	Append(ctx context.Context, entry *model.InterimSettlement) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.InterimSettlement, error)
}

type interimRepo struct{ db *gorm.DB }

func NewInterimRepository(db *gorm.DB) InterimRepository { return &interimRepo{db: db} }

func (r *interimRepo) Append(ctx context.Context, entry *model.InterimSettlement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		if err := tx.Model(&model.InterimSettlement{}).
			Where("session_id = ?", entry.SessionID).
			Select("COALESCE(MAX(sequence), 0)").
			Row().Scan(&maxSeq); err != nil {
			return err
		}
		entry.Sequence = maxSeq + 1
		return tx.Create(entry).Error
	})
}

func (r *interimRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.InterimSettlement, error) {
	var entries []model.InterimSettlement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence ASC").
		Find(&entries).Error
	return entries, err
}
