package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Interim settlement reason types.
const (
	InterimCashDrop     = "cash_drop"
	InterimCashAddition = "cash_addition"
)

// InterimSettlement is a mid-session cash drop or addition, recorded before
// final close. Rows are append-only: never updated, never deleted. Sequence
// is strictly increasing per session (unique index backstop).
//
// Interim rows are informational for settlement — the cash they moved is
// already reflected in the counted/expected figures at session close, so the
// aggregator only counts them, it never adds them into variance.
type InterimSettlement struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_interim_session_seq,priority:1"`
	Sequence   int             `gorm:"not null;uniqueIndex:idx_interim_session_seq,priority:2"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ReasonType string          `gorm:"type:varchar(20);not null"`
	ReasonName string          `gorm:"not null"`
	RecordedAt time.Time
}
