package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session statuses. PermanentlyClosed is terminal — a session is never
// mutated again once it reaches it.
const (
	SessionOpen              = "open"
	SessionTemporarilyClosed = "temporarily_closed"
	SessionPermanentlyClosed = "permanently_closed"
)

// Session is one cashier's continuous working period at a terminal.
// ExpectedCash, CountedCash, Variance and VarianceReason stay nil until the
// session leaves the open state; ExpectedCash = OpeningCash + SUM(movements).
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number    string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	CashierID uuid.UUID `gorm:"type:uuid;not null;index"`
	// CashierName is denormalized at open time for settlement recaps.
	CashierName string    `gorm:"not null"`
	LocationID  uuid.UUID `gorm:"type:uuid;not null;index:idx_sessions_location_closed,priority:1"`
	TerminalID  string    `gorm:"type:varchar(20);not null"`
	OpenedAt    time.Time
	ClosedAt    *time.Time       `gorm:"index:idx_sessions_location_closed,priority:2"`
	OpeningCash decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	ExpectedCash   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CountedCash    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Variance       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	VarianceReason *string
	Status         string `gorm:"type:varchar(20);not null;default:'open';index"`

	Movements []CashMovement      `gorm:"foreignKey:SessionID"`
	Interims  []InterimSettlement `gorm:"foreignKey:SessionID"`
}

// CashMovement is an immutable ledger row recording a completed sale total
// against an open session. Movements are NEVER modified or deleted —
// corrections create inverse entries.
type CashMovement struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reference string          `gorm:"not null"`
	CreatedAt time.Time
}
