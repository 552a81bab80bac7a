package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	LocationID  string          `json:"location_id" validate:"required,uuid"`
	TerminalID  string          `json:"terminal_id" validate:"required,min=1,max=20"`
	OpeningCash decimal.Decimal `json:"opening_cash" validate:"min=0"`
}

// CloseSessionRequest drives both close modes. counted_cash is required for
// mode=permanent; variance_reason is required whenever the resulting variance
// is non-zero (enforced in the service, not here — it depends on the computed
// value).
type CloseSessionRequest struct {
	Mode           string           `json:"mode" validate:"required,oneof=temporary permanent"`
	CountedCash    *decimal.Decimal `json:"counted_cash"`
	VarianceReason *string          `json:"variance_reason"`
}

// ReopenSessionRequest carries the opaque authorization token issued by the
// external approval policy. The core does not interpret it.
type ReopenSessionRequest struct {
	Authorization string `json:"authorization" validate:"required"`
}

type RecordMovementRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Reference string          `json:"reference" validate:"required,min=1"`
}

type RecordInterimRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	ReasonType string          `json:"reason_type" validate:"required,oneof=cash_drop cash_addition"`
	ReasonName string          `json:"reason_name" validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InterimResponse struct {
	Sequence   int             `json:"sequence"`
	Amount     decimal.Decimal `json:"amount"`
	ReasonType string          `json:"reason_type"`
	ReasonName string          `json:"reason_name"`
	RecordedAt string          `json:"recorded_at"`
}

type SessionResponse struct {
	SessionID      string             `json:"session_id"`
	SessionNumber  string             `json:"session_number"`
	CashierID      string             `json:"cashier_id"`
	CashierName    string             `json:"cashier_name"`
	LocationID     string             `json:"location_id"`
	TerminalID     string             `json:"terminal_id"`
	Status         string             `json:"status"`
	OpeningCash    decimal.Decimal    `json:"opening_cash"`
	ExpectedCash   *decimal.Decimal   `json:"expected_cash"`
	CountedCash    *decimal.Decimal   `json:"counted_cash"`
	Variance       *decimal.Decimal   `json:"variance"`
	VarianceReason *string            `json:"variance_reason"`
	OpenedAt       string             `json:"opened_at"`
	ClosedAt       *string            `json:"closed_at"`
	Interims       []InterimResponse  `json:"interim_settlements,omitempty"`
}
