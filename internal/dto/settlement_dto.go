package dto

import "github.com/shopspring/decimal"

// SettlementTotals aggregates a business day's closed sessions. Variance is
// recomputed from the totals (counted − expected), not summed per row.
type SettlementTotals struct {
	Expected     decimal.Decimal `json:"expected"`
	Counted      decimal.Decimal `json:"counted"`
	Variance     decimal.Decimal `json:"variance"`
	InterimCount int             `json:"interim_count"`
}

// SessionRecap is one closed session's line in the settlement summary.
// Counted is zero (not null) for sessions still temporarily closed.
type SessionRecap struct {
	SessionID      string            `json:"session_id"`
	SessionNumber  string            `json:"session_number"`
	CashierName    string            `json:"cashier_name"`
	Status         string            `json:"status"`
	Expected       decimal.Decimal   `json:"expected"`
	Counted        decimal.Decimal   `json:"counted"`
	Variance       decimal.Decimal   `json:"variance"`
	VarianceReason *string           `json:"variance_reason"`
	ClosedAt       string            `json:"closed_at"`
	Interims       []InterimResponse `json:"interim_settlements"`
}

// SettlementSummary is derived fresh on every request — it is never cached
// across requests so it always reflects the latest close events.
type SettlementSummary struct {
	LocationID   string           `json:"location_id"`
	BusinessDate string           `json:"business_date"`
	Sessions     []SessionRecap   `json:"sessions"`
	Totals       SettlementTotals `json:"totals"`
}
