package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenDayRequest struct {
	LocationID   string `json:"location_id" validate:"required,uuid"`
	BusinessDate string `json:"business_date" validate:"required,datetime=2006-01-02"`
}

// CloseDayRequest supplies the operator's checklist self-certification.
// The gate is evaluated against exactly this map at commit time.
type CloseDayRequest struct {
	Checklist map[string]bool `json:"checklist" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DayResponse struct {
	DayID        string          `json:"day_id"`
	LocationID   string          `json:"location_id"`
	BusinessDate string          `json:"business_date"`
	Status       string          `json:"status"`
	Checklist    map[string]bool `json:"checklist"`
	OpenedAt     string          `json:"opened_at"`
	ClosedAt     *string         `json:"closed_at"`
}

// CloseDayResponse returns the closed record plus the settlement snapshot
// frozen at close time.
type CloseDayResponse struct {
	Day        DayResponse       `json:"day"`
	Settlement SettlementSummary `json:"settlement"`
}
