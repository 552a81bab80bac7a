package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Day statuses. Closed is terminal.
const (
	DayOpen   = "open"
	DayClosed = "closed"
)

// Checklist is the named boolean gate map stored on a DayRecord.
// Persisted as jsonb.
type Checklist map[string]bool

func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *Checklist) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = Checklist{}
		return nil
	default:
		return fmt.Errorf("checklist: cannot scan %T", src)
	}
}

// DayRecord is the per-location, per-business-date umbrella record. Its close
// consolidates all sessions settled on that date and is applied exactly once
// via a conditional write on status.
type DayRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_days_location_date,priority:1"`
	// BusinessDate is a location-local calendar date, stored at midnight UTC.
	BusinessDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_days_location_date,priority:2"`
	Status       string    `gorm:"type:varchar(10);not null;default:'open'"`
	Checklist    Checklist `gorm:"type:jsonb;not null;default:'{}'"`
	// SettlementSnapshot is the summary frozen at close time (audit trail).
	SettlementSnapshot json.RawMessage `gorm:"type:jsonb"`
	OpenedAt           time.Time
	ClosedAt           *time.Time
	// ReportSentAt is stamped by the report worker once the settlement
	// recap PDF has been mailed.
	ReportSentAt *time.Time
}
