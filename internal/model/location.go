package model

import (
	"time"

	"github.com/google/uuid"
)

// Location is a store/branch. Timezone is the IANA name used to bucket
// session closes into business dates (location-local, not UTC truncation).
type Location struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Timezone  string    `gorm:"type:varchar(64);not null;default:'UTC'"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
