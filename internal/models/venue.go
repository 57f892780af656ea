package models

import (
	"time"

	"github.com/google/uuid"
)

// Venue is read-only from the booking side; only the day price feeds into totals
type Venue struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Location    *string   `json:"location,omitempty" db:"location"`
	PricePerDay float64   `json:"price_per_day" db:"price_per_day"`
	Capacity    int       `json:"capacity" db:"capacity"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
