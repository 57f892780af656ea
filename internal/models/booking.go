package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a venue booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	// BookingStatusCompleted is only reachable through a manual override.
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// ErrInvalidOverrideStatus is returned for override values outside the accepted set
var ErrInvalidOverrideStatus = errors.New("Invalid status value! Use: PENDING, CONFIRMED, CANCELLED, or COMPLETED")

// ParseOverrideStatus parses a status supplied to the manual override (case-insensitive)
func ParseOverrideStatus(s string) (BookingStatus, error) {
	switch status := BookingStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return status, nil
	default:
		return "", ErrInvalidOverrideStatus
	}
}

// Booking represents a user's reservation of a venue for a date range
type Booking struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	UserID          uuid.UUID     `json:"user_id" db:"user_id"`
	VenueID         uuid.UUID     `json:"venue_id" db:"venue_id"`
	StartDate       time.Time     `json:"start_date" db:"start_date"`
	EndDate         time.Time     `json:"end_date" db:"end_date"`
	TotalPrice      float64       `json:"total_price" db:"total_price"`
	Status          BookingStatus `json:"status" db:"status"`
	EventType       *string       `json:"event_type,omitempty" db:"event_type"`
	SpecialRequests *string       `json:"special_requests,omitempty" db:"special_requests"`
	Version         int64         `json:"version" db:"version"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// IsCancelled reports whether the booking has reached its absorbing state
func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Overlaps reports whether [start, end] intersects the booking's range, inclusive on both ends
func (b *Booking) Overlaps(start, end time.Time) bool {
	return !b.StartDate.After(end) && !start.After(b.EndDate)
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	VenueID         string    `json:"venue_id" binding:"required"`
	StartDate       time.Time `json:"start_date" binding:"required"`
	EndDate         time.Time `json:"end_date" binding:"required"`
	EventType       *string   `json:"event_type,omitempty"`
	SpecialRequests *string   `json:"special_requests,omitempty"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if r.VenueID == "" {
		return errors.New("venue_id is required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if !r.StartDate.Before(r.EndDate) {
		return errors.New("start_date must be before end_date")
	}
	return nil
}

// BookedDateRange is a non-cancelled occupied interval of a venue
type BookedDateRange struct {
	BookingID uuid.UUID `json:"booking_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}
