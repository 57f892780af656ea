package services

import (
	"time"

	"github.com/venuebooking/booking-backend/internal/models"
)

// FindConflict returns the first non-cancelled booking whose range intersects
// [start, end] (inclusive), or nil when the venue is free
func FindConflict(existing []*models.Booking, start, end time.Time) *models.Booking {
	for _, b := range existing {
		if b.IsCancelled() {
			continue
		}
		if b.Overlaps(start, end) {
			return b
		}
	}
	return nil
}

// BookedDays counts calendar days from start to end, both inclusive.
// A booking within a single day counts as one day.
func BookedDays(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.In(start.Location()).Date()
	from := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	to := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours()/24) + 1
}

// ComputePrice returns days × pricePerDay for the booked range
func ComputePrice(pricePerDay float64, start, end time.Time) float64 {
	return float64(BookedDays(start, end)) * pricePerDay
}
