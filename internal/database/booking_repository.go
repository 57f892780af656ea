package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/models"
)

const bookingColumns = `id, user_id, venue_id, start_date, end_date, total_price,
	status, event_type, special_requests, version, created_at, updated_at`

// BookingRepository handles database operations for bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateBooking inserts a new booking at version 1
func (r *BookingRepository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	query := `
		INSERT INTO bookings (
			id, user_id, venue_id, start_date, end_date, total_price,
			status, event_type, special_requests, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.UserID, booking.VenueID, booking.StartDate, booking.EndDate, booking.TotalPrice,
		booking.Status, booking.EventType, booking.SpecialRequests, booking.Version, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		if translated := translateBookingError(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBookingByID retrieves a booking by ID
func (r *BookingRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListBookingsByVenue returns every booking for a venue, cancelled ones included
func (r *BookingRepository) ListBookingsByVenue(ctx context.Context, venueID uuid.UUID) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE venue_id = $1 ORDER BY start_date ASC`
	return r.list(ctx, query, venueID)
}

// ListBookingsByUser returns the bookings made by a user, newest first
func (r *BookingRepository) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListBookingsByOwner returns bookings for all venues owned by ownerID
func (r *BookingRepository) ListBookingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	query := `
		SELECT b.id, b.user_id, b.venue_id, b.start_date, b.end_date, b.total_price,
			   b.status, b.event_type, b.special_requests, b.version, b.created_at, b.updated_at
		FROM bookings b
		JOIN venues v ON v.id = b.venue_id
		WHERE v.owner_id = $1
		ORDER BY b.created_at DESC
	`
	return r.list(ctx, query, ownerID)
}

// ListBookings returns all bookings, newest first
func (r *BookingRepository) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// UpdateBooking writes the mutable fields if the stored version still matches,
// then bumps booking.Version
func (r *BookingRepository) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	now := time.Now()
	query := `
		UPDATE bookings
		SET status = $3, total_price = $4, event_type = $5, special_requests = $6,
			version = version + 1, updated_at = $7
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		booking.ID, booking.Version,
		booking.Status, booking.TotalPrice, booking.EventType, booking.SpecialRequests, now,
	)
	if err != nil {
		if translated := translateBookingError(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if err := r.checkUpdated(ctx, result, booking.ID); err != nil {
		return err
	}

	booking.Version++
	booking.UpdatedAt = now
	return nil
}

func (r *BookingRepository) checkUpdated(ctx context.Context, result sql.Result, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	bookings := []*models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}
