package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/models"
)

// VenueRepository is a read-only view over the venue catalog
type VenueRepository struct {
	db DB
}

// NewVenueRepository creates a new VenueRepository
func NewVenueRepository(db DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// GetVenueByID retrieves a venue by ID
func (r *VenueRepository) GetVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	var venue models.Venue
	query := `
		SELECT id, owner_id, name, location, price_per_day, capacity, created_at
		FROM venues
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &venue, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	return &venue, nil
}
