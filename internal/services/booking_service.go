package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
)

// BookingService handles booking creation, lookups and user cancellation
type BookingService struct {
	bookings BookingStore
	venues   VenueStore
	rec      *recorder
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBookingService creates a new BookingService
func NewBookingService(bookings BookingStore, venues VenueStore, audit AuditLogger, events EventPublisher, logger *logrus.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		venues:   venues,
		rec:      newRecorder(audit, events, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBooking validates the request, checks availability, prices the range
// and stores a PENDING booking owned by the actor
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError("%s", err.Error())
	}
	venueID, err := uuid.Parse(req.VenueID)
	if err != nil {
		return nil, validationError("Invalid venue ID")
	}
	if req.StartDate.Before(s.now()) {
		return nil, validationError("Start date cannot be in the past")
	}

	venue, err := s.venues.GetVenueByID(ctx, venueID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundError("Venue not found")
		}
		return nil, internalError("failed to load venue", err)
	}

	if err := s.checkAvailability(ctx, venue.ID, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:          actor.UserID,
		VenueID:         venue.ID,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		TotalPrice:      ComputePrice(venue.PricePerDay, req.StartDate, req.EndDate),
		Status:          models.BookingStatusPending,
		EventType:       req.EventType,
		SpecialRequests: req.SpecialRequests,
	}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, database.ErrBookingOverlap) {
			s.logger.WithField("venue_id", venue.ID).Info("Venue taken by a concurrent booking")
			return nil, errVenueUnavailable
		}
		return nil, internalError("failed to create booking", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"venue_id":    venue.ID,
		"user_id":     actor.UserID,
		"total_price": booking.TotalPrice,
	}).Info("Booking created")

	return booking, nil
}

func (s *BookingService) checkAvailability(ctx context.Context, venueID uuid.UUID, start, end time.Time) error {
	existing, err := s.bookings.ListBookingsByVenue(ctx, venueID)
	if err != nil {
		return internalError("failed to load venue bookings", err)
	}
	if conflict := FindConflict(existing, start, end); conflict != nil {
		s.logger.WithFields(logrus.Fields{
			"venue_id":            venueID,
			"conflict_booking_id": conflict.ID,
		}).Info("Venue not available for requested dates")
		return errVenueUnavailable
	}
	return nil
}

// GetBooking returns a booking visible to the actor
func (s *BookingService) GetBooking(ctx context.Context, actor Actor, id uuid.UUID) (*models.Booking, error) {
	booking, err := loadBooking(ctx, s.bookings, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.UserID && !actor.IsAdmin() && !actor.HasRole(models.RoleOwner) {
		return nil, forbiddenError("You do not have access to this booking")
	}
	return booking, nil
}

// ListMyBookings returns the actor's bookings
func (s *BookingService) ListMyBookings(ctx context.Context, actor Actor) ([]*models.Booking, error) {
	bookings, err := s.bookings.ListBookingsByUser(ctx, actor.UserID)
	if err != nil {
		return nil, internalError("failed to list bookings", err)
	}
	return bookings, nil
}

// ListBookingsByOwner returns bookings for the venues of ownerID
func (s *BookingService) ListBookingsByOwner(ctx context.Context, actor Actor, ownerID uuid.UUID) ([]*models.Booking, error) {
	if actor.UserID != ownerID && !actor.IsAdmin() {
		return nil, forbiddenError("You can only view bookings for your own venues")
	}
	bookings, err := s.bookings.ListBookingsByOwner(ctx, ownerID)
	if err != nil {
		return nil, internalError("failed to list bookings", err)
	}
	return bookings, nil
}

// ListAllBookings returns every booking
func (s *BookingService) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	bookings, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return nil, internalError("failed to list bookings", err)
	}
	return bookings, nil
}

// BookedDates returns the occupied ranges of a venue
func (s *BookingService) BookedDates(ctx context.Context, venueID uuid.UUID) ([]models.BookedDateRange, error) {
	bookings, err := s.bookings.ListBookingsByVenue(ctx, venueID)
	if err != nil {
		return nil, internalError("failed to load venue bookings", err)
	}
	ranges := make([]models.BookedDateRange, 0, len(bookings))
	for _, b := range bookings {
		if b.IsCancelled() {
			continue
		}
		ranges = append(ranges, models.BookedDateRange{BookingID: b.ID, StartDate: b.StartDate, EndDate: b.EndDate})
	}
	return ranges, nil
}

// CancelBooking cancels a PENDING or CONFIRMED booking on behalf of its owner.
// Payments are not refunded here.
func (s *BookingService) CancelBooking(ctx context.Context, actor Actor, id uuid.UUID) (*models.Booking, error) {
	var previous models.BookingStatus

	booking, _, err := mutateBooking(ctx, s.bookings, id, func(b *models.Booking) (bool, error) {
		if b.UserID != actor.UserID {
			return false, forbiddenError("You can only cancel your own bookings")
		}
		switch b.Status {
		case models.BookingStatusCancelled:
			return false, conflictError("Booking is already cancelled")
		case models.BookingStatusCompleted:
			return false, conflictError("Completed bookings cannot be cancelled")
		}
		previous = b.Status
		b.Status = models.BookingStatusCancelled
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":      booking.ID,
		"user_id":         actor.UserID,
		"previous_status": previous,
	}).Info("Booking cancelled by user")

	s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventBookingCancelled, models.PaymentSourceUser).
		SetBooking(booking.ID).
		SetTransition(string(previous), string(booking.Status)).
		SetActor(actor.UserID))
	s.rec.publish(ctx, bookingEvent(models.EventBookingCancelled, booking, models.PaymentSourceUser))

	return booking, nil
}
