package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
)

// BookingOverrideService lets admins and venue owners force a booking status.
// It bypasses the payment linkage entirely and is kept apart from Reconciler;
// every use is logged with manual_override=true and audited.
type BookingOverrideService struct {
	bookings BookingStore
	rec      *recorder
	logger   *logrus.Logger
}

// NewBookingOverrideService creates a new BookingOverrideService
func NewBookingOverrideService(bookings BookingStore, audit AuditLogger, logger *logrus.Logger) *BookingOverrideService {
	return &BookingOverrideService{
		bookings: bookings,
		rec:      newRecorder(audit, nil, logger),
		logger:   logger,
	}
}

// OverrideStatus sets the booking to any of PENDING, CONFIRMED, CANCELLED or COMPLETED
func (s *BookingOverrideService) OverrideStatus(ctx context.Context, actor Actor, id uuid.UUID, rawStatus string) (*models.Booking, error) {
	status, err := models.ParseOverrideStatus(rawStatus)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		booking, err := s.bookings.GetBookingByID(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, notFoundError("Booking not found")
			}
			return nil, internalError("failed to load booking", err)
		}

		previous := booking.Status
		booking.Status = status
		err = s.bookings.UpdateBooking(ctx, booking)
		if errors.Is(err, database.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, database.ErrBookingOverlap) {
			return nil, errVenueUnavailable
		}
		if err != nil {
			return nil, internalError("failed to update booking", err)
		}

		s.logger.WithFields(logrus.Fields{
			"manual_override": true,
			"booking_id":      booking.ID,
			"actor_id":        actor.UserID,
			"previous_status": previous,
			"new_status":      status,
		}).Warn("Booking status overridden manually")

		s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventManualOverride, models.PaymentSourceAdmin).
			SetBooking(booking.ID).
			SetTransition(string(previous), string(status)).
			SetActor(actor.UserID))

		return booking, nil
	}
	return nil, internalError("booking is being updated concurrently, please retry", database.ErrVersionConflict)
}
