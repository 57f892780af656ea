package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
)

// maxUpdateAttempts bounds the read-modify-write loop on version conflicts
const maxUpdateAttempts = 5

// bookingMutation inspects a freshly read booking and mutates it in place.
// It returns false when there is nothing to write.
type bookingMutation func(b *models.Booking) (bool, error)

// paymentMutation is the payment counterpart of bookingMutation
type paymentMutation func(p *models.Payment) (bool, error)

// mutateBooking re-reads the booking and re-applies fn until the versioned
// update succeeds. The returned bool reports whether anything was written.
func mutateBooking(ctx context.Context, store BookingStore, id uuid.UUID, fn bookingMutation) (*models.Booking, bool, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		booking, err := store.GetBookingByID(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, false, notFoundError("Booking not found")
			}
			return nil, false, internalError("failed to load booking", err)
		}

		changed, err := fn(booking)
		if err != nil {
			return booking, false, err
		}
		if !changed {
			return booking, false, nil
		}

		err = store.UpdateBooking(ctx, booking)
		if err == nil {
			return booking, true, nil
		}
		if errors.Is(err, database.ErrBookingOverlap) {
			return booking, false, errVenueUnavailable
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return nil, false, internalError("failed to update booking", err)
		}
	}
	return nil, false, internalError("booking is being updated concurrently, please retry", database.ErrVersionConflict)
}

// mutatePayment re-reads the payment and re-applies fn until the versioned
// update succeeds. The returned bool reports whether anything was written.
func mutatePayment(ctx context.Context, store PaymentStore, id uuid.UUID, fn paymentMutation) (*models.Payment, bool, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		payment, err := store.GetPaymentByID(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, false, notFoundError("Payment not found")
			}
			return nil, false, internalError("failed to load payment", err)
		}

		changed, err := fn(payment)
		if err != nil {
			return payment, false, err
		}
		if !changed {
			return payment, false, nil
		}

		err = store.UpdatePayment(ctx, payment)
		if err == nil {
			return payment, true, nil
		}
		if errors.Is(err, database.ErrDuplicateCompleted) {
			return payment, false, errDuplicateCompleted
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return nil, false, internalError("failed to update payment", err)
		}
	}
	return nil, false, internalError("payment is being updated concurrently, please retry", database.ErrVersionConflict)
}

var errVenueUnavailable = &ServiceError{
	Kind:    KindConflict,
	Message: "Venue is not available for the selected dates",
	Err:     database.ErrBookingOverlap,
}

var errDuplicateCompleted = &ServiceError{
	Kind:    KindConflict,
	Message: "Payment already completed for this booking",
	Err:     database.ErrDuplicateCompleted,
}
