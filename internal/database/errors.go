package database

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when an update raced with another writer
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicateCompleted is returned when a second payment of one booking would become COMPLETED
	ErrDuplicateCompleted = errors.New("booking already has a completed payment")
	// ErrDuplicateOrder is returned when a gateway order id is already attached to a payment
	ErrDuplicateOrder = errors.New("gateway order already has a payment")
	// ErrBookingOverlap is returned when a live booking would overlap another on the same venue
	ErrBookingOverlap = errors.New("booking overlaps an existing booking")
)

const (
	uniqueCompletedPaymentIndex = "uq_payments_one_completed_per_booking"
	uniqueGatewayOrderIndex     = "uq_payments_gateway_order"
	bookingOverlapConstraint    = "ex_bookings_no_overlap"

	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// translatePaymentError maps the payment unique index violations to their sentinels
func translatePaymentError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case uniqueCompletedPaymentIndex:
		return ErrDuplicateCompleted
	case uniqueGatewayOrderIndex:
		return ErrDuplicateOrder
	}
	return err
}

// translateBookingError maps the venue overlap exclusion to ErrBookingOverlap
func translateBookingError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqExclusionViolation && pqErr.Constraint == bookingOverlapConstraint {
		return ErrBookingOverlap
	}
	return err
}
