package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
)

// Completion describes how a payment reached COMPLETED
type Completion struct {
	// GatewayPaymentID replaces the transaction id when set
	GatewayPaymentID string
	// Method overrides the stored method when set
	Method *models.PaymentMethod
	Note   string
	Source models.PaymentEventSource
	// Actor is recorded on the audit entry, uuid.Nil for server-side events
	Actor uuid.UUID
}

// Outcome reports what a reconciliation call did
type Outcome struct {
	Payment        *models.Payment
	Booking        *models.Booking
	PaymentChanged bool
	BookingChanged bool
}

// Reconciler owns every payment-driven transition of payments and bookings.
// All writes are idempotent state assignments guarded by row versions, so the
// client verification path and the webhook path may run in any order or concurrently.
type Reconciler struct {
	bookings BookingStore
	payments PaymentStore
	rec      *recorder
	logger   *logrus.Logger
	now      func() time.Time
}

// NewReconciler creates a new Reconciler
func NewReconciler(bookings BookingStore, payments PaymentStore, audit AuditLogger, events EventPublisher, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		bookings: bookings,
		payments: payments,
		rec:      newRecorder(audit, events, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// CompletePayment moves a payment to COMPLETED and its booking to CONFIRMED.
// Re-completing a COMPLETED payment is a no-op that still heals the booking.
// A REFUNDED payment is left untouched.
func (r *Reconciler) CompletePayment(ctx context.Context, paymentID uuid.UUID, c Completion) (*Outcome, error) {
	var previous models.PaymentStatus

	payment, changed, err := mutatePayment(ctx, r.payments, paymentID, func(p *models.Payment) (bool, error) {
		previous = p.Status
		if p.Status == models.PaymentStatusCompleted {
			// promote the order id left behind by a completion that only knew the order
			if c.GatewayPaymentID != "" && p.TransactionIDValue() != c.GatewayPaymentID &&
				p.GatewayOrderID != nil && p.TransactionIDValue() == *p.GatewayOrderID {
				id := c.GatewayPaymentID
				p.TransactionID = &id
				return true, nil
			}
			return false, nil
		}
		if !p.Status.CanTransitionTo(models.PaymentStatusCompleted) {
			return false, nil
		}

		siblings, err := r.payments.ListPaymentsByBooking(ctx, p.BookingID)
		if err != nil {
			return false, internalError("failed to load booking payments", err)
		}
		for _, other := range siblings {
			if other.ID != p.ID && other.Status == models.PaymentStatusCompleted {
				return false, errDuplicateCompleted
			}
		}

		now := r.now()
		p.Status = models.PaymentStatusCompleted
		p.PaymentDate = &now
		if c.GatewayPaymentID != "" {
			id := c.GatewayPaymentID
			p.TransactionID = &id
		}
		if c.Method != nil {
			p.Method = *c.Method
		}
		if c.Note != "" {
			p.AppendNote(c.Note)
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateCompleted) {
			r.recordDuplicateCompletion(ctx, paymentID, c)
		}
		return nil, err
	}

	out := &Outcome{Payment: payment, PaymentChanged: changed && previous != models.PaymentStatusCompleted}

	if payment.Status == models.PaymentStatusRefunded {
		r.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"source":     c.Source,
		}).Info("Ignoring completion for refunded payment")
		return out, nil
	}

	if out.PaymentChanged {
		r.logger.WithFields(logrus.Fields{
			"payment_id":      payment.ID,
			"booking_id":      payment.BookingID,
			"transaction_id":  payment.TransactionIDValue(),
			"previous_status": previous,
			"source":          c.Source,
		}).Info("Payment completed")

		r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventSuccess, c.Source).
			SetPayment(payment).
			SetGatewayPaymentID(c.GatewayPaymentID).
			SetTransition(string(previous), string(payment.Status)).
			SetActor(c.Actor))
		r.rec.publish(ctx, paymentEvent(models.EventPaymentCompleted, payment, c.Source))
	}

	booking, bookingChanged, err := r.confirmBooking(ctx, payment, c.Source)
	if err != nil {
		return nil, err
	}
	out.Booking = booking
	out.BookingChanged = bookingChanged
	return out, nil
}

func (r *Reconciler) confirmBooking(ctx context.Context, payment *models.Payment, source models.PaymentEventSource) (*models.Booking, bool, error) {
	var previous models.BookingStatus

	booking, changed, err := mutateBooking(ctx, r.bookings, payment.BookingID, func(b *models.Booking) (bool, error) {
		previous = b.Status
		if b.Status != models.BookingStatusPending {
			return false, nil
		}
		b.Status = models.BookingStatusConfirmed
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	switch {
	case changed:
		r.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"payment_id": payment.ID,
			"source":     source,
		}).Info("Booking confirmed")

		r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventBookingConfirmed, source).
			SetPayment(payment).
			SetTransition(string(previous), string(booking.Status)))
		r.rec.publish(ctx, bookingEvent(models.EventBookingConfirmed, booking, source))

	case booking.Status == models.BookingStatusCancelled:
		// paid for a booking that no longer exists; leave it cancelled for manual follow-up
		r.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"payment_id": payment.ID,
			"source":     source,
		}).Warn("Payment completed for a cancelled booking")

		r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, source).
			SetPayment(payment).
			SetError("payment completed for cancelled booking", nil))
	}

	return booking, changed, nil
}

func (r *Reconciler) recordDuplicateCompletion(ctx context.Context, paymentID uuid.UUID, c Completion) {
	r.logger.WithFields(logrus.Fields{
		"payment_id":         paymentID,
		"gateway_payment_id": c.GatewayPaymentID,
		"source":             c.Source,
	}).Warn("Second completed payment for one booking refused")

	audit := models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, c.Source).
		SetGatewayPaymentID(c.GatewayPaymentID).
		SetError("booking already has a completed payment", nil).
		SetActor(c.Actor)
	if p, err := r.payments.GetPaymentByID(ctx, paymentID); err == nil {
		audit.SetPayment(p)
	}
	r.rec.record(ctx, audit)
}

// FailPayment moves a PENDING payment to FAILED. COMPLETED and REFUNDED
// payments are never downgraded; the call is a no-op for them.
func (r *Reconciler) FailPayment(ctx context.Context, paymentID uuid.UUID, reason string, source models.PaymentEventSource) (*Outcome, error) {
	var previous models.PaymentStatus

	payment, changed, err := mutatePayment(ctx, r.payments, paymentID, func(p *models.Payment) (bool, error) {
		previous = p.Status
		if !p.Status.CanTransitionTo(models.PaymentStatusFailed) {
			return false, nil
		}
		p.Status = models.PaymentStatusFailed
		p.AppendNote("Payment failed: " + reason)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"payment_id":      payment.ID,
		"booking_id":      payment.BookingID,
		"previous_status": previous,
		"reason":          reason,
		"source":          source,
	}

	if !changed {
		if previous == models.PaymentStatusCompleted || previous == models.PaymentStatusRefunded {
			r.logger.WithFields(fields).Warn("Ignoring failure for settled payment")
			r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventReconciliationMismatch, source).
				SetPayment(payment).
				SetError(fmt.Sprintf("failure reported for %s payment: %s", previous, reason), nil))
		}
		return &Outcome{Payment: payment}, nil
	}

	r.logger.WithFields(fields).Info("Payment failed")
	r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventFailed, source).
		SetPayment(payment).
		SetTransition(string(previous), string(payment.Status)).
		SetError(reason, nil))
	r.rec.publish(ctx, paymentEvent(models.EventPaymentFailed, payment, source))

	return &Outcome{Payment: payment, PaymentChanged: true}, nil
}

// RefundPayment moves a COMPLETED payment to REFUNDED and cancels its booking.
// Repeating it on a REFUNDED payment is a no-op; any other status is a conflict.
func (r *Reconciler) RefundPayment(ctx context.Context, paymentID uuid.UUID, note string, source models.PaymentEventSource, actor uuid.UUID) (*Outcome, error) {
	var previous models.PaymentStatus

	payment, changed, err := mutatePayment(ctx, r.payments, paymentID, func(p *models.Payment) (bool, error) {
		previous = p.Status
		if p.Status == models.PaymentStatusRefunded {
			return false, nil
		}
		if !p.Status.CanTransitionTo(models.PaymentStatusRefunded) {
			return false, conflictError("Only completed payments can be refunded")
		}
		p.Status = models.PaymentStatusRefunded
		if note != "" {
			p.AppendNote(note)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	out := &Outcome{Payment: payment, PaymentChanged: changed}
	if changed {
		r.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"booking_id": payment.BookingID,
			"source":     source,
		}).Info("Payment refunded")

		r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventRefundCompleted, source).
			SetPayment(payment).
			SetTransition(string(previous), string(payment.Status)).
			SetActor(actor))
		r.rec.publish(ctx, paymentEvent(models.EventPaymentRefunded, payment, source))
	}

	booking, bookingChanged, err := r.cancelBooking(ctx, payment, source)
	if err != nil {
		return nil, err
	}
	out.Booking = booking
	out.BookingChanged = bookingChanged
	return out, nil
}

func (r *Reconciler) cancelBooking(ctx context.Context, payment *models.Payment, source models.PaymentEventSource) (*models.Booking, bool, error) {
	var previous models.BookingStatus

	booking, changed, err := mutateBooking(ctx, r.bookings, payment.BookingID, func(b *models.Booking) (bool, error) {
		previous = b.Status
		if b.IsCancelled() {
			return false, nil
		}
		b.Status = models.BookingStatusCancelled
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		r.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"payment_id": payment.ID,
			"source":     source,
		}).Info("Booking cancelled after refund")

		r.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventBookingCancelled, source).
			SetPayment(payment).
			SetTransition(string(previous), string(booking.Status)))
		r.rec.publish(ctx, bookingEvent(models.EventBookingCancelled, booking, source))
	}
	return booking, changed, nil
}
