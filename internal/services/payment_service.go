package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
)

// PaymentService records direct (non-gateway) payments and serves payment listings
type PaymentService struct {
	bookings   BookingStore
	payments   PaymentStore
	reconciler *Reconciler
	rec        *recorder
	logger     *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(bookings BookingStore, payments PaymentStore, reconciler *Reconciler, audit AuditLogger, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		bookings:   bookings,
		payments:   payments,
		reconciler: reconciler,
		rec:        newRecorder(audit, nil, logger),
		logger:     logger,
	}
}

// CreatePayment stores a direct payment. It completes only when the amount
// equals the booking total; otherwise the payment is stored as FAILED.
func (s *PaymentService) CreatePayment(ctx context.Context, actor Actor, req *models.CreatePaymentRequest) (*models.Payment, error) {
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, validationError("Invalid booking ID")
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, validationError("Invalid payment method: %s", req.PaymentMethod)
	}
	if req.Amount <= 0 {
		return nil, validationError("Amount must be greater than zero")
	}

	booking, err := loadBooking(ctx, s.bookings, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.UserID {
		return nil, forbiddenError("You can only pay for your own bookings")
	}
	if booking.IsCancelled() {
		return nil, conflictError("Booking is cancelled")
	}
	if err := ensureNoCompletedPayment(ctx, s.payments, booking.ID); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		BookingID:     booking.ID,
		UserID:        actor.UserID,
		Amount:        req.Amount,
		Method:        method,
		Status:        models.PaymentStatusPending,
		TransactionID: req.TransactionID,
	}
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, internalError("failed to create payment", err)
	}

	audit := models.NewPaymentAudit(models.PaymentEventDirectPayment, models.PaymentSourceUser).
		SetPayment(payment).
		SetActor(actor.UserID)
	amountsMatch := audit.SetAmounts(booking.TotalPrice, req.Amount, DefaultCurrency)
	s.rec.record(ctx, audit)

	var out *Outcome
	if amountsMatch {
		out, err = s.reconciler.CompletePayment(ctx, payment.ID, Completion{
			Note:   "Direct payment accepted",
			Source: models.PaymentSourceUser,
			Actor:  actor.UserID,
		})
	} else {
		s.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"booking_id": booking.ID,
			"expected":   booking.TotalPrice,
			"received":   req.Amount,
		}).Warn("Direct payment amount mismatch")
		out, err = s.reconciler.FailPayment(ctx, payment.ID, "Amount mismatch", models.PaymentSourceUser)
	}
	if err != nil {
		return nil, err
	}
	return out.Payment, nil
}

// ListPaymentsByBooking returns payments of a booking the actor owns
func (s *PaymentService) ListPaymentsByBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) ([]*models.Payment, error) {
	booking, err := loadBooking(ctx, s.bookings, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, forbiddenError("You do not have access to this booking")
	}
	payments, err := s.payments.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, internalError("failed to list payments", err)
	}
	return payments, nil
}

// ListMyPayments returns the actor's payments
func (s *PaymentService) ListMyPayments(ctx context.Context, actor Actor) ([]*models.Payment, error) {
	payments, err := s.payments.ListPaymentsByUser(ctx, actor.UserID)
	if err != nil {
		return nil, internalError("failed to list payments", err)
	}
	return payments, nil
}

// ListAllPayments returns every payment
func (s *PaymentService) ListAllPayments(ctx context.Context) ([]*models.Payment, error) {
	payments, err := s.payments.ListPayments(ctx)
	if err != nil {
		return nil, internalError("failed to list payments", err)
	}
	return payments, nil
}

func loadBooking(ctx context.Context, store BookingStore, id uuid.UUID) (*models.Booking, error) {
	booking, err := store.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundError("Booking not found")
		}
		return nil, internalError("failed to load booking", err)
	}
	return booking, nil
}

func loadPayment(ctx context.Context, store PaymentStore, id uuid.UUID) (*models.Payment, error) {
	payment, err := store.GetPaymentByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundError("Payment not found")
		}
		return nil, internalError("failed to load payment", err)
	}
	return payment, nil
}

func ensureNoCompletedPayment(ctx context.Context, store PaymentStore, bookingID uuid.UUID) error {
	payments, err := store.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return internalError("failed to load booking payments", err)
	}
	for _, p := range payments {
		if p.Status == models.PaymentStatusCompleted {
			return conflictError("Payment already completed for this booking")
		}
	}
	return nil
}
