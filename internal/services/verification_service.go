package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

// VerificationService reconciles the client-confirmed checkout path
type VerificationService struct {
	bookings   BookingStore
	payments   PaymentStore
	gateway    Gateway
	reconciler *Reconciler
	keySecret  string
	rec        *recorder
	logger     *logrus.Logger
}

// NewVerificationService creates a new VerificationService. keySecret signs
// checkout responses.
func NewVerificationService(
	bookings BookingStore,
	payments PaymentStore,
	gateway Gateway,
	reconciler *Reconciler,
	keySecret string,
	audit AuditLogger,
	logger *logrus.Logger,
) *VerificationService {
	return &VerificationService{
		bookings:   bookings,
		payments:   payments,
		gateway:    gateway,
		reconciler: reconciler,
		keySecret:  keySecret,
		rec:        newRecorder(audit, nil, logger),
		logger:     logger,
	}
}

// VerifyPayment checks the checkout signature, reads the true payment method
// from the gateway and completes the matching local payment
func (s *VerificationService) VerifyPayment(ctx context.Context, actor Actor, req *models.VerifyPaymentRequest) (*models.VerifyPaymentResponse, error) {
	orderID := strings.TrimSpace(req.RazorpayOrderID)
	gatewayPaymentID := strings.TrimSpace(req.RazorpayPaymentID)
	if orderID == "" || gatewayPaymentID == "" || req.RazorpaySignature == "" {
		return nil, validationError("razorpayOrderId, razorpayPaymentId and razorpaySignature are required")
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, validationError("Invalid booking ID")
	}

	if !razorpay.VerifyPaymentSignature(s.keySecret, orderID, gatewayPaymentID, req.RazorpaySignature) {
		s.logger.WithFields(logrus.Fields{
			"order_id":   orderID,
			"payment_id": gatewayPaymentID,
			"booking_id": bookingID,
		}).Warn("Payment signature verification failed")

		s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventSignatureRejected, models.PaymentSourceUser).
			SetBooking(bookingID).
			SetGatewayOrderID(orderID).
			SetGatewayPaymentID(gatewayPaymentID).
			SetActor(actor.UserID))
		return nil, unauthenticatedError("Invalid payment signature")
	}

	booking, err := loadBooking(ctx, s.bookings, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, forbiddenError("You can only verify payments for your own bookings")
	}

	gatewayPayment, err := s.gateway.FetchPayment(ctx, gatewayPaymentID)
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", gatewayPaymentID).Error("Failed to fetch Razorpay payment")
		return nil, gatewayError(err)
	}

	payment, err := s.locatePayment(ctx, booking, orderID, gatewayPaymentID)
	if err != nil {
		return nil, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventVerified, models.PaymentSourceUser).
		SetPayment(payment).
		SetGatewayOrderID(orderID).
		SetGatewayPaymentID(gatewayPaymentID).
		SetActor(actor.UserID).
		SetResponsePayload(map[string]interface{}{
			"status": gatewayPayment.Status,
			"method": gatewayPayment.Method,
			"amount": gatewayPayment.Amount,
		})
	if !audit.SetAmounts(payment.Amount, models.FromMinorUnits(gatewayPayment.Amount), gatewayPayment.Currency) {
		s.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"expected":   payment.Amount,
			"received":   models.FromMinorUnits(gatewayPayment.Amount),
		}).Warn("Gateway amount differs from local payment amount")
	}
	s.rec.record(ctx, audit)

	method := models.PaymentMethodFromGateway(gatewayPayment.Method)
	completion := Completion{
		GatewayPaymentID: gatewayPaymentID,
		Method:           &method,
		Note:             "Verified via checkout: " + gatewayPaymentID,
		Source:           models.PaymentSourceUser,
		Actor:            actor.UserID,
	}
	out, err := s.reconciler.CompletePayment(ctx, payment.ID, completion)
	if errors.Is(err, errDuplicateCompleted) {
		out, err = s.completeSettledPayment(ctx, booking.ID, orderID, gatewayPaymentID, completion, err)
	}
	if err != nil {
		return nil, err
	}

	bookingStatus := booking.Status
	if out.Booking != nil {
		bookingStatus = out.Booking.Status
	}

	return &models.VerifyPaymentResponse{
		PaymentID:     out.Payment.ID,
		BookingID:     booking.ID,
		TransactionID: out.Payment.TransactionIDValue(),
		Amount:        out.Payment.Amount,
		PaymentMethod: out.Payment.Method,
		PaymentStatus: out.Payment.Status,
		BookingStatus: bookingStatus,
	}, nil
}

// locatePayment finds the booking's payment for this order, which may already
// carry the gateway payment id if the webhook got there first. When no row
// exists one is synthesised.
func (s *VerificationService) locatePayment(ctx context.Context, booking *models.Booking, orderID, gatewayPaymentID string) (*models.Payment, error) {
	byOrder, err := s.payments.GetPaymentByOrderID(ctx, orderID)
	switch {
	case err == nil && byOrder.BookingID != booking.ID:
		return nil, validationError("Order does not belong to this booking")
	case err != nil && !errors.Is(err, database.ErrNotFound):
		return nil, internalError("failed to load payment", err)
	}

	payments, err := s.payments.ListPaymentsByBooking(ctx, booking.ID)
	if err != nil {
		return nil, internalError("failed to load booking payments", err)
	}
	for _, p := range payments {
		if p.MatchesGatewayID(orderID) || p.MatchesGatewayID(gatewayPaymentID) {
			return p, nil
		}
	}

	payment := &models.Payment{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		Amount:         booking.TotalPrice,
		Method:         models.DefaultPaymentMethod,
		Status:         models.PaymentStatusPending,
		TransactionID:  &orderID,
		GatewayOrderID: &orderID,
	}
	payment.AppendNote("Payment record created during verification for order " + orderID)
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		if !errors.Is(err, database.ErrDuplicateOrder) {
			return nil, internalError("failed to create payment", err)
		}
		// another caller created the row for this order between our read and insert
		existing, err := s.payments.GetPaymentByOrderID(ctx, orderID)
		if err != nil {
			return nil, internalError("failed to load payment", err)
		}
		if existing.BookingID != booking.ID {
			return nil, validationError("Order does not belong to this booking")
		}
		return existing, nil
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"order_id":   orderID,
	}).Warn("No payment found for order, synthesised one")

	return payment, nil
}

// completeSettledPayment handles a completion refused because the booking
// already has a COMPLETED payment. When that payment is this checkout's, the
// verification succeeded and its outcome is returned; otherwise dupErr stands.
func (s *VerificationService) completeSettledPayment(ctx context.Context, bookingID uuid.UUID, orderID, gatewayPaymentID string, c Completion, dupErr error) (*Outcome, error) {
	payments, err := s.payments.ListPaymentsByBooking(ctx, bookingID)
	if err != nil {
		return nil, internalError("failed to load booking payments", err)
	}
	for _, p := range payments {
		if p.Status != models.PaymentStatusCompleted {
			continue
		}
		if p.MatchesGatewayID(gatewayPaymentID) || p.MatchesGatewayID(orderID) {
			s.logger.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"payment_id": p.ID,
				"order_id":   orderID,
			}).Info("Checkout already settled on another payment row")
			return s.reconciler.CompletePayment(ctx, p.ID, c)
		}
	}
	return nil, dupErr
}

// PaymentDetails returns the gateway's view of a payment
func (s *VerificationService) PaymentDetails(ctx context.Context, gatewayPaymentID string) (*razorpay.Payment, error) {
	if strings.TrimSpace(gatewayPaymentID) == "" {
		return nil, validationError("Payment ID is required")
	}
	payment, err := s.gateway.FetchPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, gatewayError(err)
	}
	return payment, nil
}
