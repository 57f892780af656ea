package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

// RefundService requests refunds from the gateway and records their effect locally
type RefundService struct {
	payments   PaymentStore
	gateway    Gateway
	reconciler *Reconciler
	rec        *recorder
	logger     *logrus.Logger
}

// NewRefundService creates a new RefundService
func NewRefundService(payments PaymentStore, gateway Gateway, reconciler *Reconciler, audit AuditLogger, logger *logrus.Logger) *RefundService {
	return &RefundService{
		payments:   payments,
		gateway:    gateway,
		reconciler: reconciler,
		rec:        newRecorder(audit, nil, logger),
		logger:     logger,
	}
}

// InitiateRefund refunds a completed payment in full or in part. On success the
// payment becomes REFUNDED and its booking CANCELLED.
func (s *RefundService) InitiateRefund(ctx context.Context, actor Actor, req *models.RefundRequest) (*models.RefundResponse, error) {
	paymentID, err := uuid.Parse(strings.TrimSpace(req.PaymentID))
	if err != nil {
		return nil, validationError("Invalid payment ID")
	}

	payment, err := loadPayment(ctx, s.payments, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, forbiddenError("You can only refund your own payments")
	}

	switch payment.Status {
	case models.PaymentStatusRefunded:
		return nil, conflictError("Payment already refunded")
	case models.PaymentStatusCompleted:
	default:
		return nil, conflictError("Only completed payments can be refunded")
	}

	amount := payment.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 {
		return nil, validationError("Refund amount must be greater than zero")
	}
	if models.ToMinorUnits(amount) > models.ToMinorUnits(payment.Amount) {
		return nil, validationError("Refund amount cannot exceed payment amount")
	}

	gatewayPaymentID := payment.TransactionIDValue()
	if gatewayPaymentID == "" || (payment.GatewayOrderID != nil && gatewayPaymentID == *payment.GatewayOrderID) {
		return nil, conflictError("Payment has no gateway transaction to refund")
	}

	refundReq := razorpay.RefundRequest{
		Amount: models.ToMinorUnits(amount),
		Notes: map[string]string{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID.String(),
		},
	}
	if req.Reason != nil && *req.Reason != "" {
		refundReq.Notes["reason"] = *req.Reason
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":         payment.ID,
		"gateway_payment_id": gatewayPaymentID,
		"amount":             amount,
		"actor":              actor.UserID,
	}).Info("Initiating refund")

	refund, err := s.gateway.Refund(ctx, gatewayPaymentID, refundReq)
	if err != nil {
		s.logger.WithError(err).WithField("payment_id", payment.ID).Error("Razorpay refund failed")
		s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventError, models.PaymentSourceRazorpayAPI).
			SetPayment(payment).
			SetGatewayPaymentID(gatewayPaymentID).
			SetError("refund request failed: "+err.Error(), nil).
			SetActor(actor.UserID))
		return nil, gatewayError(err)
	}

	refundAmount := models.FromMinorUnits(refund.Amount)
	s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventRefundInitiated, models.PaymentSourceRazorpayAPI).
		SetPayment(payment).
		SetGatewayPaymentID(gatewayPaymentID).
		SetActor(actor.UserID).
		SetResponsePayload(map[string]interface{}{
			"refund_id": refund.ID,
			"status":    refund.Status,
			"amount":    refund.Amount,
		}))

	note := fmt.Sprintf("Refund initiated: %s | Amount: ₹%.2f", refund.ID, refundAmount)
	if req.Reason != nil && *req.Reason != "" {
		note += " | Reason: " + *req.Reason
	}

	out, err := s.reconciler.RefundPayment(ctx, payment.ID, note, models.PaymentSourceRazorpayAPI, actor.UserID)
	if err != nil {
		// the gateway already holds the refund; the refund.processed webhook can still settle it
		s.logger.WithError(err).WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"refund_id":  refund.ID,
		}).Error("Refund accepted by gateway but local update failed")
		return nil, internalError("Refund was initiated but could not be recorded", err)
	}

	return &models.RefundResponse{
		RefundID:         refund.ID,
		PaymentID:        out.Payment.ID,
		GatewayPaymentID: gatewayPaymentID,
		Amount:           refundAmount,
		Status:           refund.Status,
		BookingID:        out.Payment.BookingID,
	}, nil
}

// GetRefund returns the gateway's view of a refund
func (s *RefundService) GetRefund(ctx context.Context, refundID string) (*razorpay.Refund, error) {
	if strings.TrimSpace(refundID) == "" {
		return nil, validationError("Refund ID is required")
	}
	refund, err := s.gateway.FetchRefund(ctx, refundID)
	if err != nil {
		return nil, gatewayError(err)
	}
	return refund, nil
}

// ListRefunds lists gateway refunds for a payment, identified either by its
// local id or by the gateway payment id
func (s *RefundService) ListRefunds(ctx context.Context, actor Actor, paymentRef string) ([]razorpay.Refund, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, validationError("Payment ID is required")
	}

	gatewayPaymentID := paymentRef
	if id, err := uuid.Parse(paymentRef); err == nil {
		payment, err := loadPayment(ctx, s.payments, id)
		if err != nil {
			return nil, err
		}
		if payment.UserID != actor.UserID && !actor.IsAdmin() {
			return nil, forbiddenError("You can only view refunds for your own payments")
		}
		gatewayPaymentID = payment.TransactionIDValue()
	}

	refunds, err := s.gateway.ListRefunds(ctx, gatewayPaymentID)
	if err != nil {
		return nil, gatewayError(err)
	}
	if refunds == nil {
		refunds = []razorpay.Refund{}
	}
	return refunds, nil
}
