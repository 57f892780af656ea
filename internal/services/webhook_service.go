package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

// WebhookOutcome describes how a verified delivery was handled
type WebhookOutcome string

const (
	WebhookProcessed WebhookOutcome = "processed"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookUnmatched WebhookOutcome = "unmatched"
)

// WebhookResult is returned for every delivery that passed the signature check
type WebhookResult struct {
	Event   string         `json:"event"`
	Outcome WebhookOutcome `json:"outcome"`
}

// WebhookService applies signed Razorpay events independently of client verification
type WebhookService struct {
	payments   PaymentStore
	reconciler *Reconciler
	dedup      WebhookDeduplicator
	secret     string
	rec        *recorder
	logger     *logrus.Logger
}

// NewWebhookService creates a new WebhookService. dedup may be nil.
func NewWebhookService(
	payments PaymentStore,
	reconciler *Reconciler,
	dedup WebhookDeduplicator,
	secret string,
	audit AuditLogger,
	logger *logrus.Logger,
) *WebhookService {
	return &WebhookService{
		payments:   payments,
		reconciler: reconciler,
		dedup:      dedup,
		secret:     secret,
		rec:        newRecorder(audit, nil, logger),
		logger:     logger,
	}
}

// Handle verifies the raw body against the signature header and dispatches the event.
// The body must be the exact bytes received.
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	startTime := time.Now()

	if signature == "" {
		s.logger.Warn("Webhook received without signature")
		return nil, validationError("Missing X-Razorpay-Signature header")
	}
	if !razorpay.VerifyWebhookSignature(s.secret, body, signature) {
		s.logger.WithField("body_size", len(body)).Warn("Webhook signature verification failed")
		s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventSignatureRejected, models.PaymentSourceRazorpayWebhook).
			SetRawBody(string(body)).
			SetError("invalid webhook signature", nil))
		return nil, unauthenticatedError("Invalid webhook signature")
	}

	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, body)
		if err != nil {
			s.logger.WithError(err).Warn("Webhook dedup lookup failed, processing anyway")
		} else if seen {
			s.logger.Info("Duplicate webhook delivery acknowledged")
			s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceRazorpayWebhook).
				MarkAsDuplicate().
				SetProcessingTime(startTime))
			return &WebhookResult{Outcome: WebhookDuplicate}, nil
		}
	}

	event, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		s.logger.WithError(err).Error("Failed to parse webhook payload")
		return nil, internalError("failed to process webhook", err)
	}

	log := s.logger.WithField("event", event.Event)
	log.Info("Processing Razorpay webhook")

	received := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceRazorpayWebhook).
		SetRawBody(string(body))
	if p := event.PaymentEntity(); p != nil {
		received.SetGatewayPaymentID(p.ID).SetGatewayOrderID(p.OrderID)
		received.SetIdempotencyKey(event.Event + ":" + p.ID)
	}
	if r := event.RefundEntity(); r != nil {
		received.SetGatewayPaymentID(r.PaymentID)
		received.SetIdempotencyKey(event.Event + ":" + r.ID)
	}

	var outcome WebhookOutcome
	switch event.Event {
	case razorpay.EventPaymentCaptured:
		outcome, err = s.handleCaptured(ctx, event)
	case razorpay.EventPaymentFailed:
		outcome, err = s.handleFailed(ctx, event)
	case razorpay.EventRefundProcessed:
		outcome, err = s.handleRefundProcessed(ctx, event)
	default:
		log.Info("Unhandled webhook event ignored")
		outcome = WebhookIgnored
	}

	received.SetProcessingTime(startTime)
	if err != nil {
		log.WithError(err).Error("Webhook processing failed")
		received.SetError(err.Error(), nil)
		s.rec.record(ctx, received)
		return nil, internalError("failed to process webhook", err)
	}
	received.SetResponsePayload(map[string]interface{}{"outcome": string(outcome)})
	s.rec.record(ctx, received)

	if s.dedup != nil {
		if err := s.dedup.MarkProcessed(ctx, body, event.Event); err != nil {
			log.WithError(err).Warn("Failed to remember webhook delivery")
		}
	}

	return &WebhookResult{Event: event.Event, Outcome: outcome}, nil
}

func (s *WebhookService) handleCaptured(ctx context.Context, event *razorpay.WebhookEvent) (WebhookOutcome, error) {
	entity := event.PaymentEntity()
	if entity == nil || entity.ID == "" {
		return "", errors.New("payment.captured without payment entity")
	}
	if entity.Status != razorpay.PaymentStatusCaptured {
		s.logger.WithFields(logrus.Fields{
			"gateway_payment_id": entity.ID,
			"status":             entity.Status,
		}).Info("Captured event with non-captured status ignored")
		return WebhookIgnored, nil
	}

	payment, err := s.findPayment(ctx, entity.ID, entity.OrderID)
	if err != nil {
		return "", err
	}
	if payment == nil {
		s.logger.WithFields(logrus.Fields{
			"gateway_payment_id": entity.ID,
			"order_id":           entity.OrderID,
		}).Warn("No local payment for captured event")
		return WebhookUnmatched, nil
	}

	method := models.PaymentMethodFromGateway(entity.Method)
	_, err = s.reconciler.CompletePayment(ctx, payment.ID, Completion{
		GatewayPaymentID: entity.ID,
		Method:           &method,
		Note:             "Captured via webhook: " + entity.ID,
		Source:           models.PaymentSourceRazorpayWebhook,
	})
	if KindOf(err) == KindConflict {
		// audited by the reconciler; redelivery cannot change the answer
		return WebhookIgnored, nil
	}
	if err != nil {
		return "", err
	}
	return WebhookProcessed, nil
}

func (s *WebhookService) handleFailed(ctx context.Context, event *razorpay.WebhookEvent) (WebhookOutcome, error) {
	entity := event.PaymentEntity()
	if entity == nil || entity.ID == "" {
		return "", errors.New("payment.failed without payment entity")
	}

	payment, err := s.findPayment(ctx, entity.ID, entity.OrderID)
	if err != nil {
		return "", err
	}
	if payment == nil {
		s.logger.WithField("gateway_payment_id", entity.ID).Warn("No local payment for failed event")
		return WebhookUnmatched, nil
	}

	if _, err := s.reconciler.FailPayment(ctx, payment.ID, failureReason(entity), models.PaymentSourceRazorpayWebhook); err != nil {
		return "", err
	}
	return WebhookProcessed, nil
}

func (s *WebhookService) handleRefundProcessed(ctx context.Context, event *razorpay.WebhookEvent) (WebhookOutcome, error) {
	entity := event.RefundEntity()
	if entity == nil || entity.PaymentID == "" {
		return "", errors.New("refund.processed without refund entity")
	}
	if entity.Status != razorpay.RefundStatusProcessed {
		s.logger.WithFields(logrus.Fields{
			"refund_id": entity.ID,
			"status":    entity.Status,
		}).Info("Refund event with non-processed status ignored")
		return WebhookIgnored, nil
	}

	payment, err := s.findPayment(ctx, entity.PaymentID, "")
	if err != nil {
		return "", err
	}
	if payment == nil {
		s.logger.WithField("gateway_payment_id", entity.PaymentID).Warn("No local payment for refund event")
		return WebhookUnmatched, nil
	}

	note := "Refund processed via webhook: " + entity.ID
	_, err = s.reconciler.RefundPayment(ctx, payment.ID, note, models.PaymentSourceRazorpayWebhook, payment.UserID)
	if KindOf(err) == KindConflict {
		s.logger.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"status":     payment.Status,
		}).Warn("Refund event for payment that is not completed")
		return WebhookIgnored, nil
	}
	if err != nil {
		return "", err
	}
	return WebhookProcessed, nil
}

// findPayment matches by gateway payment id, then by the order id that a
// payment carries until verification promotes it. Nil means no match.
func (s *WebhookService) findPayment(ctx context.Context, gatewayPaymentID, orderID string) (*models.Payment, error) {
	payment, err := s.payments.GetPaymentByTransactionID(ctx, gatewayPaymentID)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if orderID == "" {
		return nil, nil
	}

	payment, err = s.payments.GetPaymentByOrderID(ctx, orderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return payment, err
}

func failureReason(p *razorpay.Payment) string {
	switch {
	case p.ErrorDescription != "":
		return p.ErrorDescription
	case p.ErrorReason != "":
		return p.ErrorReason
	case p.ErrorCode != "":
		return p.ErrorCode
	default:
		return "payment failed at gateway"
	}
}
