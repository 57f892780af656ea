package razorpay

import (
	"encoding/json"
	"fmt"
)

// Webhook event names handled by the reconciler
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// Entity statuses checked before applying a webhook
const (
	PaymentStatusCaptured = "captured"
	RefundStatusProcessed = "processed"
)

// WebhookEvent is the signed envelope delivered to the webhook endpoint
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

// WebhookPayload holds whichever entities the event carries
type WebhookPayload struct {
	Payment *struct {
		Entity Payment `json:"entity"`
	} `json:"payment,omitempty"`
	Refund *struct {
		Entity Refund `json:"entity"`
	} `json:"refund,omitempty"`
}

// PaymentEntity returns the payment entity or nil
func (e *WebhookEvent) PaymentEntity() *Payment {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}

// RefundEntity returns the refund entity or nil
func (e *WebhookEvent) RefundEntity() *Refund {
	if e.Payload.Refund == nil {
		return nil
	}
	return &e.Payload.Refund.Entity
}

// ParseWebhookEvent decodes an already verified body
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("invalid webhook payload: missing event")
	}
	return &event, nil
}
