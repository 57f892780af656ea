package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventOrderCreated           PaymentEventType = "order_created"
	PaymentEventDirectPayment          PaymentEventType = "direct_payment"
	PaymentEventVerified               PaymentEventType = "payment_verified"
	PaymentEventSignatureRejected      PaymentEventType = "signature_rejected"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventSuccess                PaymentEventType = "payment_success"
	PaymentEventFailed                 PaymentEventType = "payment_failed"
	PaymentEventBookingConfirmed       PaymentEventType = "booking_confirmed"
	PaymentEventBookingCancelled       PaymentEventType = "booking_cancelled"
	PaymentEventRefundInitiated        PaymentEventType = "refund_initiated"
	PaymentEventRefundCompleted        PaymentEventType = "refund_completed"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventManualOverride         PaymentEventType = "manual_override"
	PaymentEventStalePending           PaymentEventType = "stale_pending"
	PaymentEventError                  PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend         PaymentEventSource = "backend"
	PaymentSourceRazorpayWebhook PaymentEventSource = "razorpay_webhook"
	PaymentSourceRazorpayAPI     PaymentEventSource = "razorpay_api"
	PaymentSourceUser            PaymentEventSource = "user"
	PaymentSourceAdmin           PaymentEventSource = "admin"
	PaymentSourceSystem          PaymentEventSource = "system"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	BookingID        *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	PaymentID        *uuid.UUID `json:"payment_id,omitempty" db:"payment_id"`
	GatewayOrderID   *string    `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayPaymentID *string    `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`

	// Event info
	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking, in whole currency units
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string  `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	// Status before/after the event
	PreviousStatus *string `json:"previous_status,omitempty" db:"previous_status"`
	NewStatus      *string `json:"new_status,omitempty" db:"new_status"`

	// Raw payloads
	ResponsePayload Payload `json:"response_payload,omitempty" db:"response_payload"`
	RawBody         *string `json:"raw_body,omitempty" db:"raw_body"`

	// Error tracking
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`

	// Processing info
	ProcessingTimeMs *int    `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IsDuplicate      bool    `json:"is_duplicate" db:"is_duplicate"`
	IdempotencyKey   *string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	// Metadata
	ActorID    *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"`
	IPAddress  *string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string    `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo *string    `json:"device_info,omitempty" db:"device_info"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
		IsDuplicate: false,
	}
}

// SetBooking sets the booking ID for the audit
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetPayment sets the local payment ID and, when known, the booking it belongs to
func (pa *PaymentAudit) SetPayment(p *Payment) *PaymentAudit {
	id := p.ID
	pa.PaymentID = &id
	pa.SetBooking(p.BookingID)
	if p.GatewayOrderID != nil {
		pa.SetGatewayOrderID(*p.GatewayOrderID)
	}
	return pa
}

// SetGatewayOrderID sets the Razorpay order id
func (pa *PaymentAudit) SetGatewayOrderID(orderID string) *PaymentAudit {
	if orderID != "" {
		pa.GatewayOrderID = &orderID
	}
	return pa
}

// SetGatewayPaymentID sets the Razorpay payment id
func (pa *PaymentAudit) SetGatewayPaymentID(paymentID string) *PaymentAudit {
	if paymentID != "" {
		pa.GatewayPaymentID = &paymentID
	}
	return pa
}

// SetAmounts sets and verifies amounts - returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, received float64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency

	match := ToMinorUnits(expected) == ToMinorUnits(received)
	pa.AmountsMatch = &match
	return match
}

// SetTransition records the status change the event caused
func (pa *PaymentAudit) SetTransition(previous, next string) *PaymentAudit {
	pa.PreviousStatus = &previous
	pa.NewStatus = &next
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string, code *string) *PaymentAudit {
	pa.ErrorMessage = &message
	pa.ErrorCode = code
	return pa
}

// SetRawBody stores the raw request body before parsing
func (pa *PaymentAudit) SetRawBody(body string) *PaymentAudit {
	pa.RawBody = &body
	return pa
}

// SetResponsePayload sets the gateway payload received
func (pa *PaymentAudit) SetResponsePayload(payload map[string]interface{}) *PaymentAudit {
	pa.ResponsePayload = Payload(payload)
	return pa
}

// SetActor records who triggered the event
func (pa *PaymentAudit) SetActor(userID uuid.UUID) *PaymentAudit {
	if userID != uuid.Nil {
		pa.ActorID = &userID
	}
	return pa
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(ip, userAgent, deviceInfo string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	if deviceInfo != "" {
		pa.DeviceInfo = &deviceInfo
	}
	return pa
}

// SetProcessingTime calculates and sets processing time
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	now := time.Now()
	pa.ProcessedAt = &now
	return pa
}

// MarkAsDuplicate marks this event as a duplicate
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}

// SetIdempotencyKey sets the idempotency key
func (pa *PaymentAudit) SetIdempotencyKey(key string) *PaymentAudit {
	pa.IdempotencyKey = &key
	return pa
}
