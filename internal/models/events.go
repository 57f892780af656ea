package models

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys for domain events published on the topic exchange
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// DomainEvent is the message body published for every applied transition
type DomainEvent struct {
	Type       string     `json:"type"`
	BookingID  uuid.UUID  `json:"booking_id"`
	PaymentID  *uuid.UUID `json:"payment_id,omitempty"`
	UserID     uuid.UUID  `json:"user_id"`
	Status     string     `json:"status"`
	Amount     float64    `json:"amount,omitempty"`
	Source     string     `json:"source"`
	OccurredAt time.Time  `json:"occurred_at"`
}
