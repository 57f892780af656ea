package models

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of one payment attempt
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// CanTransitionTo reports whether moving from s to next is a permitted, state-changing transition.
// Same-state assignments return false; callers treat them as no-ops.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusCompleted || next == PaymentStatusFailed
	case PaymentStatusFailed:
		// a late capture after a reported failure wins
		return next == PaymentStatusCompleted
	case PaymentStatusCompleted:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// PaymentMethod is the closed set of local payment methods
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodNetBanking PaymentMethod = "NET_BANKING"
	PaymentMethodWallet     PaymentMethod = "WALLET"
	PaymentMethodCash       PaymentMethod = "CASH"
)

// DefaultPaymentMethod is used for unknown gateway methods and for pending gateway orders
const DefaultPaymentMethod = PaymentMethodUPI

var gatewayMethods = map[string]PaymentMethod{
	"card":       PaymentMethodCreditCard,
	"upi":        PaymentMethodUPI,
	"netbanking": PaymentMethodNetBanking,
	"wallet":     PaymentMethodWallet,
}

// PaymentMethodFromGateway maps a Razorpay method string to a local method
func PaymentMethodFromGateway(method string) PaymentMethod {
	if m, ok := gatewayMethods[strings.ToLower(strings.TrimSpace(method))]; ok {
		return m
	}
	return DefaultPaymentMethod
}

// ParsePaymentMethod parses a client supplied method; ok is false for unknown values
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodUPI,
		PaymentMethodNetBanking, PaymentMethodWallet, PaymentMethodCash:
		return m, true
	default:
		return "", false
	}
}

// Payment is one attempt to pay for a booking
type Payment struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	BookingID uuid.UUID     `json:"booking_id" db:"booking_id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	Amount    float64       `json:"amount" db:"amount"`
	Method    PaymentMethod `json:"payment_method" db:"payment_method"`
	Status    PaymentStatus `json:"status" db:"status"`
	// TransactionID holds the gateway order id until verification, then the gateway payment id
	TransactionID *string `json:"transaction_id,omitempty" db:"transaction_id"`
	// GatewayOrderID keeps the order id after TransactionID has been promoted
	GatewayOrderID  *string    `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayResponse *string    `json:"gateway_response,omitempty" db:"gateway_response"`
	PaymentDate     *time.Time `json:"payment_date,omitempty" db:"payment_date"`
	Version         int64      `json:"version" db:"version"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// AppendNote appends a line to the gateway response audit text
func (p *Payment) AppendNote(note string) {
	if p.GatewayResponse == nil || *p.GatewayResponse == "" {
		p.GatewayResponse = &note
		return
	}
	joined := *p.GatewayResponse + "\n" + note
	p.GatewayResponse = &joined
}

// TransactionIDValue returns the transaction id or an empty string
func (p *Payment) TransactionIDValue() string {
	if p.TransactionID == nil {
		return ""
	}
	return *p.TransactionID
}

// MatchesGatewayID reports whether id is this payment's current transaction id or its original order id
func (p *Payment) MatchesGatewayID(id string) bool {
	if id == "" {
		return false
	}
	return (p.TransactionID != nil && *p.TransactionID == id) ||
		(p.GatewayOrderID != nil && *p.GatewayOrderID == id)
}

// ToMinorUnits converts a whole-currency amount to paise/cents
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts paise/cents to a whole-currency amount
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// CreatePaymentRequest represents a direct (non-gateway) payment submission
type CreatePaymentRequest struct {
	BookingID     string  `json:"booking_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	TransactionID *string `json:"transaction_id,omitempty"`
}
