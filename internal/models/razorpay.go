package models

import "github.com/google/uuid"

// CreateOrderRequest starts a gateway checkout for a booking
type CreateOrderRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Currency  string `json:"currency,omitempty"`
	Note      string `json:"note,omitempty"`
}

// CreateOrderResponse carries everything the client needs to open checkout
type CreateOrderResponse struct {
	OrderID     string    `json:"orderId"`
	KeyID       string    `json:"razorpayKeyId"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	BookingID   uuid.UUID `json:"bookingId"`
	PaymentID   uuid.UUID `json:"paymentId"`
	UserName    string    `json:"userName"`
	UserEmail   string    `json:"userEmail"`
	UserMobile  string    `json:"userMobile"`
	Description string    `json:"description,omitempty"`
}

// VerifyPaymentRequest is the client's proof of a completed checkout
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" binding:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" binding:"required"`
	RazorpaySignature string `json:"razorpaySignature" binding:"required"`
	BookingID         string `json:"bookingId" binding:"required"`
}

// VerifyPaymentResponse summarises the reconciled payment and booking
type VerifyPaymentResponse struct {
	PaymentID     uuid.UUID     `json:"paymentId"`
	BookingID     uuid.UUID     `json:"bookingId"`
	TransactionID string        `json:"transactionId"`
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	BookingStatus BookingStatus `json:"bookingStatus"`
}

// RefundRequest asks for a full or partial refund of a completed payment
type RefundRequest struct {
	PaymentID string   `json:"paymentId" binding:"required"`
	Amount    *float64 `json:"amount,omitempty"`
	Reason    *string  `json:"reason,omitempty"`
}

// RefundResponse describes a refund accepted by the gateway
type RefundResponse struct {
	RefundID         string    `json:"refundId"`
	PaymentID        uuid.UUID `json:"paymentId"`
	GatewayPaymentID string    `json:"razorpayPaymentId"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"status"`
	BookingID        uuid.UUID `json:"bookingId"`
}
