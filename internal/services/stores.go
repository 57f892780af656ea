package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

// BookingStore persists bookings. UpdateBooking must fail with
// database.ErrVersionConflict when booking.Version is stale. Both writes fail
// with database.ErrBookingOverlap when a live booking would overlap another.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListBookingsByVenue(ctx context.Context, venueID uuid.UUID) ([]*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) error
}

// PaymentStore persists payments with the same version contract as BookingStore
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]*models.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error)
	ListPayments(ctx context.Context) ([]*models.Payment, error)
	ListUnreportedStalePayments(ctx context.Context, createdBefore time.Time) ([]*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
}

// VenueStore is the read side of the venue catalog
type VenueStore interface {
	GetVenueByID(ctx context.Context, id uuid.UUID) (*models.Venue, error)
}

// UserDirectory resolves account details for checkout prefill
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuditLogger appends payment audit entries
type AuditLogger interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// EventPublisher publishes domain events by routing key
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Gateway is the subset of the Razorpay API the core depends on
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	Refund(ctx context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error)
	FetchRefund(ctx context.Context, refundID string) (*razorpay.Refund, error)
	ListRefunds(ctx context.Context, paymentID string) ([]razorpay.Refund, error)
}

// WebhookDeduplicator remembers fully applied webhook deliveries
type WebhookDeduplicator interface {
	Seen(ctx context.Context, body []byte) (bool, error)
	MarkProcessed(ctx context.Context, body []byte, event string) error
}
