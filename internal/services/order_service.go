package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

// DefaultCurrency is used when a request does not name one
const DefaultCurrency = "INR"

// OrderService starts gateway checkouts for bookings
type OrderService struct {
	bookings BookingStore
	payments PaymentStore
	venues   VenueStore
	users    UserDirectory
	gateway  Gateway
	keyID    string
	currency string
	rec      *recorder
	logger   *logrus.Logger
}

// NewOrderService creates a new OrderService. keyID is the public Razorpay key
// returned to clients.
func NewOrderService(
	bookings BookingStore,
	payments PaymentStore,
	venues VenueStore,
	users UserDirectory,
	gateway Gateway,
	keyID string,
	currency string,
	audit AuditLogger,
	logger *logrus.Logger,
) *OrderService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &OrderService{
		bookings: bookings,
		payments: payments,
		venues:   venues,
		users:    users,
		gateway:  gateway,
		keyID:    keyID,
		currency: currency,
		rec:      newRecorder(audit, nil, logger),
		logger:   logger,
	}
}

// CreateOrder creates a remote order for the booking total and a matching
// PENDING payment whose transaction id is the order id. Each call creates a
// new payment row, even when earlier PENDING rows exist.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, validationError("Invalid booking ID")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
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

	user := s.lookupUser(ctx, actor.UserID)
	venueName := s.lookupVenueName(ctx, booking.VenueID)

	notes := map[string]string{
		"booking_id": booking.ID.String(),
		"venue_name": venueName,
		"user_email": user.Email,
	}
	if req.Note != "" {
		notes["custom_note"] = req.Note
	}

	amount := models.ToMinorUnits(booking.TotalPrice)
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receiptFor(booking.ID),
		Notes:    notes,
	})
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to create Razorpay order")
		return nil, gatewayError(err)
	}

	orderID := order.ID
	payment := &models.Payment{
		BookingID:      booking.ID,
		UserID:         actor.UserID,
		Amount:         booking.TotalPrice,
		Method:         models.DefaultPaymentMethod,
		Status:         models.PaymentStatusPending,
		TransactionID:  &orderID,
		GatewayOrderID: &orderID,
	}
	payment.AppendNote("Razorpay order created: " + orderID)
	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		return nil, internalError("failed to create payment", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": payment.ID,
		"order_id":   orderID,
		"amount":     amount,
		"currency":   currency,
	}).Info("Checkout order created")

	audit := models.NewPaymentAudit(models.PaymentEventOrderCreated, models.PaymentSourceRazorpayAPI).
		SetPayment(payment).
		SetActor(actor.UserID).
		SetResponsePayload(map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
			"receipt":  order.Receipt,
		})
	audit.SetAmounts(booking.TotalPrice, models.FromMinorUnits(order.Amount), currency)
	s.rec.record(ctx, audit)

	return &models.CreateOrderResponse{
		OrderID:     orderID,
		KeyID:       s.keyID,
		Amount:      amount,
		Currency:    currency,
		BookingID:   booking.ID,
		PaymentID:   payment.ID,
		UserName:    user.Name,
		UserEmail:   user.Email,
		UserMobile:  user.MobileValue(),
		Description: fmt.Sprintf("Booking for %s", venueName),
	}, nil
}

// receiptFor builds the order receipt; Razorpay caps receipts at 40 characters
func receiptFor(bookingID uuid.UUID) string {
	return "booking_" + strings.ReplaceAll(bookingID.String(), "-", "")
}

func (s *OrderService) lookupUser(ctx context.Context, id uuid.UUID) *models.User {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.logger.WithError(err).WithField("user_id", id).Warn("Failed to load user for checkout prefill")
		}
		return &models.User{ID: id}
	}
	return user
}

func (s *OrderService) lookupVenueName(ctx context.Context, id uuid.UUID) string {
	venue, err := s.venues.GetVenueByID(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("venue_id", id).Warn("Failed to load venue for order notes")
		return ""
	}
	return venue.Name
}
