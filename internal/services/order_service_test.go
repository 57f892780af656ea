package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates gateway order and pending payment", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 2500.5)

		env.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req razorpay.OrderRequest) bool {
			return req.Amount == 250050 &&
				req.Currency == "INR" &&
				len(req.Receipt) <= 40 &&
				strings.HasPrefix(req.Receipt, "booking_") &&
				req.Notes["booking_id"] == booking.ID.String() &&
				req.Notes["venue_name"] == "Lakeside Hall" &&
				req.Notes["custom_note"] == "anniversary"
		})).Return(&razorpay.Order{ID: "order_123", Amount: 250050, Currency: "INR", Status: "created"}, nil).Once()

		resp, err := env.orders.CreateOrder(ctx, env.userActor(), &models.CreateOrderRequest{
			BookingID: booking.ID.String(),
			Note:      "anniversary",
		})
		require.NoError(t, err)

		assert.Equal(t, "order_123", resp.OrderID)
		assert.Equal(t, testKeyID, resp.KeyID)
		assert.Equal(t, int64(250050), resp.Amount)
		assert.Equal(t, "INR", resp.Currency)
		assert.Equal(t, env.user.Email, resp.UserEmail)
		assert.Equal(t, env.user.Name, resp.UserName)

		payment := env.mustPayment(t, resp.PaymentID)
		assert.Equal(t, models.PaymentStatusPending, payment.Status)
		assert.Equal(t, "order_123", payment.TransactionIDValue())
		require.NotNil(t, payment.GatewayOrderID)
		assert.Equal(t, "order_123", *payment.GatewayOrderID)
		assert.Equal(t, 2500.5, payment.Amount)

		assert.Len(t, env.auditsOfType(models.PaymentEventOrderCreated), 1)
	})

	t.Run("repeated initiation leaves earlier pending rows", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 1000)

		env.gateway.On("CreateOrder", mock.Anything, mock.Anything).
			Return(&razorpay.Order{ID: "order_1", Amount: 100000}, nil).Once()
		env.gateway.On("CreateOrder", mock.Anything, mock.Anything).
			Return(&razorpay.Order{ID: "order_2", Amount: 100000}, nil).Once()

		for i := 0; i < 2; i++ {
			_, err := env.orders.CreateOrder(ctx, env.userActor(), &models.CreateOrderRequest{BookingID: booking.ID.String()})
			require.NoError(t, err)
		}

		payments, err := env.store.ListPaymentsByBooking(ctx, booking.ID)
		require.NoError(t, err)
		require.Len(t, payments, 2)
		for _, p := range payments {
			assert.Equal(t, models.PaymentStatusPending, p.Status)
		}
	})

	t.Run("gateway failure surfaces message", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 1000)

		env.gateway.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, &razorpay.APIError{StatusCode: 400, Code: "BAD_REQUEST_ERROR", Description: "Amount exceeds maximum"}).Once()

		_, err := env.orders.CreateOrder(ctx, env.userActor(), &models.CreateOrderRequest{BookingID: booking.ID.String()})
		requireKind(t, err, KindGateway)
		assert.Contains(t, err.Error(), "Amount exceeds maximum")

		payments, err := env.store.ListPaymentsByBooking(ctx, booking.ID)
		require.NoError(t, err)
		assert.Empty(t, payments)
	})

	t.Run("gateway timeout is retryable", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 1000)

		env.gateway.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, razorpay.ErrTimeout).Once()

		_, err := env.orders.CreateOrder(ctx, env.userActor(), &models.CreateOrderRequest{BookingID: booking.ID.String()})
		requireKind(t, err, KindGateway)
		assert.True(t, errors.Is(err, razorpay.ErrTimeout))
	})

	t.Run("rejects other users and settled bookings", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 1000)
		cancelled := env.seedBooking(t, models.BookingStatusCancelled, 1000)
		paid := env.seedBooking(t, models.BookingStatusConfirmed, 1000)
		env.seedCompletedPayment(t, paid, "order_P", "pay_P")

		_, err := env.orders.CreateOrder(ctx, adminActor(), &models.CreateOrderRequest{BookingID: booking.ID.String()})
		requireKind(t, err, KindForbidden)

		_, err = env.orders.CreateOrder(ctx, env.userActor(), &models.CreateOrderRequest{BookingID: cancelled.ID.String()})
		requireKind(t, err, KindConflict)

		_, err = env.orders.CreateOrder(ctx, env.userActor(), &models.CreateOrderRequest{BookingID: paid.ID.String()})
		requireKind(t, err, KindConflict)
	})
}
