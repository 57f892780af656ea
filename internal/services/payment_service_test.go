package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venuebooking/booking-backend/internal/models"
)

func TestCreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("matching amount completes payment and confirms booking", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 2000)

		payment, err := env.payments.CreatePayment(ctx, env.userActor(), &models.CreatePaymentRequest{
			BookingID:     booking.ID.String(),
			Amount:        2000,
			PaymentMethod: "credit_card",
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
		assert.Equal(t, models.PaymentMethodCreditCard, payment.Method)
		assert.NotNil(t, payment.PaymentDate)
		assert.Equal(t, models.BookingStatusConfirmed, env.mustBooking(t, booking.ID).Status)
		assert.Equal(t, []string{models.EventPaymentCompleted, models.EventBookingConfirmed}, env.events.keys)
	})

	t.Run("amount mismatch stores FAILED payment", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 2000)

		payment, err := env.payments.CreatePayment(ctx, env.userActor(), &models.CreatePaymentRequest{
			BookingID:     booking.ID.String(),
			Amount:        1500,
			PaymentMethod: "UPI",
		})
		require.NoError(t, err)

		assert.Equal(t, models.PaymentStatusFailed, payment.Status)
		require.NotNil(t, payment.GatewayResponse)
		assert.Contains(t, *payment.GatewayResponse, "Amount mismatch")
		assert.Equal(t, models.BookingStatusPending, env.mustBooking(t, booking.ID).Status)

		audits := env.auditsOfType(models.PaymentEventDirectPayment)
		require.Len(t, audits, 1)
		require.NotNil(t, audits[0].AmountsMatch)
		assert.False(t, *audits[0].AmountsMatch)
	})

	t.Run("second payment after completion is a conflict", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusConfirmed, 2000)
		env.seedCompletedPayment(t, booking, "order_A", "pay_A")

		_, err := env.payments.CreatePayment(ctx, env.userActor(), &models.CreatePaymentRequest{
			BookingID:     booking.ID.String(),
			Amount:        2000,
			PaymentMethod: "UPI",
		})
		requireKind(t, err, KindConflict)
	})

	t.Run("rejections", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 2000)
		cancelled := env.seedBooking(t, models.BookingStatusCancelled, 2000)

		tests := []struct {
			name  string
			actor Actor
			req   models.CreatePaymentRequest
			kind  ErrorKind
		}{
			{"invalid method", env.userActor(), models.CreatePaymentRequest{BookingID: booking.ID.String(), Amount: 2000, PaymentMethod: "BITCOIN"}, KindValidation},
			{"zero amount", env.userActor(), models.CreatePaymentRequest{BookingID: booking.ID.String(), Amount: 0, PaymentMethod: "UPI"}, KindValidation},
			{"bad booking id", env.userActor(), models.CreatePaymentRequest{BookingID: "x", Amount: 2000, PaymentMethod: "UPI"}, KindValidation},
			{"unknown booking", env.userActor(), models.CreatePaymentRequest{BookingID: uuid.NewString(), Amount: 2000, PaymentMethod: "UPI"}, KindNotFound},
			{"not the owner", Actor{UserID: uuid.New()}, models.CreatePaymentRequest{BookingID: booking.ID.String(), Amount: 2000, PaymentMethod: "UPI"}, KindForbidden},
			{"cancelled booking", env.userActor(), models.CreatePaymentRequest{BookingID: cancelled.ID.String(), Amount: 2000, PaymentMethod: "UPI"}, KindConflict},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := tt.req
				_, err := env.payments.CreatePayment(ctx, tt.actor, &req)
				requireKind(t, err, tt.kind)
			})
		}
	})
}

func TestListPaymentsByBooking_Access(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	booking := env.seedBooking(t, models.BookingStatusPending, 2000)
	env.seedOrderPayment(t, booking, "order_1")
	env.seedOrderPayment(t, booking, "order_2")

	list, err := env.payments.ListPaymentsByBooking(ctx, env.userActor(), booking.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.payments.ListPaymentsByBooking(ctx, Actor{UserID: uuid.New()}, booking.ID)
	requireKind(t, err, KindForbidden)

	list, err = env.payments.ListPaymentsByBooking(ctx, adminActor(), booking.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
