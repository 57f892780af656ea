package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

func verifyRequest(booking *models.Booking, orderID, paymentID string) *models.VerifyPaymentRequest {
	return &models.VerifyPaymentRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: razorpay.PaymentSignature(testKeySecret, orderID, paymentID),
		BookingID:         booking.ID.String(),
	}
}

func capturedPayment(paymentID, orderID, method string, amount int64) *razorpay.Payment {
	return &razorpay.Payment{
		ID:       paymentID,
		OrderID:  orderID,
		Status:   razorpay.PaymentStatusCaptured,
		Method:   method,
		Amount:   amount,
		Currency: "INR",
		Captured: true,
	}
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("completes payment and confirms booking", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 5000)
		payment := env.seedOrderPayment(t, booking, "order_V")

		env.gateway.On("FetchPayment", mock.Anything, "pay_V").
			Return(capturedPayment("pay_V", "order_V", "card", 500000), nil).Once()

		resp, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_V", "pay_V"))
		require.NoError(t, err)

		assert.Equal(t, payment.ID, resp.PaymentID)
		assert.Equal(t, "pay_V", resp.TransactionID)
		assert.Equal(t, models.PaymentMethodCreditCard, resp.PaymentMethod)
		assert.Equal(t, models.PaymentStatusCompleted, resp.PaymentStatus)
		assert.Equal(t, models.BookingStatusConfirmed, resp.BookingStatus)

		stored := env.mustPayment(t, payment.ID)
		assert.Equal(t, "pay_V", stored.TransactionIDValue())
		assert.Len(t, env.auditsOfType(models.PaymentEventVerified), 1)
	})

	t.Run("bad signature is rejected before any gateway call", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 5000)
		payment := env.seedOrderPayment(t, booking, "order_B")

		req := verifyRequest(booking, "order_B", "pay_B")
		req.RazorpaySignature = razorpay.PaymentSignature("wrong_secret", "order_B", "pay_B")

		_, err := env.verification.VerifyPayment(ctx, env.userActor(), req)
		requireKind(t, err, KindUnauthenticated)
		assert.Equal(t, models.PaymentStatusPending, env.mustPayment(t, payment.ID).Status)
		assert.Len(t, env.auditsOfType(models.PaymentEventSignatureRejected), 1)
		env.gateway.AssertNotCalled(t, "FetchPayment", mock.Anything, mock.Anything)
	})

	t.Run("missing fields", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.verification.VerifyPayment(ctx, env.userActor(), &models.VerifyPaymentRequest{BookingID: uuid.NewString()})
		requireKind(t, err, KindValidation)
	})

	t.Run("other users cannot verify", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 5000)
		env.seedOrderPayment(t, booking, "order_O")

		_, err := env.verification.VerifyPayment(ctx, Actor{UserID: uuid.New()}, verifyRequest(booking, "order_O", "pay_O"))
		requireKind(t, err, KindForbidden)
	})

	t.Run("order belonging to another booking is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.seedBooking(t, models.BookingStatusPending, 5000)
		second := env.seedBooking(t, models.BookingStatusPending, 5000)
		env.seedOrderPayment(t, first, "order_1")

		env.gateway.On("FetchPayment", mock.Anything, "pay_1").
			Return(capturedPayment("pay_1", "order_1", "upi", 500000), nil).Once()

		_, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(second, "order_1", "pay_1"))
		requireKind(t, err, KindValidation)
	})

	t.Run("synthesises payment when none exists", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 3000)

		env.gateway.On("FetchPayment", mock.Anything, "pay_N").
			Return(capturedPayment("pay_N", "order_N", "wallet", 300000), nil).Once()

		resp, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_N", "pay_N"))
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, resp.PaymentStatus)
		assert.Equal(t, models.PaymentMethodWallet, resp.PaymentMethod)
		assert.Equal(t, 3000.0, resp.Amount)
	})

	t.Run("gateway failure", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 5000)
		payment := env.seedOrderPayment(t, booking, "order_E")

		env.gateway.On("FetchPayment", mock.Anything, "pay_E").
			Return(nil, razorpay.ErrTimeout).Once()

		_, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_E", "pay_E"))
		requireKind(t, err, KindGateway)
		assert.Equal(t, models.PaymentStatusPending, env.mustPayment(t, payment.ID).Status)
	})
}

func TestReconciliation_OrderIndependence(t *testing.T) {
	ctx := context.Background()

	type finalState struct {
		payment models.PaymentStatus
		txID    string
		booking models.BookingStatus
	}

	run := func(t *testing.T, verifyFirst bool) finalState {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 5000)
		payment := env.seedOrderPayment(t, booking, "order_I")

		env.gateway.On("FetchPayment", mock.Anything, "pay_I").
			Return(capturedPayment("pay_I", "order_I", "upi", 500000), nil).Once()

		body := capturedBody("pay_I", "order_I", "upi", 500000)
		verify := func() {
			_, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_I", "pay_I"))
			require.NoError(t, err)
		}
		webhook := func() {
			result, err := env.webhooks.Handle(ctx, body, sign(body))
			require.NoError(t, err)
			require.Equal(t, WebhookProcessed, result.Outcome)
		}

		if verifyFirst {
			verify()
			webhook()
		} else {
			webhook()
			verify()
		}

		payments, err := env.store.ListPaymentsByBooking(ctx, booking.ID)
		require.NoError(t, err)
		require.Len(t, payments, 1)

		stored := env.mustPayment(t, payment.ID)
		return finalState{
			payment: stored.Status,
			txID:    stored.TransactionIDValue(),
			booking: env.mustBooking(t, booking.ID).Status,
		}
	}

	verifyThenWebhook := run(t, true)
	webhookThenVerify := run(t, false)

	expected := finalState{payment: models.PaymentStatusCompleted, txID: "pay_I", booking: models.BookingStatusConfirmed}
	assert.Equal(t, expected, verifyThenWebhook)
	assert.Equal(t, expected, webhookThenVerify)
}

func TestReconciliation_ConcurrentVerifyAndWebhook(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusPending, 5000)
		payment := env.seedOrderPayment(t, booking, "order_R")

		env.gateway.On("FetchPayment", mock.Anything, "pay_R").
			Return(capturedPayment("pay_R", "order_R", "card", 500000), nil)

		captured := capturedBody("pay_R", "order_R", "card", 500000)
		failed := failedBody("pay_R", "order_R", "timeout at bank")

		var wg sync.WaitGroup
		errs := make(chan error, 3)
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_R", "pay_R"))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := env.webhooks.Handle(ctx, captured, sign(captured))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := env.webhooks.Handle(ctx, failed, sign(failed))
			errs <- err
		}()
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		// a failure racing a capture may land first, but the capture always wins
		assert.Equal(t, models.PaymentStatusCompleted, env.mustPayment(t, payment.ID).Status)
		assert.Equal(t, models.BookingStatusConfirmed, env.mustBooking(t, booking.ID).Status)
	}
}

// barrierPaymentStore holds ListPaymentsByBooking callers until all of them
// have read, so concurrent verifications all miss the payment row
type barrierPaymentStore struct {
	*database.MemoryStore
	listed *arrivalBarrier
}

func (s *barrierPaymentStore) ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]*models.Payment, error) {
	list, err := s.MemoryStore.ListPaymentsByBooking(ctx, bookingID)
	s.listed.wait()
	return list, err
}

func TestVerifyPayment_ConcurrentWithoutPaymentRow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	const callers = 2

	booking := env.seedBooking(t, models.BookingStatusPending, 5000)
	env.gateway.On("FetchPayment", mock.Anything, "pay_X").
		Return(capturedPayment("pay_X", "order_X", "card", 500000), nil).Times(callers)

	payments := &barrierPaymentStore{MemoryStore: env.store, listed: newArrivalBarrier(callers)}
	svc := NewVerificationService(env.store, payments, env.gateway, env.reconciler, testKeySecret, env.store, newTestLogger())

	responses := make([]*models.VerifyPaymentResponse, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i], errs[i] = svc.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_X", "pay_X"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, models.PaymentStatusCompleted, responses[i].PaymentStatus)
		assert.Equal(t, "pay_X", responses[i].TransactionID)
		assert.Equal(t, models.BookingStatusConfirmed, responses[i].BookingStatus)
	}
	assert.Equal(t, responses[0].PaymentID, responses[1].PaymentID)

	stored, err := env.store.ListPaymentsByBooking(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.PaymentStatusCompleted, stored[0].Status)
	assert.Equal(t, "pay_X", stored[0].TransactionIDValue())
	assert.Empty(t, env.auditsOfType(models.PaymentEventReconciliationMismatch))
}

func TestVerifyPayment_AlreadySettledOnAnotherRow(t *testing.T) {
	ctx := context.Background()

	t.Run("same gateway payment is a success", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusConfirmed, 5000)
		env.seedOrderPayment(t, booking, "order_L")
		settled := env.seedCompletedPayment(t, booking, "order_M", "pay_L")

		env.gateway.On("FetchPayment", mock.Anything, "pay_L").
			Return(capturedPayment("pay_L", "order_L", "card", 500000), nil).Once()

		resp, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_L", "pay_L"))
		require.NoError(t, err)
		assert.Equal(t, settled.ID, resp.PaymentID)
		assert.Equal(t, models.PaymentStatusCompleted, resp.PaymentStatus)
		assert.Equal(t, models.BookingStatusConfirmed, resp.BookingStatus)
	})

	t.Run("different gateway payment stays a conflict", func(t *testing.T) {
		env := newTestEnv(t)
		booking := env.seedBooking(t, models.BookingStatusConfirmed, 5000)
		pending := env.seedOrderPayment(t, booking, "order_N")
		env.seedCompletedPayment(t, booking, "order_P", "pay_other")

		env.gateway.On("FetchPayment", mock.Anything, "pay_N").
			Return(capturedPayment("pay_N", "order_N", "card", 500000), nil).Once()

		_, err := env.verification.VerifyPayment(ctx, env.userActor(), verifyRequest(booking, "order_N", "pay_N"))
		requireKind(t, err, KindConflict)
		assert.Equal(t, models.PaymentStatusPending, env.mustPayment(t, pending.ID).Status)
	})
}
