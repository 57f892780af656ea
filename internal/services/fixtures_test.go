package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

const (
	testKeyID         = "rzp_test_key"
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	args := m.Called(ctx, req)
	if order := args.Get(0); order != nil {
		return order.(*razorpay.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error) {
	args := m.Called(ctx, paymentID)
	if payment := args.Get(0); payment != nil {
		return payment.(*razorpay.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) Refund(ctx context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error) {
	args := m.Called(ctx, paymentID, req)
	if refund := args.Get(0); refund != nil {
		return refund.(*razorpay.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) FetchRefund(ctx context.Context, refundID string) (*razorpay.Refund, error) {
	args := m.Called(ctx, refundID)
	if refund := args.Get(0); refund != nil {
		return refund.(*razorpay.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ListRefunds(ctx context.Context, paymentID string) ([]razorpay.Refund, error) {
	args := m.Called(ctx, paymentID)
	if refunds := args.Get(0); refunds != nil {
		return refunds.([]razorpay.Refund), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return nil
}

type testEnv struct {
	store   *database.MemoryStore
	gateway *mockGateway
	events  *recordingPublisher

	reconciler   *Reconciler
	bookings     *BookingService
	override     *BookingOverrideService
	payments     *PaymentService
	orders       *OrderService
	verification *VerificationService
	webhooks     *WebhookService
	refunds      *RefundService

	user  models.User
	owner models.User
	venue models.Venue

	// seeded counts seedBooking calls so each seeded range gets its own week
	seeded int
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := database.NewMemoryStore()
	gateway := &mockGateway{}
	events := &recordingPublisher{}
	logger := newTestLogger()

	env := &testEnv{
		store:   store,
		gateway: gateway,
		events:  events,
		user:    models.User{ID: uuid.New(), Name: "Asha Rao", Email: "asha@example.com", Role: models.RoleUser},
		owner:   models.User{ID: uuid.New(), Name: "Venue Owner", Email: "owner@example.com", Role: models.RoleOwner},
	}
	env.venue = models.Venue{ID: uuid.New(), OwnerID: env.owner.ID, Name: "Lakeside Hall", PricePerDay: 1000, Capacity: 200}
	store.PutUser(env.user)
	store.PutUser(env.owner)
	store.PutVenue(env.venue)

	env.reconciler = NewReconciler(store, store, store, events, logger)
	env.bookings = NewBookingService(store, store, store, events, logger)
	env.bookings.now = func() time.Time { return time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC) }
	env.override = NewBookingOverrideService(store, store, logger)
	env.payments = NewPaymentService(store, store, env.reconciler, store, logger)
	env.orders = NewOrderService(store, store, store, store, gateway, testKeyID, DefaultCurrency, store, logger)
	env.verification = NewVerificationService(store, store, gateway, env.reconciler, testKeySecret, store, logger)
	env.webhooks = NewWebhookService(store, env.reconciler, nil, testWebhookSecret, store, logger)
	env.refunds = NewRefundService(store, gateway, env.reconciler, store, logger)

	t.Cleanup(func() { gateway.AssertExpectations(t) })
	return env
}

// arrivalBarrier blocks callers until n of them have arrived, then lets
// everyone through, including later callers
type arrivalBarrier struct {
	mu      sync.Mutex
	pending int
	release chan struct{}
}

func newArrivalBarrier(n int) *arrivalBarrier {
	return &arrivalBarrier{pending: n, release: make(chan struct{})}
}

func (b *arrivalBarrier) wait() {
	b.mu.Lock()
	b.pending--
	if b.pending == 0 {
		close(b.release)
	}
	b.mu.Unlock()
	<-b.release
}

func (e *testEnv) userActor() Actor {
	return Actor{UserID: e.user.ID, Roles: []string{models.RoleUser}}
}

func adminActor() Actor {
	return Actor{UserID: uuid.New(), Roles: []string{models.RoleAdmin}}
}

// seedBooking stores a booking directly, bypassing availability and date checks.
// Successive calls land on successive weeks so seeded rows never overlap.
func (e *testEnv) seedBooking(t *testing.T, status models.BookingStatus, total float64) *models.Booking {
	t.Helper()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, 7*e.seeded)
	e.seeded++
	booking := &models.Booking{
		UserID:     e.user.ID,
		VenueID:    e.venue.ID,
		StartDate:  start,
		EndDate:    start.Add(32 * time.Hour),
		TotalPrice: total,
		Status:     status,
	}
	require.NoError(t, e.store.CreateBooking(context.Background(), booking))
	return booking
}

// seedOrderPayment stores the PENDING payment an order initiation leaves behind
func (e *testEnv) seedOrderPayment(t *testing.T, booking *models.Booking, orderID string) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		Amount:         booking.TotalPrice,
		Method:         models.DefaultPaymentMethod,
		Status:         models.PaymentStatusPending,
		TransactionID:  &orderID,
		GatewayOrderID: &orderID,
	}
	require.NoError(t, e.store.CreatePayment(context.Background(), payment))
	return payment
}

// seedCompletedPayment stores a COMPLETED payment carrying a gateway payment id
func (e *testEnv) seedCompletedPayment(t *testing.T, booking *models.Booking, orderID, gatewayPaymentID string) *models.Payment {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		Amount:         booking.TotalPrice,
		Method:         models.PaymentMethodCreditCard,
		Status:         models.PaymentStatusCompleted,
		TransactionID:  &gatewayPaymentID,
		GatewayOrderID: &orderID,
		PaymentDate:    &now,
	}
	require.NoError(t, e.store.CreatePayment(context.Background(), payment))
	return payment
}

func (e *testEnv) mustBooking(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()
	booking, err := e.store.GetBookingByID(context.Background(), id)
	require.NoError(t, err)
	return booking
}

func (e *testEnv) mustPayment(t *testing.T, id uuid.UUID) *models.Payment {
	t.Helper()
	payment, err := e.store.GetPaymentByID(context.Background(), id)
	require.NoError(t, err)
	return payment
}

func (e *testEnv) auditsOfType(eventType models.PaymentEventType) []models.PaymentAudit {
	var out []models.PaymentAudit
	for _, a := range e.store.Audits() {
		if a.EventType == eventType {
			out = append(out, a)
		}
	}
	return out
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
