package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venuebooking/booking-backend/internal/database"
	"github.com/venuebooking/booking-backend/internal/middleware"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/internal/services"
	"github.com/venuebooking/booking-backend/pkg/jwt"
	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

const (
	testKeySecret     = "handler_key_secret"
	testWebhookSecret = "handler_webhook_secret"
)

// stubGateway answers like Razorpay's test mode
type stubGateway struct {
	orderSeq int
	refunds  []razorpay.Refund
}

func (g *stubGateway) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	g.orderSeq++
	return &razorpay.Order{
		ID:       fmt.Sprintf("order_%d", g.orderSeq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) FetchPayment(_ context.Context, paymentID string) (*razorpay.Payment, error) {
	return &razorpay.Payment{ID: paymentID, Amount: 300000, Currency: "INR", Status: "captured", Method: "card"}, nil
}

func (g *stubGateway) Refund(_ context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error) {
	refund := razorpay.Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "processed", Notes: req.Notes}
	g.refunds = append(g.refunds, refund)
	return &refund, nil
}

func (g *stubGateway) FetchRefund(_ context.Context, refundID string) (*razorpay.Refund, error) {
	for _, r := range g.refunds {
		if r.ID == refundID {
			return &r, nil
		}
	}
	return nil, &razorpay.APIError{StatusCode: http.StatusBadRequest, Code: "BAD_REQUEST_ERROR", Description: "The id provided does not exist"}
}

func (g *stubGateway) ListRefunds(_ context.Context, paymentID string) ([]razorpay.Refund, error) {
	var out []razorpay.Refund
	for _, r := range g.refunds {
		if r.PaymentID == paymentID {
			out = append(out, r)
		}
	}
	return out, nil
}

type testServer struct {
	router *gin.Engine
	store  *database.MemoryStore
	jwt    *jwt.Service

	user  models.User
	other models.User
	admin models.User
	venue models.Venue
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := database.NewMemoryStore()
	gateway := &stubGateway{}
	jwtService := jwt.NewService("handler-test-secret", time.Hour)

	s := &testServer{
		store: store,
		jwt:   jwtService,
		user:  models.User{ID: uuid.New(), Name: "Asha Rao", Email: "asha@example.com", Role: models.RoleUser},
		other: models.User{ID: uuid.New(), Name: "Ravi Kumar", Email: "ravi@example.com", Role: models.RoleUser},
		admin: models.User{ID: uuid.New(), Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
	}
	s.venue = models.Venue{ID: uuid.New(), OwnerID: s.admin.ID, Name: "Lakeside Hall", PricePerDay: 1000, Capacity: 200}
	store.PutUser(s.user)
	store.PutUser(s.other)
	store.PutUser(s.admin)
	store.PutVenue(s.venue)

	reconciler := services.NewReconciler(store, store, store, nil, logger)
	h := Handlers{
		Bookings: NewBookingHandler(
			services.NewBookingService(store, store, store, nil, logger),
			services.NewBookingOverrideService(store, store, logger),
			logger,
		),
		Payments: NewPaymentHandler(services.NewPaymentService(store, store, reconciler, store, logger), logger),
		Razorpay: NewRazorpayHandler(
			services.NewOrderService(store, store, store, store, gateway, "rzp_test_key", "", store, logger),
			services.NewVerificationService(store, store, gateway, reconciler, testKeySecret, store, logger),
			services.NewRefundService(store, gateway, reconciler, store, logger),
			services.NewWebhookService(store, reconciler, nil, testWebhookSecret, store, logger),
			logger,
		),
	}

	router := gin.New()
	router.Use(middleware.RequestTimeout(5 * time.Second))
	router.GET("/health", HealthCheck(nil, "test"))
	RegisterRoutes(router, h, middleware.AuthMiddleware(jwtService, logger))
	s.router = router
	return s
}

func (s *testServer) token(t *testing.T, u models.User) string {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(u.ID, u.Email, []string{u.Role})
	require.NoError(t, err)
	return token
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path string, as *models.User, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *as))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (s *testServer) webhook(t *testing.T, body []byte, signature string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/razorpay/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (s *testServer) createBooking(t *testing.T) models.Booking {
	t.Helper()

	code, env := s.do(t, http.MethodPost, "/api/bookings", &s.user, map[string]interface{}{
		"venue_id":   s.venue.ID.String(),
		"start_date": "2099-03-10T10:00:00Z",
		"end_date":   "2099-03-12T18:00:00Z",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	return booking
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealthCheck_MemoryStore(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["database"])
}

func TestRoutes_RequireToken(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/api/bookings", "/api/payments", "/api/razorpay/refunds/rfnd_1"} {
		code, _ := s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}
}

func TestBookingHandler_CreateAndRead(t *testing.T) {
	s := setupTestServer(t)

	booking := s.createBooking(t)
	assert.Equal(t, 3000.0, booking.TotalPrice)
	assert.Equal(t, models.BookingStatusPending, booking.Status)

	code, env := s.do(t, http.MethodGet, "/api/bookings/"+booking.ID.String(), &s.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Status)

	code, _ = s.do(t, http.MethodGet, "/api/bookings/"+booking.ID.String(), &s.other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/bookings", &s.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Booking](t, env.Data), 1)

	code, env = s.do(t, http.MethodGet, "/api/bookings/venue/"+s.venue.ID.String()+"/booked-dates", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.BookedDateRange](t, env.Data), 1)
}

func TestBookingHandler_OverlapIsRejected(t *testing.T) {
	s := setupTestServer(t)
	s.createBooking(t)

	code, env := s.do(t, http.MethodPost, "/api/bookings", &s.other, map[string]interface{}{
		"venue_id":   s.venue.ID.String(),
		"start_date": "2099-03-12T08:00:00Z",
		"end_date":   "2099-03-13T18:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Status)
	assert.Equal(t, "Venue is not available for the selected dates", env.Message)
}

func TestBookingHandler_InvalidInput(t *testing.T) {
	s := setupTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/bookings/not-a-uuid", &s.user, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid booking ID", env.Message)

	code, _ = s.do(t, http.MethodPost, "/api/bookings", &s.user, map[string]interface{}{"venue_id": s.venue.ID.String()})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/bookings/"+uuid.New().String(), &s.user, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Booking not found", env.Message)
}

func TestBookingHandler_Cancel(t *testing.T) {
	s := setupTestServer(t)
	booking := s.createBooking(t)
	path := "/api/bookings/" + booking.ID.String() + "/cancel"

	code, _ := s.do(t, http.MethodPut, path, &s.other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodPut, path, &s.user, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.BookingStatusCancelled, decode[models.Booking](t, env.Data).Status)

	code, _ = s.do(t, http.MethodPut, path, &s.user, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBookingHandler_OverrideRequiresStaff(t *testing.T) {
	s := setupTestServer(t)
	booking := s.createBooking(t)
	path := "/api/bookings/" + booking.ID.String()

	code, env := s.do(t, http.MethodPut, path+"?status=CONFIRMED", &s.user, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Status)

	code, env = s.do(t, http.MethodPut, path+"?status=bogus", &s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "Invalid status value")

	code, env = s.do(t, http.MethodPut, path+"?status=completed", &s.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.BookingStatusCompleted, decode[models.Booking](t, env.Data).Status)

	code, _ = s.do(t, http.MethodGet, "/api/bookings/all", &s.user, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/bookings/all", &s.admin, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPaymentHandler_DirectPayment(t *testing.T) {
	s := setupTestServer(t)
	booking := s.createBooking(t)

	code, env := s.do(t, http.MethodPost, "/api/payments", &s.user, map[string]interface{}{
		"booking_id":     booking.ID.String(),
		"amount":         2999.0,
		"payment_method": "UPI",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, models.PaymentStatusFailed, decode[models.Payment](t, env.Data).Status)

	code, env = s.do(t, http.MethodPost, "/api/payments", &s.user, map[string]interface{}{
		"booking_id":     booking.ID.String(),
		"amount":         3000.0,
		"payment_method": "UPI",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, models.PaymentStatusCompleted, decode[models.Payment](t, env.Data).Status)

	code, env = s.do(t, http.MethodPost, "/api/payments", &s.user, map[string]interface{}{
		"booking_id":     booking.ID.String(),
		"amount":         3000.0,
		"payment_method": "UPI",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Payment already completed for this booking", env.Message)

	code, env = s.do(t, http.MethodGet, "/api/payments/booking/"+booking.ID.String(), &s.user, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]models.Payment](t, env.Data), 2)

	code, _ = s.do(t, http.MethodGet, "/api/payments/all", &s.user, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRazorpayHandler_CheckoutVerifyAndRefund(t *testing.T) {
	s := setupTestServer(t)
	booking := s.createBooking(t)

	code, env := s.do(t, http.MethodPost, "/api/razorpay/create-order", &s.user, map[string]string{
		"bookingId": booking.ID.String(),
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	order := decode[models.CreateOrderResponse](t, env.Data)
	assert.Equal(t, int64(300000), order.Amount)
	assert.Equal(t, "rzp_test_key", order.KeyID)

	verify := map[string]string{
		"razorpayOrderId":   order.OrderID,
		"razorpayPaymentId": "pay_abc",
		"razorpaySignature": razorpay.PaymentSignature(testKeySecret, order.OrderID, "pay_abc"),
		"bookingId":         booking.ID.String(),
	}

	tampered := map[string]string{}
	for k, v := range verify {
		tampered[k] = v
	}
	tampered["razorpaySignature"] = razorpay.PaymentSignature("not_the_secret", order.OrderID, "pay_abc")
	code, env = s.do(t, http.MethodPost, "/api/razorpay/verify-payment", &s.user, tampered)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid payment signature", env.Message)

	code, env = s.do(t, http.MethodPost, "/api/razorpay/verify-payment", &s.user, verify)
	require.Equal(t, http.StatusOK, code, env.Message)
	verified := decode[models.VerifyPaymentResponse](t, env.Data)
	assert.Equal(t, models.PaymentStatusCompleted, verified.PaymentStatus)
	assert.Equal(t, models.BookingStatusConfirmed, verified.BookingStatus)
	assert.Equal(t, models.PaymentMethodCreditCard, verified.PaymentMethod)
	assert.Equal(t, "pay_abc", verified.TransactionID)

	code, env = s.do(t, http.MethodPost, "/api/razorpay/refunds/initiate", &s.user, map[string]string{
		"paymentId": verified.PaymentID.String(),
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	refund := decode[models.RefundResponse](t, env.Data)
	assert.Equal(t, "rfnd_1", refund.RefundID)
	assert.Equal(t, 3000.0, refund.Amount)

	code, env = s.do(t, http.MethodGet, "/api/bookings/"+booking.ID.String(), &s.user, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.BookingStatusCancelled, decode[models.Booking](t, env.Data).Status)

	code, env = s.do(t, http.MethodGet, "/api/razorpay/refunds/payment/"+verified.PaymentID.String(), &s.user, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]razorpay.Refund](t, env.Data), 1)

	code, _ = s.do(t, http.MethodGet, "/api/razorpay/refunds/rfnd_1", &s.user, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/razorpay/refunds/rfnd_missing", &s.user, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, env.Message, "The id provided does not exist")
}

func TestRazorpayHandler_Webhook(t *testing.T) {
	s := setupTestServer(t)
	booking := s.createBooking(t)

	code, env := s.do(t, http.MethodPost, "/api/razorpay/create-order", &s.user, map[string]string{
		"bookingId": booking.ID.String(),
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	order := decode[models.CreateOrderResponse](t, env.Data)

	body := []byte(fmt.Sprintf(
		`{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_hook","order_id":%q,"status":"captured","method":"upi","amount":300000,"currency":"INR"}}}}`,
		order.OrderID))
	signature := razorpay.WebhookSignature(testWebhookSecret, body)

	t.Run("missing signature", func(t *testing.T) {
		code, _ := s.webhook(t, body, "")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("signature mismatch", func(t *testing.T) {
		code, _ := s.webhook(t, body, razorpay.WebhookSignature("wrong", body))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("malformed signed body", func(t *testing.T) {
		garbage := []byte("{not json")
		code, _ := s.webhook(t, garbage, razorpay.WebhookSignature(testWebhookSecret, garbage))
		assert.Equal(t, http.StatusInternalServerError, code)
	})

	t.Run("captured", func(t *testing.T) {
		code, env := s.webhook(t, body, signature)
		require.Equal(t, http.StatusOK, code, env.Message)
		assert.Equal(t, "Webhook processed", env.Message)

		code, env = s.do(t, http.MethodGet, "/api/bookings/"+booking.ID.String(), &s.user, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, models.BookingStatusConfirmed, decode[models.Booking](t, env.Data).Status)
	})

	t.Run("redelivery", func(t *testing.T) {
		code, _ := s.webhook(t, body, signature)
		assert.Equal(t, http.StatusOK, code)

		payment, err := s.store.GetPaymentByTransactionID(context.Background(), "pay_hook")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
		assert.Equal(t, models.PaymentMethodUPI, payment.Method)
	})
}

func TestRazorpayHandler_PaymentDetails(t *testing.T) {
	s := setupTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/razorpay/payment-details/pay_xyz", &s.user, nil)
	require.Equal(t, http.StatusOK, code)
	payment := decode[razorpay.Payment](t, env.Data)
	assert.Equal(t, "pay_xyz", payment.ID)
	assert.Equal(t, "card", payment.Method)
}
