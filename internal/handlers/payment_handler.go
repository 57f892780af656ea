package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/internal/services"
)

// PaymentHandler handles direct payment HTTP requests
type PaymentHandler struct {
	payments *services.PaymentService
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// CreatePayment handles POST /api/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	payment, err := h.payments.CreatePayment(requestContext(c), actorFrom(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Payment processed successfully"
	if payment.Status == models.PaymentStatusFailed {
		message = "Payment failed: amount does not match booking total"
	}
	respondSuccess(c, http.StatusCreated, message, payment)
}

// GetMyPayments handles GET /api/payments
func (h *PaymentHandler) GetMyPayments(c *gin.Context) {
	payments, err := h.payments.ListMyPayments(requestContext(c), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payments retrieved successfully", payments)
}

// GetBookingPayments handles GET /api/payments/booking/:bookingId
func (h *PaymentHandler) GetBookingPayments(c *gin.Context) {
	bookingID, ok := uuidParam(c, "bookingId", "booking")
	if !ok {
		return
	}

	payments, err := h.payments.ListPaymentsByBooking(requestContext(c), actorFrom(c), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payments retrieved successfully", payments)
}

// GetAllPayments handles GET /api/payments/all (admin, owner)
func (h *PaymentHandler) GetAllPayments(c *gin.Context) {
	payments, err := h.payments.ListAllPayments(requestContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payments retrieved successfully", payments)
}
