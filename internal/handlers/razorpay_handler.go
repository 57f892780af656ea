package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/internal/services"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-Razorpay-Signature"

// RazorpayHandler handles checkout, verification, refund and webhook requests
type RazorpayHandler struct {
	orders       *services.OrderService
	verification *services.VerificationService
	refunds      *services.RefundService
	webhooks     *services.WebhookService
	logger       *logrus.Logger
}

// NewRazorpayHandler creates a new Razorpay handler
func NewRazorpayHandler(
	orders *services.OrderService,
	verification *services.VerificationService,
	refunds *services.RefundService,
	webhooks *services.WebhookService,
	logger *logrus.Logger,
) *RazorpayHandler {
	return &RazorpayHandler{
		orders:       orders,
		verification: verification,
		refunds:      refunds,
		webhooks:     webhooks,
		logger:       logger,
	}
}

// CreateOrder handles POST /api/razorpay/create-order
func (h *RazorpayHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orders.CreateOrder(requestContext(c), actorFrom(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Order created successfully", order)
}

// VerifyPayment handles POST /api/razorpay/verify-payment
func (h *RazorpayHandler) VerifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.verification.VerifyPayment(requestContext(c), actorFrom(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payment verified successfully", result)
}

// GetPaymentDetails handles GET /api/razorpay/payment-details/:paymentId
func (h *RazorpayHandler) GetPaymentDetails(c *gin.Context) {
	payment, err := h.verification.PaymentDetails(requestContext(c), c.Param("paymentId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payment details retrieved successfully", payment)
}

// InitiateRefund handles POST /api/razorpay/refunds/initiate
func (h *RazorpayHandler) InitiateRefund(c *gin.Context) {
	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	refund, err := h.refunds.InitiateRefund(requestContext(c), actorFrom(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Refund initiated successfully", refund)
}

// GetRefund handles GET /api/razorpay/refunds/:refundId
func (h *RazorpayHandler) GetRefund(c *gin.Context) {
	refund, err := h.refunds.GetRefund(requestContext(c), c.Param("refundId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Refund retrieved successfully", refund)
}

// GetPaymentRefunds handles GET /api/razorpay/refunds/payment/:paymentId
func (h *RazorpayHandler) GetPaymentRefunds(c *gin.Context) {
	refunds, err := h.refunds.ListRefunds(requestContext(c), actorFrom(c), c.Param("paymentId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Refunds retrieved successfully", refunds)
}

// Webhook handles POST /api/razorpay/webhook. The body is read raw so the
// signature is checked against the exact bytes Razorpay signed.
func (h *RazorpayHandler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		respondFailure(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result, err := h.webhooks.Handle(requestContext(c), body, c.GetHeader(SignatureHeader))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Webhook "+string(result.Outcome), result)
}
