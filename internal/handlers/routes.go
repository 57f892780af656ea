package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/venuebooking/booking-backend/internal/middleware"
	"github.com/venuebooking/booking-backend/internal/models"
)

// Handlers groups every HTTP handler served under /api
type Handlers struct {
	Bookings *BookingHandler
	Payments *PaymentHandler
	Razorpay *RazorpayHandler
}

// RegisterRoutes mounts the API. auth must populate the user context.
func RegisterRoutes(router *gin.Engine, h Handlers, auth gin.HandlerFunc) {
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleOwner)

	api := router.Group("/api")

	bookings := api.Group("/bookings")
	{
		bookings.GET("/venue/:venueId/booked-dates", h.Bookings.GetBookedDates)

		protected := bookings.Group("")
		protected.Use(auth)
		protected.POST("", h.Bookings.CreateBooking)
		protected.GET("", h.Bookings.GetMyBookings)
		protected.GET("/all", staff, h.Bookings.GetAllBookings)
		protected.GET("/owner/:ownerId", h.Bookings.GetOwnerBookings)
		protected.GET("/:id", h.Bookings.GetBooking)
		protected.PUT("/:id/cancel", h.Bookings.CancelBooking)
		protected.PUT("/:id", staff, h.Bookings.OverrideStatus)
	}

	payments := api.Group("/payments")
	payments.Use(auth)
	{
		payments.POST("", h.Payments.CreatePayment)
		payments.GET("", h.Payments.GetMyPayments)
		payments.GET("/all", staff, h.Payments.GetAllPayments)
		payments.GET("/booking/:bookingId", h.Payments.GetBookingPayments)
	}

	razorpay := api.Group("/razorpay")
	{
		// authenticated by signature, not by token
		razorpay.POST("/webhook", h.Razorpay.Webhook)

		protected := razorpay.Group("")
		protected.Use(auth)
		protected.POST("/create-order", h.Razorpay.CreateOrder)
		protected.POST("/verify-payment", h.Razorpay.VerifyPayment)
		protected.GET("/payment-details/:paymentId", h.Razorpay.GetPaymentDetails)
		protected.POST("/refunds/initiate", h.Razorpay.InitiateRefund)
		protected.GET("/refunds/payment/:paymentId", h.Razorpay.GetPaymentRefunds)
		protected.GET("/refunds/:refundId", h.Razorpay.GetRefund)
	}
}
