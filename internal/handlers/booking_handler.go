package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
	"github.com/venuebooking/booking-backend/internal/services"
)

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	bookings *services.BookingService
	override *services.BookingOverrideService
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings *services.BookingService, override *services.BookingOverrideService, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		override: override,
		logger:   logger,
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	booking, err := h.bookings.CreateBooking(requestContext(c), actorFrom(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Booking created successfully", booking)
}

// GetMyBookings handles GET /api/bookings
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	bookings, err := h.bookings.ListMyBookings(requestContext(c), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Bookings retrieved successfully", bookings)
}

// GetAllBookings handles GET /api/bookings/all (admin, owner)
func (h *BookingHandler) GetAllBookings(c *gin.Context) {
	bookings, err := h.bookings.ListAllBookings(requestContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Bookings retrieved successfully", bookings)
}

// GetBooking handles GET /api/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := uuidParam(c, "id", "booking")
	if !ok {
		return
	}

	booking, err := h.bookings.GetBooking(requestContext(c), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Booking retrieved successfully", booking)
}

// CancelBooking handles PUT /api/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := uuidParam(c, "id", "booking")
	if !ok {
		return
	}

	booking, err := h.bookings.CancelBooking(requestContext(c), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Booking cancelled successfully", booking)
}

// OverrideStatus handles PUT /api/bookings/:id?status= (admin, owner)
func (h *BookingHandler) OverrideStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id", "booking")
	if !ok {
		return
	}

	booking, err := h.override.OverrideStatus(requestContext(c), actorFrom(c), id, c.Query("status"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Booking status updated successfully", booking)
}

// GetOwnerBookings handles GET /api/bookings/owner/:ownerId
func (h *BookingHandler) GetOwnerBookings(c *gin.Context) {
	ownerID, ok := uuidParam(c, "ownerId", "owner")
	if !ok {
		return
	}

	bookings, err := h.bookings.ListBookingsByOwner(requestContext(c), actorFrom(c), ownerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Bookings retrieved successfully", bookings)
}

// GetBookedDates handles GET /api/bookings/venue/:venueId/booked-dates (public)
func (h *BookingHandler) GetBookedDates(c *gin.Context) {
	venueID, ok := uuidParam(c, "venueId", "venue")
	if !ok {
		return
	}

	ranges, err := h.bookings.BookedDates(requestContext(c), venueID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Booked dates retrieved successfully", ranges)
}
