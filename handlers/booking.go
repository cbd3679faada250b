package handlers

import (
	"net/http"

	"courtcal/models"
	"courtcal/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	Service booking.BookingService
}

// RequestBookingHandler answers POST /api/bookings. An Idempotency-Key header makes
// retries return the booking the first attempt produced.
func (h *BookingHandler) RequestBookingHandler(c *gin.Context) {
	var req booking.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	if req.Owner == "" {
		req.Owner = actor(c, "")
	}

	b, err := h.Service.RequestBooking(c.Request.Context(), req)
	if err != nil {
		if models.IsConflict(err) {
			getLogger(c).Info("Booking rejected", zap.Error(err))
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookingsHandler answers GET /api/bookings?subjectId|resourceId&start&end[&status].
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	window, err := windowQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filter := models.BookingFilter{
		SubjectID:  c.Query("subjectId"),
		ResourceID: c.Query("resourceId"),
		Window:     window,
	}
	for _, s := range c.QueryArray("status") {
		filter.Statuses = append(filter.Statuses, models.BookingStatus(s))
	}
	bookings, err := h.Service.ListBookings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	b, err := h.Service.CancelBooking(c.Request.Context(), c.Param("id"), actor(c, "api"), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) RescheduleBookingHandler(c *gin.Context) {
	var body struct {
		Interval models.TimeInterval `json:"interval"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.RescheduleBooking(c.Request.Context(), c.Param("id"), body.Interval, actor(c, "api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) TransitionBookingHandler(c *gin.Context) {
	var body struct {
		Status models.BookingStatus `json:"status" binding:"required"`
		Reason string               `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.Service.TransitionBooking(c.Request.Context(), c.Param("id"), body.Status, actor(c, "api"), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
