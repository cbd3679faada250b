package handlers

import (
	"time"

	"courtcal/services/availability"
	"courtcal/services/booking"
	"courtcal/services/deadline"
	"courtcal/services/resource"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Health gin.HandlerFunc

	// Availability endpoints
	CheckAvailability gin.HandlerFunc
	FindSlots         gin.HandlerFunc
	CreateBlock       gin.HandlerFunc
	ListBlocks        gin.HandlerFunc
	CancelBlock       gin.HandlerFunc

	// Booking endpoints
	RequestBooking    gin.HandlerFunc
	GetBooking        gin.HandlerFunc
	ListBookings      gin.HandlerFunc
	CancelBooking     gin.HandlerFunc
	RescheduleBooking gin.HandlerFunc
	TransitionBooking gin.HandlerFunc

	// Resource endpoints
	UpsertResource gin.HandlerFunc
	GetResource    gin.HandlerFunc
	ListResources  gin.HandlerFunc
	ResourceSlots  gin.HandlerFunc

	// Deadline endpoints
	CalculateDeadline gin.HandlerFunc
	CreateDeadline    gin.HandlerFunc
	GetDeadline       gin.HandlerFunc
	ExtendDeadline    gin.HandlerFunc
	CompleteDeadline  gin.HandlerFunc
	CancelDeadline    gin.HandlerFunc
}

// Services are the dependencies behind the HTTP surface.
type Services struct {
	Availability availability.AvailabilityService
	Bookings     booking.BookingService
	Resources    resource.ResourceService
	Deadlines    deadline.DeadlineService
	Location     *time.Location
}

func NewHandlerBundle(s Services) *HandlerBundle {
	ah := &AvailabilityHandler{Service: s.Availability}
	bh := &BookingHandler{Service: s.Bookings}
	rh := &ResourceHandler{Service: s.Resources, Availability: s.Availability}
	dh := &DeadlineHandler{Service: s.Deadlines, Location: s.Location}

	return &HandlerBundle{
		Health: HealthHandler,

		CheckAvailability: ah.CheckAvailabilityHandler,
		FindSlots:         ah.FindSlotsHandler,
		CreateBlock:       ah.CreateBlockHandler,
		ListBlocks:        ah.ListBlocksHandler,
		CancelBlock:       ah.CancelBlockHandler,

		RequestBooking:    bh.RequestBookingHandler,
		GetBooking:        bh.GetBookingHandler,
		ListBookings:      bh.ListBookingsHandler,
		CancelBooking:     bh.CancelBookingHandler,
		RescheduleBooking: bh.RescheduleBookingHandler,
		TransitionBooking: bh.TransitionBookingHandler,

		UpsertResource: rh.UpsertResourceHandler,
		GetResource:    rh.GetResourceHandler,
		ListResources:  rh.ListResourcesHandler,
		ResourceSlots:  rh.ResourceSlotsHandler,

		CalculateDeadline: dh.CalculateDeadlineHandler,
		CreateDeadline:    dh.CreateDeadlineHandler,
		GetDeadline:       dh.GetDeadlineHandler,
		ExtendDeadline:    dh.ExtendDeadlineHandler,
		CompleteDeadline:  dh.CompleteDeadlineHandler,
		CancelDeadline:    dh.CancelDeadlineHandler,
	}
}
