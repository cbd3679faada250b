package routes

import (
	"time"

	"courtcal/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers the health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
}

// RegisterAvailabilityRoutes registers availability queries and block management.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.POST("/slots", hb.FindSlots)
		api.POST("/blocks", hb.CreateBlock)
		api.GET("/blocks", hb.ListBlocks)
		api.DELETE("/blocks/:id", hb.CancelBlock)
		api.GET("/:subjectID", hb.CheckAvailability)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking orchestrator.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.POST("", hb.RequestBooking)
		api.GET("", hb.ListBookings)
		api.GET("/:id", hb.GetBooking)
		api.POST("/:id/cancel", hb.CancelBooking)
		api.POST("/:id/reschedule", hb.RescheduleBooking)
		api.POST("/:id/transition", hb.TransitionBooking)
	}
}

// RegisterResourceRoutes registers resource administration and resource slots.
func RegisterResourceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/resources")
	{
		api.GET("", hb.ListResources)
		api.GET("/:id", hb.GetResource)
		api.PUT("/:id", hb.UpsertResource)
		api.GET("/:id/slots", hb.ResourceSlots)
	}
}

// RegisterDeadlineRoutes registers deadline calculation and lifecycle endpoints.
func RegisterDeadlineRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/deadlines")
	{
		api.POST("/calculate", hb.CalculateDeadline)
		api.POST("", hb.CreateDeadline)
		api.GET("/:id", hb.GetDeadline)
		api.POST("/:id/extend", hb.ExtendDeadline)
		api.POST("/:id/complete", hb.CompleteDeadline)
		api.POST("/:id/cancel", hb.CancelDeadline)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Idempotency-Key", "X-Actor", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Length", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterAvailabilityRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterResourceRoutes(r, hb)
	RegisterDeadlineRoutes(r, hb)
}
