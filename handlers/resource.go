package handlers

import (
	"net/http"

	"courtcal/models"
	"courtcal/services/availability"
	"courtcal/services/resource"

	"github.com/gin-gonic/gin"
)

type ResourceHandler struct {
	Service      resource.ResourceService
	Availability availability.AvailabilityService
}

// UpsertResourceHandler answers PUT /api/resources/:id; the path id wins over the body.
func (h *ResourceHandler) UpsertResourceHandler(c *gin.Context) {
	var r models.BookableResource
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	r.ID = c.Param("id")
	saved, err := h.Service.UpsertResource(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *ResourceHandler) GetResourceHandler(c *gin.Context) {
	r, err := h.Service.GetResource(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ResourceHandler) ListResourcesHandler(c *gin.Context) {
	resources, err := h.Service.ListResources(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": resources})
}

// ResourceSlotsHandler answers GET /api/resources/:id/slots?date&duration (minutes).
func (h *ResourceHandler) ResourceSlotsHandler(c *gin.Context) {
	minutes, err := intQuery(c, "duration")
	if err != nil {
		respondError(c, err)
		return
	}
	slots, err := h.Availability.FindResourceSlots(c.Request.Context(), c.Param("id"), c.Query("date"), minutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resourceId": c.Param("id"), "slots": slots})
}
