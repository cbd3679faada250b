package handlers

import (
	"net/http"

	"courtcal/models"
	"courtcal/services/availability"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	Service availability.AvailabilityService
}

// CheckAvailabilityHandler answers GET /api/availability/:subjectID?start&end.
func (h *AvailabilityHandler) CheckAvailabilityHandler(c *gin.Context) {
	window, err := windowQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.Service.CheckAvailability(c.Request.Context(), c.Param("subjectID"), window.Start, window.End)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AvailabilityHandler) FindSlotsHandler(c *gin.Context) {
	var req models.SlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	slots, err := h.Service.FindAvailableSlots(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjectId": req.SubjectID, "slots": slots})
}

func (h *AvailabilityHandler) CreateBlockHandler(c *gin.Context) {
	var req availability.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = actor(c, "")
	}
	block, err := h.Service.CreateBlock(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Block created", zap.String("blockID", block.ID), zap.String("subjectID", block.SubjectID))
	c.JSON(http.StatusCreated, block)
}

func (h *AvailabilityHandler) ListBlocksHandler(c *gin.Context) {
	window, err := windowQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	blocks, err := h.Service.ListBlocks(c.Request.Context(), c.Query("subjectId"), window)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (h *AvailabilityHandler) CancelBlockHandler(c *gin.Context) {
	block, err := h.Service.CancelBlock(c.Request.Context(), c.Param("id"), actor(c, "api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}
