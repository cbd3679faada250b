package handlers

import (
	"net/http"
	"time"

	"courtcal/models"
	"courtcal/services/deadline"

	"github.com/gin-gonic/gin"
)

type DeadlineHandler struct {
	Service  deadline.DeadlineService
	Location *time.Location
}

// basisInput carries dates as YYYY-MM-DD; they are read in the court's time zone.
type basisInput struct {
	TriggerDate string              `json:"triggerDate" binding:"required"`
	Days        int                 `json:"days"`
	Mode        models.CountingMode `json:"mode"`
	Holidays    []string            `json:"holidays,omitempty"`
}

func (in basisInput) toBasis(loc *time.Location) (models.DeadlineBasis, error) {
	trigger, err := parseDate("triggerDate", in.TriggerDate, loc)
	if err != nil {
		return models.DeadlineBasis{}, err
	}
	return models.DeadlineBasis{TriggerDate: trigger, Days: in.Days, Mode: in.Mode, Holidays: in.Holidays}, nil
}

func (h *DeadlineHandler) CalculateDeadlineHandler(c *gin.Context) {
	var in basisInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	basis, err := in.toBasis(h.location())
	if err != nil {
		respondError(c, err)
		return
	}
	due, err := h.Service.CalculateDeadline(c.Request.Context(), basis)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dueDate": due.Format(models.DateLayout),
		"weekday": due.Weekday().String(),
	})
}

func (h *DeadlineHandler) CreateDeadlineHandler(c *gin.Context) {
	var in struct {
		Title              string                  `json:"title" binding:"required"`
		Reference          string                  `json:"reference,omitempty"`
		Basis              basisInput              `json:"basis" binding:"required"`
		Priority           models.DeadlinePriority `json:"priority"`
		BlockedBy          []string                `json:"blockedBy,omitempty"`
		ReminderDaysBefore []int                   `json:"reminderDaysBefore,omitempty"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	basis, err := in.Basis.toBasis(h.location())
	if err != nil {
		respondError(c, err)
		return
	}
	d, err := h.Service.CreateDeadline(c.Request.Context(), deadline.CreateRequest{
		Title:              in.Title,
		Reference:          in.Reference,
		Basis:              basis,
		Priority:           in.Priority,
		BlockedBy:          in.BlockedBy,
		ReminderDaysBefore: in.ReminderDaysBefore,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *DeadlineHandler) GetDeadlineHandler(c *gin.Context) {
	d, err := h.Service.GetDeadline(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeadlineHandler) ExtendDeadlineHandler(c *gin.Context) {
	var body struct {
		NewDueDate string `json:"newDueDate" binding:"required"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	newDue, err := parseDate("newDueDate", body.NewDueDate, h.location())
	if err != nil {
		respondError(c, err)
		return
	}
	d, err := h.Service.ExtendDeadline(c.Request.Context(), c.Param("id"), newDue, body.Reason, actor(c, "api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeadlineHandler) CompleteDeadlineHandler(c *gin.Context) {
	d, err := h.Service.CompleteDeadline(c.Request.Context(), c.Param("id"), actor(c, "api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeadlineHandler) CancelDeadlineHandler(c *gin.Context) {
	d, err := h.Service.CancelDeadline(c.Request.Context(), c.Param("id"), actor(c, "api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DeadlineHandler) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}
