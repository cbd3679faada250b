package handlers

import (
	"errors"
	"net/http"

	"courtcal/models"
	"courtcal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps domain errors to status codes and writes an ErrorResponse.
func respondError(c *gin.Context, err error) {
	var (
		verr *models.ValidationError
		nf   *models.NotFoundError
		cerr *models.ConflictError
		terr *models.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		fields := verr.FieldErrors
		if len(fields) == 0 && verr.Field != "" {
			fields = map[string]string{verr.Field: verr.Message}
		}
		c.JSON(http.StatusBadRequest, utils.ErrorResponse{
			Message: "Invalid request",
			Details: verr.Error(),
			Fields:  fields,
		})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, utils.ErrorResponse{Message: "Not found", Details: nf.Error()})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, utils.ErrorResponse{
			Message:   "Scheduling conflict",
			Details:   cerr.Reason,
			Conflicts: cerr.Conflicts,
		})
	case errors.As(err, &terr):
		c.JSON(http.StatusUnprocessableEntity, utils.ErrorResponse{Message: "Invalid status change", Details: terr.Error()})
	case errors.Is(err, models.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, utils.ErrorResponse{Message: "Concurrent update", Details: "please retry"})
	default:
		getLogger(c).Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse{
			Message: "Internal Server Error",
			Details: "An unexpected error occurred. Please try again later.",
		})
	}
}

// badRequest reports a body or query that could not be bound.
func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
}
