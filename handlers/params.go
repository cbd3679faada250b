package handlers

import (
	"fmt"
	"strconv"
	"time"

	"courtcal/models"

	"github.com/gin-gonic/gin"
)

// windowQuery reads start and end (RFC 3339) query parameters.
func windowQuery(c *gin.Context) (models.TimeInterval, error) {
	start, err := timeQuery(c, "start")
	if err != nil {
		return models.TimeInterval{}, err
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		return models.TimeInterval{}, err
	}
	return models.NewTimeInterval(start, end)
}

func timeQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, models.NewValidationError(name, "is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, models.NewValidationError(name, fmt.Sprintf("invalid time %q, expected RFC 3339", raw))
	}
	return t, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, models.NewValidationError(name, "is required")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// parseDate reads a calendar date in loc.
func parseDate(field, raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, models.NewValidationError(field, "is required")
	}
	t, err := time.ParseInLocation(models.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, models.NewValidationError(field, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
	}
	return t, nil
}
