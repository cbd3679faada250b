package booking

import (
	"fmt"
	"time"

	"courtcal/models"
)

func validateRequest(req BookingRequest) error {
	verr := &models.ValidationError{}
	if err := req.Interval.Validate(); err != nil {
		verr.Add("interval", "end must be after start")
	}
	if len(req.SubjectIDs) == 0 {
		verr.Add("subjectIds", "at least one subject is required")
	}
	for _, id := range req.SubjectIDs {
		if id == "" {
			verr.Add("subjectIds", "must not contain empty ids")
			break
		}
	}
	if req.BufferMinutes < 0 {
		verr.Add("bufferMinutes", "must not be negative")
	}
	return verr.OrNil()
}

// checkRules applies a resource's booking rules and operating hours to iv.
func checkRules(resource models.BookableResource, iv models.TimeInterval, now time.Time, loc *time.Location) error {
	if !resource.Active {
		return models.NewValidationError("resourceId", fmt.Sprintf("resource %s is not active", resource.ID))
	}
	verr := &models.ValidationError{}
	rules := resource.Rules
	minutes := int(iv.Duration().Minutes())
	if rules.MinDurationMinutes > 0 && minutes < rules.MinDurationMinutes {
		verr.Add("interval", fmt.Sprintf("must be at least %d minutes", rules.MinDurationMinutes))
	}
	if rules.MaxDurationMinutes > 0 && minutes > rules.MaxDurationMinutes {
		verr.Add("interval", fmt.Sprintf("must be at most %d minutes", rules.MaxDurationMinutes))
	}
	if rules.MinAdvanceHours > 0 && iv.Start.Sub(now) < time.Duration(rules.MinAdvanceHours)*time.Hour {
		verr.Add("interval.start", fmt.Sprintf("must be booked %d hours in advance", rules.MinAdvanceHours))
	}
	if rules.MaxAdvanceDays > 0 && iv.Start.After(now.AddDate(0, 0, rules.MaxAdvanceDays)) {
		verr.Add("interval.start", fmt.Sprintf("must be within %d days", rules.MaxAdvanceDays))
	}
	if len(resource.OperatingHours) > 0 {
		open, ok := resource.OperatingHours.OpenInterval(iv.Start, loc)
		if !ok || iv.Start.Before(open.Start) || iv.End.After(open.End) {
			verr.Add("interval", "outside the resource's operating hours")
		}
	}
	return verr.OrNil()
}
