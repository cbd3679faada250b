package availability

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"
)

// CheckAvailability reports whether subjectID is free for [start, end) and, if not, which
// busy intervals are in the way.
func (s *DefaultAvailabilityService) CheckAvailability(ctx context.Context, subjectID string, start, end time.Time) (models.ConflictResult, error) {
	if subjectID == "" {
		return models.ConflictResult{}, models.NewValidationError("subjectId", "is required")
	}
	candidate, err := models.NewTimeInterval(start, end)
	if err != nil {
		return models.ConflictResult{}, err
	}
	return s.Detector.CheckConflicts(ctx, candidate, []string{subjectID}, 0, "")
}

// FindAvailableSlots lists open slots for one day, or every day through EndDate.
func (s *DefaultAvailabilityService) FindAvailableSlots(ctx context.Context, req models.SlotsRequest) ([]models.AvailableInterval, error) {
	loc := s.location()
	day, err := time.ParseInLocation(models.DateLayout, req.Date, loc)
	if err != nil {
		return nil, models.NewValidationError("date", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
	}
	if req.SlotDurationMinutes <= 0 {
		return nil, models.NewValidationError("slotDurationMinutes", "must be positive")
	}
	hours := req.WorkingHours
	if len(hours) == 0 {
		hours = s.DefaultHours
	} else if err := hours.Validate(); err != nil {
		return nil, err
	}
	dur := time.Duration(req.SlotDurationMinutes) * time.Minute

	var slots []models.TimeInterval
	if req.EndDate == "" {
		slots, err = s.Slots.FindSlots(ctx, req.SubjectID, day, dur, hours)
	} else {
		last, perr := time.ParseInLocation(models.DateLayout, req.EndDate, loc)
		if perr != nil {
			return nil, models.NewValidationError("endDate", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.EndDate))
		}
		slots, err = s.Slots.FindSlotsInRange(ctx, req.SubjectID, day, last, dur, hours)
	}
	if err != nil {
		return nil, err
	}
	return toAvailable(slots, loc), nil
}

// FindResourceSlots lists open slots of a resource within its operating hours.
func (s *DefaultAvailabilityService) FindResourceSlots(ctx context.Context, resourceID, date string, durationMinutes int) ([]models.AvailableInterval, error) {
	if s.Resources == nil {
		return nil, fmt.Errorf("resource lookups are not configured")
	}
	loc := s.location()
	day, err := time.ParseInLocation(models.DateLayout, date, loc)
	if err != nil {
		return nil, models.NewValidationError("date", fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	if durationMinutes <= 0 {
		return nil, models.NewValidationError("duration", "must be positive")
	}
	resource, err := s.Resources.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(resource.OperatingHours) == 0 {
		resource.OperatingHours = s.DefaultHours
	}
	slots, err := s.Slots.FindResourceSlots(ctx, *resource, day, time.Duration(durationMinutes)*time.Minute)
	if err != nil {
		return nil, err
	}
	return toAvailable(slots, loc), nil
}

func toAvailable(slots []models.TimeInterval, loc *time.Location) []models.AvailableInterval {
	out := make([]models.AvailableInterval, 0, len(slots))
	for _, iv := range slots {
		out = append(out, models.NewAvailableInterval(iv, loc))
	}
	return out
}
