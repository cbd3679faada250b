package deadline

import (
	"time"

	"courtcal/models"
)

// DeriveStatus computes a deadline's status from its stored fields. Dates are compared
// as civil dates in loc. Precedence: cancelled, completed, overdue, today, extended,
// upcoming.
func DeriveStatus(dueDate time.Time, completed, cancelled, extended bool, now time.Time, loc *time.Location) models.DeadlineStatus {
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case cancelled:
		return models.DeadlineCancelled
	case completed:
		return models.DeadlineCompleted
	}
	due := civilDate(dueDate.In(loc))
	today := civilDate(now.In(loc))
	switch {
	case due.Before(today):
		return models.DeadlineOverdue
	case due.Equal(today):
		return models.DeadlineToday
	case extended:
		return models.DeadlineExtended
	}
	return models.DeadlineUpcoming
}

// WithStatus returns a copy of d with Status filled in for now.
func WithStatus(d models.Deadline, now time.Time, loc *time.Location) models.Deadline {
	out := d.Clone()
	out.Status = DeriveStatus(d.DueDate, d.Completed, d.Cancelled, d.Extended(), now, loc)
	return out
}
