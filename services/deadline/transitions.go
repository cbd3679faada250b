package deadline

import (
	"errors"
	"time"

	"courtcal/models"
)

var ErrDeadlineClosed = errors.New("deadline is already completed or cancelled")

// Extend moves the due date. OriginalDueDate is captured on the first extension only, so
// repeated extensions keep the date the deadline was created with. A new date earlier
// than the current one is accepted.
func Extend(d models.Deadline, newDueDate time.Time, reason, grantedBy string, now time.Time) (models.Deadline, error) {
	if newDueDate.IsZero() {
		return d, models.NewValidationError("newDueDate", "is required")
	}
	if d.Completed || d.Cancelled {
		return d, models.NewValidationError("status", ErrDeadlineClosed.Error())
	}
	out := d.Clone()
	if out.OriginalDueDate == nil {
		orig := d.DueDate
		out.OriginalDueDate = &orig
	}
	out.Extensions = append(out.Extensions, models.DeadlineExtension{
		PreviousDueDate: d.DueDate,
		NewDueDate:      newDueDate,
		Reason:          reason,
		GrantedBy:       grantedBy,
		GrantedAt:       now,
	})
	out.DueDate = newDueDate
	out.UpdatedAt = now
	return out, nil
}

// Complete marks d done. Completing a completed deadline returns it unchanged.
func Complete(d models.Deadline, completedBy string, now time.Time) (models.Deadline, error) {
	if d.Completed {
		return d, nil
	}
	if d.Cancelled {
		return d, models.NewValidationError("status", "cancelled deadlines cannot be completed")
	}
	out := d.Clone()
	at := now
	out.Completed = true
	out.CompletedAt = &at
	out.CompletedBy = completedBy
	out.UpdatedAt = now
	return out, nil
}

// Cancel withdraws d. Cancelling twice is a no-op.
func Cancel(d models.Deadline, cancelledBy string, now time.Time) (models.Deadline, error) {
	if d.Cancelled {
		return d, nil
	}
	if d.Completed {
		return d, models.NewValidationError("status", "completed deadlines cannot be cancelled")
	}
	out := d.Clone()
	out.Cancelled = true
	out.CancelledBy = cancelledBy
	out.UpdatedAt = now
	return out, nil
}
