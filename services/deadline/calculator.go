package deadline

import (
	"fmt"
	"time"

	"courtcal/models"
)

// MaxDays bounds the day count of a single calculation, roughly ten years either way.
const MaxDays = 3650

// IsBusinessDay reports whether day is a weekday that is not a holiday.
func IsBusinessDay(day time.Time, holidays HolidaySet) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays.Contains(day)
}

// AddBusinessDays steps one calendar day at a time from trigger, counting only business
// days, until n have been consumed. Negative n counts backwards and n == 0 returns the
// trigger date itself. The result is midnight of the civil date in trigger's location.
func AddBusinessDays(trigger time.Time, n int, holidays HolidaySet) time.Time {
	day := civilDate(trigger)
	step := 1
	if n < 0 {
		step, n = -1, -n
	}
	for n > 0 {
		day = day.AddDate(0, 0, step)
		if IsBusinessDay(day, holidays) {
			n--
		}
	}
	return day
}

// AddCalendarDays adds n calendar days and then rolls off any weekend or holiday,
// forward for n >= 0 and backward for negative n.
func AddCalendarDays(trigger time.Time, n int, holidays HolidaySet) time.Time {
	day := civilDate(trigger).AddDate(0, 0, n)
	step := 1
	if n < 0 {
		step = -1
	}
	for !IsBusinessDay(day, holidays) {
		day = day.AddDate(0, 0, step)
	}
	return day
}

// Calculate computes the due date described by basis. Holidays listed on the basis are
// added to the configured set for this calculation only.
func Calculate(basis models.DeadlineBasis, holidays HolidaySet) (time.Time, error) {
	if basis.TriggerDate.IsZero() {
		return time.Time{}, models.NewValidationError("triggerDate", "is required")
	}
	if basis.Days > MaxDays || basis.Days < -MaxDays {
		return time.Time{}, models.NewValidationError("days", fmt.Sprintf("must be between -%d and %d", MaxDays, MaxDays))
	}
	extra, err := ParseHolidaySet(basis.Holidays)
	if err != nil {
		return time.Time{}, err
	}
	merged := holidays.Merge(extra)

	switch basis.Mode {
	case models.CountBusinessDays, "":
		return AddBusinessDays(basis.TriggerDate, basis.Days, merged), nil
	case models.CountCalendarDays:
		return AddCalendarDays(basis.TriggerDate, basis.Days, merged), nil
	default:
		return time.Time{}, models.NewValidationError("mode", "must be business_days or calendar_days")
	}
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
