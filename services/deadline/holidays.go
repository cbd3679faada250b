package deadline

import (
	"fmt"
	"sort"
	"time"

	"courtcal/models"
)

// HolidaySet holds non-business dates keyed by civil date ("2006-01-02").
type HolidaySet map[string]struct{}

func NewHolidaySet(dates ...time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d.Format(models.DateLayout)] = struct{}{}
	}
	return set
}

// ParseHolidaySet parses "YYYY-MM-DD" strings. The first malformed entry is reported.
func ParseHolidaySet(dates []string) (HolidaySet, error) {
	set := make(HolidaySet, len(dates))
	for _, raw := range dates {
		d, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, models.NewValidationError("holidays", fmt.Sprintf("invalid date %q", raw))
		}
		set[d.Format(models.DateLayout)] = struct{}{}
	}
	return set, nil
}

func (h HolidaySet) Contains(day time.Time) bool {
	_, ok := h[day.Format(models.DateLayout)]
	return ok
}

// Merge returns a new set holding the dates of h and others.
func (h HolidaySet) Merge(others ...HolidaySet) HolidaySet {
	out := make(HolidaySet, len(h))
	for d := range h {
		out[d] = struct{}{}
	}
	for _, o := range others {
		for d := range o {
			out[d] = struct{}{}
		}
	}
	return out
}

// Dates lists the set in ascending order.
func (h HolidaySet) Dates() []string {
	out := make([]string, 0, len(h))
	for d := range h {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// FederalHolidays returns the observed US federal court holidays of year. Fixed-date
// holidays falling on Saturday are observed the Friday before, on Sunday the Monday after.
func FederalHolidays(year int, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	fixed := func(m time.Month, d int) time.Time {
		day := time.Date(year, m, d, 0, 0, 0, 0, loc)
		switch day.Weekday() {
		case time.Saturday:
			return day.AddDate(0, 0, -1)
		case time.Sunday:
			return day.AddDate(0, 0, 1)
		}
		return day
	}
	return []time.Time{
		fixed(time.January, 1),
		nthWeekday(year, time.January, time.Monday, 3, loc),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3, loc), // Washington's Birthday
		lastWeekday(year, time.May, time.Monday, loc),        // Memorial Day
		fixed(time.June, 19),
		fixed(time.July, 4),
		nthWeekday(year, time.September, time.Monday, 1, loc), // Labor Day
		nthWeekday(year, time.October, time.Monday, 2, loc),   // Columbus Day
		fixed(time.November, 11),
		nthWeekday(year, time.November, time.Thursday, 4, loc), // Thanksgiving
		fixed(time.December, 25),
	}
}

// FederalHolidaySet covers every year from first to last inclusive.
func FederalHolidaySet(first, last int, loc *time.Location) HolidaySet {
	set := HolidaySet{}
	for y := first; y <= last; y++ {
		for _, d := range FederalHolidays(y, loc) {
			set[d.Format(models.DateLayout)] = struct{}{}
		}
	}
	return set
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, month time.Month, wd time.Weekday, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.AddDate(0, 0, -offset)
}
