package models

import (
	"fmt"
	"time"
)

// DayHours is one weekday's open window.
type DayHours struct {
	Weekday     time.Weekday `bson:"weekday" json:"weekday"`
	OpenMinute  int          `bson:"openMinute" json:"openMinute"`   // minutes from midnight (e.g., 540 for 9:00 AM)
	CloseMinute int          `bson:"closeMinute" json:"closeMinute"` // minutes from midnight (e.g., 1020 for 5:00 PM)
	Closed      bool         `bson:"closed,omitempty" json:"closed,omitempty"`
}

// WeeklyHours lists open windows per weekday. A weekday with no entry is closed.
type WeeklyHours []DayHours

// For returns the entry for a weekday.
func (w WeeklyHours) For(day time.Weekday) (DayHours, bool) {
	for _, d := range w {
		if d.Weekday == day {
			return d, true
		}
	}
	return DayHours{}, false
}

// OpenInterval resolves the open window of the calendar day containing day, in loc.
func (w WeeklyHours) OpenInterval(day time.Time, loc *time.Location) (TimeInterval, bool) {
	if loc == nil {
		loc = day.Location()
	}
	local := day.In(loc)
	hours, ok := w.For(local.Weekday())
	if !ok || hours.Closed || hours.CloseMinute <= hours.OpenMinute {
		return TimeInterval{}, false
	}
	return TimeInterval{
		Start: wallClock(local, hours.OpenMinute, loc),
		End:   wallClock(local, hours.CloseMinute, loc),
	}, true
}

// wallClock is minute minutes past midnight on day's civil date, read off the wall clock
// so a DST shift that day does not move it.
func wallClock(day time.Time, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, loc)
}

func (w WeeklyHours) Validate() error {
	verr := &ValidationError{}
	seen := make(map[time.Weekday]bool)
	for _, d := range w {
		field := fmt.Sprintf("hours.%s", d.Weekday)
		if d.Weekday < time.Sunday || d.Weekday > time.Saturday {
			verr.Add("hours.weekday", "weekday out of range")
			continue
		}
		if seen[d.Weekday] {
			verr.Add(field, "duplicate weekday")
		}
		seen[d.Weekday] = true
		if d.Closed {
			continue
		}
		if d.OpenMinute < 0 || d.CloseMinute > 24*60 || d.CloseMinute <= d.OpenMinute {
			verr.Add(field, "open must be before close within the day")
		}
	}
	return verr.OrNil()
}

// StandardWeek is Monday to Friday, open to close, given in minutes from midnight.
func StandardWeek(openMinute, closeMinute int) WeeklyHours {
	hours := make(WeeklyHours, 0, 5)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		hours = append(hours, DayHours{Weekday: wd, OpenMinute: openMinute, CloseMinute: closeMinute})
	}
	return hours
}

// SlotsRequest is the payload for finding open slots for a subject.
type SlotsRequest struct {
	SubjectID           string      `json:"subjectId" binding:"required"`
	Date                string      `json:"date" binding:"required"` // "2006-01-02"
	EndDate             string      `json:"endDate,omitempty"`       // optional, inclusive
	SlotDurationMinutes int         `json:"slotDurationMinutes" binding:"required"`
	WorkingHours        WeeklyHours `json:"workingHours,omitempty"` // falls back to configured hours
}
