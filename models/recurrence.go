package models

import "time"

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// DateLayout is the storage format for calendar dates (holidays, exception dates).
const DateLayout = "2006-01-02"

// RecurrencePattern repeats a block's interval. The block's own start is the anchor.
type RecurrencePattern struct {
	Frequency      Frequency      `bson:"frequency" json:"frequency"`
	Interval       int            `bson:"interval" json:"interval"`                                 // every N days/weeks/months
	Weekdays       []time.Weekday `bson:"weekdays,omitempty" json:"weekdays,omitempty"`             // weekly only
	EffectiveFrom  time.Time      `bson:"effectiveFrom" json:"effectiveFrom"`                       // occurrences before this are skipped
	EffectiveUntil *time.Time     `bson:"effectiveUntil,omitempty" json:"effectiveUntil,omitempty"` // exclusive; nil means open-ended
	Exceptions     []string       `bson:"exceptions,omitempty" json:"exceptions,omitempty"`         // skipped dates, "2006-01-02"
}

func (p RecurrencePattern) Validate() error {
	verr := &ValidationError{}
	switch p.Frequency {
	case FrequencyDaily, FrequencyMonthly:
	case FrequencyWeekly:
		if len(p.Weekdays) == 0 {
			verr.Add("recurrence.weekdays", "weekly recurrence needs at least one weekday")
		}
		for _, wd := range p.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				verr.Add("recurrence.weekdays", "weekday out of range")
			}
		}
	default:
		verr.Add("recurrence.frequency", "must be daily, weekly or monthly")
	}
	if p.Interval < 1 {
		verr.Add("recurrence.interval", "must be a positive integer")
	}
	if p.EffectiveUntil != nil && !p.EffectiveFrom.IsZero() && !p.EffectiveUntil.After(p.EffectiveFrom) {
		verr.Add("recurrence.effectiveUntil", "must be after effectiveFrom")
	}
	for _, d := range p.Exceptions {
		if _, err := time.Parse(DateLayout, d); err != nil {
			verr.Add("recurrence.exceptions", "dates must use YYYY-MM-DD")
		}
	}
	return verr.OrNil()
}
