package scheduling

import (
	"iter"
	"slices"
	"time"

	"courtcal/models"
)

// DefaultMaxOccurrences bounds every expansion.
const DefaultMaxOccurrences = 10000

// Expander turns recurrence patterns into concrete intervals.
type Expander struct {
	MaxOccurrences int
	Location       *time.Location
}

func NewExpander(maxOccurrences int, loc *time.Location) *Expander {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{MaxOccurrences: maxOccurrences, Location: loc}
}

// Expand lazily yields occurrences of template that overlap [horizonStart, horizonEnd).
// Steps are taken from the template's start date, so identical arguments always produce
// identical sequences. The sequence ends at the pattern's EffectiveUntil, at horizonEnd,
// or after MaxOccurrences candidate steps.
func (e *Expander) Expand(p models.RecurrencePattern, template models.TimeInterval, horizonStart, horizonEnd time.Time) iter.Seq[models.TimeInterval] {
	return func(yield func(models.TimeInterval) bool) {
		if p.Interval <= 0 || !template.End.After(template.Start) || !horizonEnd.After(horizonStart) {
			return
		}
		x := e.newExpansion(p, template, horizonStart, horizonEnd)
		switch p.Frequency {
		case models.FrequencyDaily:
			x.daily(yield)
		case models.FrequencyWeekly:
			x.weekly(yield)
		case models.FrequencyMonthly:
			x.monthly(yield)
		}
	}
}

type expansion struct {
	pattern      models.RecurrencePattern
	loc          *time.Location
	anchor       time.Time
	duration     time.Duration
	horizonStart time.Time
	limit        time.Time
	earliest     time.Time
	exceptions   map[string]bool
	maxSteps     int
}

func (e *Expander) newExpansion(p models.RecurrencePattern, template models.TimeInterval, horizonStart, horizonEnd time.Time) *expansion {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	maxSteps := e.MaxOccurrences
	if maxSteps <= 0 {
		maxSteps = DefaultMaxOccurrences
	}
	x := &expansion{
		pattern:      p,
		loc:          loc,
		anchor:       template.Start.In(loc),
		duration:     template.Duration(),
		horizonStart: horizonStart,
		limit:        horizonEnd,
		maxSteps:     maxSteps,
	}
	if p.EffectiveUntil != nil && p.EffectiveUntil.Before(x.limit) {
		x.limit = *p.EffectiveUntil
	}
	// earliest is the first start that can still produce a relevant occurrence.
	x.earliest = horizonStart.Add(-x.duration)
	if p.EffectiveFrom.After(x.earliest) {
		x.earliest = p.EffectiveFrom
	}
	if x.anchor.After(x.earliest) {
		x.earliest = x.anchor
	}
	if len(p.Exceptions) > 0 {
		x.exceptions = make(map[string]bool, len(p.Exceptions))
		for _, d := range p.Exceptions {
			x.exceptions[d] = true
		}
	}
	return x
}

// at places the anchor's wall-clock time on the given calendar day.
func (x *expansion) at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, x.anchor.Hour(), x.anchor.Minute(), x.anchor.Second(), x.anchor.Nanosecond(), x.loc)
}

// offer filters one candidate. It returns false when iteration must stop.
func (x *expansion) offer(start time.Time, yield func(models.TimeInterval) bool) (keepGoing bool) {
	if start.Before(x.anchor) || start.Before(x.pattern.EffectiveFrom) {
		return true
	}
	if x.exceptions[start.Format(models.DateLayout)] {
		return true
	}
	occ := models.TimeInterval{Start: start, End: start.Add(x.duration)}
	if !occ.End.After(x.horizonStart) {
		return true
	}
	return yield(occ)
}

func (x *expansion) daily(yield func(models.TimeInterval) bool) {
	step := x.pattern.Interval
	k := 0
	if days := civilDaysBetween(x.anchor, x.earliest.In(x.loc)); days > 1 {
		k = (days - 1) / step
	}
	for steps := 0; steps < x.maxSteps; steps, k = steps+1, k+1 {
		start := x.at(x.anchor.Year(), x.anchor.Month(), x.anchor.Day()+k*step)
		if !start.Before(x.limit) {
			return
		}
		if !x.offer(start, yield) {
			return
		}
	}
}

func (x *expansion) weekly(yield func(models.TimeInterval) bool) {
	weekdays := slices.Clone(x.pattern.Weekdays)
	slices.Sort(weekdays)
	weekdays = slices.Compact(weekdays)
	if len(weekdays) == 0 {
		return
	}
	step := x.pattern.Interval
	// Weeks start on Sunday and are counted from the anchor's week.
	weekStart := x.anchor.AddDate(0, 0, -int(x.anchor.Weekday()))
	w := 0
	if weeks := civilDaysBetween(weekStart, x.earliest.In(x.loc)) / 7; weeks > 1 {
		w = (weeks - 1) / step
	}
	steps := 0
	for ; steps < x.maxSteps; w++ {
		base := weekStart.AddDate(0, 0, w*step*7)
		for _, wd := range weekdays {
			if steps >= x.maxSteps {
				return
			}
			steps++
			start := x.at(base.Year(), base.Month(), base.Day()+int(wd))
			if !start.Before(x.limit) {
				return
			}
			if !x.offer(start, yield) {
				return
			}
		}
	}
}

func (x *expansion) monthly(yield func(models.TimeInterval) bool) {
	step := x.pattern.Interval
	earliest := x.earliest.In(x.loc)
	k := 0
	if months := (earliest.Year()-x.anchor.Year())*12 + int(earliest.Month()-x.anchor.Month()); months > 1 {
		k = (months - 1) / step
	}
	for steps := 0; steps < x.maxSteps; steps, k = steps+1, k+1 {
		first := time.Date(x.anchor.Year(), x.anchor.Month()+time.Month(k*step), 1, 0, 0, 0, 0, x.loc)
		day := min(x.anchor.Day(), daysIn(first.Year(), first.Month()))
		start := x.at(first.Year(), first.Month(), day)
		if !start.Before(x.limit) {
			return
		}
		if !x.offer(start, yield) {
			return
		}
	}
}

// civilDaysBetween counts calendar days from a's date to b's date, ignoring DST shifts.
func civilDaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
