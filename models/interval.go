package models

import "time"

// TimeInterval is a half-open range [Start, End).
type TimeInterval struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// NewTimeInterval rejects empty and inverted ranges.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	iv := TimeInterval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return TimeInterval{}, err
	}
	return iv, nil
}

func (i TimeInterval) Validate() error {
	if i.Start.IsZero() || i.End.IsZero() {
		return NewValidationError("interval", "start and end are required")
	}
	if !i.End.After(i.Start) {
		return NewValidationError("interval", "end must be after start")
	}
	return nil
}

func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the ranges share an instant. Touching endpoints do not overlap.
func (i TimeInterval) Overlaps(o TimeInterval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i TimeInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// WithBuffer widens the interval by the given minutes on each side.
func (i TimeInterval) WithBuffer(beforeMinutes, afterMinutes int) TimeInterval {
	return TimeInterval{
		Start: i.Start.Add(-time.Duration(beforeMinutes) * time.Minute),
		End:   i.End.Add(time.Duration(afterMinutes) * time.Minute),
	}
}

// Intersect returns the shared part of two intervals, if any.
func (i TimeInterval) Intersect(o TimeInterval) (TimeInterval, bool) {
	if !i.Overlaps(o) {
		return TimeInterval{}, false
	}
	out := i
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out, true
}

func (i TimeInterval) Equal(o TimeInterval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}
