package models

import (
	"fmt"
	"time"
)

// AvailableInterval represents an open slot as returned to callers.
type AvailableInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"` // e.g., "9:00 AM - 10:30 AM"
}

func NewAvailableInterval(iv TimeInterval, loc *time.Location) AvailableInterval {
	if loc == nil {
		loc = iv.Start.Location()
	}
	return AvailableInterval{
		Start: iv.Start,
		End:   iv.End,
		Label: fmt.Sprintf("%s - %s", iv.Start.In(loc).Format("3:04 PM"), iv.End.In(loc).Format("3:04 PM")),
	}
}
