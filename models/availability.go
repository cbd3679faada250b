package models

import "time"

type BlockKind string

const (
	BlockBusy        BlockKind = "busy"
	BlockOutOfOffice BlockKind = "out_of_office"
	BlockTentative   BlockKind = "tentative"
	BlockAvailable   BlockKind = "available"
	BlockTravel      BlockKind = "travel"
	BlockMaintenance BlockKind = "maintenance"
)

func (k BlockKind) Valid() bool {
	switch k {
	case BlockBusy, BlockOutOfOffice, BlockTentative, BlockAvailable, BlockTravel, BlockMaintenance:
		return true
	}
	return false
}

type BlockStatus string

const (
	BlockActive    BlockStatus = "active"
	BlockCancelled BlockStatus = "cancelled"
	BlockExpired   BlockStatus = "expired" // derived, never stored
)

// AvailabilityBlock marks time a subject (person or resource) is, or is not, free.
type AvailabilityBlock struct {
	ID          string             `bson:"id" json:"id"`
	SubjectID   string             `bson:"subjectId" json:"subjectId"`
	Interval    TimeInterval       `bson:"interval" json:"interval"` // first occurrence when recurring
	Kind        BlockKind          `bson:"kind" json:"kind"`
	Recurrence  *RecurrencePattern `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	Status      BlockStatus        `bson:"status" json:"status"`
	Reason      string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Reference   string             `bson:"reference,omitempty" json:"reference,omitempty"` // opaque case/event id
	CreatedBy   string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CancelledBy string             `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b AvailabilityBlock) Recurring() bool {
	return b.Recurrence != nil
}

// Blocking reports whether the block removes time from the busy-free pool.
func (b AvailabilityBlock) Blocking(tentativeBlocks bool) bool {
	switch b.Kind {
	case BlockAvailable:
		return false
	case BlockTentative:
		return tentativeBlocks
	}
	return true
}

// LastEnd is the latest instant the block can cover; ok is false for open-ended recurrences.
func (b AvailabilityBlock) LastEnd() (end time.Time, ok bool) {
	if b.Recurrence == nil {
		return b.Interval.End, true
	}
	if b.Recurrence.EffectiveUntil == nil {
		return time.Time{}, false
	}
	return b.Recurrence.EffectiveUntil.Add(b.Interval.Duration()), true
}

// MayCover is a cheap pre-filter: false means no occurrence of the block can touch window.
func (b AvailabilityBlock) MayCover(window TimeInterval) bool {
	if !b.Interval.Start.Before(window.End) {
		return false
	}
	end, bounded := b.LastEnd()
	return !bounded || end.After(window.Start)
}

// EffectiveStatus derives Expired at read time. Stored status is only Active or Cancelled.
func (b AvailabilityBlock) EffectiveStatus(now time.Time) BlockStatus {
	if b.Status == BlockCancelled {
		return BlockCancelled
	}
	if end, ok := b.LastEnd(); ok && !end.After(now) {
		return BlockExpired
	}
	return BlockActive
}

func (b AvailabilityBlock) Validate() error {
	verr := &ValidationError{}
	if b.SubjectID == "" {
		verr.Add("subjectId", "is required")
	}
	if err := b.Interval.Validate(); err != nil {
		verr.Add("interval", "end must be after start")
	}
	if !b.Kind.Valid() {
		verr.Add("kind", "unknown block kind")
	}
	if b.Recurrence != nil {
		if err := b.Recurrence.Validate(); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				for f, m := range ve.FieldErrors {
					verr.Add(f, m)
				}
			}
		}
	}
	return verr.OrNil()
}
