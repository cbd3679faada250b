package models

import (
	"slices"
	"time"
)

type DeadlinePriority string

const (
	PriorityLow      DeadlinePriority = "low"
	PriorityMedium   DeadlinePriority = "medium"
	PriorityHigh     DeadlinePriority = "high"
	PriorityCritical DeadlinePriority = "critical"
)

func (p DeadlinePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type DeadlineStatus string

const (
	DeadlineUpcoming  DeadlineStatus = "upcoming"
	DeadlineToday     DeadlineStatus = "today"
	DeadlineOverdue   DeadlineStatus = "overdue"
	DeadlineCompleted DeadlineStatus = "completed"
	DeadlineCancelled DeadlineStatus = "cancelled"
	DeadlineExtended  DeadlineStatus = "extended"
)

type CountingMode string

const (
	CountBusinessDays CountingMode = "business_days"
	CountCalendarDays CountingMode = "calendar_days"
)

// DeadlineBasis records how the due date was computed.
type DeadlineBasis struct {
	TriggerDate time.Time    `bson:"triggerDate" json:"triggerDate"`
	Days        int          `bson:"days" json:"days"` // negative counts backwards from the trigger
	Mode        CountingMode `bson:"mode" json:"mode"`
	Holidays    []string     `bson:"holidays,omitempty" json:"holidays,omitempty"` // extra dates supplied with the request
}

type DeadlineExtension struct {
	PreviousDueDate time.Time `bson:"previousDueDate" json:"previousDueDate"`
	NewDueDate      time.Time `bson:"newDueDate" json:"newDueDate"`
	Reason          string    `bson:"reason,omitempty" json:"reason,omitempty"`
	GrantedBy       string    `bson:"grantedBy,omitempty" json:"grantedBy,omitempty"`
	GrantedAt       time.Time `bson:"grantedAt" json:"grantedAt"`
}

// Deadline is a computed due date. Status is derived on read and never persisted.
type Deadline struct {
	ID                 string              `bson:"id" json:"id"`
	Title              string              `bson:"title" json:"title"`
	Reference          string              `bson:"reference,omitempty" json:"reference,omitempty"` // opaque case id
	Basis              DeadlineBasis       `bson:"basis" json:"basis"`
	DueDate            time.Time           `bson:"dueDate" json:"dueDate"`
	OriginalDueDate    *time.Time          `bson:"originalDueDate,omitempty" json:"originalDueDate,omitempty"`
	Priority           DeadlinePriority    `bson:"priority" json:"priority"`
	Completed          bool                `bson:"completed" json:"completed"`
	CompletedAt        *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CompletedBy        string              `bson:"completedBy,omitempty" json:"completedBy,omitempty"`
	Cancelled          bool                `bson:"cancelled" json:"cancelled"`
	CancelledBy        string              `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	BlockedBy          []string            `bson:"blockedBy,omitempty" json:"blockedBy,omitempty"` // recorded, never resolved here
	Extensions         []DeadlineExtension `bson:"extensions,omitempty" json:"extensions,omitempty"`
	ReminderDaysBefore []int               `bson:"reminderDaysBefore,omitempty" json:"reminderDaysBefore,omitempty"`
	Status             DeadlineStatus      `bson:"-" json:"status"`
	Version            int64               `bson:"version" json:"version"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (d Deadline) Extended() bool {
	return d.OriginalDueDate != nil || len(d.Extensions) > 0
}

func (d Deadline) Clone() Deadline {
	out := d
	out.Basis.Holidays = slices.Clone(d.Basis.Holidays)
	out.BlockedBy = slices.Clone(d.BlockedBy)
	out.Extensions = slices.Clone(d.Extensions)
	out.ReminderDaysBefore = slices.Clone(d.ReminderDaysBefore)
	if d.OriginalDueDate != nil {
		orig := *d.OriginalDueDate
		out.OriginalDueDate = &orig
	}
	if d.CompletedAt != nil {
		at := *d.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// DeadlineReminderPayload is carried by delayed reminder tasks.
type DeadlineReminderPayload struct {
	DeadlineID string    `json:"deadlineId"`
	Title      string    `json:"title"`
	DueDate    time.Time `json:"dueDate"`
	DaysBefore int       `json:"daysBefore"`
}
