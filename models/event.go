package models

import "time"

const (
	EventBookingConfirmed     = "booking.confirmed"
	EventBookingPending       = "booking.pending"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingRescheduled   = "booking.rescheduled"
	EventBookingStatusChanged = "booking.status_changed"
	EventBlockCreated         = "availability.block_created"
	EventBlockCancelled       = "availability.block_cancelled"
	EventDeadlineCreated      = "deadline.created"
	EventDeadlineExtended     = "deadline.extended"
	EventDeadlineCompleted    = "deadline.completed"
	EventDeadlineCancelled    = "deadline.cancelled"
	EventDeadlineReminder     = "deadline.reminder"
	EventDeadlineDueToday     = "deadline.due_today"
)

// SchedulingEvent is emitted after a write for the host application to persist or relay.
type SchedulingEvent struct {
	ID          string         `bson:"id" json:"id"`
	Type        string         `bson:"type" json:"type"`
	AggregateID string         `bson:"aggregateId" json:"aggregateId"`
	Payload     map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`
	OccurredAt  time.Time      `bson:"occurredAt" json:"occurredAt"`
}
