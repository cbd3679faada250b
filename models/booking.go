package models

import (
	"slices"
	"time"
)

type BookingStatus string

const (
	BookingPending     BookingStatus = "pending"
	BookingConfirmed   BookingStatus = "confirmed"
	BookingInProgress  BookingStatus = "in_progress"
	BookingCompleted   BookingStatus = "completed"
	BookingCancelled   BookingStatus = "cancelled"
	BookingNoShow      BookingStatus = "no_show"
	BookingRescheduled BookingStatus = "rescheduled"
)

// Holding reports whether a booking in this status occupies time and capacity.
func (s BookingStatus) Holding() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingInProgress:
		return true
	}
	return false
}

// HoldingStatuses is the status set counted against busy time and capacity.
var HoldingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress}

type StatusChange struct {
	From   BookingStatus `bson:"from,omitempty" json:"from,omitempty"`
	To     BookingStatus `bson:"to" json:"to"`
	At     time.Time     `bson:"at" json:"at"`
	By     string        `bson:"by,omitempty" json:"by,omitempty"`
	Reason string        `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Booking reserves an interval for a set of subjects and, optionally, a resource.
type Booking struct {
	ID              string            `bson:"id" json:"id"`
	ResourceID      string            `bson:"resourceId,omitempty" json:"resourceId,omitempty"`
	SubjectIDs      []string          `bson:"subjectIds" json:"subjectIds"`
	Interval        TimeInterval      `bson:"interval" json:"interval"`
	BufferMinutes   int               `bson:"bufferMinutes,omitempty" json:"bufferMinutes,omitempty"`
	Owner           string            `bson:"owner" json:"owner"`
	Title           string            `bson:"title,omitempty" json:"title,omitempty"`
	Metadata        map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"` // opaque case/event references
	Status          BookingStatus     `bson:"status" json:"status"`
	StatusHistory   []StatusChange    `bson:"statusHistory" json:"statusHistory"`
	RescheduledFrom string            `bson:"rescheduledFrom,omitempty" json:"rescheduledFrom,omitempty"`
	RescheduledTo   string            `bson:"rescheduledTo,omitempty" json:"rescheduledTo,omitempty"`
	Version         int64             `bson:"version" json:"version"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a copy that shares no slices or maps with b.
func (b Booking) Clone() Booking {
	out := b
	out.SubjectIDs = slices.Clone(b.SubjectIDs)
	out.StatusHistory = slices.Clone(b.StatusHistory)
	if b.Metadata != nil {
		out.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Scopes lists the ledger keys whose versions guard this booking's busy sets.
func (b Booking) Scopes() []string {
	return ScopesFor(b.SubjectIDs, b.ResourceID)
}

// BookingFilter selects bookings for listing.
type BookingFilter struct {
	SubjectID  string
	ResourceID string
	Window     TimeInterval
	Statuses   []BookingStatus
}
