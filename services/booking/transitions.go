package booking

import (
	"time"

	"courtcal/models"
)

var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:    {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed:  {models.BookingInProgress, models.BookingCancelled, models.BookingRescheduled, models.BookingNoShow},
	models.BookingInProgress: {models.BookingCompleted},
}

// CanTransition reports whether the state machine allows from -> to. Nothing returns to
// pending and terminal states have no exits.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns a copy of b moved to status `to` with one history entry appended.
// b itself is not modified.
func Transition(b models.Booking, to models.BookingStatus, actor, reason string, now time.Time) (models.Booking, error) {
	if !CanTransition(b.Status, to) {
		return b, &models.TransitionError{From: b.Status, To: to}
	}
	out := b.Clone()
	out.StatusHistory = append(out.StatusHistory, models.StatusChange{
		From:   b.Status,
		To:     to,
		At:     now,
		By:     actor,
		Reason: reason,
	})
	out.Status = to
	out.UpdatedAt = now
	return out, nil
}
