package scheduling

import (
	"context"
	"fmt"
	"slices"
	"time"

	"courtcal/models"

	"go.uber.org/zap"
)

// Detector reports overlaps between a candidate interval and existing busy time.
type Detector struct {
	Registry *Registry
	Bookings BookingSource
	Logger   *zap.Logger
}

// CheckConflicts widens candidate by bufferMinutes and tests it against each subject's busy set.
func (d *Detector) CheckConflicts(ctx context.Context, candidate models.TimeInterval, subjectIDs []string, bufferMinutes int, excludeBookingID string) (models.ConflictResult, error) {
	if err := candidate.Validate(); err != nil {
		return models.ConflictResult{}, err
	}
	if bufferMinutes < 0 {
		return models.ConflictResult{}, models.NewValidationError("bufferMinutes", "must not be negative")
	}
	buffered := candidate.WithBuffer(bufferMinutes, bufferMinutes)

	result := models.ConflictResult{Available: true, Conflicts: []models.Conflict{}}
	seen := make(map[string]bool, len(subjectIDs))
	for _, subjectID := range subjectIDs {
		if subjectID == "" || seen[subjectID] {
			continue
		}
		seen[subjectID] = true

		busy, err := d.Registry.BusyIntervals(ctx, subjectID, buffered, excludeBookingID)
		if err != nil {
			return models.ConflictResult{}, fmt.Errorf("failed to check subject %s: %w", subjectID, err)
		}
		for _, iv := range busy {
			if iv.Overlaps(buffered) {
				result.Conflicts = append(result.Conflicts, models.Conflict{
					SubjectID: subjectID,
					Interval:  iv,
					Reason:    "subject busy",
				})
			}
		}
	}
	result.Available = len(result.Conflicts) == 0
	return result, nil
}

// CheckResourceCapacity reports blocked periods of the resource and the sub-intervals where
// holding bookings already fill its capacity. Only those sub-intervals are conflicts: a
// resource with capacity N accepts a booking as long as fewer than N bookings overlap
// every instant of the buffered candidate.
func (d *Detector) CheckResourceCapacity(ctx context.Context, candidate models.TimeInterval, resource models.BookableResource, excludeBookingID string) (models.ConflictResult, error) {
	if err := candidate.Validate(); err != nil {
		return models.ConflictResult{}, err
	}
	buffer := resource.Rules.BufferMinutes
	buffered := candidate.WithBuffer(buffer, buffer)

	result := models.ConflictResult{Available: true, Conflicts: []models.Conflict{}}

	blocked, err := d.Registry.BlockIntervals(ctx, resource.ID, buffered)
	if err != nil {
		return models.ConflictResult{}, err
	}
	for _, iv := range Coalesce(blocked) {
		result.Conflicts = append(result.Conflicts, models.Conflict{
			ResourceID: resource.ID,
			Interval:   iv,
			Reason:     "resource unavailable",
		})
	}

	bookings, err := d.Bookings.HoldingBookingsForResource(ctx, resource.ID, buffered)
	if err != nil {
		return models.ConflictResult{}, fmt.Errorf("failed to load bookings for resource %s: %w", resource.ID, err)
	}
	occupied := make([]models.TimeInterval, 0, len(bookings))
	for _, b := range bookings {
		if b.ID == excludeBookingID || !b.Status.Holding() {
			continue
		}
		occupied = append(occupied, b.Interval)
	}
	capacity := resource.EffectiveCapacity()
	for _, iv := range SaturatedIntervals(buffered, occupied, capacity) {
		result.Conflicts = append(result.Conflicts, models.Conflict{
			ResourceID: resource.ID,
			Interval:   iv,
			Reason:     fmt.Sprintf("capacity %d reached", capacity),
		})
	}

	result.Available = len(result.Conflicts) == 0
	if !result.Available && d.Logger != nil {
		d.Logger.Debug("resource conflict",
			zap.String("resourceID", resource.ID),
			zap.Int("capacity", capacity),
			zap.Int("overlapping", len(occupied)),
			zap.Int("conflicts", len(result.Conflicts)))
	}
	return result, nil
}

type sweepEvent struct {
	at    time.Time
	delta int
}

// SaturatedIntervals returns the parts of window where at least capacity of the given
// intervals overlap. Intervals are clipped to window first.
func SaturatedIntervals(window models.TimeInterval, intervals []models.TimeInterval, capacity int) []models.TimeInterval {
	if capacity <= 0 {
		return []models.TimeInterval{window}
	}
	events := make([]sweepEvent, 0, 2*len(intervals))
	for _, iv := range intervals {
		clipped, ok := iv.Intersect(window)
		if !ok {
			continue
		}
		events = append(events,
			sweepEvent{at: clipped.Start, delta: +1},
			sweepEvent{at: clipped.End, delta: -1})
	}
	// Ends sort before starts at the same instant: half-open intervals that touch do not stack.
	slices.SortFunc(events, func(a, b sweepEvent) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return a.delta - b.delta
	})

	var saturated []models.TimeInterval
	count := 0
	var openedAt time.Time
	for _, ev := range events {
		before := count
		count += ev.delta
		switch {
		case before < capacity && count >= capacity:
			openedAt = ev.at
		case before >= capacity && count < capacity:
			if ev.at.After(openedAt) {
				saturated = append(saturated, models.TimeInterval{Start: openedAt, End: ev.at})
			}
		}
	}
	return Coalesce(saturated)
}

// PeakConcurrency is the largest number of intervals overlapping a single instant of window.
func PeakConcurrency(window models.TimeInterval, intervals []models.TimeInterval) int {
	peak := 0
	for c := 1; c <= len(intervals); c++ {
		if len(SaturatedIntervals(window, intervals, c)) == 0 {
			break
		}
		peak = c
	}
	return peak
}
