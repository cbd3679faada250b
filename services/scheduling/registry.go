package scheduling

import (
	"context"
	"fmt"
	"slices"

	"courtcal/models"

	"go.uber.org/zap"
)

// BlockSource reads stored availability blocks. Implementations may over-select;
// the registry filters precisely.
type BlockSource interface {
	ActiveBlocks(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error)
}

// BookingSource reads bookings in holding statuses intersecting a window.
type BookingSource interface {
	HoldingBookingsForSubject(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.Booking, error)
	HoldingBookingsForResource(ctx context.Context, resourceID string, window models.TimeInterval) ([]models.Booking, error)
}

// Policy toggles which block kinds count as busy.
type Policy struct {
	TentativeBlocking bool
}

// Registry assembles a subject's busy set for a window.
type Registry struct {
	Blocks   BlockSource
	Bookings BookingSource
	Expander *Expander
	Policy   Policy
	Logger   *zap.Logger
}

// BusyIntervals returns the coalesced busy set of subjectID clipped to window.
// It merges blocking availability blocks, expanded recurring blocks and the subject's
// holding bookings, skipping excludeBookingID.
func (r *Registry) BusyIntervals(ctx context.Context, subjectID string, window models.TimeInterval, excludeBookingID string) ([]models.TimeInterval, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	busy, err := r.BlockIntervals(ctx, subjectID, window)
	if err != nil {
		return nil, err
	}
	if r.Bookings != nil {
		bookings, err := r.Bookings.HoldingBookingsForSubject(ctx, subjectID, window)
		if err != nil {
			return nil, fmt.Errorf("failed to load bookings for subject %s: %w", subjectID, err)
		}
		for _, b := range bookings {
			if b.ID == excludeBookingID || !b.Status.Holding() {
				continue
			}
			if clipped, ok := b.Interval.Intersect(window); ok {
				busy = append(busy, clipped)
			}
		}
	}
	return Coalesce(busy), nil
}

// BlockIntervals returns the busy intervals contributed by availability blocks alone, uncoalesced.
func (r *Registry) BlockIntervals(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.TimeInterval, error) {
	blocks, err := r.Blocks.ActiveBlocks(ctx, subjectID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability blocks for %s: %w", subjectID, err)
	}
	var busy []models.TimeInterval
	for _, block := range blocks {
		if block.Status == models.BlockCancelled || !block.Blocking(r.Policy.TentativeBlocking) {
			continue
		}
		if !block.Recurring() {
			if clipped, ok := block.Interval.Intersect(window); ok {
				busy = append(busy, clipped)
			}
			continue
		}
		count := 0
		for occ := range r.expander().Expand(*block.Recurrence, block.Interval, window.Start, window.End) {
			if clipped, ok := occ.Intersect(window); ok {
				busy = append(busy, clipped)
				count++
			}
		}
		if r.Logger != nil {
			r.Logger.Debug("expanded recurring block",
				zap.String("blockID", block.ID),
				zap.String("subjectID", subjectID),
				zap.Int("occurrences", count))
		}
	}
	return busy, nil
}

func (r *Registry) expander() *Expander {
	if r.Expander == nil {
		return NewExpander(DefaultMaxOccurrences, nil)
	}
	return r.Expander
}

// Coalesce sorts intervals by start and merges any that overlap or touch.
func Coalesce(in []models.TimeInterval) []models.TimeInterval {
	if len(in) == 0 {
		return []models.TimeInterval{}
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b models.TimeInterval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})
	out := []models.TimeInterval{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &out[len(out)-1]
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		out = append(out, next)
	}
	return out
}
