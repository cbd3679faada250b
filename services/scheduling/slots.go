package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"courtcal/models"

	"go.uber.org/zap"
)

// MaxSlotRangeDays bounds FindSlotsInRange.
const MaxSlotRangeDays = 31

// FindSlots walks the day's open window left to right and emits back-to-back slots of
// slotDuration that fit entirely before the next busy interval. A closed day yields an
// empty result.
func FindSlots(day time.Time, slotDuration time.Duration, hours models.WeeklyHours, busy []models.TimeInterval, loc *time.Location) []models.TimeInterval {
	open, ok := hours.OpenInterval(day, loc)
	if !ok || slotDuration <= 0 {
		return []models.TimeInterval{}
	}
	return walkOpenWindow(open, slotDuration, busy)
}

func walkOpenWindow(open models.TimeInterval, slotDuration time.Duration, busy []models.TimeInterval) []models.TimeInterval {
	// Clipping treats busy time starting before open as starting at open.
	var clipped []models.TimeInterval
	for _, b := range busy {
		if iv, ok := b.Intersect(open); ok {
			clipped = append(clipped, iv)
		}
	}

	slots := []models.TimeInterval{}
	cursor := open.Start
	for _, b := range Coalesce(clipped) {
		for end := cursor.Add(slotDuration); !end.After(b.Start); end = cursor.Add(slotDuration) {
			slots = append(slots, models.TimeInterval{Start: cursor, End: end})
			cursor = end
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	for end := cursor.Add(slotDuration); !end.After(open.End); end = cursor.Add(slotDuration) {
		slots = append(slots, models.TimeInterval{Start: cursor, End: end})
		cursor = end
	}
	return slots
}

// SlotFinder answers open-slot queries from the registry's busy sets.
type SlotFinder struct {
	Registry *Registry
	Detector *Detector
	Location *time.Location
	Cache    SlotCache
	Logger   *zap.Logger
}

// FindSlots returns the open slots of subjectID on day.
func (f *SlotFinder) FindSlots(ctx context.Context, subjectID string, day time.Time, slotDuration time.Duration, hours models.WeeklyHours) ([]models.TimeInterval, error) {
	if subjectID == "" {
		return nil, models.NewValidationError("subjectId", "is required")
	}
	if slotDuration <= 0 {
		return nil, models.NewValidationError("slotDuration", "must be positive")
	}
	open, ok := hours.OpenInterval(day, f.location())
	if !ok {
		return []models.TimeInterval{}, nil
	}

	var entry string
	if f.Cache != nil {
		cached, e, hit, err := f.Cache.Get(ctx, subjectID, slotCacheKey(open, slotDuration, hours))
		if err != nil {
			f.logger().Warn("slot cache read failed", zap.String("subjectID", subjectID), zap.Error(err))
		} else if hit {
			return cached, nil
		}
		entry = e
	}

	busy, err := f.Registry.BusyIntervals(ctx, subjectID, open, "")
	if err != nil {
		return nil, err
	}
	slots := walkOpenWindow(open, slotDuration, busy)

	if f.Cache != nil && entry != "" {
		if err := f.Cache.Set(ctx, entry, slots); err != nil {
			f.logger().Warn("slot cache write failed", zap.String("subjectID", subjectID), zap.Error(err))
		}
	}
	return slots, nil
}

// FindSlotsInRange runs FindSlots for every calendar day from first to last inclusive.
func (f *SlotFinder) FindSlotsInRange(ctx context.Context, subjectID string, first, last time.Time, slotDuration time.Duration, hours models.WeeklyHours) ([]models.TimeInterval, error) {
	loc := f.location()
	first, last = first.In(loc), last.In(loc)
	days := civilDaysBetween(first, last)
	if days < 0 {
		return nil, models.NewValidationError("endDate", "must not be before date")
	}
	if days >= MaxSlotRangeDays {
		return nil, models.NewValidationError("endDate", fmt.Sprintf("range is limited to %d days", MaxSlotRangeDays))
	}
	all := []models.TimeInterval{}
	for i := 0; i <= days; i++ {
		day := time.Date(first.Year(), first.Month(), first.Day()+i, 12, 0, 0, 0, loc)
		slots, err := f.FindSlots(ctx, subjectID, day, slotDuration, hours)
		if err != nil {
			return nil, err
		}
		all = append(all, slots...)
	}
	return all, nil
}

// FindResourceSlots uses the resource's operating hours. Time is busy when the resource is
// blocked or its capacity is already full.
func (f *SlotFinder) FindResourceSlots(ctx context.Context, resource models.BookableResource, day time.Time, slotDuration time.Duration) ([]models.TimeInterval, error) {
	if slotDuration <= 0 {
		return nil, models.NewValidationError("slotDuration", "must be positive")
	}
	open, ok := resource.OperatingHours.OpenInterval(day, f.location())
	if !ok {
		return []models.TimeInterval{}, nil
	}
	buffer := resource.Rules.BufferMinutes
	window := open.WithBuffer(buffer, buffer)
	blocked, err := f.Registry.BlockIntervals(ctx, resource.ID, window)
	if err != nil {
		return nil, err
	}
	bookings, err := f.Detector.Bookings.HoldingBookingsForResource(ctx, resource.ID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for resource %s: %w", resource.ID, err)
	}
	occupied := make([]models.TimeInterval, 0, len(bookings))
	for _, b := range bookings {
		occupied = append(occupied, b.Interval)
	}
	busy := append(blocked, SaturatedIntervals(window, occupied, resource.EffectiveCapacity())...)

	// A slot is usable only if its buffered form avoids busy time.
	if buffer > 0 {
		grown := make([]models.TimeInterval, 0, len(busy))
		for _, b := range busy {
			grown = append(grown, b.WithBuffer(buffer, buffer))
		}
		busy = grown
	}
	return walkOpenWindow(open, slotDuration, busy), nil
}

func (f *SlotFinder) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func (f *SlotFinder) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// slotCacheKey identifies one query: day window, slot length and the working hours used.
func slotCacheKey(open models.TimeInterval, slotDuration time.Duration, hours models.WeeklyHours) string {
	h := fnv.New64a()
	raw, _ := json.Marshal(hours)
	_, _ = h.Write(raw)
	return fmt.Sprintf("%d:%d:%x", open.Start.Unix(), int(slotDuration.Minutes()), h.Sum64())
}
