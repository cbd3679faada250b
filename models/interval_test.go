package models

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func iv(startMin, endMin int) TimeInterval {
	return TimeInterval{Start: base.Add(time.Duration(startMin) * time.Minute), End: base.Add(time.Duration(endMin) * time.Minute)}
}

func TestNewTimeIntervalRejectsEmptyAndInverted(t *testing.T) {
	_, err := NewTimeInterval(base, base)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = NewTimeInterval(base.Add(time.Hour), base)
	require.True(t, errors.As(err, &verr))

	got, err := NewTimeInterval(base, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, got.Duration())
}

func TestOverlapsHalfOpen(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeInterval
		want bool
	}{
		{"adjacent", iv(0, 10), iv(10, 20), false},
		{"partial", iv(0, 10), iv(5, 15), true},
		{"contained", iv(0, 30), iv(10, 20), true},
		{"identical", iv(0, 10), iv(0, 10), true},
		{"disjoint", iv(0, 10), iv(20, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestOverlapsIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		s1, s2 := rng.Intn(100), rng.Intn(100)
		a := iv(s1, s1+1+rng.Intn(30))
		b := iv(s2, s2+1+rng.Intn(30))
		require.Equal(t, a.Overlaps(b), b.Overlaps(a), "a=%v b=%v", a, b)
	}
}

func TestContainsIsHalfOpen(t *testing.T) {
	i := iv(0, 10)
	assert.True(t, i.Contains(i.Start))
	assert.True(t, i.Contains(i.Start.Add(9*time.Minute)))
	assert.False(t, i.Contains(i.End))
	assert.False(t, i.Contains(i.Start.Add(-time.Nanosecond)))
}

func TestWithBuffer(t *testing.T) {
	got := iv(60, 120).WithBuffer(15, 30)
	assert.True(t, got.Equal(iv(45, 150)))
	assert.True(t, iv(0, 10).WithBuffer(5, 5).Overlaps(iv(12, 20)))
}

func TestIntersect(t *testing.T) {
	got, ok := iv(0, 30).Intersect(iv(20, 50))
	require.True(t, ok)
	assert.True(t, got.Equal(iv(20, 30)))

	_, ok = iv(0, 10).Intersect(iv(10, 20))
	assert.False(t, ok)
}

func TestBlockEffectiveStatus(t *testing.T) {
	now := base.Add(24 * time.Hour)
	past := AvailabilityBlock{Interval: iv(0, 60), Status: BlockActive}
	assert.Equal(t, BlockExpired, past.EffectiveStatus(now))

	cancelled := past
	cancelled.Status = BlockCancelled
	assert.Equal(t, BlockCancelled, cancelled.EffectiveStatus(now))

	openEnded := past
	openEnded.Recurrence = &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1}
	assert.Equal(t, BlockActive, openEnded.EffectiveStatus(now))

	until := base.Add(48 * time.Hour)
	bounded := openEnded
	bounded.Recurrence = &RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EffectiveUntil: &until}
	assert.Equal(t, BlockActive, bounded.EffectiveStatus(now))
	assert.Equal(t, BlockExpired, bounded.EffectiveStatus(until.Add(2*time.Hour)))
}

func TestRecurrencePatternValidate(t *testing.T) {
	assert.Error(t, RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1}.Validate())
	assert.Error(t, RecurrencePattern{Frequency: FrequencyDaily, Interval: 0}.Validate())
	assert.Error(t, RecurrencePattern{Frequency: "yearly", Interval: 1}.Validate())
	assert.NoError(t, RecurrencePattern{Frequency: FrequencyWeekly, Interval: 2, Weekdays: []time.Weekday{time.Monday}}.Validate())
}

func TestScopesForDeduplicatesAndSorts(t *testing.T) {
	got := ScopesFor([]string{"b", "a", "b", ""}, "room-1")
	assert.Equal(t, []string{"resource:room-1", "subject:a", "subject:b"}, got)
}
