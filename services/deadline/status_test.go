package deadline

import (
	"testing"
	"time"
	_ "time/tzdata"

	"courtcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name                           string
		due                            time.Time
		completed, cancelled, extended bool
		want                           models.DeadlineStatus
	}{
		{"upcoming", date(2024, 7, 9), false, false, false, models.DeadlineUpcoming},
		{"today", date(2024, 7, 8), false, false, false, models.DeadlineToday},
		{"overdue", date(2024, 7, 5), false, false, false, models.DeadlineOverdue},
		{"extended and still ahead", date(2024, 7, 12), false, false, true, models.DeadlineExtended},
		{"extended but overdue", date(2024, 7, 1), false, false, true, models.DeadlineOverdue},
		{"completed wins over overdue", date(2024, 7, 1), true, false, false, models.DeadlineCompleted},
		{"cancelled wins over completed", date(2024, 7, 1), true, true, false, models.DeadlineCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.due, tt.completed, tt.cancelled, tt.extended, now, time.UTC))
		})
	}
}

func TestDeriveStatusUsesLocalDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	due := time.Date(2024, 7, 8, 0, 0, 0, 0, ny)
	// 02:00 UTC on the 9th is still the evening of the 8th in New York.
	now := time.Date(2024, 7, 9, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, models.DeadlineToday, DeriveStatus(due, false, false, false, now, ny))
	assert.Equal(t, models.DeadlineOverdue, DeriveStatus(due, false, false, false, now, time.UTC))
}

func TestExtendTwiceKeepsFirstOriginal(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	d := models.Deadline{ID: "dl-1", DueDate: date(2024, 7, 8)}

	once, err := Extend(d, date(2024, 7, 15), "opposing counsel request", "judge", now)
	require.NoError(t, err)
	require.NotNil(t, once.OriginalDueDate)
	assert.Equal(t, date(2024, 7, 8), *once.OriginalDueDate)
	assert.Nil(t, d.OriginalDueDate, "input is not mutated")

	twice, err := Extend(once, date(2024, 7, 22), "stipulation", "judge", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, date(2024, 7, 8), *twice.OriginalDueDate)
	assert.Equal(t, date(2024, 7, 22), twice.DueDate)
	require.Len(t, twice.Extensions, 2)
	assert.Equal(t, date(2024, 7, 15), twice.Extensions[1].PreviousDueDate)
	assert.Len(t, once.Extensions, 1)

	assert.Equal(t, models.DeadlineExtended, WithStatus(twice, now, time.UTC).Status)
}

func TestExtendAllowsShortening(t *testing.T) {
	d := models.Deadline{DueDate: date(2024, 7, 15)}
	got, err := Extend(d, date(2024, 7, 10), "typo in order", "clerk", time.Now())
	require.NoError(t, err)
	assert.Equal(t, date(2024, 7, 10), got.DueDate)
}

func TestExtendRejectsMissingDateAndClosedDeadlines(t *testing.T) {
	_, err := Extend(models.Deadline{DueDate: date(2024, 7, 15)}, time.Time{}, "", "", time.Now())
	assert.True(t, models.IsValidation(err))

	_, err = Extend(models.Deadline{DueDate: date(2024, 7, 15), Completed: true}, date(2024, 7, 20), "", "", time.Now())
	assert.True(t, models.IsValidation(err))
}

func TestCompleteAndCancelAreIdempotent(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	done, err := Complete(models.Deadline{ID: "dl-1"}, "paralegal", now)
	require.NoError(t, err)
	again, err := Complete(done, "someone else", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "paralegal", again.CompletedBy)
	assert.Equal(t, now, *again.CompletedAt)

	_, err = Cancel(done, "clerk", now)
	assert.True(t, models.IsValidation(err))

	cancelled, err := Cancel(models.Deadline{ID: "dl-2"}, "clerk", now)
	require.NoError(t, err)
	same, err := Cancel(cancelled, "clerk", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, cancelled, same)
}
