package scheduling

import (
	"context"
	"testing"
	"time"

	"courtcal/database/repository/memory"
	"courtcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func span(startH, startM, endH, endM int) models.TimeInterval {
	return models.TimeInterval{Start: at(2024, 7, 1, startH, startM), End: at(2024, 7, 1, endH, endM)}
}

func newTestRegistry(store *memory.Store, policy Policy) *Registry {
	return &Registry{
		Blocks:   store,
		Bookings: store,
		Expander: NewExpander(0, time.UTC),
		Policy:   policy,
		Logger:   zap.NewNop(),
	}
}

func addBlock(t *testing.T, store *memory.Store, id, subject string, kind models.BlockKind, interval models.TimeInterval, rec *models.RecurrencePattern) {
	t.Helper()
	require.NoError(t, store.CreateBlock(context.Background(), &models.AvailabilityBlock{
		ID: id, SubjectID: subject, Kind: kind, Interval: interval, Recurrence: rec, Status: models.BlockActive,
	}))
}

func addBooking(t *testing.T, store *memory.Store, id string, subjects []string, resourceID string, interval models.TimeInterval, status models.BookingStatus) {
	t.Helper()
	require.NoError(t, store.Reserve(context.Background(), models.Reservation{
		Booking: &models.Booking{ID: id, SubjectIDs: subjects, ResourceID: resourceID, Interval: interval, Status: status},
	}))
}

func TestCoalesceMergesOverlappingAndAdjacent(t *testing.T) {
	got := Coalesce([]models.TimeInterval{
		span(13, 0, 14, 0),
		span(9, 0, 10, 0),
		span(10, 0, 11, 0),
		span(9, 30, 9, 45),
		span(15, 0, 16, 0),
		span(13, 30, 15, 0),
	})
	assert.Equal(t, []models.TimeInterval{span(9, 0, 11, 0), span(13, 0, 16, 0)}, got)
	assert.Empty(t, Coalesce(nil))
}

func TestBusyIntervalsMergesBlocksRecurrencesAndBookings(t *testing.T) {
	store := memory.NewStore()
	addBlock(t, store, "b1", "atty-1", models.BlockBusy, span(9, 0, 10, 0), nil)
	addBlock(t, store, "b2", "atty-1", models.BlockOutOfOffice, span(9, 30, 11, 0), nil)
	// Daily stand-up since June, 12:00 to 12:30.
	standup := models.TimeInterval{Start: at(2024, 6, 3, 12, 0), End: at(2024, 6, 3, 12, 30)}
	addBlock(t, store, "b3", "atty-1", models.BlockBusy, standup, &models.RecurrencePattern{Frequency: models.FrequencyDaily, Interval: 1})
	addBlock(t, store, "b4", "atty-2", models.BlockBusy, span(14, 0, 15, 0), nil)
	addBooking(t, store, "bk1", []string{"atty-1"}, "", span(15, 0, 16, 0), models.BookingConfirmed)
	addBooking(t, store, "bk2", []string{"atty-1"}, "", span(16, 0, 17, 0), models.BookingCancelled)

	reg := newTestRegistry(store, Policy{})
	got, err := reg.BusyIntervals(context.Background(), "atty-1", span(8, 0, 18, 0), "")
	require.NoError(t, err)
	assert.Equal(t, []models.TimeInterval{span(9, 0, 11, 0), span(12, 0, 12, 30), span(15, 0, 16, 0)}, got)

	excluded, err := reg.BusyIntervals(context.Background(), "atty-1", span(8, 0, 18, 0), "bk1")
	require.NoError(t, err)
	assert.Equal(t, []models.TimeInterval{span(9, 0, 11, 0), span(12, 0, 12, 30)}, excluded)
}

func TestBusyIntervalsClipsToWindow(t *testing.T) {
	store := memory.NewStore()
	addBlock(t, store, "b1", "atty-1", models.BlockBusy, span(7, 0, 10, 0), nil)
	reg := newTestRegistry(store, Policy{})
	got, err := reg.BusyIntervals(context.Background(), "atty-1", span(9, 0, 17, 0), "")
	require.NoError(t, err)
	assert.Equal(t, []models.TimeInterval{span(9, 0, 10, 0)}, got)
}

func TestBusyIntervalsTentativePolicy(t *testing.T) {
	store := memory.NewStore()
	addBlock(t, store, "t1", "atty-1", models.BlockTentative, span(9, 0, 10, 0), nil)
	addBlock(t, store, "a1", "atty-1", models.BlockAvailable, span(10, 0, 12, 0), nil)

	lenient, err := newTestRegistry(store, Policy{TentativeBlocking: false}).BusyIntervals(context.Background(), "atty-1", span(8, 0, 18, 0), "")
	require.NoError(t, err)
	assert.Empty(t, lenient)

	strict, err := newTestRegistry(store, Policy{TentativeBlocking: true}).BusyIntervals(context.Background(), "atty-1", span(8, 0, 18, 0), "")
	require.NoError(t, err)
	assert.Equal(t, []models.TimeInterval{span(9, 0, 10, 0)}, strict)
}

func TestBusyIntervalsIgnoresCancelledBlocks(t *testing.T) {
	store := memory.NewStore()
	addBlock(t, store, "b1", "atty-1", models.BlockBusy, span(9, 0, 10, 0), nil)
	_, err := store.CancelBlock(context.Background(), "b1", "clerk", at(2024, 6, 1, 0, 0))
	require.NoError(t, err)

	got, err := newTestRegistry(store, Policy{}).BusyIntervals(context.Background(), "atty-1", span(8, 0, 18, 0), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBusyIntervalsRejectsInvalidWindow(t *testing.T) {
	_, err := newTestRegistry(memory.NewStore(), Policy{}).BusyIntervals(context.Background(), "atty-1", span(10, 0, 9, 0), "")
	assert.True(t, models.IsValidation(err))
}
