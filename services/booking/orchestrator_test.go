package booking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"courtcal/database/repository/memory"
	"courtcal/models"
	"courtcal/services/events"
	"courtcal/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func at(hh, mm int) time.Time {
	return time.Date(2024, 7, 1, hh, mm, 0, 0, time.UTC)
}

func span(startH, startM, endH, endM int) models.TimeInterval {
	return models.TimeInterval{Start: at(startH, startM), End: at(endH, endM)}
}

type fixture struct {
	orch     *Orchestrator
	store    *memory.Store
	recorder *events.Recorder
}

func newFixture(t *testing.T, repo Repository) *fixture {
	t.Helper()
	store := memory.NewStore()
	if repo == nil {
		repo = store
	} else if wrapped, ok := repo.(interface{ Unwrap() *memory.Store }); ok {
		store = wrapped.Unwrap()
	}
	registry := &scheduling.Registry{
		Blocks:   store,
		Bookings: store,
		Expander: scheduling.NewExpander(0, time.UTC),
		Logger:   zap.NewNop(),
	}
	detector := &scheduling.Detector{Registry: registry, Bookings: store, Logger: zap.NewNop()}
	recorder := &events.Recorder{}
	orch, err := NewOrchestrator(repo, store, detector, recorder, zap.NewNop())
	require.NoError(t, err)
	orch.Now = func() time.Time { return time.Date(2024, 6, 24, 8, 0, 0, 0, time.UTC) }
	return &fixture{orch: orch, store: store, recorder: recorder}
}

func (f *fixture) addRoom(t *testing.T, id string, capacity int, rules models.BookingRules) models.BookableResource {
	t.Helper()
	room := models.BookableResource{ID: id, Name: "Room " + id, Kind: models.ResourceConferenceRoom, Capacity: capacity, Rules: rules, Active: true}
	require.NoError(t, f.store.UpsertResource(context.Background(), &room))
	return room
}

func request(iv models.TimeInterval, resourceID string, subjects ...string) BookingRequest {
	return BookingRequest{Interval: iv, SubjectIDs: subjects, ResourceID: resourceID, Owner: "scheduler", Title: "Hearing prep"}
}

func TestRequestBookingConfirms(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "", "atty-1", "atty-2", "atty-1"))
	require.NoError(t, err)

	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, []string{"atty-1", "atty-2"}, b.SubjectIDs)
	assert.Equal(t, int64(1), b.Version)
	require.Len(t, b.StatusHistory, 1)
	assert.Equal(t, []string{models.EventBookingConfirmed}, f.recorder.Types())

	stored, err := f.orch.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Interval, stored.Interval)
}

func TestRequestBookingReportsConflicts(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "", "atty-1"))
	require.NoError(t, err)

	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 30, 10, 30), "", "atty-2", "atty-1"))
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	require.Len(t, cerr.Conflicts, 1)
	assert.Equal(t, "atty-1", cerr.Conflicts[0].SubjectID)
	assert.Equal(t, span(9, 30, 10, 0), cerr.Conflicts[0].Interval)

	// Back-to-back is not a conflict.
	_, err = f.orch.RequestBooking(context.Background(), request(span(10, 0, 11, 0), "", "atty-1"))
	assert.NoError(t, err)
}

func TestRequestBookingValidatesBeforeStoreAccess(t *testing.T) {
	f := newFixture(t, &countingRepo{Store: memory.NewStore()})
	repo := f.orch.Repo.(*countingRepo)

	for _, req := range []BookingRequest{
		request(span(10, 0, 9, 0), "", "atty-1"),
		request(span(9, 0, 10, 0), ""),
		request(span(9, 0, 10, 0), "", ""),
		{Interval: span(9, 0, 10, 0), SubjectIDs: []string{"atty-1"}, BufferMinutes: -5},
	} {
		_, err := f.orch.RequestBooking(context.Background(), req)
		assert.True(t, models.IsValidation(err), "request %+v", req)
	}
	assert.Zero(t, repo.reserves.Load())
	assert.Zero(t, repo.reads.Load())
}

func TestRequestBookingAppliesResourceRules(t *testing.T) {
	f := newFixture(t, nil)
	f.addRoom(t, "room-1", 1, models.BookingRules{MinDurationMinutes: 30, MaxDurationMinutes: 120, MinAdvanceHours: 24})
	approval := f.addRoom(t, "room-2", 1, models.BookingRules{RequiresApproval: true})
	inactive := models.BookableResource{ID: "room-3", Name: "Closed", Capacity: 1}
	require.NoError(t, f.store.UpsertResource(context.Background(), &inactive))
	hours := models.BookableResource{ID: "room-4", Name: "Courtroom", Capacity: 1, Active: true, OperatingHours: models.StandardWeek(9*60, 17*60)}
	require.NoError(t, f.store.UpsertResource(context.Background(), &hours))

	_, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 9, 15), "room-1", "atty-1"))
	assert.True(t, models.IsValidation(err), "too short")
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 12, 0), "room-1", "atty-1"))
	assert.True(t, models.IsValidation(err), "too long")
	_, err = f.orch.RequestBooking(context.Background(), request(models.TimeInterval{
		Start: time.Date(2024, 6, 24, 12, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 24, 13, 0, 0, 0, time.UTC),
	}, "room-1", "atty-1"))
	assert.True(t, models.IsValidation(err), "not enough notice")
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "room-3", "atty-1"))
	assert.True(t, models.IsValidation(err), "inactive")
	_, err = f.orch.RequestBooking(context.Background(), request(span(16, 30, 17, 30), "room-4", "atty-1"))
	assert.True(t, models.IsValidation(err), "past closing")
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "room-9", "atty-1"))
	assert.True(t, models.IsNotFound(err))

	pending, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), approval.ID, "atty-1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, pending.Status)

	// Pending bookings hold the room.
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), approval.ID, "atty-2"))
	assert.True(t, models.IsConflict(err))
}

func TestConcurrentRequestsForExclusiveRoom(t *testing.T) {
	for round := 0; round < 25; round++ {
		f := newFixture(t, nil)
		f.addRoom(t, "courtroom-4", 1, models.BookingRules{})

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			successes atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(subject string) {
				defer wg.Done()
				<-start
				b, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 11, 0), "courtroom-4", subject))
				switch {
				case err == nil && b.Status == models.BookingConfirmed:
					successes.Add(1)
				case models.IsConflict(err):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected result: %v", err)
				}
			}(fmt.Sprintf("atty-%d", i))
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), successes.Load(), "round %d", round)
		require.Equal(t, int32(1), conflicts.Load(), "round %d", round)
	}
}

func TestLostVersionRaceIsRetriedAndSeesTheWinner(t *testing.T) {
	store := memory.NewStore()
	repo := &racingRepo{Store: store}
	f := newFixture(t, repo)
	f.addRoom(t, "courtroom-4", 1, models.BookingRules{})

	_, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 11, 0), "courtroom-4", "atty-1"))
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	require.NotEmpty(t, cerr.Conflicts, "retry re-reads the busy set and reports the winner")
	assert.Equal(t, "courtroom-4", cerr.Conflicts[0].ResourceID)
	assert.Equal(t, int32(2), repo.reserves.Load())
}

func TestExhaustedRetriesSurfaceAsConflict(t *testing.T) {
	repo := &alwaysStaleRepo{Store: memory.NewStore()}
	f := newFixture(t, repo)

	_, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "", "atty-1"))
	var cerr *models.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.Reason, "3 attempts")
	assert.Equal(t, int32(3), repo.reserves.Load())
}

func TestCapacityInvariantUnderRandomRequests(t *testing.T) {
	for _, capacity := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("capacity %d", capacity), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(capacity) * 97))
			f := newFixture(t, nil)
			room := f.addRoom(t, "room-1", capacity, models.BookingRules{})
			day := span(8, 0, 18, 0)
			var booked []string

			for i := 0; i < 150; i++ {
				if len(booked) > 0 && rng.Intn(5) == 0 {
					idx := rng.Intn(len(booked))
					_, err := f.orch.CancelBooking(context.Background(), booked[idx], "clerk", "")
					require.NoError(t, err)
					booked = append(booked[:idx], booked[idx+1:]...)
				} else {
					startMin := 8*60 + rng.Intn(9*60)
					iv := models.TimeInterval{
						Start: day.Start.Add(time.Duration(startMin-8*60) * time.Minute),
						End:   day.Start.Add(time.Duration(startMin-8*60+15+rng.Intn(120)) * time.Minute),
					}
					before := holdingIntervals(t, f, room.ID, day)
					b, err := f.orch.RequestBooking(context.Background(), request(iv, room.ID, fmt.Sprintf("atty-%d", i)))
					wouldExceed := scheduling.PeakConcurrency(iv, append(before, iv)) > capacity
					if wouldExceed {
						require.True(t, models.IsConflict(err), "request %d for %v should conflict", i, iv)
					} else {
						require.NoError(t, err, "request %d for %v should fit", i, iv)
						booked = append(booked, b.ID)
					}
				}
				after := holdingIntervals(t, f, room.ID, day)
				require.LessOrEqual(t, scheduling.PeakConcurrency(day, after), capacity, "after step %d", i)
			}
		})
	}
}

func holdingIntervals(t *testing.T, f *fixture, resourceID string, window models.TimeInterval) []models.TimeInterval {
	t.Helper()
	bookings, err := f.store.HoldingBookingsForResource(context.Background(), resourceID, window)
	require.NoError(t, err)
	out := make([]models.TimeInterval, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Interval)
	}
	return out
}

func TestCancelBookingIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "", "atty-1"))
	require.NoError(t, err)

	first, err := f.orch.CancelBooking(context.Background(), b.ID, "clerk", "settled")
	require.NoError(t, err)
	second, err := f.orch.CancelBooking(context.Background(), b.ID, "someone else", "again")
	require.NoError(t, err)

	assert.Equal(t, models.BookingCancelled, second.Status)
	assert.Equal(t, first.Version, second.Version)
	assert.Len(t, second.StatusHistory, 2)
	assert.Equal(t, first.StatusHistory, second.StatusHistory)
	assert.Equal(t, []string{models.EventBookingConfirmed, models.EventBookingCancelled}, f.recorder.Types())

	// The time is free again.
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "", "atty-1"))
	assert.NoError(t, err)
}

func TestCancelBookingErrors(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.orch.CancelBooking(context.Background(), "missing", "clerk", "")
	assert.True(t, models.IsNotFound(err))

	b, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "", "atty-1"))
	require.NoError(t, err)
	_, err = f.orch.TransitionBooking(context.Background(), b.ID, models.BookingInProgress, "clerk", "")
	require.NoError(t, err)
	_, err = f.orch.CancelBooking(context.Background(), b.ID, "clerk", "")
	var terr *models.TransitionError
	assert.True(t, errors.As(err, &terr))
}

func TestTransitionBookingLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.addRoom(t, "room-1", 1, models.BookingRules{RequiresApproval: true})
	b, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "room-1", "atty-1"))
	require.NoError(t, err)

	for _, to := range []models.BookingStatus{models.BookingConfirmed, models.BookingInProgress, models.BookingCompleted} {
		b, err = f.orch.TransitionBooking(context.Background(), b.ID, to, "clerk", "")
		require.NoError(t, err)
		assert.Equal(t, to, b.Status)
	}
	assert.Len(t, b.StatusHistory, 4)
	assert.Equal(t, int64(4), b.Version)

	_, err = f.orch.TransitionBooking(context.Background(), b.ID, models.BookingPending, "clerk", "")
	var terr *models.TransitionError
	assert.True(t, errors.As(err, &terr))
	_, err = f.orch.TransitionBooking(context.Background(), b.ID, models.BookingRescheduled, "clerk", "")
	assert.True(t, models.IsValidation(err))

	// Completed bookings no longer hold the room.
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "room-1", "atty-2"))
	assert.NoError(t, err)
}

func TestRescheduleBooking(t *testing.T) {
	f := newFixture(t, nil)
	f.addRoom(t, "room-1", 1, models.BookingRules{})
	b, err := f.orch.RequestBooking(context.Background(), request(span(9, 0, 10, 0), "room-1", "atty-1"))
	require.NoError(t, err)
	other, err := f.orch.RequestBooking(context.Background(), request(span(13, 0, 14, 0), "room-1", "atty-2"))
	require.NoError(t, err)

	// Overlapping its own old slot is fine.
	moved, err := f.orch.RescheduleBooking(context.Background(), b.ID, span(9, 30, 10, 30), "clerk")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, moved.Status)
	assert.Equal(t, b.ID, moved.RescheduledFrom)
	assert.Equal(t, "room-1", moved.ResourceID)

	old, err := f.orch.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingRescheduled, old.Status)
	assert.Equal(t, moved.ID, old.RescheduledTo)
	assert.Equal(t, int64(2), old.Version)

	// Moving onto another booking conflicts and leaves everything as it was.
	_, err = f.orch.RescheduleBooking(context.Background(), moved.ID, span(13, 30, 14, 30), "clerk")
	assert.True(t, models.IsConflict(err))
	still, err := f.orch.GetBooking(context.Background(), moved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, still.Status)

	// A rescheduled booking cannot be rescheduled again.
	_, err = f.orch.RescheduleBooking(context.Background(), b.ID, span(15, 0, 16, 0), "clerk")
	var terr *models.TransitionError
	assert.True(t, errors.As(err, &terr))

	// The original slot is free.
	_, err = f.orch.RequestBooking(context.Background(), request(span(9, 0, 9, 30), "room-1", "atty-3"))
	assert.NoError(t, err)
	assert.NotEqual(t, other.ID, moved.ID)
	assert.Contains(t, f.recorder.Types(), models.EventBookingRescheduled)
}

func TestRequestBookingIdempotencyKey(t *testing.T) {
	f := newFixture(t, nil)
	f.orch.Idempotency = &memoryIdempotency{keys: map[string]string{}}
	req := request(span(9, 0, 10, 0), "", "atty-1")
	req.IdempotencyKey = "client-123"

	first, err := f.orch.RequestBooking(context.Background(), req)
	require.NoError(t, err)
	second, err := f.orch.RequestBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := f.orch.ListBookings(context.Background(), models.BookingFilter{SubjectID: "atty-1", Window: span(0, 0, 23, 0)})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListBookingsValidates(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.orch.ListBookings(context.Background(), models.BookingFilter{Window: span(0, 0, 23, 0)})
	assert.True(t, models.IsValidation(err))
	_, err = f.orch.ListBookings(context.Background(), models.BookingFilter{SubjectID: "atty-1"})
	assert.True(t, models.IsValidation(err))
}

// countingRepo records store access.
type countingRepo struct {
	*memory.Store
	reads    atomic.Int32
	reserves atomic.Int32
}

func (r *countingRepo) Unwrap() *memory.Store { return r.Store }

func (r *countingRepo) ScopeVersions(ctx context.Context, scopes []string) (map[string]int64, error) {
	r.reads.Add(1)
	return r.Store.ScopeVersions(ctx, scopes)
}

func (r *countingRepo) Reserve(ctx context.Context, res models.Reservation) error {
	r.reserves.Add(1)
	return r.Store.Reserve(ctx, res)
}

// racingRepo lets a competing booking for the same room land between the first
// version read and the first reserve, as another instance would.
type racingRepo struct {
	*memory.Store
	reserves atomic.Int32
}

func (r *racingRepo) Unwrap() *memory.Store { return r.Store }

func (r *racingRepo) Reserve(ctx context.Context, res models.Reservation) error {
	if r.reserves.Add(1) == 1 {
		competing := &models.Booking{
			ID: "competing", ResourceID: res.Booking.ResourceID, SubjectIDs: []string{"atty-9"},
			Interval: res.Booking.Interval, Status: models.BookingConfirmed,
		}
		versions, err := r.Store.ScopeVersions(ctx, competing.Scopes())
		if err != nil {
			return err
		}
		if err := r.Store.Reserve(ctx, models.Reservation{Booking: competing, Versions: versions}); err != nil {
			return err
		}
	}
	return r.Store.Reserve(ctx, res)
}

// alwaysStaleRepo fails every reserve with a version mismatch.
type alwaysStaleRepo struct {
	*memory.Store
	reserves atomic.Int32
}

func (r *alwaysStaleRepo) Unwrap() *memory.Store { return r.Store }

func (r *alwaysStaleRepo) Reserve(_ context.Context, res models.Reservation) error {
	r.reserves.Add(1)
	return &models.ConcurrencyConflictError{Scope: res.Booking.Scopes()[0]}
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryIdempotency) Lookup(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[key]
	return id, ok, nil
}

func (m *memoryIdempotency) Remember(_ context.Context, key, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.keys[key]; !exists {
		m.keys[key] = bookingID
	}
	return nil
}
