package bookingRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"courtcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func sampleBooking() models.Booking {
	start := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	return models.Booking{
		ID:         "bk-1",
		SubjectIDs: []string{"atty-1"},
		ResourceID: "room-1",
		Interval:   models.TimeInterval{Start: start, End: start.Add(time.Hour)},
		Owner:      "clerk",
		Status:     models.BookingConfirmed,
		Version:    2,
	}
}

func TestGetBooking(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "courtcal.bookings", mtest.FirstBatch, toDoc(t, sampleBooking())))

		got, err := repo.GetBooking(context.Background(), "bk-1")
		require.NoError(t, err)
		assert.Equal(t, "room-1", got.ResourceID)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, got.Interval.Start.Equal(sampleBooking().Interval.Start))
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "courtcal.bookings", mtest.FirstBatch))

		_, err := repo.GetBooking(context.Background(), "missing")
		assert.True(t, models.IsNotFound(err))
	})
}

func TestUpdateBookingVersionCheck(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matched", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		b := sampleBooking()
		require.NoError(t, repo.UpdateBooking(context.Background(), &b, 2))
		assert.Equal(t, int64(3), b.Version)
	})

	mt.Run("stale version", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "courtcal.bookings", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		b := sampleBooking()
		err := repo.UpdateBooking(context.Background(), &b, 1)
		assert.True(t, errors.Is(err, models.ErrConcurrencyConflict))
		assert.Equal(t, int64(2), b.Version)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "courtcal.bookings", mtest.FirstBatch),
		)

		b := sampleBooking()
		assert.True(t, models.IsNotFound(repo.UpdateBooking(context.Background(), &b, 2)))
	})
}

func TestScopeVersionsDefaultsMissingToZero(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("partial", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "courtcal.schedule_ledgers", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "subject:atty-1"}, {Key: "version", Value: int64(7)}},
		))

		got, err := repo.ScopeVersions(context.Background(), []string{"resource:room-1", "subject:atty-1"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"resource:room-1": 0, "subject:atty-1": 7}, got)
	})
}

func TestListBookingsDecodesInOrder(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoBookingRepo(mt.DB)
		first := sampleBooking()
		second := sampleBooking()
		second.ID = "bk-2"
		second.Interval = models.TimeInterval{Start: first.Interval.End, End: first.Interval.End.Add(time.Hour)}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "courtcal.bookings", mtest.FirstBatch, toDoc(t, first), toDoc(t, second)))

		got, err := repo.HoldingBookingsForResource(context.Background(), "room-1", models.TimeInterval{Start: first.Interval.Start, End: second.Interval.End})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "bk-2", got[1].ID)
	})
}

func TestBookingQuery(t *testing.T) {
	window := models.TimeInterval{
		Start: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
	}
	q := bookingQuery(models.BookingFilter{SubjectID: "atty-1", Window: window, Statuses: models.HoldingStatuses})
	assert.Equal(t, "atty-1", q["subjectIds"])
	assert.Equal(t, bson.M{"$lt": window.End}, q["interval.start"])
	assert.Equal(t, bson.M{"$gt": window.Start}, q["interval.end"])
	assert.NotContains(t, q, "resourceId")

	assert.Empty(t, bookingQuery(models.BookingFilter{}))
}

func TestReserveErrorMapping(t *testing.T) {
	scoped := &models.ConcurrencyConflictError{Scope: "subject:atty-1"}
	assert.Same(t, scoped, reserveError(scoped))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.True(t, errors.Is(reserveError(dup), models.ErrConcurrencyConflict))

	transient := mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}}
	assert.True(t, errors.Is(reserveError(transient), models.ErrConcurrencyConflict))

	other := reserveError(errors.New("network down"))
	assert.False(t, errors.Is(other, models.ErrConcurrencyConflict))
	assert.Contains(t, other.Error(), "network down")
}

func TestSortedScopes(t *testing.T) {
	got := sortedScopes(map[string]int64{"subject:b": 1, "resource:r": 0, "subject:a": 3})
	assert.Equal(t, []string{"resource:r", "subject:a", "subject:b"}, got)
}
