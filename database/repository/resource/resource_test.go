package resourceRepo

import (
	"context"
	"testing"
	"time"

	"courtcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestUpsertResource(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("new", func(mt *mtest.T) {
		repo := NewMongoResourceRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "courtcal.resources", mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		res := &models.BookableResource{ID: "court-4", Name: "Courtroom 4", Capacity: 1}
		require.NoError(t, repo.UpsertResource(context.Background(), res))
		assert.Equal(t, int64(1), res.Version)
	})

	mt.Run("existing", func(mt *mtest.T) {
		repo := NewMongoResourceRepo(mt.DB)
		created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "courtcal.resources", mtest.FirstBatch,
				bson.D{{Key: "id", Value: "court-4"}, {Key: "version", Value: int64(4)}, {Key: "createdAt", Value: created}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		res := &models.BookableResource{ID: "court-4", Name: "Courtroom 4", Capacity: 2, CreatedAt: time.Now()}
		require.NoError(t, repo.UpsertResource(context.Background(), res))
		assert.Equal(t, int64(5), res.Version)
		assert.True(t, res.CreatedAt.Equal(created))
	})
}

func TestGetResourceNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewMongoResourceRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "courtcal.resources", mtest.FirstBatch))
		_, err := repo.GetResource(context.Background(), "nope")
		assert.True(t, models.IsNotFound(err))
	})
}
