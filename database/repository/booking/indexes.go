package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes on the bookings collection. Ledgers are keyed by _id.
func (repo *MongoBookingRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "subjectIds", Value: 1}, {Key: "status", Value: 1}, {Key: "interval.start", Value: 1}},
			Options: options.Index().SetName("subject_status_start_idx"),
		},
		{
			Keys:    bson.D{{Key: "resourceId", Value: 1}, {Key: "status", Value: 1}, {Key: "interval.start", Value: 1}},
			Options: options.Index().SetName("resource_status_start_idx").SetSparse(true),
		},
	}
	if _, err := repo.bookingColl.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
