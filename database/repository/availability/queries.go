package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListBlocks returns every block of subjectID that may touch window, cancelled ones included.
func (r *MongoAvailabilityRepo) ListBlocks(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error) {
	return r.find(ctx, subjectID, window, false)
}

// ActiveBlocks is ListBlocks without cancelled blocks. It feeds the busy-set registry.
func (r *MongoAvailabilityRepo) ActiveBlocks(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.AvailabilityBlock, error) {
	return r.find(ctx, subjectID, window, true)
}

// find over-selects on the first occurrence's start; recurring blocks are cut down in Go
// with MayCover since their last end is derived.
func (r *MongoAvailabilityRepo) find(ctx context.Context, subjectID string, window models.TimeInterval, activeOnly bool) ([]models.AvailabilityBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"subjectId":      subjectID,
		"interval.start": bson.M{"$lt": window.End},
		"$or": bson.A{
			bson.M{"recurrence": bson.M{"$exists": true}},
			bson.M{"interval.end": bson.M{"$gt": window.Start}},
		},
	}
	if activeOnly {
		filter["status"] = models.BlockActive
	}
	opts := options.Find().SetSort(bson.D{{Key: "interval.start", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching availability blocks for %s: %w", subjectID, err)
	}
	defer cursor.Close(ctx)

	blocks := []models.AvailabilityBlock{}
	for cursor.Next(ctx) {
		var b models.AvailabilityBlock
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding availability block: %w", err)
		}
		if b.MayCover(window) {
			blocks = append(blocks, b)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return blocks, nil
}
