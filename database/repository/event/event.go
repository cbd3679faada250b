package eventRepo

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEventRepo is the append-only scheduling event log.
type MongoEventRepo struct {
	coll *mongo.Collection
}

func NewMongoEventRepo(db *mongo.Database) *MongoEventRepo {
	return &MongoEventRepo{coll: db.Collection("scheduling_events")}
}

// SaveEvent stores evt once; redelivered events are ignored.
func (r *MongoEventRepo) SaveEvent(ctx context.Context, evt models.SchedulingEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Update().SetUpsert(true)
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": evt.ID}, bson.M{"$setOnInsert": evt}, opts)
	if err != nil {
		return fmt.Errorf("error saving event %s: %w", evt.ID, err)
	}
	return nil
}

// ListEvents returns the events of one aggregate, or all events when aggregateID is empty.
func (r *MongoEventRepo) ListEvents(ctx context.Context, aggregateID string) ([]models.SchedulingEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if aggregateID != "" {
		filter["aggregateId"] = aggregateID
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing events: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.SchedulingEvent{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("error decoding events: %w", err)
	}
	return out, nil
}

func (r *MongoEventRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "aggregateId", Value: 1}, {Key: "occurredAt", Value: 1}},
			Options: options.Index().SetName("aggregate_occurred_idx"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}
	return nil
}
