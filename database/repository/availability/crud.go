package availabilityRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtcal/database"
	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *MongoAvailabilityRepo) CreateBlock(ctx context.Context, block *models.AvailabilityBlock) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, block); err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("availability block %s already exists", block.ID)
		}
		return fmt.Errorf("error creating availability block: %w", err)
	}
	return nil
}

func (r *MongoAvailabilityRepo) GetBlock(ctx context.Context, id string) (*models.AvailabilityBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var block models.AvailabilityBlock
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&block); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "availability block", ID: id}
		}
		return nil, fmt.Errorf("error fetching availability block %s: %w", id, err)
	}
	return &block, nil
}

// CancelBlock flips an active block to cancelled. A block that is already cancelled is
// returned unchanged.
func (r *MongoAvailabilityRepo) CancelBlock(ctx context.Context, id, cancelledBy string, at time.Time) (*models.AvailabilityBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.BlockActive}
	update := bson.M{"$set": bson.M{
		"status":      models.BlockCancelled,
		"cancelledBy": cancelledBy,
		"updatedAt":   at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var block models.AvailabilityBlock
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&block)
	if err == nil {
		return &block, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error cancelling availability block %s: %w", id, err)
	}
	return r.GetBlock(ctx, id)
}
