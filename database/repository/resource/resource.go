package resourceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoResourceRepo stores bookable resources.
type MongoResourceRepo struct {
	coll *mongo.Collection
}

func NewMongoResourceRepo(db *mongo.Database) *MongoResourceRepo {
	return &MongoResourceRepo{coll: db.Collection("resources")}
}

// UpsertResource inserts or replaces a resource, keeping CreatedAt and bumping Version.
func (r *MongoResourceRepo) UpsertResource(ctx context.Context, res *models.BookableResource) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var current models.BookableResource
	err := r.coll.FindOne(ctx, bson.M{"id": res.ID}).Decode(&current)
	switch {
	case err == nil:
		res.Version = current.Version + 1
		res.CreatedAt = current.CreatedAt
	case errors.Is(err, mongo.ErrNoDocuments):
		res.Version = 1
	default:
		return fmt.Errorf("error fetching resource %s: %w", res.ID, err)
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"id": res.ID}, res, opts); err != nil {
		return fmt.Errorf("error saving resource %s: %w", res.ID, err)
	}
	return nil
}

func (r *MongoResourceRepo) GetResource(ctx context.Context, id string) (*models.BookableResource, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var res models.BookableResource
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "resource", ID: id}
		}
		return nil, fmt.Errorf("error fetching resource %s: %w", id, err)
	}
	return &res, nil
}

func (r *MongoResourceRepo) ListResources(ctx context.Context) ([]models.BookableResource, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing resources: %w", err)
	}
	defer cursor.Close(ctx)

	resources := []models.BookableResource{}
	if err := cursor.All(ctx, &resources); err != nil {
		return nil, fmt.Errorf("error decoding resources: %w", err)
	}
	return resources, nil
}

func (r *MongoResourceRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("unique_id"),
	})
	if err != nil {
		return fmt.Errorf("failed to create resource indexes: %w", err)
	}
	return nil
}
