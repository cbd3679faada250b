package deadlineRepo

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

func (r *MongoDeadlineRepo) CreateDeadline(ctx context.Context, d *models.Deadline) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := d.Clone()
	doc.Version = 1
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("deadline %s already exists", d.ID)
		}
		return fmt.Errorf("error creating deadline: %w", err)
	}
	d.Version = 1
	return nil
}

func (r *MongoDeadlineRepo) GetDeadline(ctx context.Context, id string) (*models.Deadline, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d models.Deadline
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "deadline", ID: id}
		}
		return nil, fmt.Errorf("error fetching deadline %s: %w", id, err)
	}
	return &d, nil
}

// UpdateDeadline replaces the deadline when the stored version equals expectedVersion.
func (r *MongoDeadlineRepo) UpdateDeadline(ctx context.Context, d *models.Deadline, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := d.Clone()
	doc.Version = expectedVersion + 1
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": d.ID, "version": expectedVersion}, doc)
	if err != nil {
		return fmt.Errorf("error updating deadline %s: %w", d.ID, err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"id": d.ID})
		if err != nil {
			return fmt.Errorf("error checking deadline %s: %w", d.ID, err)
		}
		if n == 0 {
			return &models.NotFoundError{Entity: "deadline", ID: d.ID}
		}
		return &models.ConcurrencyConflictError{Scope: "deadline:" + d.ID}
	}
	d.Version = doc.Version
	return nil
}

// ListDueBetween returns open deadlines due in [from, to), earliest first.
func (r *MongoDeadlineRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]models.Deadline, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"completed": false,
		"cancelled": false,
		"dueDate":   bson.M{"$gte": from, "$lt": to},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding due deadlines: %w", err)
	}
	defer cursor.Close(ctx)

	deadlines := []models.Deadline{}
	if err := cursor.All(ctx, &deadlines); err != nil {
		return nil, fmt.Errorf("error decoding deadlines: %w", err)
	}
	return deadlines, nil
}

func (r *MongoDeadlineRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "completed", Value: 1}, {Key: "cancelled", Value: 1}, {Key: "dueDate", Value: 1}},
			Options: options.Index().SetName("open_due_idx"),
		},
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetName("reference_idx").SetSparse(true),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create deadline indexes: %w", err)
	}
	return nil
}
