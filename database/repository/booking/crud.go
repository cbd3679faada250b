package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (repo *MongoBookingRepo) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := repo.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &models.NotFoundError{Entity: "booking", ID: id}
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &booking, nil
}

// UpdateBooking replaces the booking when its stored version equals expectedVersion and
// bumps the version. Status changes do not touch the scope ledgers.
func (repo *MongoBookingRepo) UpdateBooking(ctx context.Context, b *models.Booking, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc := b.Clone()
	doc.Version = expectedVersion + 1
	res, err := repo.bookingColl.ReplaceOne(ctx, bson.M{"id": b.ID, "version": expectedVersion}, doc)
	if err != nil {
		return fmt.Errorf("error updating booking %s: %w", b.ID, err)
	}
	if res.MatchedCount == 0 {
		n, err := repo.bookingColl.CountDocuments(ctx, bson.M{"id": b.ID})
		if err != nil {
			return fmt.Errorf("error checking booking %s: %w", b.ID, err)
		}
		if n == 0 {
			return &models.NotFoundError{Entity: "booking", ID: b.ID}
		}
		return &models.ConcurrencyConflictError{Scope: "booking:" + b.ID}
	}
	b.Version = doc.Version
	return nil
}
