package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"courtcal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoBookingRepo) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "interval.start", Value: 1}})
	cursor, err := repo.bookingColl.Find(ctx, bookingQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

func (repo *MongoBookingRepo) HoldingBookingsForSubject(ctx context.Context, subjectID string, window models.TimeInterval) ([]models.Booking, error) {
	return repo.ListBookings(ctx, models.BookingFilter{SubjectID: subjectID, Window: window, Statuses: models.HoldingStatuses})
}

func (repo *MongoBookingRepo) HoldingBookingsForResource(ctx context.Context, resourceID string, window models.TimeInterval) ([]models.Booking, error) {
	return repo.ListBookings(ctx, models.BookingFilter{ResourceID: resourceID, Window: window, Statuses: models.HoldingStatuses})
}

// bookingQuery translates a filter; the window test is the half-open overlap
// start < window.end && end > window.start.
func bookingQuery(filter models.BookingFilter) bson.M {
	q := bson.M{}
	if filter.SubjectID != "" {
		q["subjectIds"] = filter.SubjectID
	}
	if filter.ResourceID != "" {
		q["resourceId"] = filter.ResourceID
	}
	if !filter.Window.Start.IsZero() {
		q["interval.start"] = bson.M{"$lt": filter.Window.End}
		q["interval.end"] = bson.M{"$gt": filter.Window.Start}
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": filter.Statuses}
	}
	return q
}
