package repository

import (
	"context"

	availabilityRepo "courtcal/database/repository/availability"
	bookingRepo "courtcal/database/repository/booking"
	deadlineRepo "courtcal/database/repository/deadline"
	eventRepo "courtcal/database/repository/event"
	resourceRepo "courtcal/database/repository/resource"

	"go.mongodb.org/mongo-driver/mongo"
)

// Re-export the Mongo repositories and constructors.
type (
	AvailabilityRepo = availabilityRepo.MongoAvailabilityRepo
	BookingRepo      = bookingRepo.MongoBookingRepo
	ResourceRepo     = resourceRepo.MongoResourceRepo
	DeadlineRepo     = deadlineRepo.MongoDeadlineRepo
	EventRepo        = eventRepo.MongoEventRepo
)

var (
	NewMongoAvailabilityRepo = availabilityRepo.NewMongoAvailabilityRepo
	NewMongoBookingRepo      = bookingRepo.NewMongoBookingRepo
	NewMongoResourceRepo     = resourceRepo.NewMongoResourceRepo
	NewMongoDeadlineRepo     = deadlineRepo.NewMongoDeadlineRepo
	NewMongoEventRepo        = eventRepo.NewMongoEventRepo
)

// Mongo bundles every repository over one database.
type Mongo struct {
	Availability *AvailabilityRepo
	Bookings     *BookingRepo
	Resources    *ResourceRepo
	Deadlines    *DeadlineRepo
	Events       *EventRepo
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		Availability: NewMongoAvailabilityRepo(db),
		Bookings:     NewMongoBookingRepo(db),
		Resources:    NewMongoResourceRepo(db),
		Deadlines:    NewMongoDeadlineRepo(db),
		Events:       NewMongoEventRepo(db),
	}
}

// EnsureIndexes creates the indexes of every collection.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		m.Availability.EnsureIndexes,
		m.Bookings.EnsureIndexes,
		m.Resources.EnsureIndexes,
		m.Deadlines.EnsureIndexes,
		m.Events.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
