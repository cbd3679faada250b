package bookingRepo

import (
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	bookingCollection = "bookings"
	ledgerCollection  = "schedule_ledgers"
)

// MongoBookingRepo stores bookings and the per-scope ledgers that serialize reservations.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	ledgerColl  *mongo.Collection
}

func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	return &MongoBookingRepo{
		bookingColl: db.Collection(bookingCollection),
		ledgerColl:  db.Collection(ledgerCollection),
	}
}
