package availabilityRepo

import (
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionName = "availability_blocks"

// MongoAvailabilityRepo stores availability blocks, one document per block.
// Recurring blocks are stored once and expanded at read time.
type MongoAvailabilityRepo struct {
	coll *mongo.Collection
}

func NewMongoAvailabilityRepo(db *mongo.Database) *MongoAvailabilityRepo {
	return &MongoAvailabilityRepo{coll: db.Collection(collectionName)}
}
