package deadlineRepo

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDeadlineRepo stores deadlines. Status is never persisted; it is derived on read.
type MongoDeadlineRepo struct {
	coll *mongo.Collection
}

func NewMongoDeadlineRepo(db *mongo.Database) *MongoDeadlineRepo {
	return &MongoDeadlineRepo{coll: db.Collection("deadlines")}
}
