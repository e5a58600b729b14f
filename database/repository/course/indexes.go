package courseRepo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the courses collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "id", Value: 1}},
			Options: options.Index().SetName("active_id_idx"),
		},
	}

	if _, err := db.Collection("courses").Indexes().CreateMany(ctx, indexModels); err != nil {
		return errors.Wrap(err, "failed to create course indexes")
	}
	return nil
}
