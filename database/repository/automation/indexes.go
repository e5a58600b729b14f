package automationRepo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the automations collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created_idx"),
		},
		// sweeper query
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "nextCheck", Value: 1}},
			Options: options.Index().SetName("active_next_check_idx"),
		},
	}

	if _, err := db.Collection("automations").Indexes().CreateMany(ctx, indexModels); err != nil {
		return errors.Wrap(err, "failed to create automation indexes")
	}
	return nil
}
