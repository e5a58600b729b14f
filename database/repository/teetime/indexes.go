// FILE: database/repository/teetime/indexes.go
package teetimeRepo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the necessary indexes on the teeTimes collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// Natural key used by Upsert
		{
			Keys: bson.D{
				{Key: "courseId", Value: 1},
				{Key: "date", Value: 1},
				{Key: "time", Value: 1},
				{Key: "platformId", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("course_date_time_platform_idx"),
		},
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "lastChecked", Value: -1}},
			Options: options.Index().SetName("course_last_checked_idx"),
		},
	}

	if _, err := db.Collection("teeTimes").Indexes().CreateMany(ctx, indexModels); err != nil {
		return errors.Wrap(err, "failed to create tee time indexes")
	}
	return nil
}
