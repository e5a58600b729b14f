// File: database/repository/teetime/crud.go
package teetimeRepo

import (
	"context"
	"time"

	"teemarker/database"
	"teemarker/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func naturalKey(tt *models.TeeTime) bson.M {
	return bson.M{
		"courseId":   tt.CourseID,
		"date":       tt.Date,
		"time":       tt.Time,
		"platformId": tt.PlatformID,
	}
}

func (r *mongoTeeTimeRepo) Upsert(ctx context.Context, tt *models.TeeTime) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	if tt.LastChecked.IsZero() {
		tt.LastChecked = now
	}
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = now
	}

	update := bson.M{
		"$set": bson.M{
			"availableSpots": tt.AvailableSpots,
			"price":          tt.Price,
			"lastChecked":    tt.LastChecked,
		},
		"$setOnInsert": bson.M{
			"id":        uuid.NewString(),
			"createdAt": tt.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored models.TeeTime
	if err := r.coll.FindOneAndUpdate(ctx, naturalKey(tt), update, opts).Decode(&stored); err != nil {
		return errors.Wrapf(err, "failed to upsert tee time %s %s for course %s", tt.Date, tt.Time, tt.CourseID)
	}
	tt.ID = stored.ID
	tt.CreatedAt = stored.CreatedAt
	return nil
}

func (r *mongoTeeTimeRepo) GetByID(ctx context.Context, id string) (*models.TeeTime, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tt models.TeeTime
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&tt); err != nil {
		return nil, database.NotFoundOr(err, "failed to fetch tee time %s", id)
	}
	return &tt, nil
}

func (r *mongoTeeTimeRepo) ListByCourse(ctx context.Context, courseID string, limit int64) ([]models.TeeTime, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "lastChecked", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, bson.M{"courseId": courseID}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tee times for course %s", courseID)
	}
	teeTimes := []models.TeeTime{}
	if err := cursor.All(ctx, &teeTimes); err != nil {
		return nil, errors.Wrap(err, "failed to decode tee times")
	}
	return teeTimes, nil
}

func (r *mongoTeeTimeRepo) DecrementSpots(ctx context.Context, id string, players int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"availableSpots": -players},
		"$set": bson.M{"lastChecked": time.Now()},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return errors.Wrapf(err, "failed to update availability of tee time %s", id)
	}
	if result.MatchedCount == 0 {
		return errors.WithStack(database.ErrNotFound)
	}
	return nil
}
