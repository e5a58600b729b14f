// File: database/repository/automation/crud.go
package automationRepo

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

func (r *mongoAutomationRepo) Create(ctx context.Context, automation *models.Automation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if automation.ID == "" {
		automation.ID = uuid.NewString()
	}
	now := time.Now()
	automation.CreatedAt = now
	automation.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, automation); err != nil {
		return errors.Wrap(err, "failed to create automation")
	}
	return nil
}

func (r *mongoAutomationRepo) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var automation models.Automation
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&automation); err != nil {
		return nil, database.NotFoundOr(err, "failed to fetch automation %s", id)
	}
	return &automation, nil
}

func (r *mongoAutomationRepo) ListByUser(ctx context.Context, userID string) ([]models.Automation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list automations for user %s", userID)
	}
	automations := []models.Automation{}
	if err := cursor.All(ctx, &automations); err != nil {
		return nil, errors.Wrap(err, "failed to decode automations")
	}
	return automations, nil
}

func (r *mongoAutomationRepo) Update(ctx context.Context, automation *models.Automation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	automation.UpdatedAt = time.Now()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"id": automation.ID}, automation)
	if err != nil {
		return errors.Wrapf(err, "failed to update automation %s", automation.ID)
	}
	if result.MatchedCount == 0 {
		return errors.WithStack(database.ErrNotFound)
	}
	return nil
}

func (r *mongoAutomationRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return errors.Wrapf(err, "failed to delete automation %s", id)
	}
	if result.DeletedCount == 0 {
		return errors.WithStack(database.ErrNotFound)
	}
	return nil
}

func (r *mongoAutomationRepo) UpdateSchedule(ctx context.Context, id string, lastChecked, nextCheck time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"lastChecked": lastChecked, "nextCheck": nextCheck}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return errors.Wrapf(err, "failed to update schedule of automation %s", id)
	}
	if result.MatchedCount == 0 {
		return errors.WithStack(database.ErrNotFound)
	}
	return nil
}

func (r *mongoAutomationRepo) ListDue(ctx context.Context, now time.Time, limit int64) ([]models.Automation, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"isActive": true,
		"$or": bson.A{
			bson.M{"nextCheck": bson.M{"$lte": now}},
			bson.M{"nextCheck": nil},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "nextCheck", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list due automations")
	}
	var due []models.Automation
	if err := cursor.All(ctx, &due); err != nil {
		return nil, errors.Wrap(err, "failed to decode automations")
	}
	return due, nil
}
