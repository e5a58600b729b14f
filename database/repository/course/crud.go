// File: database/repository/course/crud.go
package courseRepo

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

func (r *mongoCourseRepo) Create(ctx context.Context, course *models.Course) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, course); err != nil {
		return errors.Wrap(err, "failed to create course")
	}
	return nil
}

func (r *mongoCourseRepo) GetByID(ctx context.Context, id string) (*models.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var course models.Course
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&course); err != nil {
		return nil, database.NotFoundOr(err, "failed to fetch course %s", id)
	}
	return &course, nil
}

func (r *mongoCourseRepo) List(ctx context.Context) ([]models.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list courses")
	}
	courses := []models.Course{}
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, errors.Wrap(err, "failed to decode courses")
	}
	return courses, nil
}

func (r *mongoCourseRepo) ListActiveByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"id": bson.M{"$in": ids}, "isActive": true}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active courses")
	}
	var found []models.Course
	if err := cursor.All(ctx, &found); err != nil {
		return nil, errors.Wrap(err, "failed to decode courses")
	}

	// keep the automation's course order
	byID := make(map[string]models.Course, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	courses := make([]models.Course, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			courses = append(courses, c)
			delete(byID, id)
		}
	}
	return courses, nil
}

func (r *mongoCourseRepo) Update(ctx context.Context, course *models.Course) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	course.UpdatedAt = time.Now()
	result, err := r.coll.ReplaceOne(ctx, bson.M{"id": course.ID}, course)
	if err != nil {
		return errors.Wrapf(err, "failed to update course %s", course.ID)
	}
	if result.MatchedCount == 0 {
		return errors.WithStack(database.ErrNotFound)
	}
	return nil
}

func (r *mongoCourseRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return errors.Wrapf(err, "failed to delete course %s", id)
	}
	if result.DeletedCount == 0 {
		return errors.WithStack(database.ErrNotFound)
	}
	return nil
}
