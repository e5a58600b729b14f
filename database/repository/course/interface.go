// File: database/repository/course/interface.go
package courseRepo

import (
	"context"

	"teemarker/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// CourseRepository defines methods for course data access.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	// List returns every course, newest first.
	List(ctx context.Context) ([]models.Course, error)
	// ListActiveByIDs returns the active courses among ids.
	ListActiveByIDs(ctx context.Context, ids []string) ([]models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type mongoCourseRepo struct {
	coll *mongo.Collection
}

// NewMongoCourseRepo constructs a MongoDB CourseRepository on db.
func NewMongoCourseRepo(db *mongo.Database) CourseRepository {
	return &mongoCourseRepo{coll: db.Collection("courses")}
}
