// File: database/repository/teetime/interface.go
package teetimeRepo

import (
	"context"

	"teemarker/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type TeeTimeRepository interface {
	// Upsert stores a discovered slot keyed on courseId+date+time+platformId,
	// refreshing seats, price and lastChecked of an existing record. The stored
	// record id is written back to tt.ID.
	Upsert(ctx context.Context, tt *models.TeeTime) error
	GetByID(ctx context.Context, id string) (*models.TeeTime, error)
	// ListByCourse returns the most recently checked slots of a course.
	ListByCourse(ctx context.Context, courseID string, limit int64) ([]models.TeeTime, error)
	// DecrementSpots removes booked seats from a stored slot.
	DecrementSpots(ctx context.Context, id string, players int) error
}

type mongoTeeTimeRepo struct {
	coll *mongo.Collection
}

// NewMongoTeeTimeRepo constructs a MongoDB TeeTimeRepository on db.
func NewMongoTeeTimeRepo(db *mongo.Database) TeeTimeRepository {
	return &mongoTeeTimeRepo{coll: db.Collection("teeTimes")}
}
