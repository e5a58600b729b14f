// File: database/repository/automation/interface.go
package automationRepo

import (
	"context"
	"time"

	"teemarker/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AutomationRepository defines methods for automation data access.
type AutomationRepository interface {
	Create(ctx context.Context, automation *models.Automation) error
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	// ListByUser returns the user's automations, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Automation, error)
	Update(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error
	// UpdateSchedule only touches lastChecked and nextCheck.
	UpdateSchedule(ctx context.Context, id string, lastChecked, nextCheck time.Time) error
	// ListDue returns active automations whose nextCheck is unset or not after now.
	ListDue(ctx context.Context, now time.Time, limit int64) ([]models.Automation, error)
}

type mongoAutomationRepo struct {
	coll *mongo.Collection
}

// NewMongoAutomationRepo constructs a MongoDB AutomationRepository on db.
func NewMongoAutomationRepo(db *mongo.Database) AutomationRepository {
	return &mongoAutomationRepo{coll: db.Collection("automations")}
}
