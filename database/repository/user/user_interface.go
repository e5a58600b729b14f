package userRepo

import (
	"context"

	"teemarker/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository defines methods for user profile access.
type UserRepository interface {
	// GetByID retrieves a user by their unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.User) error
	// UpdateProfile sets the given fields and returns the updated record.
	UpdateProfile(ctx context.Context, id string, fields ProfileUpdate) (*models.User, error)
}

// ProfileUpdate holds the user-editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name        *string
	Phone       *string
	Preferences *models.UserPreferences
}

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a new instance of UserRepository using MongoDB.
func NewMongoUserRepo(db *mongo.Database) UserRepository {
	return &MongoUserRepo{coll: db.Collection("users")}
}
