package repository

import (
	"context"

	automationRepo "teemarker/database/repository/automation"
	bookingRepo "teemarker/database/repository/booking"
	courseRepo "teemarker/database/repository/course"
	notificationRepo "teemarker/database/repository/notification"
	teetimeRepo "teemarker/database/repository/teetime"
	userRepo "teemarker/database/repository/user"

	"go.mongodb.org/mongo-driver/mongo"
)

// Re-export the repository interfaces and constructors.
type (
	CourseRepository       = courseRepo.CourseRepository
	AutomationRepository   = automationRepo.AutomationRepository
	TeeTimeRepository      = teetimeRepo.TeeTimeRepository
	BookingRepository      = bookingRepo.BookingRepository
	NotificationRepository = notificationRepo.NotificationRepository
	UserRepository         = userRepo.UserRepository
	ProfileUpdate          = userRepo.ProfileUpdate
)

var (
	NewMongoCourseRepo       = courseRepo.NewMongoCourseRepo
	NewMongoAutomationRepo   = automationRepo.NewMongoAutomationRepo
	NewMongoTeeTimeRepo      = teetimeRepo.NewMongoTeeTimeRepo
	NewMongoBookingRepo      = bookingRepo.NewMongoBookingRepo
	NewMongoNotificationRepo = notificationRepo.NewMongoNotificationRepo
	NewMongoUserRepo         = userRepo.NewMongoUserRepo
)

// Repositories bundles every collection the server uses.
type Repositories struct {
	Courses       CourseRepository
	Automations   AutomationRepository
	TeeTimes      TeeTimeRepository
	Bookings      BookingRepository
	Notifications NotificationRepository
	Users         UserRepository
}

// NewMongoRepositories builds all repositories on db.
func NewMongoRepositories(db *mongo.Database) Repositories {
	return Repositories{
		Courses:       NewMongoCourseRepo(db),
		Automations:   NewMongoAutomationRepo(db),
		TeeTimes:      NewMongoTeeTimeRepo(db),
		Bookings:      NewMongoBookingRepo(db),
		Notifications: NewMongoNotificationRepo(db),
		Users:         NewMongoUserRepo(db),
	}
}

// EnsureIndexes creates the indexes of every collection.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, ensure := range []func(context.Context, *mongo.Database) error{
		courseRepo.EnsureIndexes,
		automationRepo.EnsureIndexes,
		teetimeRepo.EnsureIndexes,
		bookingRepo.EnsureIndexes,
		notificationRepo.EnsureIndexes,
		userRepo.EnsureIndexes,
	} {
		if err := ensure(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
