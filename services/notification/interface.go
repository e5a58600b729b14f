package notification

import (
	"context"
	"fmt"
	"time"

	notificationRepo "teemarker/database/repository/notification"
	"teemarker/models"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// NotificationService appends tee time notifications for users to read.
type NotificationService interface {
	NotifyTeeTimesFound(ctx context.Context, automation models.Automation, course models.Course, teeTimes []models.TeeTime) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	repo   notificationRepo.NotificationRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewDefaultNotificationService(repo notificationRepo.NotificationRepository, logger *zap.Logger) (*DefaultNotificationService, error) {
	if repo == nil {
		return nil, errors.New("notification service initialization error: repository is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultNotificationService{repo: repo, logger: logger.Named("notification"), now: time.Now}, nil
}

// BuildTeeTimeNotification renders the record announcing teeTimes to the automation owner.
func BuildTeeTimeNotification(automation models.Automation, course models.Course, teeTimes []models.TeeTime, now time.Time) models.Notification {
	placeholder := false
	summaries := make([]models.NotifiedTeeTime, 0, len(teeTimes))
	for _, tt := range teeTimes {
		placeholder = placeholder || tt.Placeholder
		summaries = append(summaries, models.NotifiedTeeTime{
			ID:             tt.ID,
			Date:           tt.Date,
			Time:           tt.Time,
			Price:          tt.Price,
			AvailableSpots: tt.AvailableSpots,
		})
	}

	return models.Notification{
		UserID:  automation.UserID,
		Type:    models.NotificationTypeTeeTimeFound,
		Title:   "Tee Times Available!",
		Message: fmt.Sprintf("Found %d tee times matching your criteria at %s", len(teeTimes), course.Name),
		Data: models.NotificationData{
			AutomationID: automation.ID,
			CourseID:     course.ID,
			CourseName:   course.Name,
			Placeholder:  placeholder,
			TeeTimes:     summaries,
		},
		CreatedAt: now,
	}
}

func (s *DefaultNotificationService) NotifyTeeTimesFound(ctx context.Context, automation models.Automation, course models.Course, teeTimes []models.TeeTime) (*models.Notification, error) {
	if len(teeTimes) == 0 {
		return nil, nil
	}
	n := BuildTeeTimeNotification(automation, course, teeTimes, s.now())
	if err := s.repo.Create(ctx, &n); err != nil {
		return nil, errors.Wrapf(err, "notify user %s", automation.UserID)
	}

	s.logger.Info("Tee time notification stored",
		zap.String("automationId", automation.ID),
		zap.String("courseId", course.ID),
		zap.Int("teeTimes", len(teeTimes)),
		zap.Bool("placeholder", n.Data.Placeholder),
	)
	return &n, nil
}

func (s *DefaultNotificationService) ListForUser(ctx context.Context, userID string, limit int64) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *DefaultNotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}
