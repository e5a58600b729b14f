package checker

import (
	"context"
	"time"

	automationRepo "teemarker/database/repository/automation"
	bookingRepo "teemarker/database/repository/booking"
	courseRepo "teemarker/database/repository/course"
	teetimeRepo "teemarker/database/repository/teetime"
	userRepo "teemarker/database/repository/user"
	"teemarker/services/notification"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// DefaultCheckService is the production polling orchestrator.
type DefaultCheckService struct {
	Automations automationRepo.AutomationRepository
	Courses     courseRepo.CourseRepository
	TeeTimes    teetimeRepo.TeeTimeRepository
	Bookings    bookingRepo.BookingRepository
	Users       userRepo.UserRepository
	Notifier    notification.NotificationService
	Dispatcher  Dispatcher
	Options     Options
	Logger      *zap.Logger

	// Now and Intn are replaceable for tests.
	Now  func() time.Time
	Intn func(n int) int
}

func (s *DefaultCheckService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultCheckService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// CheckAutomation runs one cycle. Only failures to load the automation or its
// courses are returned; per-course and per-step failures are logged and
// recorded in the report.
//
// The cycle is gated on the weekday of the service clock. Each course is then
// searched for its own local date and is skipped when that date falls on a
// weekday the automation does not run, which happens near midnight when the
// course timezone is behind or ahead of the server.
func (s *DefaultCheckService) CheckAutomation(ctx context.Context, automationID string) (*Report, error) {
	logger := s.logger().With(zap.String("automationId", automationID))
	report := &Report{AutomationID: automationID}

	automation, err := s.Automations.GetByID(ctx, automationID)
	if err != nil {
		return nil, errors.Wrapf(err, "load automation %s", automationID)
	}
	if !automation.IsActive {
		logger.Debug("Automation inactive, skipping")
		report.Skipped = SkipInactive
		return report, nil
	}

	now := s.now()
	if !automation.RunsOn(now.Weekday()) {
		logger.Debug("Automation not scheduled today", zap.Stringer("weekday", now.Weekday()))
		report.Skipped = SkipNotScheduled
		return report, nil
	}

	courses, err := s.Courses.ListActiveByIDs(ctx, automation.Courses)
	if err != nil {
		return nil, errors.Wrapf(err, "load courses of automation %s", automationID)
	}
	if len(courses) == 0 {
		logger.Info("No active courses for automation")
		report.Skipped = SkipNoActiveCourses
		return report, nil
	}

	// the schedule advances whatever happens to the courses
	defer s.reschedule(ctx, logger, automationID, now, automation.Interval())

	logger.Info("Checking automation", zap.Int("courses", len(courses)), zap.String("bookingAction", automation.BookingAction))
	for _, course := range courses {
		result := s.checkCourse(ctx, *automation, course, now)
		if result.Err != nil {
			logger.Error("Course check failed", zap.String("courseId", course.ID), zap.String("platform", course.Platform), zap.Error(result.Err))
		}
		report.Courses = append(report.Courses, result)
	}
	return report, nil
}

func (s *DefaultCheckService) reschedule(ctx context.Context, logger *zap.Logger, automationID string, now time.Time, interval time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	next := now.Add(interval)
	if err := s.Automations.UpdateSchedule(ctx, automationID, now, next); err != nil {
		logger.Error("Failed to update automation schedule", zap.Error(err))
		return
	}
	logger.Debug("Automation rescheduled", zap.Time("nextCheck", next))
}

// recovered turns a panic inside a course check into that course's error.
func recovered(result *CourseResult) {
	if r := recover(); r != nil {
		result.Err = errors.Newf("panic during course check: %v", r)
	}
}
