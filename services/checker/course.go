package checker

import (
	"context"
	"time"

	"teemarker/models"
	"teemarker/services/adapters"
	"teemarker/services/normalize"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// errSlotGone reports that re-verification no longer found the slot.
var errSlotGone = errors.New("slot no longer available")

// fatalForCourse reports failures that end a course check without fallback.
func fatalForCourse(err error) bool {
	return errors.Is(err, adapters.ErrUnsupportedPlatform) || errors.Is(err, adapters.ErrAuthentication)
}

func (s *DefaultCheckService) checkCourse(ctx context.Context, automation models.Automation, course models.Course, now time.Time) (result CourseResult) {
	result.CourseID = course.ID
	defer recovered(&result)

	logger := s.logger().With(zap.String("automationId", automation.ID), zap.String("courseId", course.ID))
	local := now.In(course.Location())
	if !automation.RunsOn(local.Weekday()) {
		logger.Debug("Course local day not scheduled", zap.Stringer("weekday", local.Weekday()))
		result.Skipped = SkipNotScheduled
		return result
	}
	params := models.SearchParams{
		Date:      local.Format(normalize.DateLayout),
		TimeRange: &automation.TimeRange,
		Players:   1,
	}

	teeTimes, err := s.Dispatcher.SearchTeeTimes(ctx, course, params)
	if err != nil {
		result.Err = err
		if !fatalForCourse(err) {
			s.fallback(ctx, logger, automation, course, now, &result)
		}
		return result
	}
	result.Found = len(teeTimes)

	for i := range teeTimes {
		if err := s.TeeTimes.Upsert(ctx, &teeTimes[i]); err != nil {
			logger.Error("Failed to store tee time", zap.String("platformId", teeTimes[i].PlatformID), zap.Error(err))
		}
	}

	matches := filterMatches(teeTimes, automation.TimeRange)
	result.Matches = len(matches)
	logger.Info("Tee times checked", zap.Int("found", result.Found), zap.Int("matches", result.Matches))
	if len(matches) == 0 {
		return result
	}

	if automation.BookingAction == models.BookingActionAutoBook {
		booking, err := s.autoBook(ctx, automation, course, matches[0])
		switch {
		case errors.Is(err, errSlotGone):
			logger.Info("Auto-book skipped, slot gone on re-check", zap.String("teeTimeId", matches[0].ID))
		case err != nil:
			logger.Error("Auto-book failed", zap.String("teeTimeId", matches[0].ID), zap.String("remoteMessage", adapters.RemoteMessage(err)), zap.Error(err))
		default:
			result.BookingID = booking.ID
		}
	}

	s.notify(ctx, logger, automation, course, matches, &result)
	return result
}

// filterMatches keeps slots inside the window with at least one seat, in
// adapter order.
func filterMatches(teeTimes []models.TeeTime, window models.TimeRange) []models.TeeTime {
	var matches []models.TeeTime
	for _, tt := range teeTimes {
		if tt.AvailableSpots >= 1 && normalize.IsTimeInRange(tt.Time, &window) {
			matches = append(matches, tt)
		}
	}
	return matches
}

func (s *DefaultCheckService) notify(ctx context.Context, logger *zap.Logger, automation models.Automation, course models.Course, teeTimes []models.TeeTime, result *CourseResult) {
	if s.Notifier == nil {
		return
	}
	if _, err := s.Notifier.NotifyTeeTimesFound(ctx, automation, course, teeTimes); err != nil {
		logger.Error("Failed to notify user", zap.String("userId", automation.UserID), zap.Error(err))
		return
	}
	result.Notified = true
}

func (s *DefaultCheckService) fallback(ctx context.Context, logger *zap.Logger, automation models.Automation, course models.Course, now time.Time, result *CourseResult) {
	if s.Options.Fallback == FallbackNone {
		return
	}
	slots := s.syntheticSlots(automation, course, now)
	result.Fallback = true
	result.Matches = len(slots)
	logger.Info("Using placeholder tee times", zap.Int("slots", len(slots)))
	if len(slots) > 0 {
		s.notify(ctx, logger, automation, course, slots, result)
	}
}

// autoBook books slot for the automation owner and persists the confirmed booking.
func (s *DefaultCheckService) autoBook(ctx context.Context, automation models.Automation, course models.Course, slot models.TeeTime) (*models.Booking, error) {
	if slot.Placeholder {
		return nil, errors.New("placeholder slots cannot be booked")
	}

	user, err := s.Users.GetByID(ctx, automation.UserID)
	if err != nil {
		return nil, errors.Wrapf(err, "load user %s", automation.UserID)
	}
	params := models.BookingParams{TeeTimeID: slot.PlatformID, Players: 1, UserInfo: user.ContactInfo()}

	if s.Options.RecheckBeforeBook {
		if err := s.recheck(ctx, course, slot, params.Players); err != nil {
			return nil, err
		}
	}

	booking, err := s.Dispatcher.BookTeeTime(ctx, course, slot, params)
	if err != nil {
		return nil, err
	}

	booking.UserID = automation.UserID
	booking.AutomationID = automation.ID
	booking.CourseID = course.ID
	booking.TeeTimeID = slot.ID
	if err := s.Bookings.Create(ctx, booking); err != nil {
		return nil, errors.Wrap(err, "store confirmed booking")
	}
	if err := s.TeeTimes.DecrementSpots(ctx, slot.ID, params.Players); err != nil {
		s.logger().Warn("Failed to update stored availability", zap.String("teeTimeId", slot.ID), zap.Error(err))
	}

	s.logger().Info("Tee time auto-booked",
		zap.String("automationId", automation.ID),
		zap.String("courseId", course.ID),
		zap.String("bookingId", booking.ID),
		zap.String("date", slot.Date),
		zap.String("time", slot.Time),
	)
	return booking, nil
}

// recheck searches again and requires the slot to still offer enough seats.
func (s *DefaultCheckService) recheck(ctx context.Context, course models.Course, slot models.TeeTime, players int) error {
	fresh, err := s.Dispatcher.SearchTeeTimes(ctx, course, models.SearchParams{Date: slot.Date, Players: players})
	if err != nil {
		return errors.Wrap(err, "re-check before booking")
	}
	for _, tt := range fresh {
		if tt.PlatformID == slot.PlatformID && tt.AvailableSpots >= players {
			return nil
		}
	}
	return errSlotGone
}
