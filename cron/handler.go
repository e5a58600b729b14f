package cron

import (
	"context"
	"fmt"
	"time"

	"teemarker/database"
	"teemarker/services/checker"
	"teemarker/services/tasks"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CheckHandler runs the checker for each teetime:check task, holding a lease
// per automation so overlapping deliveries never check it concurrently.
type CheckHandler struct {
	Checker  checker.CheckService
	Locker   Locker
	LeaseTTL time.Duration
	Logger   *zap.Logger
}

func (h *CheckHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.ParseCheckPayload(task)
	if err != nil {
		h.Logger.Error("Dropping check task", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	logger := h.Logger.With(zap.String("automationId", p.AutomationID))

	if h.Locker != nil {
		release, ok, err := h.Locker.Acquire(ctx, "automation:"+p.AutomationID, h.LeaseTTL)
		if err != nil {
			return errors.Wrap(err, "acquire automation lease")
		}
		if !ok {
			logger.Info("Automation check already running, skipping")
			return nil
		}
		defer release()
	}

	report, err := h.Checker.CheckAutomation(ctx, p.AutomationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logger.Warn("Automation no longer exists")
			return fmt.Errorf("automation %s not found: %w", p.AutomationID, asynq.SkipRetry)
		}
		logger.Error("Automation check failed", zap.Error(err))
		return err
	}

	if report.Skipped != "" {
		logger.Debug("Automation check skipped", zap.String("reason", report.Skipped))
		return nil
	}
	var failed, bookings int
	for _, c := range report.Courses {
		if c.Err != nil {
			failed++
		}
		if c.BookingID != "" {
			bookings++
		}
	}
	logger.Info("Automation checked",
		zap.Int("courses", len(report.Courses)),
		zap.Int("failedCourses", failed),
		zap.Int("bookings", bookings),
	)
	return nil
}
