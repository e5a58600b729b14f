package cron

import (
	"context"
	"time"

	"teemarker/models"
	"teemarker/services/tasks"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const sweepBatch = 500

// DueLister is the slice of the automation repository the sweeper needs.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int64) ([]models.Automation, error)
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Sweeper periodically enqueues a check task for every due automation.
type Sweeper struct {
	Automations DueLister
	Queue       Enqueuer
	Interval    time.Duration
	// UniqueFor bounds duplicate tasks for the same automation. Defaults to Interval.
	UniqueFor   time.Duration
	TaskTimeout time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.Logger.Error("Sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.Logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce enqueues due automations and returns how many new tasks were queued.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	due, err := s.Automations.ListDue(ctx, now(), sweepBatch)
	if err != nil {
		return 0, errors.Wrap(err, "list due automations")
	}

	uniqueFor := s.UniqueFor
	if uniqueFor <= 0 {
		uniqueFor = s.Interval
	}

	queued := 0
	for _, a := range due {
		task, opts, err := tasks.NewCheckTask(a.ID, uniqueFor, s.TaskTimeout)
		if err != nil {
			s.Logger.Error("Failed to build check task", zap.String("automationId", a.ID), zap.Error(err))
			continue
		}
		if _, err := s.Queue.EnqueueContext(ctx, task, opts...); err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				continue
			}
			s.Logger.Warn("Failed to enqueue check", zap.String("automationId", a.ID), zap.Error(err))
			continue
		}
		queued++
	}
	if queued > 0 {
		s.Logger.Debug("Enqueued automation checks", zap.Int("due", len(due)), zap.Int("queued", queued))
	}
	return queued, nil
}
