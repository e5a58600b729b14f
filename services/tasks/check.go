package tasks

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hibiken/asynq"
)

const TypeCheckAutomation = "teetime:check"

// CheckPayload names the automation one check task runs.
type CheckPayload struct {
	AutomationID string `json:"automationId"`
}

// NewCheckTask builds a check task. While an identical task is pending or
// running within uniqueFor, enqueueing another returns asynq.ErrDuplicateTask.
func NewCheckTask(automationID string, uniqueFor, timeout time.Duration) (*asynq.Task, []asynq.Option, error) {
	if automationID == "" {
		return nil, nil, errors.New("automation id is required")
	}
	b, err := json.Marshal(CheckPayload{AutomationID: automationID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCheckAutomation, b)
	opts := []asynq.Option{asynq.MaxRetry(2)}
	if uniqueFor > 0 {
		opts = append(opts, asynq.Unique(uniqueFor))
	}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return task, opts, nil
}

// ParseCheckPayload decodes and validates a check task payload.
func ParseCheckPayload(task *asynq.Task) (CheckPayload, error) {
	var p CheckPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, errors.Wrap(err, "invalid check payload")
	}
	if p.AutomationID == "" {
		return p, errors.New("check payload without automation id")
	}
	return p, nil
}
