package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/akademi/egitim-portal/internal/backend"
	jobmetrics "github.com/akademi/egitim-portal/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueEvents carries frontend events; it is drained with low priority.
	QueueEvents = "events"
	// TaskTypeFrontendEvent delivers one user action to the backend log.
	TaskTypeFrontendEvent = "frontend:event"
)

// FrontendEventPayload is one user action waiting for delivery.
type FrontendEventPayload struct {
	EventID    string    `json:"event_id"`
	UserID     *int64    `json:"user_id,omitempty"`
	Action     string    `json:"action"`
	Page       string    `json:"page"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurred_at"`
	// SealedToken is the user's bearer token sealed with the session key.
	SealedToken string `json:"sealed_token,omitempty"`
}

// NewFrontendEventTask constructs an Asynq task.
func NewFrontendEventTask(payload FrontendEventPayload) (*asynq.Task, error) {
	if payload.Action == "" {
		return nil, errors.New("frontend event: action required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var opts []asynq.Option
	if payload.EventID != "" {
		opts = append(opts, asynq.TaskID(payload.EventID))
	}
	return asynq.NewTask(TaskTypeFrontendEvent, data, opts...), nil
}

// TokenOpener reverses the sealing applied to queued tokens.
type TokenOpener interface {
	Open(sealed string) (string, error)
}

// EventSender posts a frontend event with the given bearer token.
type EventSender func(ctx context.Context, token string, event backend.FrontendEvent) error

// BackendEventSender delivers through a backend API rooted at baseURL.
func BackendEventSender(baseURL string, timeout time.Duration) EventSender {
	return func(ctx context.Context, token string, event backend.FrontendEvent) error {
		client := backend.NewClient(baseURL,
			backend.WithTimeout(timeout),
			backend.WithTokenSource(func(context.Context) string { return token }),
		)
		return client.SendFrontendEvent(ctx, event)
	}
}

// FrontendEventJob delivers queued frontend events.
type FrontendEventJob struct {
	send    EventSender
	opener  TokenOpener
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewFrontendEventJob constructs the delivery job.
func NewFrontendEventJob(send EventSender, opener TokenOpener, logger *slog.Logger, metrics *jobmetrics.Metrics) *FrontendEventJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrontendEventJob{send: send, opener: opener, logger: logger, metrics: metrics}
}

// Handle processes TaskTypeFrontendEvent tasks. Rejected events are dropped,
// transport failures are retried by asynq.
func (j *FrontendEventJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypeFrontendEvent)

	var payload FrontendEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.metrics.Dropped("decode")
		return tracker.End(fmt.Errorf("decode frontend event: %v: %w", err, asynq.SkipRetry))
	}

	token := ""
	if payload.SealedToken != "" && j.opener != nil {
		opened, err := j.opener.Open(payload.SealedToken)
		if err != nil {
			j.logger.Warn("frontend event token unreadable", slog.String("event_id", payload.EventID))
		} else {
			token = opened
		}
	}

	err := j.send(ctx, token, backend.FrontendEvent{
		UserID:  payload.UserID,
		Action:  payload.Action,
		Page:    payload.Page,
		Details: payload.Details,
	})
	if err == nil {
		j.logger.Debug("frontend event delivered", slog.String("event_id", payload.EventID), slog.String("action", payload.Action))
		return tracker.End(nil)
	}

	if apiErr, ok := backend.AsAPIError(err); ok && apiErr.Status < 500 {
		j.metrics.Dropped(fmt.Sprintf("status_%d", apiErr.Status))
		j.logger.Info("frontend event rejected", slog.String("event_id", payload.EventID), slog.Int("status", apiErr.Status))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	return tracker.End(err)
}
