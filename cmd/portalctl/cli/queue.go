package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/akademi/egitim-portal/jobs"
)

// QueueInspector is the subset of *asynq.Inspector the queue command reads.
type QueueInspector interface {
	jobs.QueueInfoReader
	ListRetryTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// QueueCLI reports on the frontend event queue.
type QueueCLI struct {
	inspector QueueInspector
	closer    func() error
}

// NewQueueCLI connects an inspector to the queue's Redis instance.
func NewQueueCLI(redis asynq.RedisClientOpt) (*QueueCLI, error) {
	if redis.Addr == "" {
		return nil, errors.New("queue cli: redis address is required")
	}
	inspector := asynq.NewInspector(redis)
	return &QueueCLI{inspector: inspector, closer: inspector.Close}, nil
}

// NewQueueCLIWithInspector wraps an existing inspector.
func NewQueueCLIWithInspector(inspector QueueInspector) *QueueCLI {
	return &QueueCLI{inspector: inspector}
}

// Close releases underlying resources.
func (c *QueueCLI) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string       `json:"queue"`
	Pending   int          `json:"pending"`
	Active    int          `json:"active"`
	Scheduled int          `json:"scheduled"`
	Retry     int          `json:"retry"`
	Archived  int          `json:"archived"`
	Failed    int          `json:"failed_today"`
	Paused    bool         `json:"paused"`
	Retrying  []RetryEntry `json:"retrying,omitempty"`
}

// RetryEntry describes one event waiting for another delivery attempt.
type RetryEntry struct {
	ID        string `json:"id"`
	Retried   int    `json:"retried"`
	LastError string `json:"last_error"`
}

// InspectQueue reports the metrics of the events queue. A queue that was
// never written to reports zeros.
func (c *QueueCLI) InspectQueue(ctx context.Context, retrySample int) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("queue cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueEvents}
	info, err := jobs.ReadQueueInfo(c.inspector, jobs.QueueEvents)
	if err != nil {
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
		stats.Failed = info.Failed
		stats.Paused = info.Paused
	}
	if retrySample > 0 && stats.Retry > 0 {
		tasks, err := c.inspector.ListRetryTasks(jobs.QueueEvents, asynq.PageSize(retrySample), asynq.Page(1))
		if err != nil {
			return QueueStats{}, err
		}
		for _, t := range tasks {
			stats.Retrying = append(stats.Retrying, RetryEntry{ID: t.ID, Retried: t.Retried, LastError: t.LastErr})
		}
	}
	return stats, nil
}

// QueueOptions defines the flags of the queue command.
type QueueOptions struct {
	Output
	RetrySample int
}

// QueueCommand prints the event queue state.
func (c *QueueCLI) QueueCommand(ctx context.Context, opts QueueOptions) int {
	opts.Output = opts.Output.normalize()
	stats, err := c.InspectQueue(ctx, opts.RetrySample)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "queue: %v\n", err)
		return ExitError
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(stats); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "queue: encode json: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
	state := "running"
	if stats.Paused {
		state = "paused"
	}
	_, _ = fmt.Fprintf(opts.Stdout, "queue %s (%s)\n", stats.Queue, state)
	_, _ = fmt.Fprintf(opts.Stdout, "  pending:   %d\n  active:    %d\n  scheduled: %d\n  retry:     %d\n  archived:  %d\n  failed:    %d\n",
		stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived, stats.Failed)
	for _, r := range stats.Retrying {
		_, _ = fmt.Fprintf(opts.Stdout, "  retry %s (%dx): %s\n", r.ID, r.Retried, r.LastError)
	}
	return ExitOK
}
