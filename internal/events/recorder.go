// Package events records user actions and hands them to the background queue
// for delivery to the backend's frontend log.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/jobs"
)

// Event actions understood by the backend log.
const (
	ActionPageView    = "PAGE_VIEW"
	ActionButtonClick = "BUTTON_CLICK"
	ActionFormSubmit  = "FORM_SUBMIT"
)

const enqueueTimeout = 2 * time.Second

// Enqueuer hands a payload to the delivery queue.
type Enqueuer interface {
	EnqueueFrontendEvent(ctx context.Context, payload jobs.FrontendEventPayload) error
}

// Sealer protects the bearer token while it sits in the queue.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// Observer is notified of every enqueue attempt.
type Observer interface {
	ObserveEvent(action string, err error)
}

// Recorder builds event payloads from the request's session.
type Recorder struct {
	queue    Enqueuer
	sealer   Sealer
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewRecorder constructs a Recorder. A nil queue disables recording.
func NewRecorder(queue Enqueuer, sealer Sealer, logger *slog.Logger, observer Observer) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{queue: queue, sealer: sealer, logger: logger, observer: observer, now: time.Now}
}

// Enabled reports whether events leave the process.
func (r *Recorder) Enabled() bool {
	return r != nil && r.queue != nil
}

// Record enqueues one event for the principal bound to ctx. Failures are
// logged and never returned; event logging must not affect the user.
func (r *Recorder) Record(ctx context.Context, action, page, details string) {
	if !r.Enabled() || action == "" {
		return
	}
	payload := jobs.FrontendEventPayload{
		EventID:    uuid.NewString(),
		Action:     action,
		Page:       page,
		Details:    details,
		OccurredAt: r.now().UTC(),
	}
	if store := auth.StoreFromContext(ctx); store != nil {
		if p := store.Current(); p != nil && p.ID != 0 {
			id := p.ID
			payload.UserID = &id
		}
		if token := store.Token(); token != "" && r.sealer != nil {
			sealed, err := r.sealer.Seal(token)
			if err != nil {
				r.logger.Debug("seal event token", slog.Any("error", err))
			} else {
				payload.SealedToken = sealed
			}
		}
	}

	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
	defer cancel()
	err := r.queue.EnqueueFrontendEvent(enqueueCtx, payload)
	if r.observer != nil {
		r.observer.ObserveEvent(action, err)
	}
	if err != nil {
		r.logger.Debug("event logging failed", slog.String("action", action), slog.Any("error", err))
	}
}

// PageView records a PAGE_VIEW for path.
func (r *Recorder) PageView(ctx context.Context, path string) {
	r.Record(ctx, ActionPageView, path, "Viewed "+path)
}

// ButtonClick records a BUTTON_CLICK named name.
func (r *Recorder) ButtonClick(ctx context.Context, page, name, extra string) {
	r.Record(ctx, ActionButtonClick, page, Describe(name, extra))
}

// FormSubmit records a FORM_SUBMIT named name.
func (r *Recorder) FormSubmit(ctx context.Context, page, name, extra string) {
	r.Record(ctx, ActionFormSubmit, page, Describe(name, extra))
}

// Describe joins an element name with optional extra details.
func Describe(name, extra string) string {
	if extra == "" {
		return name
	}
	return name + " - " + extra
}
