package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi/egitim-portal/internal/backend"
	jobmetrics "github.com/akademi/egitim-portal/internal/jobs"
	"github.com/akademi/egitim-portal/internal/shared"
)

func TestNewFrontendEventTaskRequiresAction(t *testing.T) {
	_, err := NewFrontendEventTask(FrontendEventPayload{})
	assert.Error(t, err)

	task, err := NewFrontendEventTask(FrontendEventPayload{Action: "PAGE_VIEW", Page: "/egitim"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeFrontendEvent, task.Type())
}

func TestFrontendEventJobDelivers(t *testing.T) {
	sealer, err := shared.NewTokenSealer("worker-secret-worker-secret-1234")
	require.NoError(t, err)
	sealed, err := sealer.Seal("user-token")
	require.NoError(t, err)

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logs/frontend", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewFrontendEventJob(BackendEventSender(srv.URL, time.Second), sealer, nil, metrics)

	uid := int64(7)
	task, err := NewFrontendEventTask(FrontendEventPayload{
		EventID:     "e-1",
		UserID:      &uid,
		Action:      "PAGE_VIEW",
		Page:        "/egitim",
		Details:     "Viewed /egitim",
		SealedToken: sealed,
	})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, "PAGE_VIEW", got["action"])
	assert.Equal(t, "/egitim", got["page"])
	assert.Equal(t, float64(7), got["userId"])
}

func TestFrontendEventJobDropsRejectedEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewFrontendEventJob(BackendEventSender(srv.URL, time.Second), nil, nil, metrics)

	task, err := NewFrontendEventTask(FrontendEventPayload{Action: "BUTTON_CLICK"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	count, err := testutil.GatherAndCount(reg, "portal_frontend_events_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFrontendEventJobRetriesServerErrors(t *testing.T) {
	job := NewFrontendEventJob(func(context.Context, string, backend.FrontendEvent) error {
		return errors.New("connection reset")
	}, nil, nil, nil)

	task, err := NewFrontendEventTask(FrontendEventPayload{Action: "FORM_SUBMIT"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestFrontendEventJobSkipsGarbage(t *testing.T) {
	job := NewFrontendEventJob(nil, nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeFrontendEvent, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}
