package jobs

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQueueInfo struct {
	queues []string
	info   *asynq.QueueInfo
	err    error
}

func (s stubQueueInfo) Queues() ([]string, error) {
	return s.queues, nil
}

func (s stubQueueInfo) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func serveHealth(t *testing.T, reader QueueInfoReader) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(reader, nil).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/jobs", nil))
	return rec
}

func TestJobsHealthReportsEventQueue(t *testing.T) {
	rec := serveHealth(t, stubQueueInfo{queues: []string{QueueDefault, QueueEvents}, info: &asynq.QueueInfo{Queue: QueueEvents, Pending: 12, Retry: 2}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"events","pending":12,"retry":2,"paused":false}`, rec.Body.String())
}

func TestJobsHealthTreatsMissingQueueAsEmpty(t *testing.T) {
	rec := serveHealth(t, stubQueueInfo{queues: []string{QueueDefault}, err: errors.New("must not be called")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"events","pending":0,"retry":0,"paused":false}`, rec.Body.String())
}

func TestJobsHealthRedisDown(t *testing.T) {
	rec := serveHealth(t, stubQueueInfo{queues: []string{QueueEvents}, err: errors.New("dial tcp: refused")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	rec := serveHealth(t, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending":0`)
}
