package events

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/internal/shared"
	"github.com/akademi/egitim-portal/jobs"
)

type fakeQueue struct {
	mu       sync.Mutex
	payloads []jobs.FrontendEventPayload
	err      error
}

func (q *fakeQueue) EnqueueFrontendEvent(_ context.Context, payload jobs.FrontendEventPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) all() []jobs.FrontendEventPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]jobs.FrontendEventPayload(nil), q.payloads...)
}

type countingObserver struct {
	ok, failed int
}

func (o *countingObserver) ObserveEvent(_ string, err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

type loginFunc func(ctx context.Context, email, password string) (*backend.LoginResponse, error)

func (f loginFunc) Login(ctx context.Context, email, password string) (*backend.LoginResponse, error) {
	return f(ctx, email, password)
}

func signedInContext(t *testing.T) context.Context {
	t.Helper()
	store := auth.NewStore(auth.NewMemoryStorage(), loginFunc(func(context.Context, string, string) (*backend.LoginResponse, error) {
		return &backend.LoginResponse{Token: "user-token", ID: 42, Email: "egitmen@akademi.com", Rol: "EGITMEN"}, nil
	}))
	_, err := store.Login(context.Background(), auth.Credentials{Email: "egitmen@akademi.com", Password: "x"})
	require.NoError(t, err)
	return auth.ContextWithStore(context.Background(), store, "/egitim")
}

func newSealer(t *testing.T) *shared.TokenSealer {
	t.Helper()
	sealer, err := shared.NewTokenSealer("events-secret-events-secret-1234")
	require.NoError(t, err)
	return sealer
}

func TestRecordCarriesUserAndSealedToken(t *testing.T) {
	queue := &fakeQueue{}
	sealer := newSealer(t)
	observer := &countingObserver{}
	rec := NewRecorder(queue, sealer, nil, observer)

	rec.ButtonClick(signedInContext(t), "/egitim", "Kaydet", "Eğitim formu")

	got := queue.all()
	require.Len(t, got, 1)
	assert.Equal(t, ActionButtonClick, got[0].Action)
	assert.Equal(t, "/egitim", got[0].Page)
	assert.Equal(t, "Kaydet - Eğitim formu", got[0].Details)
	require.NotNil(t, got[0].UserID)
	assert.Equal(t, int64(42), *got[0].UserID)
	assert.NotEmpty(t, got[0].EventID)
	assert.NotContains(t, got[0].SealedToken, "user-token")

	opened, err := sealer.Open(got[0].SealedToken)
	require.NoError(t, err)
	assert.Equal(t, "user-token", opened)
	assert.Equal(t, 1, observer.ok)
}

func TestRecordWithoutSessionHasNullUser(t *testing.T) {
	queue := &fakeQueue{}
	NewRecorder(queue, newSealer(t), nil, nil).PageView(context.Background(), "/login")

	got := queue.all()
	require.Len(t, got, 1)
	assert.Nil(t, got[0].UserID)
	assert.Empty(t, got[0].SealedToken)
	assert.Equal(t, "Viewed /login", got[0].Details)
}

func TestRecordSwallowsQueueFailures(t *testing.T) {
	observer := &countingObserver{}
	rec := NewRecorder(&fakeQueue{err: errors.New("redis down")}, nil, nil, observer)
	assert.NotPanics(t, func() {
		rec.FormSubmit(context.Background(), "/payments/create", "Ödeme Formu", "")
	})
	assert.Equal(t, 1, observer.failed)
}

func TestDisabledRecorderIsInert(t *testing.T) {
	var nilRecorder *Recorder
	assert.False(t, nilRecorder.Enabled())
	rec := NewRecorder(nil, nil, nil, nil)
	assert.False(t, rec.Enabled())
	rec.PageView(context.Background(), "/egitim")

	called := false
	h := rec.PageViews(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/egitim", nil))
	assert.True(t, called)
}

func TestPageViewsRecordsSuccessfulGets(t *testing.T) {
	queue := &fakeQueue{}
	rec := NewRecorder(queue, nil, nil, nil)

	r := chi.NewRouter()
	r.Use(rec.PageViews)
	r.Get("/egitim", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Get("/payments", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/login", http.StatusSeeOther) })
	r.Get("/static/css/portal.css", func(w http.ResponseWriter, r *http.Request) {})
	r.Post("/egitim", func(w http.ResponseWriter, r *http.Request) {})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/egitim", nil),
		httptest.NewRequest(http.MethodGet, "/payments", nil),
		httptest.NewRequest(http.MethodGet, "/static/css/portal.css", nil),
		httptest.NewRequest(http.MethodGet, "/missing", nil),
		httptest.NewRequest(http.MethodPost, "/egitim", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := queue.all()
	require.Len(t, got, 1)
	assert.Equal(t, ActionPageView, got[0].Action)
	assert.Equal(t, "/egitim", got[0].Page)
}

func TestHandlerAcceptsClickEvents(t *testing.T) {
	queue := &fakeQueue{}
	h := NewHandler(NewRecorder(queue, nil, nil, nil), nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	body := bytes.NewBufferString(`{"action":"BUTTON_CLICK","name":"Sil","details":"Eğitim #3"}`)
	req := httptest.NewRequest(http.MethodPost, "/events", body)
	req.Header.Set("Referer", "http://portal.local/egitim/3?tab=1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	got := queue.all()
	require.Len(t, got, 1)
	assert.Equal(t, "/egitim/3", got[0].Page)
	assert.Equal(t, "Sil - Eğitim #3", got[0].Details)
}

func TestHandlerRejectsInvalidEvents(t *testing.T) {
	queue := &fakeQueue{}
	h := NewHandler(NewRecorder(queue, nil, nil, nil), nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	for _, body := range []string{
		`{`,
		`{"action":""}`,
		`{"action":"click"}`,
		`{"action":"BUTTON_CLICK","page":"http://evil"}`,
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Empty(t, queue.all())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Kaydet", Describe("Kaydet", ""))
	assert.Equal(t, "Kaydet - x", Describe("Kaydet", "x"))
}
