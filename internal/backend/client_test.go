package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSendsBackendFieldNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sorumlu@akademi.com", body["email"])
		assert.Equal(t, "sorumlu123", body["sifre"])
		_, _ = w.Write([]byte(`{"token":"t-1","id":7,"email":"sorumlu@akademi.com","adSoyad":"Eğitim Sorumlusu","rol":"SORUMLU"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Login(context.Background(), "sorumlu@akademi.com", "sorumlu123")
	require.NoError(t, err)
	assert.Equal(t, "t-1", resp.Token)
	assert.Equal(t, int64(7), resp.ID)
	assert.Nil(t, resp.Permissions)
}

func TestBearerTokenAttached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		assert.Equal(t, "ad,asc", r.URL.Query().Get("sort"))
		assert.Equal(t, "Plan", r.URL.Query().Get("durum"))
		_, _ = w.Write([]byte(`{"content":[{"id":1,"ad":"Go"}],"totalElements":21,"totalPages":3,"number":2,"size":10}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(func(context.Context) string { return "abc" }))
	page, err := c.Resource("/egitim").List(context.Background(), ListParams{Page: 2, Size: 10, Sort: "ad,asc", Filters: map[string]string{"durum": "Plan", "empty": ""}})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(1), page.Content[0].ID())
	assert.Equal(t, 21, page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
}

func TestListAcceptsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL).Resource("/kategori").List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.Equal(t, 2, page.TotalElements)
}

func TestAuthFailureHook(t *testing.T) {
	status := http.StatusForbidden
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"status":403,"error":"Forbidden","message":"Bu işlem için yetkiniz yok"}`))
	}))
	defer srv.Close()

	var hooked []*APIError
	c := NewClient(srv.URL, WithAuthFailureHook(func(ctx context.Context, err *APIError) {
		hooked = append(hooked, err)
	}))

	err := c.Resource("/odeme").Delete(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
	require.Len(t, hooked, 1)
	assert.Equal(t, "/odeme/3", hooked[0].Path)
	assert.Equal(t, "Bu işlem için yetkiniz yok", hooked[0].Message)
	assert.Equal(t, "Forbidden", hooked[0].Code)

	status = http.StatusUnauthorized
	_, err = c.Resource("/odeme").Get(context.Background(), 3)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Len(t, hooked, 2)

	// the login call is part of the auth flow and never triggers the hook
	_, err = c.Login(context.Background(), "a@b.c", "x")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Len(t, hooked, 2)
}

func TestNonAuthErrorsSkipHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Kayıt başka kayıtlarda kullanılıyor"}`))
	}))
	defer srv.Close()

	called := false
	c := NewClient(srv.URL, WithAuthFailureHook(func(context.Context, *APIError) { called = true }))
	err := c.Resource("/kategori").Delete(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, called)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Kayıt başka kayıtlarda kullanılıyor", apiErr.Message)
}

func TestListLogsDefaultsAndValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logs/errors", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("size"))
		_, _ = w.Write([]byte(`{"content":[],"totalElements":0,"totalPages":0}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.ListLogs(context.Background(), LogsErrors, ListParams{})
	require.NoError(t, err)

	_, err = c.ListLogs(context.Background(), LogCategory("bogus"), ListParams{})
	assert.Error(t, err)
}

func TestListFrontendLogsUsesPageNum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("pageNum"))
		assert.Equal(t, "/payments", q.Get("page"))
		assert.Equal(t, "PAGE_VIEW", q.Get("action"))
		_, _ = w.Write([]byte(`{"content":[{"id":1}],"totalElements":41,"totalPages":3}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL).ListLogs(context.Background(), LogsFrontend, ListParams{
		Page:    2,
		Filters: map[string]string{"page": "/payments", "action": "PAGE_VIEW"},
	})
	require.NoError(t, err)
	assert.Equal(t, 41, page.TotalElements)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Resource("/egitim").Get(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, isAPI := AsAPIError(err)
	assert.False(t, isAPI)
}

func TestCalculateTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "150.5", r.URL.Query().Get("unitPrice"))
		assert.Equal(t, "2", r.URL.Query().Get("quantity"))
		_, _ = w.Write([]byte(`301`))
	}))
	defer srv.Close()

	total, err := NewClient(srv.URL).CalculateTotal(context.Background(), 150.5, 2)
	require.NoError(t, err)
	assert.InDelta(t, 301.0, total, 0.0001)
}

func TestRoleHasPermission(t *testing.T) {
	role := Role{Permissions: []Permission{{ID: 3, Module: "payment", Action: "view"}}}
	assert.True(t, role.HasPermission(3))
	assert.False(t, role.HasPermission(4))
	assert.Equal(t, "payment.view", role.Permissions[0].Key())
}
