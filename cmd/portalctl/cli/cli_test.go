package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/akademi/egitim-portal/internal/auth"
	"github.com/akademi/egitim-portal/internal/backend"
	"github.com/akademi/egitim-portal/jobs"
)

type stubAuthn struct {
	resp  *backend.LoginResponse
	err   error
	calls int
}

func (s *stubAuthn) Login(ctx context.Context, email, password string) (*backend.LoginResponse, error) {
	s.calls++
	return s.resp, s.err
}

func trainerLogin() *stubAuthn {
	return &stubAuthn{resp: &backend.LoginResponse{
		Token:   "opaque-token",
		ID:      7,
		Email:   "egitmen@example.com",
		AdSoyad: "Ayşe Yılmaz",
		Rol:     "EGITMEN",
	}}
}

func newSessionCLI(t *testing.T, storage auth.Storage, authn auth.Authenticator) *SessionCLI {
	t.Helper()
	c, err := NewSessionCLI(auth.NewStore(storage, authn))
	require.NoError(t, err)
	return c
}

func capture(jsonOutput bool) (Output, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	return Output{JSONOutput: jsonOutput, Stdout: stdout, Stderr: stderr}, stdout, stderr
}

func TestLoginPersistsSessionForLaterCommands(t *testing.T) {
	storage := auth.NewMemoryStorage()
	authn := trainerLogin()

	out, stdout, stderr := capture(true)
	code := newSessionCLI(t, storage, authn).LoginCommand(context.Background(), LoginOptions{
		Output:   out,
		Email:    " egitmen@example.com ",
		Password: "secret",
	})
	require.Equal(t, ExitOK, code)
	require.Empty(t, stderr.String())

	var summary PrincipalSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.Equal(t, int64(7), summary.ID)
	require.Equal(t, "EGITMEN", summary.Role)
	require.Contains(t, summary.Permissions, "education.view")
	require.NotContains(t, summary.Permissions, "education.create")

	out, stdout, _ = capture(false)
	code = newSessionCLI(t, storage, authn).WhoamiCommand(context.Background(), out)
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout.String(), "Ayşe Yılmaz <egitmen@example.com>")
	require.Contains(t, stdout.String(), "Rol: EGITMEN")
	require.Equal(t, 1, authn.calls)
}

func TestLoginValidationErrorsSkipBackend(t *testing.T) {
	authn := trainerLogin()
	out, _, stderr := capture(false)
	code := newSessionCLI(t, auth.NewMemoryStorage(), authn).LoginCommand(context.Background(), LoginOptions{
		Output: out,
		Email:  "not-an-email",
	})
	require.Equal(t, ExitError, code)
	require.Zero(t, authn.calls)
	require.Contains(t, stderr.String(), "Email: Geçerli bir e-posta adresi girin")
	require.Contains(t, stderr.String(), "Password: Şifre gerekli")
}

func TestLoginBackendRejection(t *testing.T) {
	authn := &stubAuthn{err: &backend.APIError{Status: 401, Message: "Geçersiz e-posta veya şifre"}}
	out, _, stderr := capture(false)
	code := newSessionCLI(t, auth.NewMemoryStorage(), authn).LoginCommand(context.Background(), LoginOptions{
		Output:   out,
		Email:    "a@example.com",
		Password: "wrong",
	})
	require.Equal(t, ExitError, code)
	require.Contains(t, stderr.String(), "Geçersiz e-posta veya şifre")
}

func TestWhoamiWithoutSession(t *testing.T) {
	out, _, stderr := capture(false)
	code := newSessionCLI(t, auth.NewMemoryStorage(), trainerLogin()).WhoamiCommand(context.Background(), out)
	require.Equal(t, ExitNoSession, code)
	require.Contains(t, stderr.String(), "not logged in")
}

func TestCanCommand(t *testing.T) {
	storage := auth.NewMemoryStorage()
	authn := trainerLogin()
	out, _, _ := capture(false)
	require.Equal(t, ExitOK, newSessionCLI(t, storage, authn).LoginCommand(context.Background(), LoginOptions{
		Output: out, Email: "egitmen@example.com", Password: "secret",
	}))

	t.Run("any grant", func(t *testing.T) {
		out, stdout, _ := capture(true)
		code := newSessionCLI(t, storage, authn).CanCommand(context.Background(), CanOptions{
			Output: out,
			Grants: []string{"education.create", "education.view"},
		})
		require.Equal(t, ExitOK, code)
		var result CanResult
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		require.True(t, result.Allowed)
		require.Equal(t, map[string]bool{"education.create": false, "education.view": true}, result.Grants)
	})

	t.Run("all grants", func(t *testing.T) {
		out, stdout, _ := capture(false)
		code := newSessionCLI(t, storage, authn).CanCommand(context.Background(), CanOptions{
			Output: out,
			Grants: []string{"education.create", "education.view"},
			All:    true,
		})
		require.Equal(t, ExitDenied, code)
		require.Contains(t, stdout.String(), "education.create")
	})

	t.Run("malformed grant", func(t *testing.T) {
		out, _, stderr := capture(false)
		code := newSessionCLI(t, storage, authn).CanCommand(context.Background(), CanOptions{
			Output: out,
			Grants: []string{"education"},
		})
		require.Equal(t, ExitError, code)
		require.NotEmpty(t, stderr.String())
	})
}

func TestLogoutClearsSession(t *testing.T) {
	storage := auth.NewMemoryStorage()
	authn := trainerLogin()
	out, _, _ := capture(false)
	require.Equal(t, ExitOK, newSessionCLI(t, storage, authn).LoginCommand(context.Background(), LoginOptions{
		Output: out, Email: "egitmen@example.com", Password: "secret",
	}))

	require.Equal(t, ExitOK, newSessionCLI(t, storage, authn).LogoutCommand(context.Background(), out))
	require.Equal(t, ExitNoSession, newSessionCLI(t, storage, authn).WhoamiCommand(context.Background(), out))

	_, ok, err := storage.Get(context.Background(), auth.EntryToken)
	require.NoError(t, err)
	require.False(t, ok)
}

type stubInspector struct {
	known   []string
	info    *asynq.QueueInfo
	err     error
	retries []*asynq.TaskInfo
	queues  []string
}

func (s *stubInspector) Queues() ([]string, error) {
	return s.known, nil
}

func (s *stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	s.queues = append(s.queues, queue)
	return s.info, s.err
}

func (s *stubInspector) ListRetryTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return s.retries, nil
}

func TestQueueCommandJSON(t *testing.T) {
	inspector := &stubInspector{
		known:   []string{jobs.QueueEvents},
		info:    &asynq.QueueInfo{Queue: jobs.QueueEvents, Pending: 4, Active: 1, Retry: 2},
		retries: []*asynq.TaskInfo{{ID: "evt-1", Retried: 3, LastErr: "backend: 503"}},
	}
	out, stdout, stderr := capture(true)
	code := NewQueueCLIWithInspector(inspector).QueueCommand(context.Background(), QueueOptions{Output: out, RetrySample: 5})
	require.Equal(t, ExitOK, code)
	require.Empty(t, stderr.String())
	require.Equal(t, []string{jobs.QueueEvents}, inspector.queues)

	var stats QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Equal(t, 4, stats.Pending)
	require.Equal(t, 2, stats.Retry)
	require.Equal(t, []RetryEntry{{ID: "evt-1", Retried: 3, LastError: "backend: 503"}}, stats.Retrying)
}

func TestQueueCommandMissingQueueReportsZero(t *testing.T) {
	inspector := &stubInspector{known: []string{jobs.QueueDefault}}
	out, stdout, _ := capture(false)
	code := NewQueueCLIWithInspector(inspector).QueueCommand(context.Background(), QueueOptions{Output: out})
	require.Equal(t, ExitOK, code)
	require.Contains(t, stdout.String(), "queue events (running)")
	require.Contains(t, stdout.String(), "pending:   0")
}

func TestQueueCommandError(t *testing.T) {
	inspector := &stubInspector{known: []string{jobs.QueueEvents}, err: errors.New("dial tcp: refused")}
	out, _, stderr := capture(false)
	code := NewQueueCLIWithInspector(inspector).QueueCommand(context.Background(), QueueOptions{Output: out})
	require.Equal(t, ExitError, code)
	require.Contains(t, stderr.String(), "dial tcp: refused")
}
