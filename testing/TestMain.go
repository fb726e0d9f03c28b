package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// testEnv holds the variables the binaries require before they reach the
// test-mode short circuit.
var testEnv = map[string]string{
	"PORTAL_TEST_MODE": "1",
	"SESSION_SECRET":   "test-session-secret-0123456789abcdef",
	"CSRF_SECRET":      "test-csrf-secret",
	"EVENTS_ENABLED":   "false",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testEnv {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
