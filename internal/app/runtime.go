package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv makes the binaries return before opening any connection.
const TestModeEnv = "PORTAL_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether the application should skip runtime side effects.
// The environment is read on first use.
func InTestMode() bool {
	if on := testMode.Load(); on != nil {
		return *on
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads TestModeEnv, accepting any strconv.ParseBool form.
func RefreshTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(&on)
	return on
}
