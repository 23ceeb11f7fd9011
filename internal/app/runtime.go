package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "ADVERTS_TEST_MODE"

// testMode caches ADVERTS_TEST_MODE; nil until first read.
var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should skip startup side effects such
// as binding ports or connecting to Redis.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the environment after it changed.
func RefreshTestMode() bool {
	on := os.Getenv(testModeEnv) == "1"
	testMode.Store(&on)
	return on
}
