// Package globaltime is the process clock. Pipeline stages, persistence
// timestamps and API defaults read time through it so tests can pin a
// fixed instant.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

// UTC is the canonical form for everything the aggregator stores.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime pins the clock until ResetTime. Test-only.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
