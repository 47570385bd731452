// Package globaltime centralizes wall-clock access so tests can pin time.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

// UTC returns the current time in UTC.
func UTC() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc().UTC()
}

// SetForTest replaces the clock and returns a restore function.
func SetForTest(fixed time.Time) func() {
	mu.Lock()
	nowFunc = func() time.Time { return fixed }
	mu.Unlock()
	return func() {
		mu.Lock()
		nowFunc = time.Now
		mu.Unlock()
	}
}
