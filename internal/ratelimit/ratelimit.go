// Package ratelimit implements a sliding-window request throttle used
// around API-style adapters that talk to abuse-sensitive upstreams.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most maxRequests within a trailing window. State lives
// in memory only and resets with the process.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	stamps      []time.Time
	now         func() time.Time
}

// New creates a sliding-window limiter.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Allow reports whether a request may proceed now, recording it if so.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.stamps) < l.maxRequests {
		l.stamps = append(l.stamps, now)
		return true
	}
	return false
}

// WaitTime returns how long until the oldest admitted request leaves the
// window. Zero when a request would be admitted immediately.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.stamps) < l.maxRequests {
		return 0
	}

	oldest := l.stamps[0]
	remaining := l.window - now.Sub(oldest)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// prune drops timestamps outside the trailing window. Must hold mu.
// Stamps are appended in order, so the retained suffix stays sorted.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	keep := 0
	for keep < len(l.stamps) && !l.stamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[keep:]...)
	}
}
