// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gen192-dev/gen192/lib/clock"
)

// rateLimitTracker mirrors GitHub's rate limit state out of response
// headers so the client can hold requests instead of burning them
// into 403s. Every response updates the remaining count and reset
// time; wait blocks new requests while the quota is known to be
// exhausted.
type rateLimitTracker struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool // set once headers have been seen
	clock     clock.Clock
}

func newRateLimitTracker(clk clock.Clock) *rateLimitTracker {
	return &rateLimitTracker{clock: clk}
}

// update records the limit state carried on a response. Responses
// without both rate limit headers (or with malformed values) are
// ignored.
func (tracker *rateLimitTracker) update(header http.Header) {
	remaining, err := strconv.Atoi(header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}

	tracker.mu.Lock()
	tracker.remaining = remaining
	tracker.reset = time.Unix(resetUnix, 0)
	tracker.known = true
	tracker.mu.Unlock()
}

// wait blocks until the reset time when the quota is known to be
// exhausted, and returns immediately otherwise. The only error is
// context cancellation during the wait.
func (tracker *rateLimitTracker) wait(ctx context.Context) error {
	tracker.mu.Lock()
	exhausted := tracker.known && tracker.remaining <= 0
	pause := tracker.reset.Sub(tracker.clock.Now())
	tracker.mu.Unlock()

	if !exhausted || pause <= 0 {
		return nil
	}

	select {
	case <-tracker.clock.After(pause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryAfter derives a backoff from a rate-limited response:
// Retry-After in seconds (secondary limits) when present, otherwise
// the X-RateLimit-Reset timestamp (primary limits). Zero means the
// response carried no usable backoff.
func (tracker *rateLimitTracker) retryAfter(header http.Header) time.Duration {
	if seconds, err := strconv.Atoi(header.Get("Retry-After")); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if resetUnix, err := strconv.ParseInt(header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if pause := time.Unix(resetUnix, 0).Sub(tracker.clock.Now()); pause > 0 {
			return pause
		}
	}

	return 0
}
