// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations for testability.
//
// Production code injects Real(); tests inject Fake() and advance time
// deterministically. Every function that would otherwise call time.Now,
// time.After, or time.Sleep accepts a Clock (or is a method on a struct
// carrying one) so that rate-limit backoff and run timing can be tested
// without real sleeps.
package clock

import "time"

// Clock provides the time operations used by the delivery pipeline:
// reading the current time (run timestamps, token expiry checks),
// waiting for a deadline (rate-limit backoff), and sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// Sleep pauses the current goroutine for at least duration d.
	// Equivalent to time.Sleep.
	Sleep(d time.Duration)
}
