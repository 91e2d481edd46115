// Package limiter provides fixed-window attempt counting keyed by an
// identifier string. The window is fixed, not sliding: a burst at the
// window boundary can reach twice the nominal rate in the worst case.
// That is an accepted tradeoff for simplicity, shared by both backends.
//
// The limiter is policy-agnostic; every call site supplies its own
// maximum and window so answer verification (keyed by email) and other
// flows (keyed by user id) can run different policies on one instance.
package limiter

import (
	"context"
	"time"
)

// Limiter is the attempt counter shared by the orchestrator and the
// client flow. Allow reports whether this attempt may proceed and
// consumes a slot when it may.
type Limiter interface {
	// Allow creates or replaces the record when none exists or its
	// window has expired, rejects without mutating state once the
	// maximum is reached, and increments otherwise.
	Allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error)
}
