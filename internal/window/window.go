// Package window computes event counts over trailing time windows.
package window

import (
	"context"
	"time"
)

// FailedLoginCounter is the read the evaluator needs from the store: the
// number of committed failed attempts for an IP with attempt_time in
// (since, until]. The lower bound is exclusive so that "more than N in the
// last hour" excludes ties exactly at the window edge.
type FailedLoginCounter interface {
	CountFailedLogins(ctx context.Context, ipAddress string, since, until time.Time) (int, error)
}

// Evaluator counts matching events in a trailing window ending at a
// reference time. It is a pure read; no caching, so the count always
// reflects every committed row up to and including the triggering one.
type Evaluator struct {
	counter FailedLoginCounter
}

// NewEvaluator creates an Evaluator backed by the given counter.
func NewEvaluator(c FailedLoginCounter) *Evaluator {
	return &Evaluator{counter: c}
}

// FailedLogins returns how many failed attempts from ipAddress fall within
// the window ending at ref, inclusive of ref itself.
func (e *Evaluator) FailedLogins(
	ctx context.Context,
	ipAddress string,
	window time.Duration,
	ref time.Time,
) (int, error) {
	return e.counter.CountFailedLogins(ctx, ipAddress, ref.Add(-window), ref)
}
