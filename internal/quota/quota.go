// Package quota implements the per-user daily cap on non-critical alert
// creation. The guard is a pure policy decision; the surrounding store is
// responsible for running the count and the insert atomically so that two
// concurrent inserts cannot both slip under the cap.
package quota

import (
	"errors"
	"time"

	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// DefaultDailyCap is the number of non-critical alerts a user may accrue
// per calendar day before further ones are rejected.
const DefaultDailyCap = 5

// ErrDailyQuotaExceeded is returned when an alert insert would push a user
// past the daily cap. Callers must recover locally: a quota rejection never
// fails the triggering business write and never produces a new alert.
var ErrDailyQuotaExceeded = errors.New("daily alert quota exceeded")

// Guard holds the quota policy.
type Guard struct {
	DailyCap int
}

// NewGuard returns a Guard with the given cap; zero or negative caps fall
// back to DefaultDailyCap.
func NewGuard(cap int) Guard {
	if cap <= 0 {
		cap = DefaultDailyCap
	}
	return Guard{DailyCap: cap}
}

// Admit decides whether an alert of the given severity may be created for a
// user who already has existing non-critical alerts today. Critical alerts
// always pass; the cap only applies below critical.
func (g Guard) Admit(severity domain.Severity, existing int) error {
	if severity == domain.SeverityCritical {
		return nil
	}
	if existing >= g.DailyCap {
		return ErrDailyQuotaExceeded
	}
	return nil
}

// Day truncates t to the start of its UTC calendar day. All bucket
// derivation goes through here so day boundaries cannot drift between the
// count and the insert.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
