package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/ticket-sentinel/internal/metrics"
)

// RunEscalationSweep raises severity one step for every unresolved alert
// whose last escalation (or creation) is older than the staleness
// threshold, and returns how many alerts moved. Re-running immediately is
// a no-op: an alert climbs at most one step per elapsed period, so the
// sweep is safe to retry after partial failure and safe to run
// concurrently with foreground rule firings.
func (eng *Engine) RunEscalationSweep(ctx context.Context) (int, error) {
	ctx, span := eng.tracer.Start(ctx, "engine.RunEscalationSweep")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	cutoff := time.Now().UTC().Add(-eng.staleAfter)

	escalated, err := eng.store.EscalateStaleAlerts(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("escalation sweep: %w", err)
	}

	metrics.EscalatedAlertsTotal.Add(float64(escalated))
	eng.log.Info("escalation sweep complete",
		"escalated", escalated,
		"cutoff", cutoff,
	)

	return escalated, nil
}
