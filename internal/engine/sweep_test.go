package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/ticket-sentinel/internal/store"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

func seedAlert(t *testing.T, s *store.MemoryStore, sev domain.Severity, age time.Duration) *domain.Alert {
	t.Helper()
	userID := "u1"
	a := &domain.Alert{
		UserID:    &userID,
		Type:      domain.AlertJobRelated,
		Severity:  sev,
		Message:   "stale test alert",
		CreatedAt: time.Now().UTC().Add(-age),
	}
	require.NoError(t, s.CreateAlert(context.Background(), a))
	return a
}

func TestRunEscalationSweep(t *testing.T) {
	t.Parallel()

	eng, s := newTestEngine(t, WithStaleAfter(24*time.Hour))
	ctx := context.Background()

	stale := seedAlert(t, s, domain.SeverityLow, 48*time.Hour)
	fresh := seedAlert(t, s, domain.SeverityMedium, time.Hour)

	escalated, err := eng.RunEscalationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, escalated)

	alerts := listAll(t, s)
	byID := make(map[int64]domain.Alert, len(alerts))
	for _, a := range alerts {
		byID[a.ID] = a
	}

	assert.Equal(t, domain.SeverityMedium, byID[stale.ID].Severity)
	assert.Equal(t, domain.SeverityMedium, byID[fresh.ID].Severity)
}

func TestRunEscalationSweep_ImmediateRerunIsNoOp(t *testing.T) {
	t.Parallel()

	eng, s := newTestEngine(t, WithStaleAfter(24*time.Hour))
	ctx := context.Background()

	seedAlert(t, s, domain.SeverityLow, 72*time.Hour)

	escalated, err := eng.RunEscalationSweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, escalated)

	// The first sweep stamped the escalation time, so the alert is no
	// longer stale.
	escalated, err = eng.RunEscalationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, escalated)

	alerts := listAll(t, s)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityMedium, alerts[0].Severity)
}

func TestRunEscalationSweep_CriticalAndResolvedUntouched(t *testing.T) {
	t.Parallel()

	eng, s := newTestEngine(t, WithStaleAfter(24*time.Hour))
	ctx := context.Background()

	crit := seedAlert(t, s, domain.SeverityCritical, 72*time.Hour)
	resolved := seedAlert(t, s, domain.SeverityHigh, 72*time.Hour)
	require.NoError(t, s.ResolveAlert(ctx, resolved.ID))

	escalated, err := eng.RunEscalationSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, escalated)

	alerts := listAll(t, s)
	for _, a := range alerts {
		switch a.ID {
		case crit.ID:
			assert.Equal(t, domain.SeverityCritical, a.Severity)
		case resolved.ID:
			assert.Equal(t, domain.SeverityHigh, a.Severity)
		}
	}
}

func TestRunEscalationSweep_ClimbsOneStepPerSweepPeriod(t *testing.T) {
	t.Parallel()

	eng, ms := newTestEngine(t, WithStaleAfter(time.Millisecond))
	seedAlert(t, ms, domain.SeverityLow, time.Hour)

	// With a tiny staleness threshold each sweep sees the alert as stale
	// again, stepping low -> medium -> high -> critical, then stopping.
	for range 5 {
		time.Sleep(2 * time.Millisecond)
		_, err := eng.RunEscalationSweep(context.Background())
		require.NoError(t, err)
	}

	alerts := listAll(t, ms)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
}
