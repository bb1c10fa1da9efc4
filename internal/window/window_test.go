package window

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCounter captures the bounds passed to CountFailedLogins and
// returns a canned count.
type recordingCounter struct {
	gotIP    string
	gotSince time.Time
	gotUntil time.Time
	count    int
	err      error
}

func (c *recordingCounter) CountFailedLogins(
	_ context.Context,
	ipAddress string,
	since, until time.Time,
) (int, error) {
	c.gotIP = ipAddress
	c.gotSince = since
	c.gotUntil = until
	return c.count, c.err
}

func TestEvaluator_FailedLogins(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	counter := &recordingCounter{count: 7}
	e := NewEvaluator(counter)

	got, err := e.FailedLogins(context.Background(), "10.0.0.1", time.Hour, ref)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	assert.Equal(t, "10.0.0.1", counter.gotIP)
	assert.Equal(t, ref.Add(-time.Hour), counter.gotSince)
	assert.Equal(t, ref, counter.gotUntil)
}

func TestEvaluator_FailedLogins_PropagatesError(t *testing.T) {
	t.Parallel()

	counter := &recordingCounter{err: assert.AnError}
	e := NewEvaluator(counter)

	_, err := e.FailedLogins(context.Background(), "10.0.0.1", time.Hour, time.Now())
	require.ErrorIs(t, err, assert.AnError)
}
