package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < createAlertMaxRetries; attempt++ {
		base := createAlertRetryBase << attempt

		// Jitter keeps the delay within [base, base*1.5).
		for i := 0; i < 100; i++ {
			d := retryDelay(attempt)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, base+base/2)
		}
	}
}

func TestRetryDelay_GrowsPerAttempt(t *testing.T) {
	t.Parallel()

	assert.Less(t, retryDelay(0), 2*createAlertRetryBase)
	assert.GreaterOrEqual(t, retryDelay(2), 4*createAlertRetryBase)
	assert.Less(t, retryDelay(2), 6*createAlertRetryBase)
}
