package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload() *AlertPayload {
	return &AlertPayload{
		AlertType: "security",
		Severity:  "critical",
		Message:   "Unauthorized access attempt by user: ghost on table: users, action: DELETE",
		UserID:    "ghost",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifier_SendAlert(t *testing.T) {
	t.Parallel()

	var gotBody AlertPayload
	var gotContentType, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL,
		WithHeaders(map[string]string{"Authorization": "Bearer token123"}),
	)

	require.NoError(t, n.SendAlert(context.Background(), testPayload()))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Bearer token123", gotAuth)
	assert.Equal(t, "security", gotBody.AlertType)
	assert.Equal(t, "critical", gotBody.Severity)
	assert.Equal(t, "ghost", gotBody.UserID)
}

func TestWebhookNotifier_SendAlert_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.SendAlert(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestWebhookNotifier_SendAlert_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Exhaust the burst so the next send must wait, then cancel.
	n := NewWebhookNotifier(srv.URL, WithRateLimit(0.001, 1))
	require.NoError(t, n.SendAlert(context.Background(), testPayload()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := n.SendAlert(ctx, testPayload())
	require.Error(t, err)
}

func TestPayloadFor(t *testing.T) {
	t.Parallel()

	t.Run("attributed alert", func(t *testing.T) {
		t.Parallel()

		userID := "alice"
		a := &domain.Alert{
			UserID:    &userID,
			Type:      domain.AlertJobRelated,
			Severity:  domain.SeverityMedium,
			Message:   "Action required for job: Install router",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}

		p := PayloadFor(a)
		assert.Equal(t, "job-related", p.AlertType)
		assert.Equal(t, "medium", p.Severity)
		assert.Equal(t, "alice", p.UserID)
		assert.Equal(t, a.Message, p.Message)
		assert.Equal(t, a.CreatedAt, p.CreatedAt)
	})

	t.Run("unattributed alert has empty user", func(t *testing.T) {
		t.Parallel()

		p := PayloadFor(&domain.Alert{
			Type:     domain.AlertSecurity,
			Severity: domain.SeverityHigh,
			Message:  "Multiple failed login attempts from IP: 10.0.0.1",
		})
		assert.Empty(t, p.UserID)
	})
}

func TestNoOpNotifier(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(discardLogger())
	require.NoError(t, n.SendAlert(context.Background(), testPayload()))
}
