package engine

import (
	"context"
	"fmt"

	"github.com/fieldops/ticket-sentinel/internal/authz"
	"github.com/fieldops/ticket-sentinel/internal/metrics"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// RecordLoginAttempt ingests one login attempt and runs the failed-login
// burst rule. The attempt itself is always persisted first; rule failures
// after that point are logged, never returned.
func (eng *Engine) RecordLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error {
	ctx, span := eng.tracer.Start(ctx, "engine.RecordLoginAttempt")
	defer span.End()

	if a.IPAddress == "" {
		return fmt.Errorf("%w: login attempt missing ip address", ErrMalformedEvent)
	}

	if err := eng.store.InsertLoginAttempt(ctx, a); err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}
	metrics.EventsProcessedTotal.WithLabelValues("login_attempt").Inc()

	if !a.Success {
		eng.evaluateFailedLoginBurst(ctx, a)
	}

	return nil
}

// evaluateFailedLoginBurst raises a high security alert when the window
// count (inclusive of the attempt just written) exceeds the threshold. The
// rule fires on every attempt past the threshold; the daily quota is the
// valve against repeated firing.
func (eng *Engine) evaluateFailedLoginBurst(ctx context.Context, a *domain.LoginAttempt) {
	count, err := eng.window.FailedLogins(ctx, a.IPAddress, eng.failedLoginWindow, a.AttemptTime)
	if err != nil {
		eng.log.Error("failed-login window count failed", "ip", a.IPAddress, "error", err)
		return
	}
	if count <= eng.failedLoginThreshold {
		return
	}

	metrics.FailedLoginBurstsTotal.Inc()
	eng.log.Info("failed-login burst detected",
		"ip", a.IPAddress,
		"count", count,
		"window", eng.failedLoginWindow,
	)

	eng.raiseAlert(ctx, &domain.Alert{
		UserID:    a.UserID,
		Type:      domain.AlertSecurity,
		Severity:  domain.SeverityHigh,
		Message:   fmt.Sprintf("Multiple failed login attempts from IP: %s", a.IPAddress),
		CreatedAt: a.AttemptTime,
	})
}

// RecordAuditEvent ingests one audited write and runs the
// unauthorized-access rule. Action/table combinations outside the policy
// matrix are recorded but not evaluated.
func (eng *Engine) RecordAuditEvent(ctx context.Context, ev *domain.AuditEvent) error {
	ctx, span := eng.tracer.Start(ctx, "engine.RecordAuditEvent")
	defer span.End()

	if ev.UserID == "" {
		return fmt.Errorf("%w: audit event missing actor", ErrMalformedEvent)
	}
	if ev.TableName == "" {
		return fmt.Errorf("%w: audit event missing table name", ErrMalformedEvent)
	}
	if !ev.Action.Valid() {
		return fmt.Errorf("%w: audit event has unknown action %q", ErrMalformedEvent, ev.Action)
	}

	if err := eng.store.InsertAuditEvent(ctx, ev); err != nil {
		return fmt.Errorf("recording audit event: %w", err)
	}
	metrics.EventsProcessedTotal.WithLabelValues("audit_event").Inc()

	if !authz.Covered(ev.Action, ev.TableName) {
		return nil
	}

	allowed, err := eng.authz.Decide(ctx, ev.UserID, ev.Action, ev.TableName, ev.RecordID)
	if err != nil {
		// The question could not be answered; the audit write stands and
		// the failure is surfaced operationally.
		eng.log.Error("authorization check failed",
			"actor", ev.UserID,
			"table", ev.TableName,
			"action", ev.Action,
			"error", err,
		)
		return nil
	}
	if allowed {
		return nil
	}

	metrics.UnauthorizedAttemptsTotal.Inc()
	eng.log.Warn("unauthorized access attempt",
		"actor", ev.UserID,
		"table", ev.TableName,
		"action", ev.Action,
		"record_id", ev.RecordID,
	)

	actor := ev.UserID
	eng.raiseAlert(ctx, &domain.Alert{
		UserID:   &actor,
		Type:     domain.AlertSecurity,
		Severity: domain.SeverityCritical,
		Message: fmt.Sprintf(
			"Unauthorized access attempt by user: %s on table: %s, action: %s",
			ev.UserID, ev.TableName, ev.Action,
		),
		CreatedAt: ev.CreatedAt,
	})

	return nil
}

// RecordTicketEntry ingests a ticket entry insert or update and runs the
// job-followup rule. The rule fires on every qualifying write, not only on
// the first transition into the qualifying state.
func (eng *Engine) RecordTicketEntry(ctx context.Context, e *domain.TicketEntry) error {
	ctx, span := eng.tracer.Start(ctx, "engine.RecordTicketEntry")
	defer span.End()

	if e.UserID == "" {
		return fmt.Errorf("%w: ticket entry missing user", ErrMalformedEvent)
	}
	if e.JobName == "" {
		return fmt.Errorf("%w: ticket entry missing job name", ErrMalformedEvent)
	}

	if err := eng.store.UpsertTicketEntry(ctx, e); err != nil {
		return fmt.Errorf("recording ticket entry: %w", err)
	}
	metrics.EventsProcessedTotal.WithLabelValues("ticket_entry").Inc()

	if !e.FollowupNeeded() {
		return nil
	}

	owner := e.UserID
	entryID := e.ID
	eng.raiseAlert(ctx, &domain.Alert{
		UserID:   &owner,
		EntryID:  &entryID,
		Type:     domain.AlertJobRelated,
		Severity: domain.SeverityMedium,
		Message:  fmt.Sprintf("Action required for job: %s", e.JobName),
	})

	return nil
}

// RecordMiscEntry ingests a misc entry write. No rule fires on misc
// entries; they are kept so ownership checks cover both entry tables.
func (eng *Engine) RecordMiscEntry(ctx context.Context, e *domain.TicketMiscEntry) error {
	ctx, span := eng.tracer.Start(ctx, "engine.RecordMiscEntry")
	defer span.End()

	if e.UserID == "" {
		return fmt.Errorf("%w: misc entry missing user", ErrMalformedEvent)
	}
	if e.MiscName == "" {
		return fmt.Errorf("%w: misc entry missing name", ErrMalformedEvent)
	}

	if err := eng.store.UpsertMiscEntry(ctx, e); err != nil {
		return fmt.Errorf("recording misc entry: %w", err)
	}
	metrics.EventsProcessedTotal.WithLabelValues("misc_entry").Inc()

	return nil
}
