// Package engine implements the alert derivation rules and the escalation
// sweep. Each rule is an independent reactive procedure: it inspects one
// write event and conditionally emits an alert through the quota-guarded
// store. A failed alert insert never fails the triggering write.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldops/ticket-sentinel/internal/authz"
	"github.com/fieldops/ticket-sentinel/internal/metrics"
	"github.com/fieldops/ticket-sentinel/internal/notify"
	"github.com/fieldops/ticket-sentinel/internal/quota"
	"github.com/fieldops/ticket-sentinel/internal/store"
	"github.com/fieldops/ticket-sentinel/internal/window"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// ErrMalformedEvent is returned when an inbound event is missing a field
// the rules need. Unlike every other failure in this package, it rejects
// the triggering write: the engine cannot evaluate it safely.
var ErrMalformedEvent = errors.New("malformed event")

const (
	defaultFailedLoginThreshold = 5
	defaultFailedLoginWindow    = time.Hour
	defaultStaleAfter           = 24 * time.Hour
)

// Engine evaluates derivation rules against inbound write events and runs
// the escalation sweep.
type Engine struct {
	store    store.Store
	authz    *authz.Evaluator
	window   *window.Evaluator
	notifier notify.Notifier
	log      *slog.Logger
	tracer   trace.Tracer

	failedLoginThreshold int
	failedLoginWindow    time.Duration
	staleAfter           time.Duration
	notifyFloor          domain.Severity
}

// NewEngine creates an Engine with injected dependencies. The store doubles
// as the authorization directory and the failed-login counter.
func NewEngine(s store.Store, opts ...Option) *Engine {
	eng := &Engine{
		store:                s,
		authz:                authz.NewEvaluator(s),
		window:               window.NewEvaluator(s),
		notifier:             notify.NewNoOpNotifier(slog.Default()),
		log:                  slog.Default(),
		tracer:               otel.Tracer("ticket-sentinel/engine"),
		failedLoginThreshold: defaultFailedLoginThreshold,
		failedLoginWindow:    defaultFailedLoginWindow,
		staleAfter:           defaultStaleAfter,
		notifyFloor:          domain.SeverityHigh,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithNotifier sets the notification backend.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithFailedLoginThreshold sets the count a failed-login burst must exceed
// before an alert is raised.
func WithFailedLoginThreshold(n int) Option {
	return func(e *Engine) {
		e.failedLoginThreshold = n
	}
}

// WithFailedLoginWindow sets the trailing window for burst detection.
func WithFailedLoginWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.failedLoginWindow = d
	}
}

// WithStaleAfter sets how old an unresolved alert must be before the sweep
// escalates it.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Engine) {
		e.staleAfter = d
	}
}

// WithNotifyFloor sets the minimum severity forwarded to the notifier.
func WithNotifyFloor(s domain.Severity) Option {
	return func(e *Engine) {
		e.notifyFloor = s
	}
}

// ListAlerts exposes the alert read surface to reporting and UI layers.
func (eng *Engine) ListAlerts(ctx context.Context, q *store.AlertQuery) ([]domain.Alert, error) {
	return eng.store.ListAlerts(ctx, q)
}

// ResolveAlert marks an alert resolved on behalf of an external caller.
func (eng *Engine) ResolveAlert(ctx context.Context, id int64) error {
	return eng.store.ResolveAlert(ctx, id)
}

// raiseAlert pushes an alert through the quota-guarded insertion path.
// Every failure is recovered here: quota rejections are logged and
// counted, anything else is logged. The caller's write proceeds either way.
func (eng *Engine) raiseAlert(ctx context.Context, a *domain.Alert) {
	if err := eng.store.CreateAlert(ctx, a); err != nil {
		if errors.Is(err, quota.ErrDailyQuotaExceeded) {
			metrics.QuotaRejectionsTotal.Inc()
			eng.log.Warn("alert suppressed by daily quota",
				"user_id", stringOrEmpty(a.UserID),
				"type", a.Type,
				"severity", a.Severity,
			)
			return
		}
		eng.log.Error("creating alert failed", "type", a.Type, "error", err)
		return
	}

	metrics.AlertsCreatedTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()

	if a.Severity.Rank() >= eng.notifyFloor.Rank() {
		if err := eng.notifier.SendAlert(ctx, notify.PayloadFor(a)); err != nil {
			metrics.NotificationFailuresTotal.Inc()
			eng.log.Error("notification failed", "alert_id", a.ID, "error", err)
		}
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
