// Package store defines the datastore abstraction for ticket-sentinel.
// Rule evaluation depends on the Store interface, never on a concrete
// implementation, so the engine can be unit-tested without a live database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines all data access for ticket-sentinel.
//
// CreateAlert is the single alert insertion path: implementations enforce
// the daily quota atomically with the insert and return
// quota.ErrDailyQuotaExceeded on rejection. EscalateStaleAlerts must be
// idempotent with respect to immediate re-runs.
type Store interface {
	// Users
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// Login attempts (append-only)
	InsertLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error
	CountFailedLogins(ctx context.Context, ipAddress string, since, until time.Time) (int, error)

	// Audit events (append-only)
	InsertAuditEvent(ctx context.Context, ev *domain.AuditEvent) error

	// Ticket entries
	UpsertTicketEntry(ctx context.Context, e *domain.TicketEntry) error
	UpsertMiscEntry(ctx context.Context, e *domain.TicketMiscEntry) error
	OwnsEntry(ctx context.Context, userID string, recordID int64) (bool, error)

	// Alerts
	CreateAlert(ctx context.Context, a *domain.Alert) error
	ListAlerts(ctx context.Context, q *AlertQuery) ([]domain.Alert, error)
	CountDailyAlerts(ctx context.Context, userID string, day time.Time) (int, error)
	ResolveAlert(ctx context.Context, id int64) error
	EscalateStaleAlerts(ctx context.Context, before time.Time) (int, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
