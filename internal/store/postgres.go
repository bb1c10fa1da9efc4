package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/ticket-sentinel/internal/quota"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

const defaultPoolSize = 10

// How many times a quota-guarded insert is retried after a serialization
// failure before the error is surfaced. Retries back off exponentially
// from createAlertRetryBase with a little jitter so colliding writers
// don't re-conflict in lockstep.
const (
	createAlertMaxRetries = 3
	createAlertRetryBase  = 10 * time.Millisecond
)

// pgSerializationFailure is the SQLSTATE Postgres raises when a
// serializable transaction conflicts with a concurrent one.
const pgSerializationFailure = "40001"

// PostgresStore implements Store using pgxpool (connection-pooled
// PostgreSQL). Requires live Postgres; covered by integration tests.
type PostgresStore struct {
	pool  *pgxpool.Pool
	guard quota.Guard
}

// NewPostgresStore creates a PostgresStore whose pool holds at most
// poolSize connections (defaultPoolSize when poolSize is not positive).
// The guard supplies the daily-quota policy enforced inside CreateAlert.
func NewPostgresStore(ctx context.Context, connString string, guard quota.Guard, poolSize int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	cfg.MaxConns = int32(poolSize)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, guard: guard}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// UpsertUser inserts or updates a user's role flags.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *domain.User) error {
	args := pgx.NamedArgs{
		"id":              u.ID,
		"email":           u.Email,
		"user_is_admin":   u.IsAdmin,
		"user_is_manager": u.IsManager,
	}

	if _, err := s.pool.Exec(ctx, queryUpsertUser, args); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id. Returns ErrNotFound for unknown ids.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.pool.QueryRow(ctx, queryGetUser, id).Scan(
		&u.ID, &u.Email, &u.IsAdmin, &u.IsManager,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// InsertLoginAttempt appends one login attempt.
func (s *PostgresStore) InsertLoginAttempt(ctx context.Context, a *domain.LoginAttempt) error {
	if a.AttemptTime.IsZero() {
		a.AttemptTime = time.Now().UTC()
	}

	args := pgx.NamedArgs{
		"user_id":      a.UserID,
		"email":        a.Email,
		"ip_address":   a.IPAddress,
		"login_origin": a.LoginOrigin,
		"success":      a.Success,
		"attempt_time": a.AttemptTime,
	}

	if err := s.pool.QueryRow(ctx, queryInsertLoginAttempt, args).Scan(&a.ID); err != nil {
		return fmt.Errorf("inserting login attempt: %w", err)
	}
	return nil
}

// CountFailedLogins counts failed attempts from ipAddress with
// attempt_time in (since, until].
func (s *PostgresStore) CountFailedLogins(
	ctx context.Context,
	ipAddress string,
	since, until time.Time,
) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, queryCountFailedLogins, ipAddress, since, until).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting failed logins: %w", err)
	}
	return count, nil
}

// InsertAuditEvent appends one audit event, assigning an id when absent.
func (s *PostgresStore) InsertAuditEvent(ctx context.Context, ev *domain.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var changesJSON []byte
	if ev.Changes != nil {
		var err error
		changesJSON, err = json.Marshal(ev.Changes)
		if err != nil {
			return fmt.Errorf("marshaling audit changes: %w", err)
		}
	}

	args := pgx.NamedArgs{
		"id":         ev.ID,
		"user_id":    ev.UserID,
		"action":     string(ev.Action),
		"table_name": ev.TableName,
		"record_id":  ev.RecordID,
		"changes":    changesJSON,
		"created_at": ev.CreatedAt,
	}

	if _, err := s.pool.Exec(ctx, queryInsertAuditEvent, args); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// UpsertTicketEntry inserts or updates a ticket entry by id.
func (s *PostgresStore) UpsertTicketEntry(ctx context.Context, e *domain.TicketEntry) error {
	args := pgx.NamedArgs{
		"id":                      e.ID,
		"user_id":                 e.UserID,
		"ticket_id":               e.TicketID,
		"job_name":                e.JobName,
		"job_materials_needed":    e.JobMaterialsNeeded,
		"job_access_needed":       e.JobAccessNeeded,
		"job_programming_changes": e.JobProgrammingChanges,
		"job_followup_required":   e.JobFollowupRequired,
	}

	err := s.pool.QueryRow(ctx, queryUpsertTicketEntry, args).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting ticket entry: %w", err)
	}
	return nil
}

// UpsertMiscEntry inserts or updates a misc entry by id.
func (s *PostgresStore) UpsertMiscEntry(ctx context.Context, e *domain.TicketMiscEntry) error {
	args := pgx.NamedArgs{
		"id":           e.ID,
		"user_id":      e.UserID,
		"misc_name":    e.MiscName,
		"misc_details": e.MiscDetails,
	}

	if err := s.pool.QueryRow(ctx, queryUpsertMiscEntry, args).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("upserting misc entry: %w", err)
	}
	return nil
}

// OwnsEntry reports whether a row with the given id belongs to userID in
// either entry table.
func (s *PostgresStore) OwnsEntry(ctx context.Context, userID string, recordID int64) (bool, error) {
	var owns bool
	if err := s.pool.QueryRow(ctx, queryOwnsEntry, recordID, userID).Scan(&owns); err != nil {
		return false, fmt.Errorf("checking entry ownership: %w", err)
	}
	return owns, nil
}

// CreateAlert inserts an alert after passing the quota guard. The count and
// the insert run in one serializable transaction so two concurrent inserts
// for the same user/day bucket cannot both see a count under the cap; on a
// serialization conflict the whole sequence is retried.
func (s *PostgresStore) CreateAlert(ctx context.Context, a *domain.Alert) error {
	if !a.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", a.Severity)
	}
	if a.Type == "" {
		return fmt.Errorf("alert type is required")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	var err error
	for attempt := 0; attempt < createAlertMaxRetries; attempt++ {
		err = s.createAlertTx(ctx, a)
		if err == nil || !isSerializationFailure(err) {
			return err
		}

		select {
		case <-time.After(retryDelay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("creating alert after %d attempts: %w", createAlertMaxRetries, err)
}

// retryDelay doubles per attempt and adds up to 50% jitter.
func retryDelay(attempt int) time.Duration {
	base := createAlertRetryBase << attempt
	return base + rand.N(base/2)
}

func (s *PostgresStore) createAlertTx(ctx context.Context, a *domain.Alert) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Unattributed alerts have no bucket; critical alerts always pass.
	if a.UserID != nil && a.Severity != domain.SeverityCritical {
		day := quota.Day(a.CreatedAt)

		var count int
		err := tx.QueryRow(ctx, queryCountDailyAlerts,
			*a.UserID, day, day.Add(24*time.Hour),
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("counting daily alerts: %w", err)
		}

		if err := s.guard.Admit(a.Severity, count); err != nil {
			return err
		}
	}

	args := pgx.NamedArgs{
		"user_id":    a.UserID,
		"group_id":   a.GroupID,
		"entry_id":   a.EntryID,
		"alert_type": string(a.Type),
		"severity":   string(a.Severity),
		"message":    a.Message,
		"created_at": a.CreatedAt,
	}

	if err := tx.QueryRow(ctx, queryCreateAlert, args).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}

	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure
}

// ListAlerts queries alerts with optional filters, newest first.
func (s *PostgresStore) ListAlerts(ctx context.Context, q *AlertQuery) ([]domain.Alert, error) {
	sql, args := q.ToSQL()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.GroupID, &a.EntryID, &a.Type, &a.Severity,
			&a.Message, &a.IsResolved, &a.ResolvedAt, &a.LastEscalatedAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}

	return alerts, nil
}

// CountDailyAlerts returns the number of non-critical alerts created for
// userID on the UTC calendar day containing day.
func (s *PostgresStore) CountDailyAlerts(ctx context.Context, userID string, day time.Time) (int, error) {
	start := quota.Day(day)

	var count int
	err := s.pool.QueryRow(ctx, queryCountDailyAlerts,
		userID, start, start.Add(24*time.Hour),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting daily alerts: %w", err)
	}
	return count, nil
}

// ResolveAlert marks an alert resolved. Resolving an already-resolved or
// unknown alert returns ErrNotFound.
func (s *PostgresStore) ResolveAlert(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, queryResolveAlert, id)
	if err != nil {
		return fmt.Errorf("resolving alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EscalateStaleAlerts raises severity one step for every unresolved,
// non-critical alert whose last escalation (or creation) predates before.
// Returns the number of alerts escalated.
func (s *PostgresStore) EscalateStaleAlerts(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, queryEscalateStaleAlerts, before)
	if err != nil {
		return 0, fmt.Errorf("escalating stale alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
