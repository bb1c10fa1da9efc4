package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/ticket-sentinel/internal/quota"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// MemoryStore implements Store entirely in memory. It backs unit tests and
// single-process deployments that do not need durability. The mutex is held
// across the quota count and the alert append, giving the same
// check-then-act atomicity the Postgres implementation gets from a
// serializable transaction.
type MemoryStore struct {
	mu    sync.RWMutex
	guard quota.Guard

	users       map[string]domain.User
	attempts    []domain.LoginAttempt
	audits      []domain.AuditEvent
	entries     map[int64]domain.TicketEntry
	miscEntries map[int64]domain.TicketMiscEntry
	alerts      []domain.Alert

	nextAttemptID int64
	nextAlertID   int64
}

// NewMemoryStore creates an empty MemoryStore guarded by the given quota.
func NewMemoryStore(guard quota.Guard) *MemoryStore {
	return &MemoryStore{
		guard:       guard,
		users:       make(map[string]domain.User),
		entries:     make(map[int64]domain.TicketEntry),
		miscEntries: make(map[int64]domain.TicketMiscEntry),
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Migrate is a no-op; there is no schema.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// UpsertUser inserts or replaces a user.
func (s *MemoryStore) UpsertUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

// GetUser retrieves a user by id. Returns ErrNotFound for unknown ids.
func (s *MemoryStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// InsertLoginAttempt appends one login attempt.
func (s *MemoryStore) InsertLoginAttempt(_ context.Context, a *domain.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.AttemptTime.IsZero() {
		a.AttemptTime = time.Now().UTC()
	}
	s.nextAttemptID++
	a.ID = s.nextAttemptID
	s.attempts = append(s.attempts, *a)
	return nil
}

// CountFailedLogins counts failed attempts from ipAddress with
// attempt_time in (since, until].
func (s *MemoryStore) CountFailedLogins(
	_ context.Context,
	ipAddress string,
	since, until time.Time,
) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := range s.attempts {
		a := &s.attempts[i]
		if a.Success || a.IPAddress != ipAddress {
			continue
		}
		if a.AttemptTime.After(since) && !a.AttemptTime.After(until) {
			count++
		}
	}
	return count, nil
}

// InsertAuditEvent appends one audit event, assigning an id when absent.
func (s *MemoryStore) InsertAuditEvent(_ context.Context, ev *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	s.audits = append(s.audits, *ev)
	return nil
}

// UpsertTicketEntry inserts or replaces a ticket entry by id.
func (s *MemoryStore) UpsertTicketEntry(_ context.Context, e *domain.TicketEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := s.entries[e.ID]; ok {
		e.CreatedAt = prev.CreatedAt
	} else {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.entries[e.ID] = *e
	return nil
}

// UpsertMiscEntry inserts or replaces a misc entry by id.
func (s *MemoryStore) UpsertMiscEntry(_ context.Context, e *domain.TicketMiscEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.miscEntries[e.ID]; ok {
		e.CreatedAt = prev.CreatedAt
	} else {
		e.CreatedAt = time.Now().UTC()
	}
	s.miscEntries[e.ID] = *e
	return nil
}

// OwnsEntry reports whether a row with the given id belongs to userID in
// either entry table.
func (s *MemoryStore) OwnsEntry(_ context.Context, userID string, recordID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[recordID]; ok && e.UserID == userID {
		return true, nil
	}
	if e, ok := s.miscEntries[recordID]; ok && e.UserID == userID {
		return true, nil
	}
	return false, nil
}

// CreateAlert appends an alert after passing the quota guard. The lock is
// held across the count and the append.
func (s *MemoryStore) CreateAlert(_ context.Context, a *domain.Alert) error {
	if !a.Severity.Valid() {
		return fmt.Errorf("invalid severity %q", a.Severity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	if a.UserID != nil && a.Severity != domain.SeverityCritical {
		count := s.countDailyLocked(*a.UserID, a.CreatedAt)
		if err := s.guard.Admit(a.Severity, count); err != nil {
			return err
		}
	}

	s.nextAlertID++
	a.ID = s.nextAlertID
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *MemoryStore) countDailyLocked(userID string, at time.Time) int {
	day := quota.Day(at)
	end := day.Add(24 * time.Hour)

	count := 0
	for i := range s.alerts {
		a := &s.alerts[i]
		if a.UserID == nil || *a.UserID != userID {
			continue
		}
		if a.Severity == domain.SeverityCritical {
			continue
		}
		if !a.CreatedAt.Before(day) && a.CreatedAt.Before(end) {
			count++
		}
	}
	return count
}

// ListAlerts returns alerts matching q, newest first.
func (s *MemoryStore) ListAlerts(_ context.Context, q *AlertQuery) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Alert
	for i := range s.alerts {
		if q.Matches(&s.alerts[i]) {
			out = append(out, s.alerts[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := max(q.Offset, 0)

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return slices.Clone(out), nil
}

// CountDailyAlerts returns the number of non-critical alerts created for
// userID on the UTC calendar day containing day.
func (s *MemoryStore) CountDailyAlerts(_ context.Context, userID string, day time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countDailyLocked(userID, day), nil
}

// ResolveAlert marks an alert resolved. Resolving an already-resolved or
// unknown alert returns ErrNotFound.
func (s *MemoryStore) ResolveAlert(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		a := &s.alerts[i]
		if a.ID != id || a.IsResolved {
			continue
		}
		now := time.Now().UTC()
		a.IsResolved = true
		a.ResolvedAt = &now
		return nil
	}
	return ErrNotFound
}

// EscalateStaleAlerts raises severity one step for every unresolved,
// non-critical alert whose last escalation (or creation) predates before.
func (s *MemoryStore) EscalateStaleAlerts(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	escalated := 0
	for i := range s.alerts {
		a := &s.alerts[i]
		if a.IsResolved || a.Severity == domain.SeverityCritical {
			continue
		}
		basis := a.CreatedAt
		if a.LastEscalatedAt != nil {
			basis = *a.LastEscalatedAt
		}
		if !basis.Before(before) {
			continue
		}
		a.Severity = a.Severity.Next()
		ts := now
		a.LastEscalatedAt = &ts
		escalated++
	}
	return escalated, nil
}
