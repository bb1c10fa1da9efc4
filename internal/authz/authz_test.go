package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/ticket-sentinel/internal/store"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// fakeDirectory serves a fixed user set and ownership map.
type fakeDirectory struct {
	users     map[string]domain.User
	ownership map[int64]string // record id -> owning user id
	userErr   error
	ownsErr   error
}

func (d *fakeDirectory) GetUser(_ context.Context, id string) (*domain.User, error) {
	if d.userErr != nil {
		return nil, d.userErr
	}
	u, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (d *fakeDirectory) OwnsEntry(_ context.Context, userID string, recordID int64) (bool, error) {
	if d.ownsErr != nil {
		return false, d.ownsErr
	}
	return d.ownership[recordID] == userID, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[string]domain.User{
			"admin":   {ID: "admin", IsAdmin: true},
			"manager": {ID: "manager", IsManager: true},
			"alice":   {ID: "alice"},
			"bob":     {ID: "bob"},
		},
		ownership: map[int64]string{
			42: "alice",
		},
	}
}

func TestCovered(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action domain.AuditAction
		table  string
		want   bool
	}{
		{"delete on any table", domain.ActionDelete, "invoices", true},
		{"update on users", domain.ActionUpdate, "users", true},
		{"update on tickets", domain.ActionUpdate, "tickets", true},
		{"update on ticket_entries", domain.ActionUpdate, "ticket_entries", true},
		{"update on ticket_misc_entries", domain.ActionUpdate, "ticket_misc_entries", true},
		{"update on unmanaged table", domain.ActionUpdate, "invoices", false},
		{"insert is never covered", domain.ActionInsert, "users", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Covered(tt.action, tt.table))
		})
	}
}

func TestEvaluator_Decide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		actor    string
		action   domain.AuditAction
		table    string
		recordID int64
		want     bool
	}{
		// DELETE matrix.
		{"admin deletes anywhere", "admin", domain.ActionDelete, "users", 1, true},
		{"admin deletes entries", "admin", domain.ActionDelete, "ticket_entries", 1, true},
		{"manager deletes entries", "manager", domain.ActionDelete, "ticket_entries", 1, true},
		{"manager deletes misc entries", "manager", domain.ActionDelete, "ticket_misc_entries", 1, true},
		{"manager cannot delete users", "manager", domain.ActionDelete, "users", 1, false},
		{"manager cannot delete tickets", "manager", domain.ActionDelete, "tickets", 1, false},
		{"plain user cannot delete", "alice", domain.ActionDelete, "ticket_entries", 42, false},

		// UPDATE matrix.
		{"admin updates users", "admin", domain.ActionUpdate, "users", 1, true},
		{"admin updates tickets", "admin", domain.ActionUpdate, "tickets", 1, true},
		{"manager updates entries", "manager", domain.ActionUpdate, "ticket_entries", 1, true},
		{"manager updates misc entries", "manager", domain.ActionUpdate, "ticket_misc_entries", 1, true},
		{"manager cannot update users", "manager", domain.ActionUpdate, "users", 1, false},
		{"manager cannot update tickets", "manager", domain.ActionUpdate, "tickets", 1, false},
		{"owner updates own entry", "alice", domain.ActionUpdate, "ticket_entries", 42, true},
		{"owner updates own misc entry", "alice", domain.ActionUpdate, "ticket_misc_entries", 42, true},
		{"non-owner cannot update entry", "bob", domain.ActionUpdate, "ticket_entries", 42, false},
		{"plain user cannot update users", "alice", domain.ActionUpdate, "users", 1, false},
		{"plain user cannot update tickets", "alice", domain.ActionUpdate, "tickets", 42, false},

		// Outside the matrix everything is denied.
		{"insert is denied", "admin", domain.ActionInsert, "users", 1, false},

		// Unknown actor fails closed.
		{"unknown actor delete", "ghost", domain.ActionDelete, "ticket_entries", 1, false},
		{"unknown actor update", "ghost", domain.ActionUpdate, "ticket_entries", 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEvaluator(testDirectory())
			got, err := e.Decide(
				context.Background(), tt.actor, tt.action, tt.table, tt.recordID,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_Decide_DirectoryErrors(t *testing.T) {
	t.Parallel()

	t.Run("user lookup failure is an error, not a denial", func(t *testing.T) {
		t.Parallel()

		dir := testDirectory()
		dir.userErr = assert.AnError
		e := NewEvaluator(dir)

		allowed, err := e.Decide(
			context.Background(), "alice", domain.ActionDelete, "ticket_entries", 1,
		)
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, allowed)
	})

	t.Run("ownership check failure is an error", func(t *testing.T) {
		t.Parallel()

		dir := testDirectory()
		dir.ownsErr = assert.AnError
		e := NewEvaluator(dir)

		allowed, err := e.Decide(
			context.Background(), "alice", domain.ActionUpdate, "ticket_entries", 42,
		)
		require.ErrorIs(t, err, assert.AnError)
		assert.False(t, allowed)
	})

	t.Run("ownership is not consulted for admins", func(t *testing.T) {
		t.Parallel()

		dir := testDirectory()
		dir.ownsErr = assert.AnError
		e := NewEvaluator(dir)

		allowed, err := e.Decide(
			context.Background(), "admin", domain.ActionUpdate, "ticket_entries", 42,
		)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}
