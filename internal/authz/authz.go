// Package authz decides whether an audited action was permitted, given the
// actor's role flags and record ownership. The matrix deliberately covers
// only DELETE, and UPDATE on the managed tables; the engine does not invoke
// it for anything else. Within the matrix, everything not explicitly
// authorized is denied, and an unknown actor fails closed.
package authz

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fieldops/ticket-sentinel/internal/store"
	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

// Directory is the read surface the evaluator needs: actor role flags and
// entry ownership. GetUser returns store.ErrNotFound for unknown actors;
// OwnsEntry reports whether a row with the given id and user id exists in
// either ticket_entries or ticket_misc_entries.
type Directory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	OwnsEntry(ctx context.Context, userID string, recordID int64) (bool, error)
}

// Tables subject to UPDATE policy. DELETE policy applies to every table.
var managedTables = []string{
	"users",
	"tickets",
	"ticket_entries",
	"ticket_misc_entries",
}

// Tables managers may modify and users may own rows in.
var entryTables = []string{
	"ticket_entries",
	"ticket_misc_entries",
}

// ManagedTable reports whether tableName is subject to the UPDATE policy.
func ManagedTable(tableName string) bool {
	return slices.Contains(managedTables, tableName)
}

// EntryTable reports whether tableName is one of the entry tables.
func EntryTable(tableName string) bool {
	return slices.Contains(entryTables, tableName)
}

// Covered reports whether the evaluator has a policy for this action/table
// combination. Combinations outside the matrix are not evaluated at all.
func Covered(action domain.AuditAction, tableName string) bool {
	switch action {
	case domain.ActionDelete:
		return true
	case domain.ActionUpdate:
		return ManagedTable(tableName)
	default:
		return false
	}
}

// Evaluator applies the role + ownership matrix.
type Evaluator struct {
	dir Directory
}

// NewEvaluator creates an Evaluator reading roles and ownership from dir.
func NewEvaluator(dir Directory) *Evaluator {
	return &Evaluator{dir: dir}
}

// Decide reports whether actorID may perform action on the given record.
// An unknown actor is unauthorized (fail closed). A non-nil error means the
// question could not be answered; callers must not treat that as authorized.
func (e *Evaluator) Decide(
	ctx context.Context,
	actorID string,
	action domain.AuditAction,
	tableName string,
	recordID int64,
) (bool, error) {
	actor, err := e.dir.GetUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("looking up actor %s: %w", actorID, err)
	}

	switch action {
	case domain.ActionDelete:
		return e.decideDelete(actor, tableName), nil
	case domain.ActionUpdate:
		return e.decideUpdate(ctx, actor, tableName, recordID)
	default:
		return false, nil
	}
}

func (e *Evaluator) decideDelete(actor *domain.User, tableName string) bool {
	if actor.IsAdmin {
		return true
	}
	return actor.IsManager && EntryTable(tableName)
}

func (e *Evaluator) decideUpdate(
	ctx context.Context,
	actor *domain.User,
	tableName string,
	recordID int64,
) (bool, error) {
	if !ManagedTable(tableName) {
		return false, nil
	}
	if actor.IsAdmin {
		return true, nil
	}
	if actor.IsManager && EntryTable(tableName) {
		return true, nil
	}
	if EntryTable(tableName) {
		owns, err := e.dir.OwnsEntry(ctx, actor.ID, recordID)
		if err != nil {
			return false, fmt.Errorf("checking ownership of record %d: %w", recordID, err)
		}
		return owns, nil
	}
	return false, nil
}
