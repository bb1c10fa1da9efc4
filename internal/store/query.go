package store

import (
	"fmt"
	"strings"

	domain "github.com/fieldops/ticket-sentinel/pkg/types"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

const baseAlertsSelect = `SELECT id, user_id, group_id, entry_id, alert_type, severity,
	message, is_resolved, resolved_at, last_escalated_at, created_at
FROM alerts`

// AlertQuery defines optional filters for alert listings. Nil fields are
// not applied.
type AlertQuery struct {
	UserID     *string
	GroupID    *int64
	Type       *domain.AlertType
	Severity   *domain.Severity
	Unresolved bool
	Limit      int // default 50, capped at 500
	Offset     int
}

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for an alert
// query, returning the SQL and the positional parameters.
func (q *AlertQuery) ToSQL() (string, []any) {
	var conditions []string
	var args []any
	paramIdx := 1

	if q.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", paramIdx))
		args = append(args, *q.UserID)
		paramIdx++
	}

	if q.GroupID != nil {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", paramIdx))
		args = append(args, *q.GroupID)
		paramIdx++
	}

	if q.Type != nil {
		conditions = append(conditions, fmt.Sprintf("alert_type = $%d", paramIdx))
		args = append(args, string(*q.Type))
		paramIdx++
	}

	if q.Severity != nil {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", paramIdx))
		args = append(args, string(*q.Severity))
		paramIdx++
	}

	if q.Unresolved {
		conditions = append(conditions, "is_resolved = false")
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	sql := fmt.Sprintf(
		"%s%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		baseAlertsSelect, whereClause, limit, offset,
	)

	return sql, args
}

// Matches reports whether a satisfies every filter in q. The in-memory
// store uses it so that both implementations share one filter definition.
func (q *AlertQuery) Matches(a *domain.Alert) bool {
	if q.UserID != nil && (a.UserID == nil || *a.UserID != *q.UserID) {
		return false
	}
	if q.GroupID != nil && (a.GroupID == nil || *a.GroupID != *q.GroupID) {
		return false
	}
	if q.Type != nil && a.Type != *q.Type {
		return false
	}
	if q.Severity != nil && a.Severity != *q.Severity {
		return false
	}
	if q.Unresolved && a.IsResolved {
		return false
	}
	return true
}
