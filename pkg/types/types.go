// Package domain defines the core business types for ticket-sentinel.
package domain

import (
	"time"
)

// Severity is the ordered alert severity ladder. Severities only ever move
// upward (via escalation) or stay constant.
type Severity string

// Severity constants, lowest to highest.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of s on the ladder, or -1 for unknown values.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// Next returns the severity one step up the ladder. Critical is a fixed
// point: escalating it returns critical again.
func (s Severity) Next() Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	case SeverityHigh:
		return SeverityCritical
	default:
		return s
	}
}

// AlertType categorizes an alert. The set is open; these are the values the
// derivation rules produce.
type AlertType string

// Alert type constants.
const (
	AlertSecurity   AlertType = "security"
	AlertJobRelated AlertType = "job-related"
	AlertSystem     AlertType = "system"
)

// Alert is a derived record signaling a security or operational condition.
// Alerts are created by the derivation rules (or directly by the
// authorization evaluator), mutated only by the escalation sweep (severity)
// and the resolve action, and never deleted.
type Alert struct {
	ID              int64      `json:"id"                          db:"id"`
	UserID          *string    `json:"user_id,omitempty"           db:"user_id"`
	GroupID         *int64     `json:"group_id,omitempty"          db:"group_id"`
	EntryID         *int64     `json:"entry_id,omitempty"          db:"entry_id"`
	Type            AlertType  `json:"alert_type"                  db:"alert_type"`
	Severity        Severity   `json:"severity"                    db:"severity"`
	Message         string     `json:"message"                     db:"message"`
	IsResolved      bool       `json:"is_resolved"                 db:"is_resolved"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"       db:"resolved_at"`
	LastEscalatedAt *time.Time `json:"last_escalated_at,omitempty" db:"last_escalated_at"`
	CreatedAt       time.Time  `json:"created_at"                  db:"created_at"`
}

// LoginAttempt is one authentication attempt recorded by the auth subsystem.
// Append-only; UserID is nil when the attempt could not be attributed.
type LoginAttempt struct {
	ID          int64     `json:"id"                 db:"id"`
	UserID      *string   `json:"user_id,omitempty"  db:"user_id"`
	Email       string    `json:"email"              db:"email"`
	IPAddress   string    `json:"ip_address"         db:"ip_address"`
	LoginOrigin string    `json:"login_origin"       db:"login_origin"`
	Success     bool      `json:"success"            db:"success"`
	AttemptTime time.Time `json:"attempt_time"       db:"attempt_time"`
}

// AuditAction is the kind of audited write.
type AuditAction string

// Audit action constants.
const (
	ActionInsert AuditAction = "INSERT"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// Valid reports whether a is a recognized audit action.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// AuditEvent records one audited write performed by an actor.
type AuditEvent struct {
	ID        string         `json:"id"                db:"id"`
	UserID    string         `json:"user_id"           db:"user_id"`
	Action    AuditAction    `json:"action"            db:"action"`
	TableName string         `json:"table_name"        db:"table_name"`
	RecordID  int64          `json:"record_id"         db:"record_id"`
	Changes   map[string]any `json:"changes,omitempty" db:"changes"`
	CreatedAt time.Time      `json:"created_at"        db:"created_at"`
}

// TicketEntry is one unit of work logged against a ticket.
type TicketEntry struct {
	ID                    int64     `json:"id"                                db:"id"`
	UserID                string    `json:"user_id"                           db:"user_id"`
	TicketID              int64     `json:"ticket_id"                         db:"ticket_id"`
	JobName               string    `json:"job_name"                          db:"job_name"`
	JobMaterialsNeeded    *string   `json:"job_materials_needed,omitempty"    db:"job_materials_needed"`
	JobAccessNeeded       *string   `json:"job_access_needed,omitempty"       db:"job_access_needed"`
	JobProgrammingChanges *string   `json:"job_programming_changes,omitempty" db:"job_programming_changes"`
	JobFollowupRequired   bool      `json:"job_followup_required"             db:"job_followup_required"`
	CreatedAt             time.Time `json:"created_at"                        db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"                        db:"updated_at"`
}

// FollowupNeeded reports whether this entry requires a followup alert:
// any outstanding materials, access, or programming items, or an explicit
// followup flag.
func (e *TicketEntry) FollowupNeeded() bool {
	return e.JobMaterialsNeeded != nil ||
		e.JobAccessNeeded != nil ||
		e.JobProgrammingChanges != nil ||
		e.JobFollowupRequired
}

// TicketMiscEntry is ad-hoc work logged outside any ticket. It participates
// in ownership checks alongside TicketEntry.
type TicketMiscEntry struct {
	ID          int64     `json:"id"                     db:"id"`
	UserID      string    `json:"user_id"                db:"user_id"`
	MiscName    string    `json:"misc_name"              db:"misc_name"`
	MiscDetails *string   `json:"misc_details,omitempty" db:"misc_details"`
	CreatedAt   time.Time `json:"created_at"             db:"created_at"`
}

// User carries the role flags the authorization policy reads. The full user
// profile lives in the auth subsystem; this is the engine's view of it.
type User struct {
	ID        string `json:"id"         db:"id"`
	Email     string `json:"email"      db:"email"`
	IsAdmin   bool   `json:"is_admin"   db:"user_is_admin"`
	IsManager bool   `json:"is_manager" db:"user_is_manager"`
}
