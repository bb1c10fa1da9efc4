package store

// SQL query constants organized by entity.
// All SQL lives here — PostgresStore methods reference these constants.

// User queries.
const (
	queryUpsertUser = `
		INSERT INTO users (id, email, user_is_admin, user_is_manager)
		VALUES (@id, @email, @user_is_admin, @user_is_manager)
		ON CONFLICT (id) DO UPDATE SET
			email           = EXCLUDED.email,
			user_is_admin   = EXCLUDED.user_is_admin,
			user_is_manager = EXCLUDED.user_is_manager`

	queryGetUser = `
		SELECT id, email, user_is_admin, user_is_manager
		FROM users
		WHERE id = $1`
)

// Login attempt queries.
const (
	queryInsertLoginAttempt = `
		INSERT INTO login_attempts (user_id, email, ip_address, login_origin, success, attempt_time)
		VALUES (@user_id, @email, @ip_address, @login_origin, @success, @attempt_time)
		RETURNING id`

	// Lower bound is exclusive: "more than N in the last hour" excludes
	// ties exactly at the window edge.
	queryCountFailedLogins = `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE ip_address = $1
		  AND success = false
		  AND attempt_time > $2
		  AND attempt_time <= $3`
)

// Audit event queries.
const (
	queryInsertAuditEvent = `
		INSERT INTO audit_events (id, user_id, action, table_name, record_id, changes, created_at)
		VALUES (@id, @user_id, @action, @table_name, @record_id, @changes, @created_at)`
)

// Ticket entry queries.
const (
	queryUpsertTicketEntry = `
		INSERT INTO ticket_entries (
			id, user_id, ticket_id, job_name,
			job_materials_needed, job_access_needed, job_programming_changes,
			job_followup_required, created_at, updated_at
		) VALUES (
			@id, @user_id, @ticket_id, @job_name,
			@job_materials_needed, @job_access_needed, @job_programming_changes,
			@job_followup_required, now(), now()
		)
		ON CONFLICT (id) DO UPDATE SET
			job_name                = EXCLUDED.job_name,
			job_materials_needed    = EXCLUDED.job_materials_needed,
			job_access_needed       = EXCLUDED.job_access_needed,
			job_programming_changes = EXCLUDED.job_programming_changes,
			job_followup_required   = EXCLUDED.job_followup_required,
			updated_at              = now()
		RETURNING created_at, updated_at`

	queryUpsertMiscEntry = `
		INSERT INTO ticket_misc_entries (id, user_id, misc_name, misc_details, created_at)
		VALUES (@id, @user_id, @misc_name, @misc_details, now())
		ON CONFLICT (id) DO UPDATE SET
			misc_name    = EXCLUDED.misc_name,
			misc_details = EXCLUDED.misc_details
		RETURNING created_at`

	queryOwnsEntry = `
		SELECT EXISTS (
			SELECT 1 FROM ticket_entries WHERE id = $1 AND user_id = $2
			UNION
			SELECT 1 FROM ticket_misc_entries WHERE id = $1 AND user_id = $2
		)`
)

// Alert queries.
const (
	queryCreateAlert = `
		INSERT INTO alerts (user_id, group_id, entry_id, alert_type, severity, message, is_resolved, created_at)
		VALUES (@user_id, @group_id, @entry_id, @alert_type, @severity, @message, false, @created_at)
		RETURNING id, created_at`

	queryCountDailyAlerts = `
		SELECT COUNT(*)
		FROM alerts
		WHERE user_id = $1
		  AND severity <> 'critical'
		  AND created_at >= $2
		  AND created_at < $3`

	queryResolveAlert = `
		UPDATE alerts SET
			is_resolved = true,
			resolved_at = now()
		WHERE id = $1 AND is_resolved = false`

	// One severity step per elapsed staleness period: the predicate keys on
	// the last escalation (falling back to creation), so re-running the
	// sweep immediately touches nothing.
	queryEscalateStaleAlerts = `
		UPDATE alerts SET
			severity = CASE severity
				WHEN 'low'    THEN 'medium'
				WHEN 'medium' THEN 'high'
				WHEN 'high'   THEN 'critical'
				ELSE severity
			END,
			last_escalated_at = now()
		WHERE is_resolved = false
		  AND severity <> 'critical'
		  AND COALESCE(last_escalated_at, created_at) < $1`
)
