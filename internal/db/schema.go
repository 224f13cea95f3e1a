package db

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// SchemaSQL is the complete schema for fresh installs. It reflects the
// current state after all migrations.
//
// # Schema Drift Protection
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All repository
// tests load it through GetSchemaSQL(); a repository that references a column
// missing here fails its tests with "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
//
// Timestamps are RFC3339 UTC text, civil dates are YYYY-MM-DD text. Both
// sort lexically.
const SchemaSQL = `
-- Properties and the staff who can be assigned to them
CREATE TABLE IF NOT EXISTS properties (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	time_zone TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS property_staff (
	property_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'inspector',
	is_primary INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (property_id, user_id),
	FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE
);

-- Checklist templates
CREATE TABLE IF NOT EXISTS checklist_templates (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	assignment_policy TEXT NOT NULL CHECK(assignment_policy IN ('none', 'primary', 'least_loaded')) DEFAULT 'none',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS template_items (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	item_type TEXT NOT NULL CHECK(item_type IN ('text', 'number', 'boolean', 'file', 'photo', 'signature')),
	required INTEGER NOT NULL DEFAULT 1,
	approval_required INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (template_id) REFERENCES checklist_templates(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_template_items_template ON template_items(template_id, position);

CREATE TABLE IF NOT EXISTS template_schedules (
	template_id TEXT PRIMARY KEY,
	enabled INTEGER NOT NULL DEFAULT 1,
	frequency TEXT NOT NULL CHECK(frequency IN ('daily', 'weekly', 'biweekly', 'monthly', 'quarterly', 'yearly')),
	interval_count INTEGER NOT NULL DEFAULT 1,
	days_of_week TEXT NOT NULL DEFAULT '',
	day_of_month INTEGER NOT NULL DEFAULT 0,
	time_of_day TEXT NOT NULL DEFAULT '',
	time_zone TEXT NOT NULL DEFAULT '',
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL DEFAULT '',
	lead_time_days INTEGER NOT NULL DEFAULT 0,
	auto_assign INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (template_id) REFERENCES checklist_templates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS template_properties (
	template_id TEXT NOT NULL,
	property_id TEXT NOT NULL,
	PRIMARY KEY (template_id, property_id),
	FOREIGN KEY (template_id) REFERENCES checklist_templates(id) ON DELETE CASCADE,
	FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE
);

-- Generation ledger. The unique index is the only duplicate guard.
-- No foreign keys: a ledger row outlives the template or property it names.
CREATE TABLE IF NOT EXISTS scheduled_generations (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	property_id TEXT NOT NULL,
	occurrence_date TEXT NOT NULL,
	due_at TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('pending', 'created', 'failed')) DEFAULT 'pending',
	instance_id TEXT NOT NULL DEFAULT '',
	error_detail TEXT NOT NULL DEFAULT '',
	attempt INTEGER NOT NULL DEFAULT 1,
	reserved_at TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT '',
	UNIQUE (template_id, property_id, occurrence_date)
);

CREATE INDEX IF NOT EXISTS idx_generations_status ON scheduled_generations(status);

-- Checklist instances
CREATE TABLE IF NOT EXISTS checklist_instances (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	template_name TEXT NOT NULL DEFAULT '',
	property_id TEXT NOT NULL,
	generation_id TEXT UNIQUE,
	assignee_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL CHECK(status IN ('pending', 'in_progress', 'completed', 'approved', 'rejected')) DEFAULT 'pending',
	due_at TEXT NOT NULL DEFAULT '',
	version INTEGER NOT NULL DEFAULT 1,
	started_at TEXT NOT NULL DEFAULT '',
	completed_at TEXT NOT NULL DEFAULT '',
	approved_at TEXT NOT NULL DEFAULT '',
	approved_by TEXT NOT NULL DEFAULT '',
	rejected_at TEXT NOT NULL DEFAULT '',
	rejected_by TEXT NOT NULL DEFAULT '',
	rejection_notes TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_instances_status ON checklist_instances(status);
CREATE INDEX IF NOT EXISTS idx_instances_property ON checklist_instances(property_id);
CREATE INDEX IF NOT EXISTS idx_instances_assignee ON checklist_instances(assignee_id, status);

CREATE TABLE IF NOT EXISTS checklist_items (
	id TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL,
	template_item_id TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	item_type TEXT NOT NULL CHECK(item_type IN ('text', 'number', 'boolean', 'file', 'photo', 'signature')),
	required INTEGER NOT NULL DEFAULT 1,
	approval_required INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (instance_id) REFERENCES checklist_instances(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_checklist_items_instance ON checklist_items(instance_id, position);

-- Responses and the approval side records
CREATE TABLE IF NOT EXISTS item_responses (
	id TEXT PRIMARY KEY,
	instance_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	value TEXT NOT NULL,
	submitted_by TEXT NOT NULL DEFAULT '',
	submitted_at TEXT NOT NULL DEFAULT '',
	approval_status TEXT NOT NULL CHECK(approval_status IN ('none', 'pending', 'approved', 'rejected')) DEFAULT 'none',
	approved_by TEXT NOT NULL DEFAULT '',
	approval_notes TEXT NOT NULL DEFAULT '',
	reviewed_at TEXT NOT NULL DEFAULT '',
	UNIQUE (instance_id, item_id),
	FOREIGN KEY (instance_id) REFERENCES checklist_instances(id) ON DELETE CASCADE,
	FOREIGN KEY (item_id) REFERENCES checklist_items(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS response_attachments (
	id TEXT PRIMARY KEY,
	response_id TEXT NOT NULL,
	file_name TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	size_bytes INTEGER NOT NULL DEFAULT 0,
	storage_key TEXT NOT NULL,
	uploaded_by TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (response_id) REFERENCES item_responses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS response_comments (
	id TEXT PRIMARY KEY,
	response_id TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (response_id) REFERENCES item_responses(id) ON DELETE CASCADE
);

-- Audit trail written by the notifier
CREATE TABLE IF NOT EXISTS audit_events (
	id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	subject_id TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_events(subject_id, created_at);
`

const schemaVersionSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// InitSchema creates the schema on a fresh database, or runs pending
// migrations on an existing one.
func InitSchema(database *sqlx.DB) error {
	var tableCount int
	err := database.Get(&tableCount, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}

	if tableCount > 0 {
		return RunMigrations(database)
	}

	// Fresh install: create the modern schema directly and mark every
	// migration as applied.
	tx, err := database.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := tx.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	for _, m := range migrations {
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	slog.Debug("created fresh schema", "version", LatestVersion())
	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
