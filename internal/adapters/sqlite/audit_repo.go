package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

const auditColumns = "id, event_type, subject_id, actor, payload, created_at"

// AuditRepository implements secondary.AuditRepository with SQLite.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new SQLite audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append persists one audit event.
func (r *AuditRepository) Append(ctx context.Context, event *secondary.AuditEventRecord) error {
	if event.CreatedAt == "" {
		event.CreatedAt = timestamp(time.Now())
	}
	if event.Payload == "" {
		event.Payload = "{}"
	}
	_, err := r.db.NamedExecContext(ctx,
		"INSERT INTO audit_events ("+auditColumns+") VALUES (:id, :event_type, :subject_id, :actor, :payload, :created_at)",
		event,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// List retrieves audit events, newest first.
func (r *AuditRepository) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEventRecord, error) {
	query := "SELECT " + auditColumns + " FROM audit_events WHERE 1=1"
	args := []any{}

	if filters.SubjectID != "" {
		query += " AND subject_id = ?"
		args = append(args, filters.SubjectID)
	}
	if filters.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filters.EventType)
	}

	query += " ORDER BY created_at DESC, rowid DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	var records []*secondary.AuditEventRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return records, nil
}

// Ensure AuditRepository implements the interface
var _ secondary.AuditRepository = (*AuditRepository)(nil)
