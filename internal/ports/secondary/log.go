package secondary

import (
	"context"

	"github.com/example/propcheck/internal/core/events"
)

// Notifier is the fire-and-forget audit/notification collaborator.
// Implementations must not block the caller and must swallow their own
// failures: a failed notification never rolls back a generation or a
// transition.
type Notifier interface {
	Notify(ctx context.Context, event events.Event)
}

// AuditRepository defines the secondary port for the audit trail.
type AuditRepository interface {
	// Append persists one audit event.
	Append(ctx context.Context, event *AuditEventRecord) error

	// List retrieves audit events, newest first.
	List(ctx context.Context, filters AuditFilters) ([]*AuditEventRecord, error)
}

// AuditEventRecord is one row of the audit trail.
type AuditEventRecord struct {
	ID        string `db:"id"`
	EventType string `db:"event_type"`
	SubjectID string `db:"subject_id"`
	Actor     string `db:"actor"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

// AuditFilters contains filter options for querying the audit trail.
type AuditFilters struct {
	SubjectID string
	EventType string
	Limit     int
}
