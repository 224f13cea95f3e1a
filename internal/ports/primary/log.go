package primary

import "context"

// AuditService defines the primary port for reading the audit trail.
type AuditService interface {
	// ListEvents retrieves audit events, newest first.
	ListEvents(ctx context.Context, filters AuditFilters) ([]*AuditEvent, error)
}

// AuditEvent represents an audit trail entry at the port boundary.
type AuditEvent struct {
	ID        string
	EventType string
	SubjectID string // instance, response or generation ID
	Actor     string
	Payload   string // JSON
	CreatedAt string
}

// AuditFilters contains filter options for querying the audit trail.
type AuditFilters struct {
	SubjectID string
	EventType string
	Limit     int
}
