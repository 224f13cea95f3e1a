package app

import (
	"context"
	"fmt"

	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

const defaultAuditLimit = 50

// AuditServiceImpl implements the AuditService interface.
type AuditServiceImpl struct {
	audit secondary.AuditRepository
}

// NewAuditService creates a new AuditService with injected dependencies.
func NewAuditService(audit secondary.AuditRepository) *AuditServiceImpl {
	return &AuditServiceImpl{audit: audit}
}

// ListEvents retrieves audit events, newest first. A zero limit means the
// most recent 50.
func (s *AuditServiceImpl) ListEvents(ctx context.Context, filters primary.AuditFilters) ([]*primary.AuditEvent, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	records, err := s.audit.List(ctx, secondary.AuditFilters{
		SubjectID: filters.SubjectID,
		EventType: filters.EventType,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	entries := make([]*primary.AuditEvent, len(records))
	for i, r := range records {
		entries[i] = &primary.AuditEvent{
			ID:        r.ID,
			EventType: r.EventType,
			SubjectID: r.SubjectID,
			Actor:     r.Actor,
			Payload:   r.Payload,
			CreatedAt: r.CreatedAt,
		}
	}
	return entries, nil
}

// Ensure AuditServiceImpl implements the interface
var _ primary.AuditService = (*AuditServiceImpl)(nil)
