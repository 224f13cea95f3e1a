package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/logging"
	"github.com/example/propcheck/internal/ports/secondary"
)

type memoryAudit struct {
	mu      sync.Mutex
	records []*secondary.AuditEventRecord
	block   chan struct{}
	err     error
}

func (m *memoryAudit) Append(ctx context.Context, event *secondary.AuditEventRecord) error {
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, event)
	return nil
}

func (m *memoryAudit) List(ctx context.Context, filters secondary.AuditFilters) ([]*secondary.AuditEventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, nil
}

func TestAuditNotifier_WritesEvents(t *testing.T) {
	audit := &memoryAudit{}
	n := NewAuditNotifier(audit, logging.Discard(), 8)

	n.Notify(context.Background(), events.StatusChanged{
		InstanceID: "CHK-1",
		From:       checklist.StatusPending,
		To:         checklist.StatusInProgress,
		Action:     "record",
		Actor:      "alice",
	})
	n.Close()

	require.Len(t, audit.records, 1)
	rec := audit.records[0]
	assert.Equal(t, "checklist.status_changed", rec.EventType)
	assert.Equal(t, "CHK-1", rec.SubjectID)
	assert.Equal(t, "alice", rec.Actor)
	assert.NotEmpty(t, rec.ID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.Payload), &payload))
	assert.Equal(t, "in_progress", payload["to"])
}

func TestAuditNotifier_DropsWhenFull(t *testing.T) {
	audit := &memoryAudit{block: make(chan struct{})}
	n := NewAuditNotifier(audit, logging.Discard(), 1)

	// The writer takes the first event and blocks on it; one more fills the
	// queue and everything after that is dropped without blocking.
	for i := 0; i < 10; i++ {
		n.Notify(context.Background(), events.GenerationReplayed{GenerationID: "GEN-1", Actor: "ops"})
	}
	close(audit.block)
	n.Close()

	assert.LessOrEqual(t, len(audit.records), 2)
	assert.GreaterOrEqual(t, len(audit.records), 1)
}

func TestAuditNotifier_NotifyAfterCloseIsDropped(t *testing.T) {
	audit := &memoryAudit{}
	n := NewAuditNotifier(audit, logging.Discard(), 4)
	n.Close()

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), events.GenerationReplayed{GenerationID: "GEN-1", Actor: "ops"})
	})
	n.Close()
	assert.Empty(t, audit.records)
}

func TestAuditNotifier_SwallowsWriteErrors(t *testing.T) {
	audit := &memoryAudit{err: errors.New("disk full")}
	n := NewAuditNotifier(audit, logging.Discard(), 4)

	n.Notify(context.Background(), events.CommentAdded{ResponseID: "R-1", CommentID: "C-1", Actor: "bob"})
	n.Close()

	assert.Empty(t, audit.records)
}

func TestActorOf(t *testing.T) {
	assert.Equal(t, "system", ActorOf(events.GenerationCreated{GenerationID: "GEN-1"}))
	assert.Equal(t, "bob", ActorOf(events.ApprovalChanged{ResponseID: "R-1", Actor: "bob"}))
}
