// Package notify turns domain events into audit rows and log lines.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/ctxutil"
	"github.com/example/propcheck/internal/metrics"
	"github.com/example/propcheck/internal/ports/secondary"
)

// DefaultQueueSize bounds the number of events waiting to be written.
const DefaultQueueSize = 256

const writeTimeout = 5 * time.Second

// AuditNotifier implements secondary.Notifier. Notify never blocks: events
// are queued for a background writer and dropped when the queue is full.
type AuditNotifier struct {
	audit  secondary.AuditRepository
	logger *slog.Logger
	queue  chan events.Event

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewAuditNotifier creates a notifier and starts its writer goroutine.
func NewAuditNotifier(audit secondary.AuditRepository, logger *slog.Logger, queueSize int) *AuditNotifier {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	n := &AuditNotifier{
		audit:  audit,
		logger: logger,
		queue:  make(chan events.Event, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify queues an event. Events arriving after Close are dropped.
func (n *AuditNotifier) Notify(ctx context.Context, event events.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		metrics.NotificationsDroppedTotal.Inc()
		n.logger.Warn("notification after close dropped", "event", event.EventType(), "subject", event.SubjectID())
		return
	}

	select {
	case n.queue <- event:
	default:
		metrics.NotificationsDroppedTotal.Inc()
		n.logger.Warn("notification dropped", "event", event.EventType(), "subject", event.SubjectID())
	}
}

// Close drains queued events and stops the writer.
func (n *AuditNotifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
		<-n.done
	})
}

func (n *AuditNotifier) run() {
	defer close(n.done)
	for event := range n.queue {
		n.write(event)
	}
}

func (n *AuditNotifier) write(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("failed to encode event", "event", event.EventType(), "error", err)
		return
	}

	record := &secondary.AuditEventRecord{
		ID:        uuid.NewString(),
		EventType: event.EventType(),
		SubjectID: event.SubjectID(),
		Actor:     ActorOf(event),
		Payload:   string(payload),
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := n.audit.Append(ctx, record); err != nil {
		n.logger.Error("failed to write audit event", "event", record.EventType, "subject", record.SubjectID, "error", err)
		return
	}
	n.logger.Debug("event", "type", record.EventType, "subject", record.SubjectID, "actor", record.Actor)
}

// ActorOf returns who caused an event. Generation events are the scheduler's.
func ActorOf(event events.Event) string {
	switch e := event.(type) {
	case events.GenerationReplayed:
		return e.Actor
	case events.StatusChanged:
		return e.Actor
	case events.ResponseRecorded:
		return e.Actor
	case events.ResponseRemoved:
		return e.Actor
	case events.ApprovalChanged:
		return e.Actor
	case events.AttachmentAdded:
		return e.Actor
	case events.CommentAdded:
		return e.Actor
	}
	return ctxutil.SystemActor
}

// Ensure AuditNotifier implements the interface
var _ secondary.Notifier = (*AuditNotifier)(nil)
