package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockTemplateStore implements secondary.TemplateStore for testing.
type mockTemplateStore struct {
	schedules   []*secondary.ScheduleRecord
	snapshots   map[string]*secondary.TemplateSnapshot
	schedErr    error
	snapshotErr error
}

func newMockTemplateStore() *mockTemplateStore {
	return &mockTemplateStore{snapshots: make(map[string]*secondary.TemplateSnapshot)}
}

func (m *mockTemplateStore) addTemplate(id string, active, autoAssign bool, itemCount int) {
	snap := &secondary.TemplateSnapshot{
		Template: &secondary.TemplateRecord{
			ID:               id,
			Name:             "Template " + id,
			Active:           active,
			AssignmentPolicy: "primary",
		},
		AutoAssign: autoAssign,
	}
	for i := 1; i <= itemCount; i++ {
		snap.Items = append(snap.Items, &secondary.TemplateItemRecord{
			ID:         fmt.Sprintf("TI-%03d", i),
			TemplateID: id,
			Position:   i,
			Text:       fmt.Sprintf("Item %d", i),
			ItemType:   "boolean",
			Required:   true,
		})
	}
	m.snapshots[id] = snap
}

func (m *mockTemplateStore) GetActiveSchedules(ctx context.Context) ([]*secondary.ScheduleRecord, error) {
	if m.schedErr != nil {
		return nil, m.schedErr
	}
	return m.schedules, nil
}

func (m *mockTemplateStore) GetTemplateSnapshot(ctx context.Context, templateID string) (*secondary.TemplateSnapshot, error) {
	if m.snapshotErr != nil {
		return nil, m.snapshotErr
	}
	if snap, ok := m.snapshots[templateID]; ok {
		return snap, nil
	}
	return nil, fmt.Errorf("template %s: %w", templateID, secondary.ErrNotFound)
}

// mockPropertyDirectory implements secondary.PropertyDirectory for testing.
type mockPropertyDirectory struct {
	properties map[string]*secondary.PropertyRecord
}

func newMockPropertyDirectory() *mockPropertyDirectory {
	return &mockPropertyDirectory{properties: make(map[string]*secondary.PropertyRecord)}
}

func (m *mockPropertyDirectory) add(id string, active bool) {
	m.properties[id] = &secondary.PropertyRecord{ID: id, Name: "Property " + id, TimeZone: "UTC", Active: active}
}

func (m *mockPropertyDirectory) GetProperty(ctx context.Context, id string) (*secondary.PropertyRecord, error) {
	if p, ok := m.properties[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("property %s: %w", id, secondary.ErrNotFound)
}

// mockAssigneeResolver implements secondary.AssigneeResolver for testing.
type mockAssigneeResolver struct {
	assignee string
	err      error
	calls    int
}

func (m *mockAssigneeResolver) ResolveAssignee(ctx context.Context, templateID, propertyID, policy string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.assignee, nil
}

// mockLedger implements secondary.GenerationLedger in memory.
type mockLedger struct {
	mu      sync.Mutex
	rows    map[string]*secondary.GenerationRecord
	byKey   map[string]string
	markErr error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		rows:  make(map[string]*secondary.GenerationRecord),
		byKey: make(map[string]string),
	}
}

func (m *mockLedger) Reserve(ctx context.Context, req secondary.ReserveRequest) (*secondary.GenerationRecord, secondary.ReserveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := req.TemplateID + "/" + req.PropertyID + "@" + req.OccurrenceDate
	if id, ok := m.byKey[key]; ok {
		existing := *m.rows[id]
		return &existing, secondary.ReserveAlreadyExists, nil
	}
	row := &secondary.GenerationRecord{
		ID:             req.ID,
		TemplateID:     req.TemplateID,
		PropertyID:     req.PropertyID,
		OccurrenceDate: req.OccurrenceDate,
		DueAt:          req.DueAt,
		Status:         "pending",
		Attempt:        1,
	}
	m.rows[row.ID] = row
	m.byKey[key] = row.ID
	out := *row
	return &out, secondary.ReserveReserved, nil
}

func (m *mockLedger) MarkFailed(ctx context.Context, id string, attempt int, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	row, ok := m.rows[id]
	if !ok {
		return secondary.ErrNotFound
	}
	if row.Status != "pending" || row.Attempt != attempt {
		return secondary.ErrConcurrentModification
	}
	row.Status = "failed"
	row.ErrorDetail = detail
	return nil
}

func (m *mockLedger) ReopenFailed(ctx context.Context, id string) (*secondary.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	if row.Status != "failed" {
		return nil, secondary.ErrConcurrentModification
	}
	row.Status = "pending"
	row.Attempt++
	row.ErrorDetail = ""
	out := *row
	return &out, nil
}

func (m *mockLedger) GetByID(ctx context.Context, id string) (*secondary.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, secondary.ErrNotFound
	}
	out := *row
	return &out, nil
}

func (m *mockLedger) List(ctx context.Context, filters secondary.GenerationFilters) ([]*secondary.GenerationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.GenerationRecord
	for _, row := range m.rows {
		if filters.Status != "" && row.Status != filters.Status {
			continue
		}
		r := *row
		out = append(out, &r)
	}
	return out, nil
}

// bump simulates another generator reclaiming a row.
func (m *mockLedger) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Attempt++
}

// mockChecklistRepository implements secondary.ChecklistRepository for testing.
// CreateFromGeneration checks the token against the mock ledger.
type mockChecklistRepository struct {
	mu        sync.Mutex
	ledger    *mockLedger
	instances map[string]*secondary.ChecklistRecord
	items     map[string][]*secondary.ChecklistItemRecord
	createErr error
}

func newMockChecklistRepository(ledger *mockLedger) *mockChecklistRepository {
	return &mockChecklistRepository{
		ledger:    ledger,
		instances: make(map[string]*secondary.ChecklistRecord),
		items:     make(map[string][]*secondary.ChecklistItemRecord),
	}
}

func (m *mockChecklistRepository) CreateFromGeneration(ctx context.Context, instance *secondary.ChecklistRecord, items []*secondary.ChecklistItemRecord, generationID string, attempt int) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.ledger.mu.Lock()
	row, ok := m.ledger.rows[generationID]
	if !ok || row.Status != "pending" || row.Attempt != attempt {
		m.ledger.mu.Unlock()
		return secondary.ErrConcurrentModification
	}
	row.Status = "created"
	row.InstanceID = instance.ID
	m.ledger.mu.Unlock()

	instance.GenerationID = generationID
	return m.Create(ctx, instance, items)
}

func (m *mockChecklistRepository) Create(ctx context.Context, instance *secondary.ChecklistRecord, items []*secondary.ChecklistItemRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	instance.Version = 1
	m.instances[instance.ID] = instance
	for _, it := range items {
		it.InstanceID = instance.ID
	}
	m.items[instance.ID] = items
	return nil
}

func (m *mockChecklistRepository) GetByID(ctx context.Context, id string) (*secondary.ChecklistRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instances[id]; ok {
		return inst, nil
	}
	return nil, secondary.ErrNotFound
}

func (m *mockChecklistRepository) List(ctx context.Context, filters secondary.ChecklistFilters) ([]*secondary.ChecklistRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ChecklistRecord
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out, nil
}

func (m *mockChecklistRepository) ListItems(ctx context.Context, instanceID string) ([]*secondary.ChecklistItemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[instanceID], nil
}

func (m *mockChecklistRepository) GetItem(ctx context.Context, instanceID, itemID string) (*secondary.ChecklistItemRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items[instanceID] {
		if it.ID == itemID {
			return it, nil
		}
	}
	return nil, secondary.ErrNotFound
}

func (m *mockChecklistRepository) ApplyChange(ctx context.Context, instance *secondary.ChecklistRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	instance.Version++
	m.instances[instance.ID] = instance
	return nil
}

func (m *mockChecklistRepository) CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error) {
	return 0, nil
}

func (m *mockChecklistRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// recordingNotifier implements secondary.Notifier and keeps every event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) ofType(eventType string) []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []events.Event
	for _, e := range n.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Ensure mocks implement the interfaces
var (
	_ secondary.TemplateStore       = (*mockTemplateStore)(nil)
	_ secondary.PropertyDirectory   = (*mockPropertyDirectory)(nil)
	_ secondary.AssigneeResolver    = (*mockAssigneeResolver)(nil)
	_ secondary.GenerationLedger    = (*mockLedger)(nil)
	_ secondary.ChecklistRepository = (*mockChecklistRepository)(nil)
	_ secondary.Notifier            = (*recordingNotifier)(nil)
)
