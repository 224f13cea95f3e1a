package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

const checklistColumns = `id, template_id, template_name, property_id, COALESCE(generation_id, '') AS generation_id,
	assignee_id, status, due_at, version, started_at, completed_at, approved_at, approved_by,
	rejected_at, rejected_by, rejection_notes, created_at, updated_at`

const checklistItemColumns = "id, instance_id, template_item_id, position, text, description, item_type, required, approval_required"

// ChecklistRepository implements secondary.ChecklistRepository with SQLite.
type ChecklistRepository struct {
	db *sqlx.DB
}

// NewChecklistRepository creates a new SQLite checklist repository.
func NewChecklistRepository(db *sqlx.DB) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// CreateFromGeneration flips the ledger row to created and writes the
// instance with its items, all or nothing.
func (r *ChecklistRepository) CreateFromGeneration(ctx context.Context, instance *secondary.ChecklistRecord, items []*secondary.ChecklistItemRecord, generationID string, attempt int) error {
	instance.GenerationID = generationID
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		now := timestamp(time.Now())
		res, err := tx.ExecContext(ctx,
			`UPDATE scheduled_generations SET status = 'created', instance_id = ?, updated_at = ?
			WHERE id = ? AND status = 'pending' AND attempt = ?`,
			instance.ID, now, generationID, attempt,
		)
		if err != nil {
			return fmt.Errorf("failed to claim generation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("generation %s attempt %d: %w", generationID, attempt, secondary.ErrConcurrentModification)
		}
		return insertInstance(ctx, tx, instance, items)
	})
}

// Create persists a manually created instance and its items.
func (r *ChecklistRepository) Create(ctx context.Context, instance *secondary.ChecklistRecord, items []*secondary.ChecklistItemRecord) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertInstance(ctx, tx, instance, items)
	})
}

func insertInstance(ctx context.Context, tx *sqlx.Tx, instance *secondary.ChecklistRecord, items []*secondary.ChecklistItemRecord) error {
	now := timestamp(time.Now())
	if instance.CreatedAt == "" {
		instance.CreatedAt = now
	}
	instance.UpdatedAt = now
	if instance.Status == "" {
		instance.Status = "pending"
	}
	if instance.Version == 0 {
		instance.Version = 1
	}

	_, err := tx.NamedExecContext(ctx,
		`INSERT INTO checklist_instances (id, template_id, template_name, property_id, generation_id,
			assignee_id, status, due_at, version, created_at, updated_at)
		VALUES (:id, :template_id, :template_name, :property_id, NULLIF(:generation_id, ''),
			:assignee_id, :status, :due_at, :version, :created_at, :updated_at)`,
		instance,
	)
	if err != nil {
		return fmt.Errorf("failed to create checklist: %w", err)
	}

	for _, item := range items {
		item.InstanceID = instance.ID
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO checklist_items (`+checklistItemColumns+`)
			VALUES (:id, :instance_id, :template_item_id, :position, :text, :description, :item_type, :required, :approval_required)`,
			item,
		)
		if err != nil {
			return fmt.Errorf("failed to create checklist item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an instance by its ID.
func (r *ChecklistRepository) GetByID(ctx context.Context, id string) (*secondary.ChecklistRecord, error) {
	record := &secondary.ChecklistRecord{}
	err := getOne(ctx, r.db, record, "checklist", id,
		"SELECT "+checklistColumns+" FROM checklist_instances WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List retrieves instances matching the given filters, earliest due first.
func (r *ChecklistRepository) List(ctx context.Context, filters secondary.ChecklistFilters) ([]*secondary.ChecklistRecord, error) {
	query := "SELECT " + checklistColumns + " FROM checklist_instances WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.PropertyID != "" {
		query += " AND property_id = ?"
		args = append(args, filters.PropertyID)
	}
	if filters.TemplateID != "" {
		query += " AND template_id = ?"
		args = append(args, filters.TemplateID)
	}
	if filters.AssigneeID != "" {
		query += " AND assignee_id = ?"
		args = append(args, filters.AssigneeID)
	}

	query += " ORDER BY due_at, created_at, id"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	var records []*secondary.ChecklistRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list checklists: %w", err)
	}
	return records, nil
}

// ListItems returns the item snapshots of an instance in order.
func (r *ChecklistRepository) ListItems(ctx context.Context, instanceID string) ([]*secondary.ChecklistItemRecord, error) {
	var items []*secondary.ChecklistItemRecord
	err := r.db.SelectContext(ctx, &items,
		"SELECT "+checklistItemColumns+" FROM checklist_items WHERE instance_id = ? ORDER BY position, id",
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	return items, nil
}

// GetItem retrieves one item snapshot.
func (r *ChecklistRepository) GetItem(ctx context.Context, instanceID, itemID string) (*secondary.ChecklistItemRecord, error) {
	record := &secondary.ChecklistItemRecord{}
	err := getOne(ctx, r.db, record, "checklist item", itemID,
		"SELECT "+checklistItemColumns+" FROM checklist_items WHERE instance_id = ? AND id = ?",
		instanceID, itemID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ApplyChange writes the mutable instance fields under optimistic locking.
func (r *ChecklistRepository) ApplyChange(ctx context.Context, instance *secondary.ChecklistRecord) error {
	return applyChange(ctx, r.db, instance)
}

// CountOpenByAssignee counts a user's instances that still need work.
func (r *ChecklistRepository) CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM checklist_instances WHERE assignee_id = ? AND status IN ('pending', 'in_progress', 'rejected')",
		assigneeID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count open checklists: %w", err)
	}
	return count, nil
}

// applyChange is shared by every write that touches an instance so the
// version check and bump happen in the caller's transaction.
func applyChange(ctx context.Context, ext sqlx.ExtContext, instance *secondary.ChecklistRecord) error {
	instance.UpdatedAt = timestamp(time.Now())
	res, err := ext.ExecContext(ctx,
		`UPDATE checklist_instances SET
			assignee_id = ?, status = ?, due_at = ?,
			started_at = ?, completed_at = ?,
			approved_at = ?, approved_by = ?,
			rejected_at = ?, rejected_by = ?, rejection_notes = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		instance.AssigneeID, instance.Status, instance.DueAt,
		instance.StartedAt, instance.CompletedAt,
		instance.ApprovedAt, instance.ApprovedBy,
		instance.RejectedAt, instance.RejectedBy, instance.RejectionNotes,
		instance.UpdatedAt, instance.ID, instance.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update checklist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := sqlx.GetContext(ctx, ext, &exists,
			"SELECT COUNT(*) FROM checklist_instances WHERE id = ?", instance.ID,
		); err != nil {
			return fmt.Errorf("failed to check checklist: %w", err)
		}
		if exists == 0 {
			return notFound("checklist", instance.ID)
		}
		return fmt.Errorf("checklist %s version %d: %w", instance.ID, instance.Version, secondary.ErrConcurrentModification)
	}
	instance.Version++
	return nil
}

// Ensure ChecklistRepository implements the interface
var _ secondary.ChecklistRepository = (*ChecklistRepository)(nil)
