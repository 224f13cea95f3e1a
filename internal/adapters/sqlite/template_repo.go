package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

const templateColumns = "id, name, description, active, assignment_policy, created_at, updated_at"

const templateItemColumns = "id, template_id, position, text, description, item_type, required, approval_required"

const scheduleColumns = `template_id, enabled, frequency, interval_count, days_of_week, day_of_month,
	time_of_day, time_zone, start_date, end_date, lead_time_days, auto_assign, updated_at`

// TemplateRepository implements secondary.TemplateRepository with SQLite.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new SQLite template repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create persists a new template.
func (r *TemplateRepository) Create(ctx context.Context, template *secondary.TemplateRecord) error {
	now := timestamp(time.Now())
	if template.CreatedAt == "" {
		template.CreatedAt = now
	}
	template.UpdatedAt = now
	if template.AssignmentPolicy == "" {
		template.AssignmentPolicy = "none"
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO checklist_templates (`+templateColumns+`)
		VALUES (:id, :name, :description, :active, :assignment_policy, :created_at, :updated_at)`,
		template,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*secondary.TemplateRecord, error) {
	record := &secondary.TemplateRecord{}
	err := getOne(ctx, r.db, record, "template", id,
		"SELECT "+templateColumns+" FROM checklist_templates WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List retrieves templates, optionally only active ones.
func (r *TemplateRepository) List(ctx context.Context, activeOnly bool) ([]*secondary.TemplateRecord, error) {
	query := "SELECT " + templateColumns + " FROM checklist_templates"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY id"

	var templates []*secondary.TemplateRecord
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// SetActive activates or deactivates a template.
func (r *TemplateRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE checklist_templates SET active = ?, updated_at = ? WHERE id = ?",
		active, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("template", id)
	}
	return nil
}

// AddItem appends an item to a template. A zero Position appends at the end.
func (r *TemplateRepository) AddItem(ctx context.Context, item *secondary.TemplateItemRecord) error {
	if item.Position == 0 {
		var maxPos int
		if err := r.db.GetContext(ctx, &maxPos,
			"SELECT COALESCE(MAX(position), 0) FROM template_items WHERE template_id = ?", item.TemplateID,
		); err != nil {
			return fmt.Errorf("failed to get item position: %w", err)
		}
		item.Position = maxPos + 1
	}

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO template_items (`+templateItemColumns+`)
		VALUES (:id, :template_id, :position, :text, :description, :item_type, :required, :approval_required)`,
		item,
	)
	if err != nil {
		return fmt.Errorf("failed to add template item: %w", err)
	}
	return nil
}

// ListItems returns a template's items in order.
func (r *TemplateRepository) ListItems(ctx context.Context, templateID string) ([]*secondary.TemplateItemRecord, error) {
	var items []*secondary.TemplateItemRecord
	err := r.db.SelectContext(ctx, &items,
		"SELECT "+templateItemColumns+" FROM template_items WHERE template_id = ? ORDER BY position, id",
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list template items: %w", err)
	}
	return items, nil
}

// SaveSchedule inserts or replaces the template's schedule.
func (r *TemplateRepository) SaveSchedule(ctx context.Context, schedule *secondary.ScheduleRecord) error {
	schedule.UpdatedAt = timestamp(time.Now())

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO template_schedules (`+scheduleColumns+`)
		VALUES (:template_id, :enabled, :frequency, :interval_count, :days_of_week, :day_of_month,
			:time_of_day, :time_zone, :start_date, :end_date, :lead_time_days, :auto_assign, :updated_at)
		ON CONFLICT(template_id) DO UPDATE SET
			enabled = excluded.enabled,
			frequency = excluded.frequency,
			interval_count = excluded.interval_count,
			days_of_week = excluded.days_of_week,
			day_of_month = excluded.day_of_month,
			time_of_day = excluded.time_of_day,
			time_zone = excluded.time_zone,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			lead_time_days = excluded.lead_time_days,
			auto_assign = excluded.auto_assign,
			updated_at = excluded.updated_at`,
		schedule,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	return nil
}

// GetSchedule returns the template's schedule, or ErrNotFound.
func (r *TemplateRepository) GetSchedule(ctx context.Context, templateID string) (*secondary.ScheduleRecord, error) {
	record := &secondary.ScheduleRecord{}
	err := getOne(ctx, r.db, record, "schedule", templateID,
		"SELECT "+scheduleColumns+" FROM template_schedules WHERE template_id = ?", templateID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// AssignProperty links a property to a template. Idempotent.
func (r *TemplateRepository) AssignProperty(ctx context.Context, templateID, propertyID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO template_properties (template_id, property_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		templateID, propertyID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign property: %w", err)
	}
	return nil
}

// UnassignProperty removes a template/property link.
func (r *TemplateRepository) UnassignProperty(ctx context.Context, templateID, propertyID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM template_properties WHERE template_id = ? AND property_id = ?",
		templateID, propertyID,
	)
	if err != nil {
		return fmt.Errorf("failed to unassign property: %w", err)
	}
	return nil
}

// ListPropertyIDs returns the properties a template is assigned to.
func (r *TemplateRepository) ListPropertyIDs(ctx context.Context, templateID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		"SELECT property_id FROM template_properties WHERE template_id = ? ORDER BY property_id",
		templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list template properties: %w", err)
	}
	return ids, nil
}

// GetActiveSchedules returns enabled schedules of active templates with the
// active properties each one generates for.
func (r *TemplateRepository) GetActiveSchedules(ctx context.Context) ([]*secondary.ScheduleRecord, error) {
	var schedules []*secondary.ScheduleRecord
	err := r.db.SelectContext(ctx, &schedules,
		`SELECT `+prefixed("s.", scheduleColumns)+`
		FROM template_schedules s
		JOIN checklist_templates t ON t.id = s.template_id
		WHERE s.enabled = 1 AND t.active = 1
		ORDER BY s.template_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}

	var links []struct {
		TemplateID string `db:"template_id"`
		PropertyID string `db:"property_id"`
	}
	err = r.db.SelectContext(ctx, &links,
		`SELECT tp.template_id, tp.property_id
		FROM template_properties tp
		JOIN properties p ON p.id = tp.property_id
		WHERE p.active = 1
		ORDER BY tp.template_id, tp.property_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list template properties: %w", err)
	}

	byTemplate := make(map[string][]string)
	for _, l := range links {
		byTemplate[l.TemplateID] = append(byTemplate[l.TemplateID], l.PropertyID)
	}
	for _, s := range schedules {
		s.PropertyIDs = byTemplate[s.TemplateID]
	}
	return schedules, nil
}

// GetTemplateSnapshot returns the template, its current items and whether
// its schedule auto-assigns.
func (r *TemplateRepository) GetTemplateSnapshot(ctx context.Context, templateID string) (*secondary.TemplateSnapshot, error) {
	template, err := r.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	items, err := r.ListItems(ctx, templateID)
	if err != nil {
		return nil, err
	}

	snapshot := &secondary.TemplateSnapshot{Template: template, Items: items}

	schedule, err := r.GetSchedule(ctx, templateID)
	switch {
	case err == nil:
		snapshot.AutoAssign = schedule.AutoAssign
	case !errors.Is(err, secondary.ErrNotFound):
		return nil, err
	}

	return snapshot, nil
}

// GetNextID returns the next available template ID.
func (r *TemplateRepository) GetNextID(ctx context.Context) (string, error) {
	return nextID(ctx, r.db, "checklist_templates", "TPL")
}

// GetNextItemID returns the next available template item ID.
func (r *TemplateRepository) GetNextItemID(ctx context.Context) (string, error) {
	return nextID(ctx, r.db, "template_items", "TI")
}

// Ensure TemplateRepository implements the interface
var _ secondary.TemplateRepository = (*TemplateRepository)(nil)
