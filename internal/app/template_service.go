package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

// maxPreview caps how many occurrences PreviewSchedule returns.
const maxPreview = 100

var assignmentPolicies = map[string]bool{"none": true, "primary": true, "least_loaded": true}

// TemplateServiceImpl implements the TemplateService interface.
type TemplateServiceImpl struct {
	templates  secondary.TemplateRepository
	properties secondary.PropertyDirectory
	logger     *slog.Logger
}

// NewTemplateService creates a new TemplateService with injected dependencies.
func NewTemplateService(templates secondary.TemplateRepository, properties secondary.PropertyDirectory, logger *slog.Logger) *TemplateServiceImpl {
	return &TemplateServiceImpl{
		templates:  templates,
		properties: properties,
		logger:     logger,
	}
}

// CreateTemplate creates a new, active template without items.
func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, req primary.CreateTemplateRequest) (*primary.Template, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	policy := req.AssignmentPolicy
	if policy == "" {
		policy = "none"
	}
	if !assignmentPolicies[policy] {
		return nil, fmt.Errorf("invalid assignment policy %q (valid: none, primary, least_loaded)", policy)
	}

	id, err := s.templates.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate template ID: %w", err)
	}

	record := &secondary.TemplateRecord{
		ID:               id,
		Name:             name,
		Description:      req.Description,
		Active:           true,
		AssignmentPolicy: policy,
	}
	if err := s.templates.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("created template", "template_id", id, "name", name)
	return recordToTemplate(record), nil
}

// GetTemplate retrieves a template with items, schedule and properties.
func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, templateID string) (*primary.TemplateDetail, error) {
	record, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	items, err := s.templates.ListItems(ctx, templateID)
	if err != nil {
		return nil, err
	}
	propertyIDs, err := s.templates.ListPropertyIDs(ctx, templateID)
	if err != nil {
		return nil, err
	}

	detail := &primary.TemplateDetail{
		Template:    recordToTemplate(record),
		PropertyIDs: propertyIDs,
	}
	for _, it := range items {
		detail.Items = append(detail.Items, recordToTemplateItem(it))
	}

	schedule, err := s.templates.GetSchedule(ctx, templateID)
	switch {
	case err == nil:
		def, err := recordToDefinition(schedule)
		if err != nil {
			return nil, err
		}
		detail.Schedule = &def
	case !errors.Is(err, secondary.ErrNotFound):
		return nil, err
	}

	return detail, nil
}

// ListTemplates lists templates.
func (s *TemplateServiceImpl) ListTemplates(ctx context.Context, activeOnly bool) ([]*primary.Template, error) {
	records, err := s.templates.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]*primary.Template, len(records))
	for i, r := range records {
		out[i] = recordToTemplate(r)
	}
	return out, nil
}

// SetTemplateActive activates or deactivates a template.
func (s *TemplateServiceImpl) SetTemplateActive(ctx context.Context, templateID string, active bool) error {
	if err := s.templates.SetActive(ctx, templateID, active); err != nil {
		return err
	}
	s.logger.Info("template active flag changed", "template_id", templateID, "active", active)
	return nil
}

// AddItem appends an item to a template.
func (s *TemplateServiceImpl) AddItem(ctx context.Context, req primary.AddItemRequest) (*primary.TemplateItem, error) {
	if err := validateItem(req); err != nil {
		return nil, err
	}
	if _, err := s.templates.GetByID(ctx, req.TemplateID); err != nil {
		return nil, err
	}
	return s.addItem(ctx, req)
}

func (s *TemplateServiceImpl) addItem(ctx context.Context, req primary.AddItemRequest) (*primary.TemplateItem, error) {
	id, err := s.templates.GetNextItemID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate item ID: %w", err)
	}

	record := &secondary.TemplateItemRecord{
		ID:               id,
		TemplateID:       req.TemplateID,
		Text:             strings.TrimSpace(req.Text),
		Description:      req.Description,
		ItemType:         string(req.ItemType),
		Required:         req.Required,
		ApprovalRequired: req.ApprovalRequired,
	}
	if err := s.templates.AddItem(ctx, record); err != nil {
		return nil, err
	}
	return recordToTemplateItem(record), nil
}

func validateItem(req primary.AddItemRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("item text is required")
	}
	if _, err := checklist.ParseItemType(string(req.ItemType)); err != nil {
		return err
	}
	return nil
}

// AssignProperty makes the template's schedule generate for a property.
func (s *TemplateServiceImpl) AssignProperty(ctx context.Context, templateID, propertyID string) error {
	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		return err
	}
	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		return err
	}
	if err := s.templates.AssignProperty(ctx, templateID, propertyID); err != nil {
		return err
	}
	s.logger.Info("assigned property", "template_id", templateID, "property_id", propertyID)
	return nil
}

// UnassignProperty stops generation for a property.
func (s *TemplateServiceImpl) UnassignProperty(ctx context.Context, templateID, propertyID string) error {
	if err := s.templates.UnassignProperty(ctx, templateID, propertyID); err != nil {
		return err
	}
	s.logger.Info("unassigned property", "template_id", templateID, "property_id", propertyID)
	return nil
}

// SaveSchedule validates and stores a template's recurrence rule.
func (s *TemplateServiceImpl) SaveSchedule(ctx context.Context, templateID string, def recurrence.Definition) error {
	if err := recurrence.Validate(def); err != nil {
		return err
	}
	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		return err
	}
	if err := s.templates.SaveSchedule(ctx, definitionToRecord(templateID, def)); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	s.logger.Info("saved schedule", "template_id", templateID, "frequency", def.Frequency,
		"interval", def.Interval, "enabled", def.Enabled)
	return nil
}

// PreviewSchedule returns the next n occurrences after a date.
func (s *TemplateServiceImpl) PreviewSchedule(ctx context.Context, templateID string, after time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, fmt.Errorf("preview count must be positive")
	}
	if n > maxPreview {
		n = maxPreview
	}

	schedule, err := s.templates.GetSchedule(ctx, templateID)
	if err != nil {
		return nil, err
	}
	def, err := recordToDefinition(schedule)
	if err != nil {
		return nil, err
	}
	// Preview ignores the enabled flag so a paused schedule can still be checked.
	def.Enabled = true
	return recurrence.Next(def, after, n), nil
}

// ImportTemplate creates a complete template from a definition file.
// Everything is validated before the first write.
func (s *TemplateServiceImpl) ImportTemplate(ctx context.Context, req primary.ImportTemplateRequest) (*primary.TemplateDetail, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("template %q has no items", req.Template.Name)
	}
	for i, item := range req.Items {
		if err := validateItem(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	if req.Schedule != nil {
		if err := recurrence.Validate(*req.Schedule); err != nil {
			return nil, err
		}
	}
	for _, pid := range req.PropertyIDs {
		if _, err := s.properties.GetProperty(ctx, pid); err != nil {
			return nil, fmt.Errorf("property %s: %w", pid, err)
		}
	}

	template, err := s.CreateTemplate(ctx, req.Template)
	if err != nil {
		return nil, err
	}
	for _, item := range req.Items {
		item.TemplateID = template.ID
		if _, err := s.addItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to import item %q: %w", item.Text, err)
		}
	}
	if req.Schedule != nil {
		if err := s.templates.SaveSchedule(ctx, definitionToRecord(template.ID, *req.Schedule)); err != nil {
			return nil, fmt.Errorf("failed to save schedule: %w", err)
		}
	}
	for _, pid := range req.PropertyIDs {
		if err := s.templates.AssignProperty(ctx, template.ID, pid); err != nil {
			return nil, err
		}
	}

	s.logger.Info("imported template", "template_id", template.ID, "items", len(req.Items),
		"properties", len(req.PropertyIDs), "scheduled", req.Schedule != nil)
	return s.GetTemplate(ctx, template.ID)
}

func recordToTemplate(r *secondary.TemplateRecord) *primary.Template {
	return &primary.Template{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		Active:           r.Active,
		AssignmentPolicy: r.AssignmentPolicy,
		CreatedAt:        r.CreatedAt,
	}
}

func recordToTemplateItem(r *secondary.TemplateItemRecord) *primary.TemplateItem {
	return &primary.TemplateItem{
		ID:               r.ID,
		TemplateID:       r.TemplateID,
		Position:         r.Position,
		Text:             r.Text,
		Description:      r.Description,
		ItemType:         checklist.ItemType(r.ItemType),
		Required:         r.Required,
		ApprovalRequired: r.ApprovalRequired,
	}
}

// Ensure TemplateServiceImpl implements the interface
var _ primary.TemplateService = (*TemplateServiceImpl)(nil)
