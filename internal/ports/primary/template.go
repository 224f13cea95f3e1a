package primary

import (
	"context"
	"time"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/recurrence"
)

// TemplateService defines the primary port for templates and their schedules.
type TemplateService interface {
	// CreateTemplate creates a new, active template without items.
	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*Template, error)

	// GetTemplate retrieves a template with items, schedule and properties.
	GetTemplate(ctx context.Context, templateID string) (*TemplateDetail, error)

	// ListTemplates lists templates.
	ListTemplates(ctx context.Context, activeOnly bool) ([]*Template, error)

	// SetTemplateActive activates or deactivates a template.
	SetTemplateActive(ctx context.Context, templateID string, active bool) error

	// AddItem appends an item to a template. In-flight instances keep their
	// own snapshots.
	AddItem(ctx context.Context, req AddItemRequest) (*TemplateItem, error)

	// AssignProperty makes the template's schedule generate for a property.
	AssignProperty(ctx context.Context, templateID, propertyID string) error

	// UnassignProperty stops generation for a property.
	UnassignProperty(ctx context.Context, templateID, propertyID string) error

	// SaveSchedule validates and stores a template's recurrence rule.
	// Returns *recurrence.ConfigError for malformed definitions.
	SaveSchedule(ctx context.Context, templateID string, def recurrence.Definition) error

	// PreviewSchedule returns the next n occurrences after a date.
	PreviewSchedule(ctx context.Context, templateID string, after time.Time, n int) ([]time.Time, error)

	// ImportTemplate creates a complete template from a definition file.
	ImportTemplate(ctx context.Context, req ImportTemplateRequest) (*TemplateDetail, error)
}

// CreateTemplateRequest contains parameters for creating a template.
type CreateTemplateRequest struct {
	Name             string
	Description      string
	AssignmentPolicy string // none, primary, least_loaded
}

// AddItemRequest contains parameters for adding a template item.
type AddItemRequest struct {
	TemplateID       string
	Text             string
	Description      string
	ItemType         checklist.ItemType
	Required         bool
	ApprovalRequired bool
}

// ImportTemplateRequest is a full template definition.
type ImportTemplateRequest struct {
	Template    CreateTemplateRequest
	Items       []AddItemRequest
	Schedule    *recurrence.Definition
	PropertyIDs []string
}

// Template represents a template at the port boundary.
type Template struct {
	ID               string
	Name             string
	Description      string
	Active           bool
	AssignmentPolicy string
	CreatedAt        string
}

// TemplateItem represents a template item at the port boundary.
type TemplateItem struct {
	ID               string
	TemplateID       string
	Position         int
	Text             string
	Description      string
	ItemType         checklist.ItemType
	Required         bool
	ApprovalRequired bool
}

// TemplateDetail is a template with everything hanging off it.
type TemplateDetail struct {
	Template    *Template
	Items       []*TemplateItem
	Schedule    *recurrence.Definition
	PropertyIDs []string
}
