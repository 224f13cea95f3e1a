package primary

import (
	"context"

	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/core/checklist"
)

// ChecklistService defines the primary port for the checklist lifecycle.
type ChecklistService interface {
	// CreateManualChecklist creates an instance outside the scheduler. It
	// follows the same state machine as generated instances.
	CreateManualChecklist(ctx context.Context, req CreateChecklistRequest) (*Checklist, error)

	// GetChecklist retrieves an instance with its items and responses.
	GetChecklist(ctx context.Context, instanceID string) (*ChecklistDetail, error)

	// ListChecklists lists instances with optional filters.
	ListChecklists(ctx context.Context, filters ChecklistFilters) ([]*Checklist, error)

	// Transition applies an explicit lifecycle action. A same-state action is
	// a no-op; a forbidden one returns *checklist.InvalidTransitionError.
	Transition(ctx context.Context, instanceID string, action checklist.Action, actor string) (*Checklist, error)

	// RecordResponse records or replaces the value for one item.
	RecordResponse(ctx context.Context, instanceID, itemID string, value checklist.Value, actor string) (*ItemResponse, error)

	// RemoveResponse removes the value for one item.
	RemoveResponse(ctx context.Context, instanceID, itemID, actor string) error
}

// CreateChecklistRequest contains parameters for a manual checklist.
type CreateChecklistRequest struct {
	TemplateID string
	PropertyID string
	AssigneeID string
	DueAt      string // RFC3339 or YYYY-MM-DD; empty means now
	Actor      string
}

// Checklist represents a checklist instance at the port boundary.
type Checklist struct {
	ID             string
	TemplateID     string
	TemplateName   string
	PropertyID     string
	GenerationID   string
	AssigneeID     string
	Status         checklist.Status
	DueAt          string
	StartedAt      string
	CompletedAt    string
	ApprovedAt     string
	ApprovedBy     string
	RejectedAt     string
	RejectedBy     string
	RejectionNotes string
	Version        int
	CreatedAt      string
	UpdatedAt      string
}

// ChecklistItem is an item snapshot with its response, if any.
type ChecklistItem struct {
	ID               string
	Position         int
	Text             string
	Description      string
	ItemType         checklist.ItemType
	Required         bool
	ApprovalRequired bool
	Response         *ItemResponse
}

// ChecklistDetail is an instance with its items.
type ChecklistDetail struct {
	Checklist *Checklist
	Items     []*ChecklistItem
}

// ItemResponse represents a response at the port boundary.
type ItemResponse struct {
	ID             string
	InstanceID     string
	ItemID         string
	Value          checklist.Value
	SubmittedBy    string
	SubmittedAt    string
	ApprovalStatus approval.Status
	ApprovedBy     string
	ApprovalNotes  string
	ReviewedAt     string
}

// ChecklistFilters contains filter options for listing instances.
type ChecklistFilters struct {
	Status     string
	PropertyID string
	TemplateID string
	AssigneeID string
	Limit      int
}
