// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConcurrentModification is returned when a conditional write lost a race:
// the row changed between read and write. Callers re-read and retry.
var ErrConcurrentModification = errors.New("concurrent modification")

// TemplateStore is the read side the scheduler consumes.
type TemplateStore interface {
	// GetActiveSchedules returns enabled schedules of active templates, each
	// with the ids of the properties the template is assigned to.
	GetActiveSchedules(ctx context.Context) ([]*ScheduleRecord, error)

	// GetTemplateSnapshot returns the template, its current items and policy.
	// Returns ErrNotFound when the template does not exist.
	GetTemplateSnapshot(ctx context.Context, templateID string) (*TemplateSnapshot, error)
}

// TemplateRepository defines the secondary port for template persistence.
type TemplateRepository interface {
	TemplateStore

	// Create persists a new template.
	Create(ctx context.Context, template *TemplateRecord) error

	// GetByID retrieves a template by its ID.
	GetByID(ctx context.Context, id string) (*TemplateRecord, error)

	// List retrieves templates, optionally only active ones.
	List(ctx context.Context, activeOnly bool) ([]*TemplateRecord, error)

	// SetActive activates or deactivates a template.
	SetActive(ctx context.Context, id string, active bool) error

	// AddItem appends an item to a template.
	AddItem(ctx context.Context, item *TemplateItemRecord) error

	// ListItems returns a template's items in order.
	ListItems(ctx context.Context, templateID string) ([]*TemplateItemRecord, error)

	// SaveSchedule inserts or replaces the template's schedule.
	SaveSchedule(ctx context.Context, schedule *ScheduleRecord) error

	// GetSchedule returns the template's schedule, or ErrNotFound.
	GetSchedule(ctx context.Context, templateID string) (*ScheduleRecord, error)

	// AssignProperty links a property to a template. Idempotent.
	AssignProperty(ctx context.Context, templateID, propertyID string) error

	// UnassignProperty removes a template/property link.
	UnassignProperty(ctx context.Context, templateID, propertyID string) error

	// ListPropertyIDs returns the properties a template is assigned to.
	ListPropertyIDs(ctx context.Context, templateID string) ([]string, error)

	// GetNextID returns the next available template ID.
	GetNextID(ctx context.Context) (string, error)

	// GetNextItemID returns the next available template item ID.
	GetNextItemID(ctx context.Context) (string, error)
}

// TemplateRecord represents a checklist template as stored in persistence.
type TemplateRecord struct {
	ID               string `db:"id"`
	Name             string `db:"name"`
	Description      string `db:"description"`
	Active           bool   `db:"active"`
	AssignmentPolicy string `db:"assignment_policy"`
	CreatedAt        string `db:"created_at"`
	UpdatedAt        string `db:"updated_at"`
}

// TemplateItemRecord is one item definition on a template.
type TemplateItemRecord struct {
	ID               string `db:"id"`
	TemplateID       string `db:"template_id"`
	Position         int    `db:"position"`
	Text             string `db:"text"`
	Description      string `db:"description"`
	ItemType         string `db:"item_type"`
	Required         bool   `db:"required"`
	ApprovalRequired bool   `db:"approval_required"`
}

// ScheduleRecord represents a template's recurrence rule as stored.
// Dates are YYYY-MM-DD; DaysOfWeek is a comma separated list of weekday
// numbers (0 = Sunday).
type ScheduleRecord struct {
	TemplateID   string `db:"template_id"`
	Enabled      bool   `db:"enabled"`
	Frequency    string `db:"frequency"`
	Interval     int    `db:"interval_count"`
	DaysOfWeek   string `db:"days_of_week"`
	DayOfMonth   int    `db:"day_of_month"`
	TimeOfDay    string `db:"time_of_day"`
	TimeZone     string `db:"time_zone"`
	StartDate    string `db:"start_date"`
	EndDate      string `db:"end_date"`
	LeadTimeDays int    `db:"lead_time_days"`
	AutoAssign   bool   `db:"auto_assign"`
	UpdatedAt    string `db:"updated_at"`

	PropertyIDs []string `db:"-"`
}

// TemplateSnapshot is everything the generator copies into a new instance.
type TemplateSnapshot struct {
	Template   *TemplateRecord
	Items      []*TemplateItemRecord
	AutoAssign bool
}

// PropertyDirectory is the property lookup the generator consumes.
type PropertyDirectory interface {
	// GetProperty retrieves a property. Returns ErrNotFound when missing.
	GetProperty(ctx context.Context, id string) (*PropertyRecord, error)
}

// PropertyRepository defines the secondary port for property and staff persistence.
type PropertyRepository interface {
	PropertyDirectory

	// Create persists a new property.
	Create(ctx context.Context, property *PropertyRecord) error

	// List retrieves properties, optionally only active ones.
	List(ctx context.Context, activeOnly bool) ([]*PropertyRecord, error)

	// SetActive activates or deactivates a property.
	SetActive(ctx context.Context, id string, active bool) error

	// AddStaff assigns a user to a property.
	AddStaff(ctx context.Context, staff *StaffRecord) error

	// ListStaff returns the staff of a property, primary first.
	ListStaff(ctx context.Context, propertyID string) ([]*StaffRecord, error)

	// GetNextID returns the next available property ID.
	GetNextID(ctx context.Context) (string, error)
}

// PropertyRecord represents a property as stored in persistence.
type PropertyRecord struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	TimeZone  string `db:"time_zone"`
	Active    bool   `db:"active"`
	CreatedAt string `db:"created_at"`
}

// StaffRecord links a user to a property.
type StaffRecord struct {
	PropertyID string `db:"property_id"`
	UserID     string `db:"user_id"`
	Role       string `db:"role"`
	IsPrimary  bool   `db:"is_primary"`
}

// AssigneeResolver picks an assignee for a new instance according to a
// template's assignment policy. An empty result means unassigned.
type AssigneeResolver interface {
	ResolveAssignee(ctx context.Context, templateID, propertyID, policy string) (string, error)
}

// ReserveOutcome is the result of a ledger reservation attempt.
type ReserveOutcome int

const (
	// ReserveReserved means the caller owns the occurrence and must generate it.
	ReserveReserved ReserveOutcome = iota
	// ReserveAlreadyExists means another caller owns or owned it. Not an error.
	ReserveAlreadyExists
)

func (o ReserveOutcome) String() string {
	if o == ReserveReserved {
		return "reserved"
	}
	return "already_exists"
}

// ReserveRequest identifies the occurrence to reserve.
type ReserveRequest struct {
	ID             string
	TemplateID     string
	PropertyID     string
	OccurrenceDate string
	DueAt          string

	// StaleAfter lets a pending reservation older than this be reclaimed.
	// Zero disables reclaiming.
	StaleAfter time.Duration
}

// GenerationLedger is the durable idempotency boundary for generation.
type GenerationLedger interface {
	// Reserve atomically inserts the occurrence if absent. On ReserveReserved
	// the returned record's (ID, Attempt) is the caller's ownership token.
	Reserve(ctx context.Context, req ReserveRequest) (*GenerationRecord, ReserveOutcome, error)

	// MarkFailed moves a pending reservation to failed. Returns
	// ErrConcurrentModification when the token no longer owns the row.
	MarkFailed(ctx context.Context, id string, attempt int, detail string) error

	// ReopenFailed moves a failed row back to pending with a new attempt.
	// Returns ErrConcurrentModification when the row is not failed.
	ReopenFailed(ctx context.Context, id string) (*GenerationRecord, error)

	// GetByID retrieves a ledger row.
	GetByID(ctx context.Context, id string) (*GenerationRecord, error)

	// List retrieves ledger rows matching the given filters.
	List(ctx context.Context, filters GenerationFilters) ([]*GenerationRecord, error)
}

// GenerationRecord is one ledger row.
type GenerationRecord struct {
	ID             string `db:"id"`
	TemplateID     string `db:"template_id"`
	PropertyID     string `db:"property_id"`
	OccurrenceDate string `db:"occurrence_date"`
	DueAt          string `db:"due_at"`
	Status         string `db:"status"`
	InstanceID     string `db:"instance_id"`
	ErrorDetail    string `db:"error_detail"`
	Attempt        int    `db:"attempt"`
	ReservedAt     string `db:"reserved_at"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

// GenerationFilters contains filter options for querying the ledger.
type GenerationFilters struct {
	Status     string
	TemplateID string
	PropertyID string
	Limit      int
}

// ChecklistRepository defines the secondary port for checklist instances.
type ChecklistRepository interface {
	// CreateFromGeneration creates the instance and its items and flips the
	// ledger row to created, in one transaction. Returns
	// ErrConcurrentModification when (generationID, attempt) no longer owns
	// the ledger row; nothing is written in that case.
	CreateFromGeneration(ctx context.Context, instance *ChecklistRecord, items []*ChecklistItemRecord, generationID string, attempt int) error

	// Create persists a manually created instance and its items.
	Create(ctx context.Context, instance *ChecklistRecord, items []*ChecklistItemRecord) error

	// GetByID retrieves an instance by its ID.
	GetByID(ctx context.Context, id string) (*ChecklistRecord, error)

	// List retrieves instances matching the given filters.
	List(ctx context.Context, filters ChecklistFilters) ([]*ChecklistRecord, error)

	// ListItems returns the item snapshots of an instance in order.
	ListItems(ctx context.Context, instanceID string) ([]*ChecklistItemRecord, error)

	// GetItem retrieves one item snapshot.
	GetItem(ctx context.Context, instanceID, itemID string) (*ChecklistItemRecord, error)

	// ApplyChange writes the mutable instance fields if the stored version
	// still equals instance.Version, then increments instance.Version.
	ApplyChange(ctx context.Context, instance *ChecklistRecord) error

	// CountOpenByAssignee counts instances not yet completed for a user.
	CountOpenByAssignee(ctx context.Context, assigneeID string) (int, error)
}

// ChecklistRecord represents a checklist instance as stored in persistence.
type ChecklistRecord struct {
	ID             string `db:"id"`
	TemplateID     string `db:"template_id"`
	TemplateName   string `db:"template_name"`
	PropertyID     string `db:"property_id"`
	GenerationID   string `db:"generation_id"`
	AssigneeID     string `db:"assignee_id"`
	Status         string `db:"status"`
	DueAt          string `db:"due_at"`
	Version        int    `db:"version"`
	StartedAt      string `db:"started_at"`
	CompletedAt    string `db:"completed_at"`
	ApprovedAt     string `db:"approved_at"`
	ApprovedBy     string `db:"approved_by"`
	RejectedAt     string `db:"rejected_at"`
	RejectedBy     string `db:"rejected_by"`
	RejectionNotes string `db:"rejection_notes"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

// ChecklistItemRecord is an item snapshot on an instance.
type ChecklistItemRecord struct {
	ID               string `db:"id"`
	InstanceID       string `db:"instance_id"`
	TemplateItemID   string `db:"template_item_id"`
	Position         int    `db:"position"`
	Text             string `db:"text"`
	Description      string `db:"description"`
	ItemType         string `db:"item_type"`
	Required         bool   `db:"required"`
	ApprovalRequired bool   `db:"approval_required"`
}

// ChecklistFilters contains filter options for querying instances.
type ChecklistFilters struct {
	Status     string
	PropertyID string
	TemplateID string
	AssigneeID string
	Limit      int
}

// ResponseRepository defines the secondary port for item responses and their
// approval side records. Every write that can affect the lifecycle also
// applies the instance change conditionally (see ChecklistRepository.ApplyChange)
// in the same transaction, so one instance sees one writer at a time.
type ResponseRepository interface {
	// Save inserts or replaces the response for (instance, item).
	Save(ctx context.Context, response *ResponseRecord, instance *ChecklistRecord) error

	// Delete removes a response and its attachments and comments.
	Delete(ctx context.Context, responseID string, instance *ChecklistRecord) error

	// UpdateApproval writes the approval fields of a response.
	UpdateApproval(ctx context.Context, response *ResponseRecord, instance *ChecklistRecord) error

	// GetByID retrieves a response.
	GetByID(ctx context.Context, id string) (*ResponseRecord, error)

	// GetByItem retrieves the response to one item, or ErrNotFound.
	GetByItem(ctx context.Context, instanceID, itemID string) (*ResponseRecord, error)

	// ListByInstance returns all responses of an instance.
	ListByInstance(ctx context.Context, instanceID string) ([]*ResponseRecord, error)

	// AddAttachment persists attachment metadata.
	AddAttachment(ctx context.Context, attachment *AttachmentRecord, instance *ChecklistRecord) error

	// ListAttachments returns the attachments of a response.
	ListAttachments(ctx context.Context, responseID string) ([]*AttachmentRecord, error)

	// AddComment persists a comment. Comments never touch the instance.
	AddComment(ctx context.Context, comment *CommentRecord) error

	// ListComments returns the comments of a response, oldest first.
	ListComments(ctx context.Context, responseID string) ([]*CommentRecord, error)
}

// ResponseRecord is a submitted value for one item.
type ResponseRecord struct {
	ID             string `db:"id"`
	InstanceID     string `db:"instance_id"`
	ItemID         string `db:"item_id"`
	Value          string `db:"value"`
	SubmittedBy    string `db:"submitted_by"`
	SubmittedAt    string `db:"submitted_at"`
	ApprovalStatus string `db:"approval_status"`
	ApprovedBy     string `db:"approved_by"`
	ApprovalNotes  string `db:"approval_notes"`
	ReviewedAt     string `db:"reviewed_at"`
}

// AttachmentRecord is file metadata on a response. The bytes live in
// external storage under StorageKey.
type AttachmentRecord struct {
	ID          string `db:"id"`
	ResponseID  string `db:"response_id"`
	FileName    string `db:"file_name"`
	ContentType string `db:"content_type"`
	SizeBytes   int64  `db:"size_bytes"`
	StorageKey  string `db:"storage_key"`
	UploadedBy  string `db:"uploaded_by"`
	CreatedAt   string `db:"created_at"`
}

// CommentRecord is a discussion entry on a response.
type CommentRecord struct {
	ID         string `db:"id"`
	ResponseID string `db:"response_id"`
	Author     string `db:"author"`
	Body       string `db:"body"`
	CreatedAt  string `db:"created_at"`
}
