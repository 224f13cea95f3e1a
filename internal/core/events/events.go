// Package events defines the domain events emitted by the engine.
// Events are pure data - they describe what happened, not who is told.
// The notifier adapter turns them into audit rows and log lines.
package events

import (
	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/generation"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns a string identifier for the event type.
	EventType() string
	// SubjectID is the id of the row the event is about.
	SubjectID() string
}

// GenerationCreated records a materialized occurrence.
type GenerationCreated struct {
	GenerationID string         `json:"generation_id"`
	InstanceID   string         `json:"instance_id"`
	Key          generation.Key `json:"key"`
	AssigneeID   string         `json:"assignee_id,omitempty"`
}

func (e GenerationCreated) EventType() string { return "generation.created" }
func (e GenerationCreated) SubjectID() string { return e.GenerationID }

// GenerationFailed records an occurrence that could not be materialized.
type GenerationFailed struct {
	GenerationID string                   `json:"generation_id"`
	Key          generation.Key           `json:"key"`
	Reason       generation.FailureReason `json:"reason"`
	Detail       string                   `json:"detail"`
}

func (e GenerationFailed) EventType() string { return "generation.failed" }
func (e GenerationFailed) SubjectID() string { return e.GenerationID }

// GenerationReplayed records an operator reopening a failed ledger row.
type GenerationReplayed struct {
	GenerationID string `json:"generation_id"`
	Actor        string `json:"actor"`
}

func (e GenerationReplayed) EventType() string { return "generation.replayed" }
func (e GenerationReplayed) SubjectID() string { return e.GenerationID }

// StatusChanged records a lifecycle transition of a checklist instance.
type StatusChanged struct {
	InstanceID string           `json:"instance_id"`
	From       checklist.Status `json:"from"`
	To         checklist.Status `json:"to"`
	Action     string           `json:"action"` // explicit action, or "record"/"remove" for automatic moves
	Actor      string           `json:"actor"`
}

func (e StatusChanged) EventType() string { return "checklist.status_changed" }
func (e StatusChanged) SubjectID() string { return e.InstanceID }

// ResponseRecorded records a new or replaced item response.
type ResponseRecorded struct {
	InstanceID string `json:"instance_id"`
	ItemID     string `json:"item_id"`
	ResponseID string `json:"response_id"`
	Actor      string `json:"actor"`
}

func (e ResponseRecorded) EventType() string { return "response.recorded" }
func (e ResponseRecorded) SubjectID() string { return e.ResponseID }

// ResponseRemoved records an uncompleted item.
type ResponseRemoved struct {
	InstanceID string `json:"instance_id"`
	ItemID     string `json:"item_id"`
	ResponseID string `json:"response_id"`
	Actor      string `json:"actor"`
}

func (e ResponseRemoved) EventType() string { return "response.removed" }
func (e ResponseRemoved) SubjectID() string { return e.ResponseID }

// ApprovalChanged records a move in a response's approval state machine.
type ApprovalChanged struct {
	ResponseID string          `json:"response_id"`
	InstanceID string          `json:"instance_id"`
	From       approval.Status `json:"from"`
	To         approval.Status `json:"to"`
	Notes      string          `json:"notes,omitempty"`
	Actor      string          `json:"actor"`
}

func (e ApprovalChanged) EventType() string { return "approval.changed" }
func (e ApprovalChanged) SubjectID() string { return e.ResponseID }

// AttachmentAdded records new evidence on a response.
type AttachmentAdded struct {
	ResponseID   string `json:"response_id"`
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
	Actor        string `json:"actor"`
}

func (e AttachmentAdded) EventType() string { return "approval.attachment_added" }
func (e AttachmentAdded) SubjectID() string { return e.ResponseID }

// CommentAdded records discussion on a response.
type CommentAdded struct {
	ResponseID string `json:"response_id"`
	CommentID  string `json:"comment_id"`
	Actor      string `json:"actor"`
}

func (e CommentAdded) EventType() string { return "approval.comment_added" }
func (e CommentAdded) SubjectID() string { return e.ResponseID }
