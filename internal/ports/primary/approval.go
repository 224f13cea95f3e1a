package primary

import (
	"context"

	"github.com/example/propcheck/internal/core/approval"
)

// ApprovalService defines the primary port for the per-response approval
// sub-workflow.
type ApprovalService interface {
	// SubmitForApproval moves an approval-required response to pending.
	SubmitForApproval(ctx context.Context, responseID, actor string) (*ItemResponse, error)

	// SetApproval records a reviewer outcome. Unsubmitted responses are
	// submitted implicitly.
	SetApproval(ctx context.Context, responseID string, outcome approval.Status, notes, actor string) (*ItemResponse, error)

	// AddAttachment records evidence metadata on a response.
	AddAttachment(ctx context.Context, req AddAttachmentRequest) (*Attachment, error)

	// AddComment adds discussion to a response. Allowed in every state.
	AddComment(ctx context.Context, responseID, body, actor string) (*Comment, error)

	// ListAttachments lists a response's attachments.
	ListAttachments(ctx context.Context, responseID string) ([]*Attachment, error)

	// ListComments lists a response's comments.
	ListComments(ctx context.Context, responseID string) ([]*Comment, error)
}

// AddAttachmentRequest contains attachment metadata. The file itself is
// stored by an external service under StorageKey.
type AddAttachmentRequest struct {
	ResponseID  string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	Actor       string
}

// Attachment represents attachment metadata at the port boundary.
type Attachment struct {
	ID          string
	ResponseID  string
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
	UploadedBy  string
	CreatedAt   string
}

// Comment represents a response comment at the port boundary.
type Comment struct {
	ID         string
	ResponseID string
	Author     string
	Body       string
	CreatedAt  string
}
