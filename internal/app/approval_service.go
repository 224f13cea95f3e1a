package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/ctxutil"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

// ApprovalServiceImpl implements the ApprovalService interface.
type ApprovalServiceImpl struct {
	checklists secondary.ChecklistRepository
	responses  secondary.ResponseRepository
	notifier   secondary.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewApprovalService creates a new ApprovalService with injected dependencies.
func NewApprovalService(
	checklists secondary.ChecklistRepository,
	responses secondary.ResponseRepository,
	notifier secondary.Notifier,
	logger *slog.Logger,
) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		checklists: checklists,
		responses:  responses,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// reviewTarget is a response together with the instance and item it hangs off.
type reviewTarget struct {
	response *secondary.ResponseRecord
	instance *secondary.ChecklistRecord
	item     *secondary.ChecklistItemRecord
}

func (s *ApprovalServiceImpl) load(ctx context.Context, responseID string) (*reviewTarget, error) {
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	instance, err := s.checklists.GetByID(ctx, response.InstanceID)
	if err != nil {
		return nil, err
	}
	item, err := s.checklists.GetItem(ctx, response.InstanceID, response.ItemID)
	if err != nil {
		return nil, err
	}
	return &reviewTarget{response: response, instance: instance, item: item}, nil
}

func (t *reviewTarget) reviewContext() approval.ReviewContext {
	status := checklist.Status(t.instance.Status)
	return approval.ReviewContext{
		ResponseID:       t.response.ID,
		ApprovalRequired: t.item.ApprovalRequired,
		Current:          approval.Status(t.response.ApprovalStatus),
		InstanceApproved: status == checklist.StatusApproved,
		InstanceReviewable: status == checklist.StatusInProgress ||
			status == checklist.StatusCompleted ||
			status == checklist.StatusRejected,
	}
}

// SubmitForApproval moves an approval-required response to pending.
func (s *ApprovalServiceImpl) SubmitForApproval(ctx context.Context, responseID, actor string) (*primary.ItemResponse, error) {
	actor = ctxutil.Actor(ctx, actor)
	var (
		target *reviewTarget
		from   approval.Status
	)

	err := retryOnConflict(ctx, "submit_approval", func() error {
		var err error
		target, err = s.load(ctx, responseID)
		if err != nil {
			return err
		}
		rctx := target.reviewContext()
		from = rctx.Current
		if guard := approval.CanSubmit(rctx); !guard.Allowed {
			return checklist.NewInvalidTransition(target.instance.ID, checklist.Status(target.instance.Status), "submit", guard.Reason)
		}
		if from == approval.StatusPending {
			return nil
		}

		target.response.ApprovalStatus = string(approval.StatusPending)
		target.response.ApprovedBy = ""
		target.response.ReviewedAt = ""
		return s.responses.UpdateApproval(ctx, target.response, target.instance)
	})
	if err != nil {
		return nil, err
	}

	if from != approval.StatusPending {
		s.approvalChanged(ctx, target, from, "", actor)
	}
	return recordToResponse(target.response)
}

// SetApproval records a reviewer outcome.
func (s *ApprovalServiceImpl) SetApproval(ctx context.Context, responseID string, outcome approval.Status, notes, actor string) (*primary.ItemResponse, error) {
	actor = ctxutil.Actor(ctx, actor)
	var (
		target *reviewTarget
		from   approval.Status
	)

	err := retryOnConflict(ctx, "set_approval", func() error {
		var err error
		target, err = s.load(ctx, responseID)
		if err != nil {
			return err
		}
		rctx := target.reviewContext()
		from = rctx.Current
		if guard := approval.CanSetApproval(rctx, outcome); !guard.Allowed {
			return checklist.NewInvalidTransition(target.instance.ID, checklist.Status(target.instance.Status), "review", guard.Reason)
		}

		target.response.ApprovalStatus = string(outcome)
		target.response.ApprovedBy = actor
		target.response.ApprovalNotes = strings.TrimSpace(notes)
		target.response.ReviewedAt = timestamp(s.now())
		return s.responses.UpdateApproval(ctx, target.response, target.instance)
	})
	if err != nil {
		return nil, err
	}

	s.approvalChanged(ctx, target, from, target.response.ApprovalNotes, actor)
	return recordToResponse(target.response)
}

// AddAttachment records evidence metadata on a response.
func (s *ApprovalServiceImpl) AddAttachment(ctx context.Context, req primary.AddAttachmentRequest) (*primary.Attachment, error) {
	actor := ctxutil.Actor(ctx, req.Actor)
	if strings.TrimSpace(req.FileName) == "" {
		return nil, fmt.Errorf("attachment file name is required")
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		return nil, fmt.Errorf("attachment storage key is required")
	}
	if req.SizeBytes < 0 {
		return nil, fmt.Errorf("attachment size cannot be negative")
	}

	record := &secondary.AttachmentRecord{
		ID:          uuid.NewString(),
		ResponseID:  req.ResponseID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		StorageKey:  req.StorageKey,
		UploadedBy:  actor,
	}

	err := retryOnConflict(ctx, "add_attachment", func() error {
		target, err := s.load(ctx, req.ResponseID)
		if err != nil {
			return err
		}
		guard := approval.CanAddAttachment(approval.AttachmentContext{
			ResponseID:       req.ResponseID,
			InstanceApproved: checklist.Status(target.instance.Status) == checklist.StatusApproved,
		})
		if !guard.Allowed {
			return checklist.NewInvalidTransition(target.instance.ID, checklist.Status(target.instance.Status), "attach", guard.Reason)
		}
		record.CreatedAt = timestamp(s.now())
		return s.responses.AddAttachment(ctx, record, target.instance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("added attachment", "response_id", req.ResponseID, "attachment_id", record.ID, "file", record.FileName, "actor", actor)
	s.notifier.Notify(ctx, events.AttachmentAdded{
		ResponseID: req.ResponseID, AttachmentID: record.ID, FileName: record.FileName, Actor: actor,
	})
	return recordToAttachment(record), nil
}

// AddComment adds discussion to a response.
func (s *ApprovalServiceImpl) AddComment(ctx context.Context, responseID, body, actor string) (*primary.Comment, error) {
	actor = ctxutil.Actor(ctx, actor)
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("comment body cannot be empty")
	}
	if _, err := s.responses.GetByID(ctx, responseID); err != nil {
		return nil, err
	}

	record := &secondary.CommentRecord{
		ID:         uuid.NewString(),
		ResponseID: responseID,
		Author:     actor,
		Body:       body,
		CreatedAt:  timestamp(s.now()),
	}
	if err := s.responses.AddComment(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.notifier.Notify(ctx, events.CommentAdded{ResponseID: responseID, CommentID: record.ID, Actor: actor})
	return &primary.Comment{
		ID:         record.ID,
		ResponseID: record.ResponseID,
		Author:     record.Author,
		Body:       record.Body,
		CreatedAt:  record.CreatedAt,
	}, nil
}

// ListAttachments lists a response's attachments.
func (s *ApprovalServiceImpl) ListAttachments(ctx context.Context, responseID string) ([]*primary.Attachment, error) {
	records, err := s.responses.ListAttachments(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	out := make([]*primary.Attachment, len(records))
	for i, r := range records {
		out[i] = recordToAttachment(r)
	}
	return out, nil
}

// ListComments lists a response's comments.
func (s *ApprovalServiceImpl) ListComments(ctx context.Context, responseID string) ([]*primary.Comment, error) {
	records, err := s.responses.ListComments(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	out := make([]*primary.Comment, len(records))
	for i, r := range records {
		out[i] = &primary.Comment{
			ID:         r.ID,
			ResponseID: r.ResponseID,
			Author:     r.Author,
			Body:       r.Body,
			CreatedAt:  r.CreatedAt,
		}
	}
	return out, nil
}

func (s *ApprovalServiceImpl) approvalChanged(ctx context.Context, target *reviewTarget, from approval.Status, notes, actor string) {
	to := approval.Status(target.response.ApprovalStatus)
	s.logger.Info("approval changed", "response_id", target.response.ID, "instance_id", target.instance.ID,
		"from", from, "to", to, "actor", actor)
	s.notifier.Notify(ctx, events.ApprovalChanged{
		ResponseID: target.response.ID,
		InstanceID: target.instance.ID,
		From:       from,
		To:         to,
		Notes:      notes,
		Actor:      actor,
	})
}

func recordToAttachment(r *secondary.AttachmentRecord) *primary.Attachment {
	return &primary.Attachment{
		ID:          r.ID,
		ResponseID:  r.ResponseID,
		FileName:    r.FileName,
		ContentType: r.ContentType,
		SizeBytes:   r.SizeBytes,
		StorageKey:  r.StorageKey,
		UploadedBy:  r.UploadedBy,
		CreatedAt:   r.CreatedAt,
	}
}

// Ensure ApprovalServiceImpl implements the interface
var _ primary.ApprovalService = (*ApprovalServiceImpl)(nil)
