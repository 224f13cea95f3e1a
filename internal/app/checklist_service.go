package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/core/generation"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ctxutil"
	"github.com/example/propcheck/internal/metrics"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

// ChecklistServiceImpl implements the ChecklistService interface.
type ChecklistServiceImpl struct {
	checklists secondary.ChecklistRepository
	responses  secondary.ResponseRepository
	templates  secondary.TemplateStore
	properties secondary.PropertyDirectory
	notifier   secondary.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewChecklistService creates a new ChecklistService with injected dependencies.
func NewChecklistService(
	checklists secondary.ChecklistRepository,
	responses secondary.ResponseRepository,
	templates secondary.TemplateStore,
	properties secondary.PropertyDirectory,
	notifier secondary.Notifier,
	logger *slog.Logger,
) *ChecklistServiceImpl {
	return &ChecklistServiceImpl{
		checklists: checklists,
		responses:  responses,
		templates:  templates,
		properties: properties,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateManualChecklist creates an instance outside the scheduler.
func (s *ChecklistServiceImpl) CreateManualChecklist(ctx context.Context, req primary.CreateChecklistRequest) (*primary.Checklist, error) {
	key := generation.Key{TemplateID: req.TemplateID, PropertyID: req.PropertyID, OccurrenceDate: recurrence.DateOf(s.now())}
	gctx := generation.GenerateContext{Key: key}

	snapshot, err := s.templates.GetTemplateSnapshot(ctx, req.TemplateID)
	switch {
	case err == nil:
		gctx.TemplateExists = true
		gctx.TemplateActive = snapshot.Template.Active
		gctx.ItemCount = len(snapshot.Items)
	case !errors.Is(err, secondary.ErrNotFound):
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	property, err := s.properties.GetProperty(ctx, req.PropertyID)
	switch {
	case err == nil:
		gctx.PropertyExists = true
		gctx.PropertyActive = property.Active
	case !errors.Is(err, secondary.ErrNotFound):
		return nil, fmt.Errorf("failed to load property: %w", err)
	}

	if guard := generation.CanGenerate(gctx); !guard.Allowed {
		return nil, guard.Error()
	}

	dueAt, err := s.parseDueAt(req.DueAt)
	if err != nil {
		return nil, err
	}

	instance := &secondary.ChecklistRecord{
		ID:           uuid.NewString(),
		TemplateID:   snapshot.Template.ID,
		TemplateName: snapshot.Template.Name,
		PropertyID:   property.ID,
		AssigneeID:   req.AssigneeID,
		Status:       string(checklist.StatusPending),
		DueAt:        dueAt,
	}
	if err := s.checklists.Create(ctx, instance, snapshotItems(snapshot.Items)); err != nil {
		return nil, fmt.Errorf("failed to create checklist: %w", err)
	}

	s.logger.Info("created manual checklist", "instance_id", instance.ID, "template_id", req.TemplateID,
		"property_id", req.PropertyID, "actor", ctxutil.Actor(ctx, req.Actor))
	return recordToChecklist(instance), nil
}

func (s *ChecklistServiceImpl) parseDueAt(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return timestamp(s.now()), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return timestamp(t), nil
	}
	d, err := recurrence.ParseDate(raw)
	if err != nil {
		return "", fmt.Errorf("invalid due date %q: use YYYY-MM-DD or RFC3339", raw)
	}
	return timestamp(d), nil
}

// GetChecklist retrieves an instance with its items and responses.
func (s *ChecklistServiceImpl) GetChecklist(ctx context.Context, instanceID string) (*primary.ChecklistDetail, error) {
	instance, err := s.checklists.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	items, err := s.checklists.ListItems(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	byItem := make(map[string]*secondary.ResponseRecord, len(responses))
	for _, r := range responses {
		byItem[r.ItemID] = r
	}

	detail := &primary.ChecklistDetail{Checklist: recordToChecklist(instance)}
	for _, it := range items {
		item := &primary.ChecklistItem{
			ID:               it.ID,
			Position:         it.Position,
			Text:             it.Text,
			Description:      it.Description,
			ItemType:         checklist.ItemType(it.ItemType),
			Required:         it.Required,
			ApprovalRequired: it.ApprovalRequired,
		}
		if r, ok := byItem[it.ID]; ok {
			resp, err := recordToResponse(r)
			if err != nil {
				return nil, err
			}
			item.Response = resp
		}
		detail.Items = append(detail.Items, item)
	}
	return detail, nil
}

// ListChecklists lists instances with optional filters.
func (s *ChecklistServiceImpl) ListChecklists(ctx context.Context, filters primary.ChecklistFilters) ([]*primary.Checklist, error) {
	if filters.Status != "" {
		if _, err := checklist.ParseStatus(filters.Status); err != nil {
			return nil, err
		}
	}
	records, err := s.checklists.List(ctx, secondary.ChecklistFilters{
		Status:     filters.Status,
		PropertyID: filters.PropertyID,
		TemplateID: filters.TemplateID,
		AssigneeID: filters.AssigneeID,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checklists: %w", err)
	}

	out := make([]*primary.Checklist, len(records))
	for i, r := range records {
		out[i] = recordToChecklist(r)
	}
	return out, nil
}

// Transition applies an explicit lifecycle action.
func (s *ChecklistServiceImpl) Transition(ctx context.Context, instanceID string, action checklist.Action, actor string) (*primary.Checklist, error) {
	actor = ctxutil.Actor(ctx, actor)
	var (
		instance *secondary.ChecklistRecord
		from     checklist.Status
	)

	err := retryOnConflict(ctx, "transition", func() error {
		var err error
		instance, err = s.checklists.GetByID(ctx, instanceID)
		if err != nil {
			return err
		}
		from = checklist.Status(instance.Status)
		if checklist.IsNoOp(from, action) {
			return nil
		}

		items, responses, err := s.loadState(ctx, instanceID)
		if err != nil {
			return err
		}

		summaries := summarize(items, responses)
		guard := checklist.CanTransition(checklist.TransitionContext{
			InstanceID: instanceID,
			Status:     from,
			Action:     action,
			Items:      summaries,
		})
		if !guard.Allowed {
			return checklist.NewInvalidTransition(instanceID, from, string(action), guard.Reason)
		}

		now := timestamp(s.now())
		to := checklist.TargetStatus(action)
		if action == checklist.ActionStart {
			to = checklist.StatusAfterStart(from, summaries)
		}
		instance.Status = string(to)
		switch action {
		case checklist.ActionStart:
			if instance.StartedAt == "" {
				instance.StartedAt = now
			}
			if to == checklist.StatusCompleted {
				instance.CompletedAt = now
			}
		case checklist.ActionComplete:
			instance.CompletedAt = now
		case checklist.ActionApprove:
			instance.ApprovedAt = now
			instance.ApprovedBy = actor
		case checklist.ActionReject:
			instance.RejectedAt = now
			instance.RejectedBy = actor
			instance.RejectionNotes = rejectionNotes(responses)
		}
		return s.checklists.ApplyChange(ctx, instance)
	})
	if err != nil {
		return nil, err
	}

	if to := checklist.Status(instance.Status); to != from {
		s.statusChanged(ctx, instanceID, from, to, string(action), actor)
	}
	return recordToChecklist(instance), nil
}

// RecordResponse records or replaces the value for one item.
func (s *ChecklistServiceImpl) RecordResponse(ctx context.Context, instanceID, itemID string, value checklist.Value, actor string) (*primary.ItemResponse, error) {
	actor = ctxutil.Actor(ctx, actor)
	var (
		response     *secondary.ResponseRecord
		from, to     checklist.Status
		approvalFrom approval.Status
	)

	err := retryOnConflict(ctx, "record_response", func() error {
		instance, err := s.checklists.GetByID(ctx, instanceID)
		if err != nil {
			return err
		}
		from = checklist.Status(instance.Status)
		if !checklist.IsEditable(from) {
			return checklist.NewInvalidTransition(instanceID, from, "record",
				fmt.Sprintf("can only record responses on checklists that are pending, in_progress or rejected (current status: %s)", from))
		}

		item, err := s.checklists.GetItem(ctx, instanceID, itemID)
		if err != nil {
			return err
		}
		if err := checklist.ValidateValue(checklist.ItemType(item.ItemType), value); err != nil {
			return err
		}
		encoded, err := checklist.EncodeValue(value)
		if err != nil {
			return err
		}

		items, responses, err := s.loadState(ctx, instanceID)
		if err != nil {
			return err
		}

		now := timestamp(s.now())
		response = nil
		for _, r := range responses {
			if r.ItemID == itemID {
				response = r
			}
		}
		if response == nil {
			response = &secondary.ResponseRecord{
				ID:             uuid.NewString(),
				InstanceID:     instanceID,
				ItemID:         itemID,
				ApprovalStatus: string(approval.StatusNone),
			}
			responses = append(responses, response)
		}
		approvalFrom = approval.Status(response.ApprovalStatus)
		response.Value = encoded
		response.SubmittedBy = actor
		response.SubmittedAt = now
		if next := approval.StatusAfterValueChange(approvalFrom); next != approvalFrom {
			response.ApprovalStatus = string(next)
			response.ApprovedBy = ""
			response.ReviewedAt = ""
		}

		to = checklist.StatusAfterRecord(from, summarize(items, responses))
		instance.Status = string(to)
		if to != from {
			if instance.StartedAt == "" {
				instance.StartedAt = now
			}
			if to == checklist.StatusCompleted {
				instance.CompletedAt = now
			}
		}
		return s.responses.Save(ctx, response, instance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("recorded response", "instance_id", instanceID, "item_id", itemID, "actor", actor)
	s.notifier.Notify(ctx, events.ResponseRecorded{InstanceID: instanceID, ItemID: itemID, ResponseID: response.ID, Actor: actor})
	if approvalTo := approval.Status(response.ApprovalStatus); approvalTo != approvalFrom {
		s.notifier.Notify(ctx, events.ApprovalChanged{
			ResponseID: response.ID, InstanceID: instanceID, From: approvalFrom, To: approvalTo, Actor: actor,
		})
	}
	if to != from {
		s.statusChanged(ctx, instanceID, from, to, "record", actor)
	}
	return recordToResponse(response)
}

// RemoveResponse removes the value for one item.
func (s *ChecklistServiceImpl) RemoveResponse(ctx context.Context, instanceID, itemID, actor string) error {
	actor = ctxutil.Actor(ctx, actor)
	var (
		responseID string
		from, to   checklist.Status
	)

	err := retryOnConflict(ctx, "remove_response", func() error {
		instance, err := s.checklists.GetByID(ctx, instanceID)
		if err != nil {
			return err
		}
		from = checklist.Status(instance.Status)
		if !checklist.IsEditable(from) {
			return checklist.NewInvalidTransition(instanceID, from, "remove",
				fmt.Sprintf("can only remove responses on checklists that are pending, in_progress or rejected (current status: %s)", from))
		}

		response, err := s.responses.GetByItem(ctx, instanceID, itemID)
		if err != nil {
			return err
		}
		responseID = response.ID

		items, responses, err := s.loadState(ctx, instanceID)
		if err != nil {
			return err
		}
		remaining := make([]*secondary.ResponseRecord, 0, len(responses))
		for _, r := range responses {
			if r.ID != response.ID {
				remaining = append(remaining, r)
			}
		}

		to = checklist.StatusAfterRemove(from, summarize(items, remaining))
		instance.Status = string(to)
		if to == checklist.StatusCompleted && to != from {
			instance.CompletedAt = timestamp(s.now())
		}
		return s.responses.Delete(ctx, response.ID, instance)
	})
	if err != nil {
		return err
	}

	s.logger.Info("removed response", "instance_id", instanceID, "item_id", itemID, "actor", actor)
	s.notifier.Notify(ctx, events.ResponseRemoved{InstanceID: instanceID, ItemID: itemID, ResponseID: responseID, Actor: actor})
	if to != from {
		s.statusChanged(ctx, instanceID, from, to, "remove", actor)
	}
	return nil
}

func (s *ChecklistServiceImpl) loadState(ctx context.Context, instanceID string) ([]*secondary.ChecklistItemRecord, []*secondary.ResponseRecord, error) {
	items, err := s.checklists.ListItems(ctx, instanceID)
	if err != nil {
		return nil, nil, err
	}
	responses, err := s.responses.ListByInstance(ctx, instanceID)
	if err != nil {
		return nil, nil, err
	}
	return items, responses, nil
}

func (s *ChecklistServiceImpl) statusChanged(ctx context.Context, instanceID string, from, to checklist.Status, action, actor string) {
	metrics.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.logger.Info("checklist status changed", "instance_id", instanceID, "from", from, "to", to, "action", action, "actor", actor)
	s.notifier.Notify(ctx, events.StatusChanged{InstanceID: instanceID, From: from, To: to, Action: action, Actor: actor})
}

// summarize joins item snapshots with their responses for the guards.
func summarize(items []*secondary.ChecklistItemRecord, responses []*secondary.ResponseRecord) []checklist.ItemSummary {
	byItem := make(map[string]*secondary.ResponseRecord, len(responses))
	for _, r := range responses {
		byItem[r.ItemID] = r
	}

	out := make([]checklist.ItemSummary, len(items))
	for i, it := range items {
		out[i] = checklist.ItemSummary{
			ItemID:           it.ID,
			Required:         it.Required,
			ApprovalRequired: it.ApprovalRequired,
		}
		if r, ok := byItem[it.ID]; ok {
			out[i].HasResponse = true
			out[i].ApprovalStatus = approval.Status(r.ApprovalStatus)
		}
	}
	return out
}

func rejectionNotes(responses []*secondary.ResponseRecord) string {
	var notes []string
	for _, r := range responses {
		if approval.Status(r.ApprovalStatus) == approval.StatusRejected && r.ApprovalNotes != "" {
			notes = append(notes, r.ApprovalNotes)
		}
	}
	return strings.Join(notes, "; ")
}

func recordToChecklist(r *secondary.ChecklistRecord) *primary.Checklist {
	return &primary.Checklist{
		ID:             r.ID,
		TemplateID:     r.TemplateID,
		TemplateName:   r.TemplateName,
		PropertyID:     r.PropertyID,
		GenerationID:   r.GenerationID,
		AssigneeID:     r.AssigneeID,
		Status:         checklist.Status(r.Status),
		DueAt:          r.DueAt,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		ApprovedAt:     r.ApprovedAt,
		ApprovedBy:     r.ApprovedBy,
		RejectedAt:     r.RejectedAt,
		RejectedBy:     r.RejectedBy,
		RejectionNotes: r.RejectionNotes,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func recordToResponse(r *secondary.ResponseRecord) (*primary.ItemResponse, error) {
	value, err := checklist.DecodeValue(r.Value)
	if err != nil {
		return nil, fmt.Errorf("response %s: %w", r.ID, err)
	}
	return &primary.ItemResponse{
		ID:             r.ID,
		InstanceID:     r.InstanceID,
		ItemID:         r.ItemID,
		Value:          value,
		SubmittedBy:    r.SubmittedBy,
		SubmittedAt:    r.SubmittedAt,
		ApprovalStatus: approval.Status(r.ApprovalStatus),
		ApprovedBy:     r.ApprovedBy,
		ApprovalNotes:  r.ApprovalNotes,
		ReviewedAt:     r.ReviewedAt,
	}, nil
}

// Ensure ChecklistServiceImpl implements the interface
var _ primary.ChecklistService = (*ChecklistServiceImpl)(nil)
