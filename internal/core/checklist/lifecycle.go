// Package checklist contains the pure business logic for the checklist
// lifecycle. Guards are pure functions that evaluate preconditions without
// side effects.
package checklist

import (
	"fmt"
	"strings"

	"github.com/example/propcheck/internal/core/approval"
)

// Status is the lifecycle state of a checklist instance.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// Action is an explicit lifecycle command issued by a user or reviewer.
type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ItemSummary contains the per-item facts the lifecycle guards need.
type ItemSummary struct {
	ItemID           string
	Required         bool
	ApprovalRequired bool
	HasResponse      bool
	ApprovalStatus   approval.Status
}

// TransitionContext provides context for explicit lifecycle transitions.
type TransitionContext struct {
	InstanceID string
	Status     Status
	Action     Action
	Items      []ItemSummary
}

// ParseAction validates a user supplied action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionComplete, ActionApprove, ActionReject:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q (valid: start, complete, approve, reject)", s)
}

// ParseStatus validates a status filter.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// TargetStatus returns the status an action moves an instance into.
func TargetStatus(action Action) Status {
	switch action {
	case ActionStart:
		return StatusInProgress
	case ActionComplete:
		return StatusCompleted
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	}
	return ""
}

// IsNoOp reports whether the action would leave the instance where it is.
func IsNoOp(status Status, action Action) bool {
	return TargetStatus(action) == status
}

// IsEditable reports whether responses may be recorded or removed.
// A rejected instance stays editable; the next edit reopens it.
func IsEditable(status Status) bool {
	return status == StatusPending || status == StatusInProgress || status == StatusRejected
}

// CanTransition evaluates whether an explicit action is permitted.
// Rules:
// - Same-state actions are always allowed (callers treat them as no-ops)
// - start: only from pending or rejected
// - complete: only from in_progress or rejected, every required item answered
// - approve: only from completed, every approval-required response approved
// - reject: only from completed, at least one approval-required response rejected
func CanTransition(ctx TransitionContext) GuardResult {
	target := TargetStatus(ctx.Action)
	if target == "" {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown action %q", ctx.Action),
		}
	}

	if target == ctx.Status {
		return GuardResult{Allowed: true}
	}

	switch ctx.Action {
	case ActionStart:
		if ctx.Status != StatusPending && ctx.Status != StatusRejected {
			return statusDenied(ctx, "pending or rejected")
		}

	case ActionComplete:
		if ctx.Status != StatusInProgress && ctx.Status != StatusRejected {
			return statusDenied(ctx, "in_progress or rejected")
		}
		if missing := MissingRequired(ctx.Items); len(missing) > 0 {
			return GuardResult{
				Allowed: false,
				Reason: fmt.Sprintf("cannot complete checklist %s: %d required item(s) unanswered (%s)",
					ctx.InstanceID, len(missing), strings.Join(missing, ", ")),
			}
		}

	case ActionApprove:
		if ctx.Status != StatusCompleted {
			return statusDenied(ctx, "completed")
		}
		if !approval.AllApproved(responseSummaries(ctx.Items)) {
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("cannot approve checklist %s: not every approval-required response is approved", ctx.InstanceID),
			}
		}

	case ActionReject:
		if ctx.Status != StatusCompleted {
			return statusDenied(ctx, "completed")
		}
		if !approval.AnyRejected(responseSummaries(ctx.Items)) {
			return GuardResult{
				Allowed: false,
				Reason:  fmt.Sprintf("cannot reject checklist %s: no approval-required response is rejected", ctx.InstanceID),
			}
		}
	}

	return GuardResult{Allowed: true}
}

func statusDenied(ctx TransitionContext, from string) GuardResult {
	return GuardResult{
		Allowed: false,
		Reason: fmt.Sprintf("can only %s checklists that are %s (current status: %s)",
			ctx.Action, from, ctx.Status),
	}
}

// MissingRequired lists required items that have no response yet.
func MissingRequired(items []ItemSummary) []string {
	var missing []string
	for _, it := range items {
		if it.Required && !it.HasResponse {
			missing = append(missing, it.ItemID)
		}
	}
	return missing
}

// StatusAfterRecord returns the status after a response has been recorded.
// The first response starts the instance; answering every required item
// completes it. Approval resolution is not needed for completion.
func StatusAfterRecord(status Status, items []ItemSummary) Status {
	switch status {
	case StatusPending, StatusRejected:
		status = StatusInProgress
	case StatusInProgress:
	default:
		return status
	}
	if len(MissingRequired(items)) == 0 {
		return StatusCompleted
	}
	return status
}

// StatusAfterStart returns the status an explicit start lands on. Starting
// a rejected instance whose required items are all still answered goes
// straight back to completed.
func StatusAfterStart(status Status, items []ItemSummary) Status {
	if status == StatusRejected && answeredAny(items) && len(MissingRequired(items)) == 0 {
		return StatusCompleted
	}
	return StatusInProgress
}

// StatusAfterRemove returns the status after a response has been removed.
// items describes the instance without the removed response. Removing the
// last remaining response sends an in-progress instance back to pending;
// removing an optional one while every required item is answered completes it.
func StatusAfterRemove(status Status, items []ItemSummary) Status {
	switch status {
	case StatusRejected:
		status = StatusInProgress
	case StatusInProgress:
	default:
		return status
	}
	if !answeredAny(items) {
		return StatusPending
	}
	if len(MissingRequired(items)) == 0 {
		return StatusCompleted
	}
	return status
}

func answeredAny(items []ItemSummary) bool {
	for _, it := range items {
		if it.HasResponse {
			return true
		}
	}
	return false
}

func responseSummaries(items []ItemSummary) []approval.ResponseSummary {
	out := make([]approval.ResponseSummary, 0, len(items))
	for _, it := range items {
		if !it.HasResponse {
			continue
		}
		out = append(out, approval.ResponseSummary{
			ItemID:           it.ItemID,
			ApprovalRequired: it.ApprovalRequired,
			Status:           it.ApprovalStatus,
		})
	}
	return out
}
