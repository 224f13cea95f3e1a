// Package approval contains the per-response approval state machine.
// Guards are pure functions that evaluate preconditions without side effects.
//
// The parent checklist only consults the aggregate predicates AllApproved
// and AnyRejected; it never embeds approval rules of its own.
package approval

import (
	"fmt"
	"strings"
)

// Status is the approval state of a single item response.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
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

// ResponseSummary contains minimal response info for aggregate predicates.
type ResponseSummary struct {
	ItemID           string
	ApprovalRequired bool
	Status           Status
}

// ReviewContext provides context for approval guards. The instance state is
// passed as flags so this package stays independent of the lifecycle.
type ReviewContext struct {
	ResponseID         string
	ApprovalRequired   bool
	Current            Status
	InstanceApproved   bool
	InstanceReviewable bool // in_progress, completed or rejected
}

// AttachmentContext provides context for attachment guards.
type AttachmentContext struct {
	ResponseID       string
	InstanceApproved bool
}

// ParseOutcome validates a reviewer decision.
func ParseOutcome(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid approval outcome %q (valid: approved, rejected)", s)
}

// AllApproved reports whether every approval-required response is approved.
func AllApproved(responses []ResponseSummary) bool {
	for _, r := range responses {
		if r.ApprovalRequired && r.Status != StatusApproved {
			return false
		}
	}
	return true
}

// AnyRejected reports whether some approval-required response is rejected.
func AnyRejected(responses []ResponseSummary) bool {
	for _, r := range responses {
		if r.ApprovalRequired && r.Status == StatusRejected {
			return true
		}
	}
	return false
}

// StatusAfterValueChange returns the approval status once a response value
// is re-recorded. Anything already in review goes back to pending.
func StatusAfterValueChange(current Status) Status {
	if current == StatusNone || current == "" {
		return StatusNone
	}
	return StatusPending
}

// CanSubmit evaluates whether a response can be submitted for review.
// Rules:
// - The item must require approval
// - The instance must not be approved
// - Only unsubmitted or rejected responses can be (re)submitted
func CanSubmit(ctx ReviewContext) GuardResult {
	if res := checkReviewable(ctx); !res.Allowed {
		return res
	}
	if ctx.Current == StatusPending {
		return GuardResult{Allowed: true}
	}
	if ctx.Current != StatusNone && ctx.Current != StatusRejected {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("response %s is already %s", ctx.ResponseID, ctx.Current),
		}
	}
	return GuardResult{Allowed: true}
}

// CanSetApproval evaluates whether a reviewer may record an outcome.
// Rules:
// - The outcome must be approved or rejected
// - The item must require approval
// - The instance must not be approved and must have left pending
// - Unsubmitted responses are submitted implicitly
func CanSetApproval(ctx ReviewContext, outcome Status) GuardResult {
	if outcome != StatusApproved && outcome != StatusRejected {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid approval outcome %q", outcome),
		}
	}
	return checkReviewable(ctx)
}

func checkReviewable(ctx ReviewContext) GuardResult {
	if !ctx.ApprovalRequired {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("response %s does not require approval", ctx.ResponseID),
		}
	}
	if ctx.InstanceApproved {
		return GuardResult{
			Allowed: false,
			Reason:  "checklist is approved; its responses are immutable",
		}
	}
	if !ctx.InstanceReviewable {
		return GuardResult{
			Allowed: false,
			Reason:  "checklist has not been started",
		}
	}
	return GuardResult{Allowed: true}
}

// CanAddAttachment evaluates whether evidence can be attached to a response.
// Rules:
// - The parent instance must not be approved
func CanAddAttachment(ctx AttachmentContext) GuardResult {
	if ctx.InstanceApproved {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot attach files to response %s: checklist is approved", ctx.ResponseID),
		}
	}
	return GuardResult{Allowed: true}
}
