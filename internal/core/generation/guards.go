// Package generation contains the pure rules around the generation ledger.
// Guards are pure functions that evaluate preconditions without side effects.
package generation

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/propcheck/internal/core/recurrence"
)

// Status is the state of a ledger row.
type Status string

const (
	StatusPending Status = "pending"
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
)

// Key identifies one occurrence of one template at one property. It is the
// ledger's uniqueness tuple.
type Key struct {
	TemplateID     string    `json:"template_id"`
	PropertyID     string    `json:"property_id"`
	OccurrenceDate time.Time `json:"occurrence_date"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s@%s", k.TemplateID, k.PropertyID, recurrence.FormatDate(k.OccurrenceDate))
}

// ErrNotReplayable is returned when a replay targets a row that is not failed.
var ErrNotReplayable = errors.New("generation is not replayable")

// FailureReason classifies why an occurrence could not be materialized.
type FailureReason string

const (
	ReasonTemplateMissing  FailureReason = "template_missing"
	ReasonTemplateInactive FailureReason = "template_inactive"
	ReasonTemplateEmpty    FailureReason = "template_empty"
	ReasonPropertyMissing  FailureReason = "property_missing"
	ReasonPropertyInactive FailureReason = "property_inactive"
	ReasonStorage          FailureReason = "storage"
)

// Failure is a GenerationFailure: recorded in the ledger, surfaced to
// operators and never retried automatically.
type Failure struct {
	Key    Key
	Reason FailureReason
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generation failed for %s: %s: %s", f.Key, f.Reason, f.Detail)
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
	Code    FailureReason
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// GenerateContext provides context for the pre-generation check.
type GenerateContext struct {
	Key            Key
	TemplateExists bool
	TemplateActive bool
	ItemCount      int
	PropertyExists bool
	PropertyActive bool
}

// ReplayContext provides context for operator replay guards.
type ReplayContext struct {
	GenerationID string
	Status       Status
}

// CanGenerate evaluates whether an occurrence can be materialized now.
// Rules:
// - Template must exist, be active and have at least one item
// - Property must exist and be active
func CanGenerate(ctx GenerateContext) GuardResult {
	if !ctx.TemplateExists {
		return deny(ReasonTemplateMissing, fmt.Sprintf("template %s not found", ctx.Key.TemplateID))
	}
	if !ctx.TemplateActive {
		return deny(ReasonTemplateInactive, fmt.Sprintf("template %s is deactivated", ctx.Key.TemplateID))
	}
	if ctx.ItemCount == 0 {
		return deny(ReasonTemplateEmpty, fmt.Sprintf("template %s has no items", ctx.Key.TemplateID))
	}
	if !ctx.PropertyExists {
		return deny(ReasonPropertyMissing, fmt.Sprintf("property %s not found", ctx.Key.PropertyID))
	}
	if !ctx.PropertyActive {
		return deny(ReasonPropertyInactive, fmt.Sprintf("property %s is deactivated", ctx.Key.PropertyID))
	}
	return GuardResult{Allowed: true}
}

// AsFailure converts a denied guard into a Failure for the ledger.
func (r GuardResult) AsFailure(key Key) *Failure {
	if r.Allowed {
		return nil
	}
	return &Failure{Key: key, Reason: r.Code, Detail: r.Reason}
}

// CanReplay evaluates whether an operator may replay a ledger row.
// Rules:
// - Only failed rows can be replayed; created rows are final and pending
//   rows belong to a running generator
func CanReplay(ctx ReplayContext) GuardResult {
	if ctx.Status != StatusFailed {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("can only replay failed generations (generation %s is %s)", ctx.GenerationID, ctx.Status),
		}
	}
	return GuardResult{Allowed: true}
}

// IsStale reports whether a pending reservation has outlived its generator.
// A zero threshold disables reclaiming.
func IsStale(status Status, reservedAt, now time.Time, threshold time.Duration) bool {
	if status != StatusPending || threshold <= 0 {
		return false
	}
	return now.Sub(reservedAt) >= threshold
}

func deny(code FailureReason, reason string) GuardResult {
	return GuardResult{Allowed: false, Reason: reason, Code: code}
}
