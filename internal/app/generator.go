package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/core/generation"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/metrics"
	"github.com/example/propcheck/internal/ports/secondary"
)

// DefaultAssignTimeout bounds assignee lookup during generation.
const DefaultAssignTimeout = 5 * time.Second

// Reservation is the ownership token for one reserved occurrence.
type Reservation struct {
	GenerationID string
	Attempt      int
	Key          generation.Key
	DueAt        string
}

// Generator materializes reserved occurrences into checklist instances.
type Generator struct {
	templates     secondary.TemplateStore
	properties    secondary.PropertyDirectory
	assignees     secondary.AssigneeResolver
	ledger        secondary.GenerationLedger
	checklists    secondary.ChecklistRepository
	notifier      secondary.Notifier
	logger        *slog.Logger
	assignTimeout time.Duration
}

// NewGenerator creates a Generator with injected dependencies.
func NewGenerator(
	templates secondary.TemplateStore,
	properties secondary.PropertyDirectory,
	assignees secondary.AssigneeResolver,
	ledger secondary.GenerationLedger,
	checklists secondary.ChecklistRepository,
	notifier secondary.Notifier,
	logger *slog.Logger,
	assignTimeout time.Duration,
) *Generator {
	if assignTimeout <= 0 {
		assignTimeout = DefaultAssignTimeout
	}
	return &Generator{
		templates:     templates,
		properties:    properties,
		assignees:     assignees,
		ledger:        ledger,
		checklists:    checklists,
		notifier:      notifier,
		logger:        logger,
		assignTimeout: assignTimeout,
	}
}

// Reserve claims an occurrence in the ledger. ok is false when another
// caller owns or owned it, which is not an error.
func (g *Generator) Reserve(ctx context.Context, key generation.Key, dueAt time.Time, staleAfter time.Duration) (*Reservation, bool, error) {
	record, outcome, err := g.ledger.Reserve(ctx, secondary.ReserveRequest{
		ID:             uuid.NewString(),
		TemplateID:     key.TemplateID,
		PropertyID:     key.PropertyID,
		OccurrenceDate: recurrence.FormatDate(key.OccurrenceDate),
		DueAt:          timestamp(dueAt),
		StaleAfter:     staleAfter,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve %s: %w", key, err)
	}
	if outcome == secondary.ReserveAlreadyExists {
		return nil, false, nil
	}
	if record.Attempt > 1 {
		metrics.ReclaimsTotal.Inc()
		g.logger.Warn("reclaimed stale reservation",
			"generation_id", record.ID, "template_id", key.TemplateID,
			"property_id", key.PropertyID, "occurrence", recurrence.FormatDate(key.OccurrenceDate),
			"attempt", record.Attempt)
	}
	return reservationFromRecord(record), true, nil
}

func reservationFromRecord(record *secondary.GenerationRecord) *Reservation {
	occurrence, _ := recurrence.ParseDate(record.OccurrenceDate)
	return &Reservation{
		GenerationID: record.ID,
		Attempt:      record.Attempt,
		Key: generation.Key{
			TemplateID:     record.TemplateID,
			PropertyID:     record.PropertyID,
			OccurrenceDate: occurrence,
		},
		DueAt: record.DueAt,
	}
}

// Generate creates the instance for a reservation. It returns the new
// instance ID, a *generation.Failure when the occurrence was recorded as
// failed, or secondary.ErrConcurrentModification when the reservation was
// taken over by another generator.
func (g *Generator) Generate(ctx context.Context, res *Reservation) (string, error) {
	log := g.logger.With(
		"generation_id", res.GenerationID,
		"template_id", res.Key.TemplateID,
		"property_id", res.Key.PropertyID,
		"occurrence", recurrence.FormatDate(res.Key.OccurrenceDate),
	)

	snapshot, property, failure := g.load(ctx, res.Key)
	if failure != nil {
		return "", g.fail(ctx, res, failure, log)
	}

	assignee := ""
	if snapshot.AutoAssign {
		assignee = g.resolveAssignee(ctx, snapshot.Template, property.ID, log)
	}

	instance := &secondary.ChecklistRecord{
		ID:           uuid.NewString(),
		TemplateID:   snapshot.Template.ID,
		TemplateName: snapshot.Template.Name,
		PropertyID:   property.ID,
		AssigneeID:   assignee,
		Status:       string(checklist.StatusPending),
		DueAt:        res.DueAt,
	}
	items := snapshotItems(snapshot.Items)

	err := g.checklists.CreateFromGeneration(ctx, instance, items, res.GenerationID, res.Attempt)
	if errors.Is(err, secondary.ErrConcurrentModification) {
		log.Warn("reservation lost to another generator", "attempt", res.Attempt)
		return "", err
	}
	if err != nil {
		return "", g.fail(ctx, res, &generation.Failure{
			Key:    res.Key,
			Reason: generation.ReasonStorage,
			Detail: err.Error(),
		}, log)
	}

	log.Info("generated checklist", "instance_id", instance.ID, "assignee_id", assignee, "items", len(items))
	g.notifier.Notify(ctx, events.GenerationCreated{
		GenerationID: res.GenerationID,
		InstanceID:   instance.ID,
		Key:          res.Key,
		AssigneeID:   assignee,
	})
	return instance.ID, nil
}

// load gathers what CanGenerate needs. Any failure comes back as a
// generation.Failure ready for the ledger.
func (g *Generator) load(ctx context.Context, key generation.Key) (*secondary.TemplateSnapshot, *secondary.PropertyRecord, *generation.Failure) {
	gctx := generation.GenerateContext{Key: key}

	snapshot, err := g.templates.GetTemplateSnapshot(ctx, key.TemplateID)
	switch {
	case err == nil:
		gctx.TemplateExists = true
		gctx.TemplateActive = snapshot.Template.Active
		gctx.ItemCount = len(snapshot.Items)
	case !errors.Is(err, secondary.ErrNotFound):
		return nil, nil, &generation.Failure{Key: key, Reason: generation.ReasonStorage, Detail: err.Error()}
	}

	property, err := g.properties.GetProperty(ctx, key.PropertyID)
	switch {
	case err == nil:
		gctx.PropertyExists = true
		gctx.PropertyActive = property.Active
	case !errors.Is(err, secondary.ErrNotFound):
		return nil, nil, &generation.Failure{Key: key, Reason: generation.ReasonStorage, Detail: err.Error()}
	}

	if res := generation.CanGenerate(gctx); !res.Allowed {
		return nil, nil, res.AsFailure(key)
	}
	return snapshot, property, nil
}

func (g *Generator) resolveAssignee(ctx context.Context, template *secondary.TemplateRecord, propertyID string, log *slog.Logger) string {
	actx, cancel := context.WithTimeout(ctx, g.assignTimeout)
	defer cancel()

	assignee, err := g.assignees.ResolveAssignee(actx, template.ID, propertyID, template.AssignmentPolicy)
	if err != nil {
		log.Warn("assignee lookup failed; leaving unassigned", "policy", template.AssignmentPolicy, "error", err)
		return ""
	}
	return assignee
}

// fail records the failure in the ledger and returns it. If the ledger
// write itself fails the row stays pending and becomes reclaimable.
func (g *Generator) fail(ctx context.Context, res *Reservation, failure *generation.Failure, log *slog.Logger) error {
	detail := string(failure.Reason) + ": " + failure.Detail
	if err := g.ledger.MarkFailed(ctx, res.GenerationID, res.Attempt, detail); err != nil {
		if errors.Is(err, secondary.ErrConcurrentModification) {
			log.Warn("reservation lost before failure was recorded", "attempt", res.Attempt)
			return err
		}
		log.Error("failed to record generation failure", "reason", failure.Reason, "error", err)
		return fmt.Errorf("failed to mark generation %s failed: %w", res.GenerationID, err)
	}

	log.Warn("generation failed", "reason", failure.Reason, "detail", failure.Detail)
	g.notifier.Notify(ctx, events.GenerationFailed{
		GenerationID: res.GenerationID,
		Key:          res.Key,
		Reason:       failure.Reason,
		Detail:       failure.Detail,
	})
	return failure
}

// snapshotItems copies template items onto a new instance.
func snapshotItems(items []*secondary.TemplateItemRecord) []*secondary.ChecklistItemRecord {
	out := make([]*secondary.ChecklistItemRecord, len(items))
	for i, it := range items {
		out[i] = &secondary.ChecklistItemRecord{
			ID:               uuid.NewString(),
			TemplateItemID:   it.ID,
			Position:         it.Position,
			Text:             it.Text,
			Description:      it.Description,
			ItemType:         it.ItemType,
			Required:         it.Required,
			ApprovalRequired: it.ApprovalRequired,
		}
	}
	return out
}
