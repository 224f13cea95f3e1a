package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/example/propcheck/internal/core/approval"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/ports/primary"
)

// ChecklistAdapter translates CLI operations to ChecklistService calls.
type ChecklistAdapter struct {
	service primary.ChecklistService
	out     io.Writer
}

// NewChecklistAdapter creates a new ChecklistAdapter with the given service.
func NewChecklistAdapter(service primary.ChecklistService, out io.Writer) *ChecklistAdapter {
	return &ChecklistAdapter{
		service: service,
		out:     out,
	}
}

// List lists checklist instances.
func (a *ChecklistAdapter) List(ctx context.Context, filters primary.ChecklistFilters) ([]*primary.Checklist, error) {
	checklists, err := a.service.ListChecklists(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklists: %w", err)
	}

	if len(checklists) == 0 {
		fmt.Fprintln(a.out, "No checklists found.")
		return checklists, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTEMPLATE\tPROPERTY\tASSIGNEE\tDUE\tSTATUS")
	fmt.Fprintln(w, "--\t--------\t--------\t--------\t---\t------")
	for _, c := range checklists {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.TemplateName,
			c.PropertyID,
			orDash(c.AssigneeID),
			c.DueAt,
			colorStatus(string(c.Status)),
		)
	}
	w.Flush()
	return checklists, nil
}

// Show displays an instance with its items and responses.
func (a *ChecklistAdapter) Show(ctx context.Context, instanceID string) (*primary.ChecklistDetail, error) {
	detail, err := a.service.GetChecklist(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}

	c := detail.Checklist
	fmt.Fprintf(a.out, "\nChecklist: %s\n", c.ID)
	fmt.Fprintf(a.out, "Template: %s (%s)\n", c.TemplateName, c.TemplateID)
	fmt.Fprintf(a.out, "Property: %s\n", c.PropertyID)
	fmt.Fprintf(a.out, "Assignee: %s\n", orDash(c.AssigneeID))
	fmt.Fprintf(a.out, "Due:      %s\n", c.DueAt)
	fmt.Fprintf(a.out, "Status:   %s (v%d)\n", colorStatus(string(c.Status)), c.Version)
	if c.GenerationID != "" {
		fmt.Fprintf(a.out, "Generation: %s\n", c.GenerationID)
	}
	if c.ApprovedBy != "" {
		fmt.Fprintf(a.out, "Approved: %s by %s\n", c.ApprovedAt, c.ApprovedBy)
	}
	if c.RejectedBy != "" {
		fmt.Fprintf(a.out, "Rejected: %s by %s\n", c.RejectedAt, c.RejectedBy)
		if c.RejectionNotes != "" {
			fmt.Fprintf(a.out, "  %s\n", c.RejectionNotes)
		}
	}

	fmt.Fprintln(a.out, "\nItems:")
	for _, item := range detail.Items {
		mark := " "
		if item.Response != nil {
			mark = "x"
		}
		flags := string(item.ItemType)
		if item.Required {
			flags += ", required"
		}
		fmt.Fprintf(a.out, "  [%s] %d. %s (%s)\n", mark, item.Position, item.Text, flags)
		if r := item.Response; r != nil {
			fmt.Fprintf(a.out, "        %s  by %s at %s  [%s]\n",
				checklist.Display(r.Value), r.SubmittedBy, r.SubmittedAt, r.ID)
			if item.ApprovalRequired {
				fmt.Fprintf(a.out, "        approval: %s", colorStatus(string(r.ApprovalStatus)))
				if r.ApprovalNotes != "" {
					fmt.Fprintf(a.out, " (%s)", r.ApprovalNotes)
				}
				fmt.Fprintln(a.out)
			}
		} else if item.ApprovalRequired {
			fmt.Fprintf(a.out, "        approval: %s\n", colorStatus(string(approval.StatusNone)))
		}
	}
	fmt.Fprintln(a.out)

	return detail, nil
}

// Create creates a manual checklist.
func (a *ChecklistAdapter) Create(ctx context.Context, req primary.CreateChecklistRequest) (*primary.Checklist, error) {
	c, err := a.service.CreateManualChecklist(ctx, req)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "✓ Created checklist %s: %s @ %s (due %s)\n", c.ID, c.TemplateName, c.PropertyID, c.DueAt)
	return c, nil
}

// Transition applies a lifecycle action by name.
func (a *ChecklistAdapter) Transition(ctx context.Context, instanceID, actionName, actor string) (*primary.Checklist, error) {
	action, err := checklist.ParseAction(actionName)
	if err != nil {
		return nil, err
	}

	before, err := a.service.GetChecklist(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}

	c, err := a.service.Transition(ctx, instanceID, action, actor)
	if err != nil {
		return nil, err
	}

	from := before.Checklist.Status
	if from == c.Status {
		fmt.Fprintf(a.out, "Checklist %s already %s\n", c.ID, colorStatus(string(c.Status)))
		return c, nil
	}
	fmt.Fprintf(a.out, "✓ Checklist %s: %s → %s\n", c.ID, from, colorStatus(string(c.Status)))
	return c, nil
}

// Record records a response. itemRef is an item ID or its 1-based position.
func (a *ChecklistAdapter) Record(ctx context.Context, instanceID, itemRef, raw, actor string) (*primary.ItemResponse, error) {
	detail, err := a.service.GetChecklist(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}
	item, err := findItem(detail, itemRef)
	if err != nil {
		return nil, err
	}

	value, err := checklist.ParseValue(item.ItemType, raw)
	if err != nil {
		return nil, err
	}

	resp, err := a.service.RecordResponse(ctx, instanceID, item.ID, value, actor)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "✓ Recorded %d. %s: %s\n", item.Position, item.Text, checklist.Display(resp.Value))
	fmt.Fprintf(a.out, "  Response: %s\n", resp.ID)
	if item.ApprovalRequired {
		fmt.Fprintf(a.out, "  Approval: %s\n", colorStatus(string(resp.ApprovalStatus)))
	}
	return resp, nil
}

// Remove removes a response. itemRef is an item ID or its 1-based position.
func (a *ChecklistAdapter) Remove(ctx context.Context, instanceID, itemRef, actor string) error {
	detail, err := a.service.GetChecklist(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to get checklist: %w", err)
	}
	item, err := findItem(detail, itemRef)
	if err != nil {
		return err
	}

	if err := a.service.RemoveResponse(ctx, instanceID, item.ID, actor); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "✓ Removed response for %d. %s\n", item.Position, item.Text)
	return nil
}

func findItem(detail *primary.ChecklistDetail, ref string) (*primary.ChecklistItem, error) {
	pos, posErr := strconv.Atoi(ref)
	for _, item := range detail.Items {
		if item.ID == ref || (posErr == nil && item.Position == pos) {
			return item, nil
		}
	}
	return nil, fmt.Errorf("checklist %s has no item %q", detail.Checklist.ID, ref)
}
