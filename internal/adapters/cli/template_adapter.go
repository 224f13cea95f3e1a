package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/primary"
)

// TemplateAdapter translates CLI operations to TemplateService calls.
type TemplateAdapter struct {
	service primary.TemplateService
	out     io.Writer
}

// NewTemplateAdapter creates a new TemplateAdapter with the given service.
func NewTemplateAdapter(service primary.TemplateService, out io.Writer) *TemplateAdapter {
	return &TemplateAdapter{
		service: service,
		out:     out,
	}
}

// List lists templates.
func (a *TemplateAdapter) List(ctx context.Context, activeOnly bool) ([]*primary.Template, error) {
	templates, err := a.service.ListTemplates(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	if len(templates) == 0 {
		fmt.Fprintln(a.out, "No templates found.")
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Import one from a definition file:")
		fmt.Fprintln(a.out, "  propcheck template import fire-safety.yaml")
		return templates, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPOLICY\tACTIVE")
	fmt.Fprintln(w, "--\t----\t------\t------")
	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", t.ID, t.Name, t.AssignmentPolicy, t.Active)
	}
	w.Flush()
	return templates, nil
}

// Show displays a template with its items, schedule and properties.
func (a *TemplateAdapter) Show(ctx context.Context, templateID string) (*primary.TemplateDetail, error) {
	detail, err := a.service.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	a.printDetail(detail)
	return detail, nil
}

func (a *TemplateAdapter) printDetail(detail *primary.TemplateDetail) {
	t := detail.Template
	fmt.Fprintf(a.out, "\nTemplate: %s\n", t.ID)
	fmt.Fprintf(a.out, "Name:   %s\n", t.Name)
	if t.Description != "" {
		fmt.Fprintf(a.out, "About:  %s\n", t.Description)
	}
	fmt.Fprintf(a.out, "Policy: %s\n", t.AssignmentPolicy)
	fmt.Fprintf(a.out, "Active: %v\n", t.Active)

	fmt.Fprintln(a.out, "\nItems:")
	if len(detail.Items) == 0 {
		fmt.Fprintln(a.out, "  (none)")
	}
	for _, it := range detail.Items {
		var flags []string
		flags = append(flags, string(it.ItemType))
		if it.Required {
			flags = append(flags, "required")
		}
		if it.ApprovalRequired {
			flags = append(flags, "approval")
		}
		fmt.Fprintf(a.out, "  %d. %s (%s)\n", it.Position, it.Text, strings.Join(flags, ", "))
	}

	fmt.Fprintln(a.out, "\nSchedule:")
	if detail.Schedule == nil {
		fmt.Fprintln(a.out, "  (none)")
	} else {
		fmt.Fprintf(a.out, "  %s\n", DescribeSchedule(*detail.Schedule))
	}

	fmt.Fprintf(a.out, "\nProperties: %s\n\n", orDash(strings.Join(detail.PropertyIDs, ", ")))
}

// Import creates a template from a parsed definition file.
func (a *TemplateAdapter) Import(ctx context.Context, req primary.ImportTemplateRequest) (*primary.TemplateDetail, error) {
	detail, err := a.service.ImportTemplate(ctx, req)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "✓ Imported template %s: %s (%d items, %d properties)\n",
		detail.Template.ID, detail.Template.Name, len(detail.Items), len(detail.PropertyIDs))
	return detail, nil
}

// Preview prints the next n occurrences after a date.
func (a *TemplateAdapter) Preview(ctx context.Context, templateID string, after time.Time, n int) ([]time.Time, error) {
	dates, err := a.service.PreviewSchedule(ctx, templateID, after, n)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "Next %d occurrences of %s after %s:\n", len(dates), templateID, recurrence.FormatDate(after))
	for _, d := range dates {
		fmt.Fprintf(a.out, "  %s  %s\n", recurrence.FormatDate(d), d.Weekday().String()[:3])
	}
	return dates, nil
}

// DescribeSchedule renders a recurrence rule in one line.
func DescribeSchedule(def recurrence.Definition) string {
	var b strings.Builder
	b.WriteString(string(def.Frequency))
	if def.Interval > 1 {
		fmt.Fprintf(&b, " every %d", def.Interval)
	}
	if len(def.DaysOfWeek) > 0 {
		days := make([]string, len(def.DaysOfWeek))
		for i, d := range def.DaysOfWeek {
			days[i] = strings.ToLower(d.String()[:3])
		}
		fmt.Fprintf(&b, " on %s", strings.Join(days, ","))
	}
	switch {
	case def.DayOfMonth == recurrence.LastDay:
		b.WriteString(" on the last day")
	case def.DayOfMonth > 0:
		fmt.Fprintf(&b, " on day %d", def.DayOfMonth)
	}
	if def.TimeOfDay != "" {
		fmt.Fprintf(&b, " at %s", def.TimeOfDay)
	}
	if def.TimeZone != "" {
		fmt.Fprintf(&b, " %s", def.TimeZone)
	}
	fmt.Fprintf(&b, " from %s", recurrence.FormatDate(def.StartDate))
	if def.EndDate != nil {
		fmt.Fprintf(&b, " until %s", recurrence.FormatDate(*def.EndDate))
	}
	if def.LeadTimeDays > 0 {
		fmt.Fprintf(&b, ", %dd lead", def.LeadTimeDays)
	}
	if def.AutoAssign {
		b.WriteString(", auto-assign")
	}
	if !def.Enabled {
		b.WriteString(" (disabled)")
	}
	return b.String()
}
