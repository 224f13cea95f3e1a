package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/example/propcheck/internal/ports/primary"
)

// SchedulerAdapter translates CLI operations to SchedulerService calls.
type SchedulerAdapter struct {
	service primary.SchedulerService
	out     io.Writer
}

// NewSchedulerAdapter creates a new SchedulerAdapter with the given service.
func NewSchedulerAdapter(service primary.SchedulerService, out io.Writer) *SchedulerAdapter {
	return &SchedulerAdapter{
		service: service,
		out:     out,
	}
}

// Run executes one generation cycle. A nil asOf uses each schedule's today.
func (a *SchedulerAdapter) Run(ctx context.Context, asOf *time.Time) (*primary.CycleResult, error) {
	var (
		result *primary.CycleResult
		err    error
	)
	if asOf != nil {
		result, err = a.service.RunGenerationCycle(ctx, *asOf)
	} else {
		result, err = a.service.RunGenerationCycleNow(ctx)
	}
	if result == nil {
		return nil, fmt.Errorf("generation cycle failed: %w", err)
	}

	a.printCycle(result)
	return result, err
}

func (a *SchedulerAdapter) printCycle(r *primary.CycleResult) {
	label := r.AsOf
	if label == "" {
		label = "today"
	}
	fmt.Fprintf(a.out, "Cycle as of %s (%s)\n", label, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(a.out, "  Schedules: %d\n", r.Schedules)
	fmt.Fprintf(a.out, "  Generated: %d\n", r.Generated)
	fmt.Fprintf(a.out, "  Skipped:   %d\n", r.Skipped)
	fmt.Fprintf(a.out, "  Failed:    %d\n", r.Failed)

	for _, e := range r.Errors {
		fmt.Fprintf(a.out, "  %s %s/%s %s: %s\n",
			colorStatus("failed"), e.TemplateID, orDash(e.PropertyID), orDash(e.OccurrenceDate), e.Message)
	}
}

// Status prints the loop state.
func (a *SchedulerAdapter) Status() primary.SchedulerStatus {
	st := a.service.Status()

	state := "stopped"
	if st.IsRunning {
		state = "running"
	}
	fmt.Fprintf(a.out, "Scheduler: %s (every %dm)\n", state, st.IntervalMinutes)
	if !st.LastRun.IsZero() {
		fmt.Fprintf(a.out, "Last run:  %s\n", st.LastRun.Format(time.RFC3339))
	}
	if !st.NextRun.IsZero() {
		fmt.Fprintf(a.out, "Next run:  %s\n", st.NextRun.Format(time.RFC3339))
	}
	if st.LastResult != nil {
		a.printCycle(st.LastResult)
	}
	return st
}

// ListGenerations prints ledger rows.
func (a *SchedulerAdapter) ListGenerations(ctx context.Context, filters primary.GenerationFilters) ([]*primary.Generation, error) {
	rows, err := a.service.ListGenerations(ctx, filters)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No generations found.")
		return rows, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTEMPLATE\tPROPERTY\tOCCURRENCE\tINSTANCE\tATTEMPT\tSTATUS")
	fmt.Fprintln(w, "--\t--------\t--------\t----------\t--------\t-------\t------")
	for _, g := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			g.ID,
			g.TemplateID,
			g.PropertyID,
			g.OccurrenceDate,
			orDash(g.InstanceID),
			g.Attempt,
			colorStatus(g.Status),
		)
	}
	w.Flush()

	for _, g := range rows {
		if g.ErrorDetail != "" {
			fmt.Fprintf(a.out, "%s: %s\n", g.ID, g.ErrorDetail)
		}
	}
	return rows, nil
}

// Replay regenerates a failed ledger row.
func (a *SchedulerAdapter) Replay(ctx context.Context, generationID, actor string) (*primary.Generation, error) {
	row, err := a.service.ReplayGeneration(ctx, generationID, actor)
	if err != nil {
		if row != nil {
			fmt.Fprintf(a.out, "✗ Generation %s failed again (attempt %d)\n", row.ID, row.Attempt)
		}
		return row, err
	}
	fmt.Fprintf(a.out, "✓ Generation %s replayed (attempt %d): instance %s\n", row.ID, row.Attempt, row.InstanceID)
	return row, nil
}
