package primary

import (
	"context"
	"time"
)

// SchedulerService defines the primary port for the generation loop.
type SchedulerService interface {
	// Start runs an initial cycle and then one cycle per interval until Stop
	// is called or ctx is cancelled.
	Start(ctx context.Context) error

	// Stop signals the loop to finish the in-flight reservation and waits.
	Stop()

	// RunGenerationCycle evaluates every active schedule as of a fixed date.
	// Idempotent: repeated or concurrent calls never duplicate instances.
	RunGenerationCycle(ctx context.Context, asOf time.Time) (*CycleResult, error)

	// RunGenerationCycleNow evaluates every schedule as of today in the
	// schedule's own time zone.
	RunGenerationCycleNow(ctx context.Context) (*CycleResult, error)

	// Status reports the loop state.
	Status() SchedulerStatus

	// ReplayGeneration reopens a failed ledger row and generates it again.
	ReplayGeneration(ctx context.Context, generationID, actor string) (*Generation, error)

	// ListGenerations lists ledger rows.
	ListGenerations(ctx context.Context, filters GenerationFilters) ([]*Generation, error)
}

// CycleResult summarizes one generation cycle.
type CycleResult struct {
	AsOf       string // YYYY-MM-DD, empty when each schedule used its own today
	StartedAt  time.Time
	FinishedAt time.Time
	Schedules  int
	Generated  int
	Skipped    int
	Failed     int
	Errors     []CycleError
}

// CycleError is a per-occurrence or per-schedule failure inside a cycle.
type CycleError struct {
	TemplateID     string
	PropertyID     string
	OccurrenceDate string
	Message        string
	Err            error `json:"-"`
}

// SchedulerStatus reports the loop state.
type SchedulerStatus struct {
	IsRunning       bool
	IntervalMinutes int
	LastRun         time.Time
	NextRun         time.Time
	LastResult      *CycleResult
}

// Generation represents a ledger row at the port boundary.
type Generation struct {
	ID             string
	TemplateID     string
	PropertyID     string
	OccurrenceDate string
	DueAt          string
	Status         string // pending, created, failed
	InstanceID     string
	ErrorDetail    string
	Attempt        int
	CreatedAt      string
	UpdatedAt      string
}

// GenerationFilters contains filter options for listing ledger rows.
type GenerationFilters struct {
	Status     string
	TemplateID string
	PropertyID string
	Limit      int
}
