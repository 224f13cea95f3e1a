package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/propcheck/internal/core/events"
	"github.com/example/propcheck/internal/core/generation"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/metrics"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

// SchedulerConfig tunes the generation loop.
type SchedulerConfig struct {
	IntervalMinutes int
	Workers         int
	LookbackDays    int
	StaleAfter      time.Duration
}

// SchedulerServiceImpl implements the SchedulerService interface.
type SchedulerServiceImpl struct {
	templates secondary.TemplateStore
	ledger    secondary.GenerationLedger
	generator *Generator
	notifier  secondary.Notifier
	cfg       SchedulerConfig
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	lastRun    time.Time
	nextRun    time.Time
	lastResult *primary.CycleResult
}

// NewSchedulerService creates a new SchedulerService with injected dependencies.
func NewSchedulerService(
	templates secondary.TemplateStore,
	ledger secondary.GenerationLedger,
	generator *Generator,
	notifier secondary.Notifier,
	cfg SchedulerConfig,
	logger *slog.Logger,
) *SchedulerServiceImpl {
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 60
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.LookbackDays < 0 {
		cfg.LookbackDays = 0
	}
	return &SchedulerServiceImpl{
		templates: templates,
		ledger:    ledger,
		generator: generator,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the scheduler's clock. Used by tests.
func (s *SchedulerServiceImpl) WithClock(now func() time.Time) *SchedulerServiceImpl {
	s.now = now
	return s
}

// Start launches the loop: one cycle immediately, then one per interval.
func (s *SchedulerServiceImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	s.logger.Info("scheduler started", "interval_minutes", s.cfg.IntervalMinutes, "workers", s.cfg.Workers)
	return nil
}

// Stop cancels the loop and waits for the in-flight reservation to finish.
func (s *SchedulerServiceImpl) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

func (s *SchedulerServiceImpl) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.nextRun = time.Time{}
		s.mu.Unlock()
		close(done)
	}()

	interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunGenerationCycleNow(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("generation cycle aborted", "error", err)
		}

		s.mu.Lock()
		s.nextRun = s.now().Add(interval)
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunGenerationCycle evaluates every active schedule as of a fixed date.
func (s *SchedulerServiceImpl) RunGenerationCycle(ctx context.Context, asOf time.Time) (*primary.CycleResult, error) {
	date := recurrence.DateOf(asOf)
	return s.runCycle(ctx, &date)
}

// RunGenerationCycleNow evaluates every schedule as of today in its own zone.
func (s *SchedulerServiceImpl) RunGenerationCycleNow(ctx context.Context) (*primary.CycleResult, error) {
	return s.runCycle(ctx, nil)
}

func (s *SchedulerServiceImpl) runCycle(ctx context.Context, asOf *time.Time) (*primary.CycleResult, error) {
	started := s.now()
	result := &primary.CycleResult{StartedAt: started}
	if asOf != nil {
		result.AsOf = recurrence.FormatDate(*asOf)
	}

	schedules, err := s.templates.GetActiveSchedules(ctx)
	if err != nil {
		metrics.CycleErrorsTotal.Inc()
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	result.Schedules = len(schedules)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)

	for _, schedule := range schedules {
		if ctx.Err() != nil {
			break
		}
		schedule := schedule
		g.Go(func() error {
			tally := s.processSchedule(ctx, schedule, asOf, started)
			mu.Lock()
			result.Generated += tally.Generated
			result.Skipped += tally.Skipped
			result.Failed += tally.Failed
			result.Errors = append(result.Errors, tally.Errors...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Errors, func(i, j int) bool {
		a, b := result.Errors[i], result.Errors[j]
		if a.TemplateID != b.TemplateID {
			return a.TemplateID < b.TemplateID
		}
		if a.PropertyID != b.PropertyID {
			return a.PropertyID < b.PropertyID
		}
		return a.OccurrenceDate < b.OccurrenceDate
	})

	result.FinishedAt = s.now()
	metrics.CycleDuration.Observe(result.FinishedAt.Sub(started).Seconds())

	s.mu.Lock()
	s.lastRun = started
	s.lastResult = result
	s.mu.Unlock()

	s.logger.Info("generation cycle finished",
		"as_of", result.AsOf, "schedules", result.Schedules,
		"generated", result.Generated, "skipped", result.Skipped, "failed", result.Failed,
		"duration", result.FinishedAt.Sub(started))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// processSchedule reserves and generates every due occurrence of one
// schedule. Errors are collected, never returned, so one schedule cannot
// abort the others.
func (s *SchedulerServiceImpl) processSchedule(ctx context.Context, schedule *secondary.ScheduleRecord, asOf *time.Time, now time.Time) primary.CycleResult {
	var tally primary.CycleResult
	log := s.logger.With("template_id", schedule.TemplateID)

	def, err := recordToDefinition(schedule)
	if err != nil {
		log.Error("invalid stored schedule", "error", err)
		tally.Errors = append(tally.Errors, primary.CycleError{
			TemplateID: schedule.TemplateID,
			Message:    err.Error(),
			Err:        err,
		})
		return tally
	}

	day := recurrence.Today(def, now)
	if asOf != nil {
		day = *asOf
	}
	occurrences := recurrence.Due(def, day, s.cfg.LookbackDays)

	for _, propertyID := range schedule.PropertyIDs {
		for _, occ := range occurrences {
			if ctx.Err() != nil {
				return tally
			}
			key := generation.Key{TemplateID: schedule.TemplateID, PropertyID: propertyID, OccurrenceDate: occ}

			// The reserve/generate pair always runs to completion.
			pairCtx := context.WithoutCancel(ctx)
			s.processOccurrence(pairCtx, key, recurrence.DueAt(def, occ), &tally)
		}
	}

	log.Debug("schedule processed", "occurrences", len(occurrences), "properties", len(schedule.PropertyIDs),
		"generated", tally.Generated, "skipped", tally.Skipped, "failed", tally.Failed)
	return tally
}

func (s *SchedulerServiceImpl) processOccurrence(ctx context.Context, key generation.Key, dueAt time.Time, tally *primary.CycleResult) {
	record := func(err error) {
		tally.Failed++
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		tally.Errors = append(tally.Errors, primary.CycleError{
			TemplateID:     key.TemplateID,
			PropertyID:     key.PropertyID,
			OccurrenceDate: recurrence.FormatDate(key.OccurrenceDate),
			Message:        err.Error(),
			Err:            err,
		})
	}

	res, ok, err := s.generator.Reserve(ctx, key, dueAt, s.cfg.StaleAfter)
	if err != nil {
		s.logger.Error("reserve failed", "key", key.String(), "error", err)
		record(err)
		return
	}
	if !ok {
		tally.Skipped++
		metrics.GenerationsTotal.WithLabelValues("skipped").Inc()
		return
	}

	_, err = s.generator.Generate(ctx, res)
	switch {
	case err == nil:
		tally.Generated++
		metrics.GenerationsTotal.WithLabelValues("created").Inc()
	case errors.Is(err, secondary.ErrConcurrentModification):
		tally.Skipped++
		metrics.GenerationsTotal.WithLabelValues("skipped").Inc()
	default:
		record(err)
	}
}

// Status reports the loop state.
func (s *SchedulerServiceImpl) Status() primary.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return primary.SchedulerStatus{
		IsRunning:       s.running,
		IntervalMinutes: s.cfg.IntervalMinutes,
		LastRun:         s.lastRun,
		NextRun:         s.nextRun,
		LastResult:      s.lastResult,
	}
}

// ReplayGeneration reopens a failed ledger row and generates it again.
func (s *SchedulerServiceImpl) ReplayGeneration(ctx context.Context, generationID, actor string) (*primary.Generation, error) {
	record, err := s.ledger.GetByID(ctx, generationID)
	if err != nil {
		return nil, err
	}

	guard := generation.CanReplay(generation.ReplayContext{
		GenerationID: record.ID,
		Status:       generation.Status(record.Status),
	})
	if !guard.Allowed {
		return nil, fmt.Errorf("%w: %s", generation.ErrNotReplayable, guard.Reason)
	}

	reopened, err := s.ledger.ReopenFailed(ctx, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen generation: %w", err)
	}
	s.notifier.Notify(ctx, events.GenerationReplayed{GenerationID: generationID, Actor: actor})
	s.logger.Info("replaying generation", "generation_id", generationID, "attempt", reopened.Attempt, "actor", actor)

	_, genErr := s.generator.Generate(context.WithoutCancel(ctx), reservationFromRecord(reopened))

	final, err := s.ledger.GetByID(ctx, generationID)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return recordToGeneration(final), genErr
	}
	return recordToGeneration(final), nil
}

// ListGenerations lists ledger rows.
func (s *SchedulerServiceImpl) ListGenerations(ctx context.Context, filters primary.GenerationFilters) ([]*primary.Generation, error) {
	records, err := s.ledger.List(ctx, secondary.GenerationFilters{
		Status:     filters.Status,
		TemplateID: filters.TemplateID,
		PropertyID: filters.PropertyID,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	out := make([]*primary.Generation, len(records))
	for i, r := range records {
		out[i] = recordToGeneration(r)
	}
	return out, nil
}

func recordToGeneration(r *secondary.GenerationRecord) *primary.Generation {
	return &primary.Generation{
		ID:             r.ID,
		TemplateID:     r.TemplateID,
		PropertyID:     r.PropertyID,
		OccurrenceDate: r.OccurrenceDate,
		DueAt:          r.DueAt,
		Status:         r.Status,
		InstanceID:     r.InstanceID,
		ErrorDetail:    r.ErrorDetail,
		Attempt:        r.Attempt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// Ensure SchedulerServiceImpl implements the interface
var _ primary.SchedulerService = (*SchedulerServiceImpl)(nil)
