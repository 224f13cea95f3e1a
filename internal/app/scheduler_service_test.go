package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/propcheck/internal/adapters/directory"
	"github.com/example/propcheck/internal/adapters/sqlite"
	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/generation"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/db"
	"github.com/example/propcheck/internal/logging"
	"github.com/example/propcheck/internal/ports/primary"
)

// testEnv wires the services over a real SQLite file so concurrent
// goroutines get separate connections.
type testEnv struct {
	db         *sqlx.DB
	ledger     *sqlite.LedgerRepository
	notifier   *recordingNotifier
	generator  *Generator
	scheduler  *SchedulerServiceImpl
	checklists *ChecklistServiceImpl
	approvals  *ApprovalServiceImpl
	templates  *TemplateServiceImpl
	properties *PropertyServiceImpl
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "propcheck.db"), db.DriverCGO)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	logger := logging.Discard()
	templateRepo := sqlite.NewTemplateRepository(database)
	propertyRepo := sqlite.NewPropertyRepository(database)
	ledgerRepo := sqlite.NewLedgerRepository(database)
	checklistRepo := sqlite.NewChecklistRepository(database)
	responseRepo := sqlite.NewResponseRepository(database)
	notifier := &recordingNotifier{}

	resolver := directory.NewStaffResolver(propertyRepo, checklistRepo)
	gen := NewGenerator(templateRepo, propertyRepo, resolver, ledgerRepo, checklistRepo, notifier, logger, time.Second)

	env := &testEnv{
		db:        database,
		ledger:    ledgerRepo,
		notifier:  notifier,
		generator: gen,
		scheduler: NewSchedulerService(templateRepo, ledgerRepo, gen, notifier, SchedulerConfig{
			IntervalMinutes: 60,
			Workers:         4,
			LookbackDays:    7,
		}, logger),
		checklists: NewChecklistService(checklistRepo, responseRepo, templateRepo, propertyRepo, notifier, logger),
		approvals:  NewApprovalService(checklistRepo, responseRepo, notifier, logger),
		templates:  NewTemplateService(templateRepo, propertyRepo, logger),
		properties: NewPropertyService(propertyRepo, logger),
	}
	return env
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedDailyTemplate creates a daily template with a boolean item and an
// approval-required photo item, assigned to n properties each staffed by alice.
func (e *testEnv) seedDailyTemplate(t *testing.T, start time.Time, properties int) (*primary.Template, []string) {
	t.Helper()
	ctx := context.Background()

	tpl, err := e.templates.CreateTemplate(ctx, primary.CreateTemplateRequest{
		Name:             "Daily walkthrough",
		AssignmentPolicy: "primary",
	})
	require.NoError(t, err)

	_, err = e.templates.AddItem(ctx, primary.AddItemRequest{
		TemplateID: tpl.ID, Text: "Lobby clean", ItemType: checklist.ItemBoolean, Required: true,
	})
	require.NoError(t, err)
	_, err = e.templates.AddItem(ctx, primary.AddItemRequest{
		TemplateID: tpl.ID, Text: "Meter photo", ItemType: checklist.ItemPhoto, Required: true, ApprovalRequired: true,
	})
	require.NoError(t, err)

	require.NoError(t, e.templates.SaveSchedule(ctx, tpl.ID, recurrence.Definition{
		Enabled:    true,
		Frequency:  recurrence.Daily,
		Interval:   1,
		TimeOfDay:  "09:00",
		StartDate:  start,
		AutoAssign: true,
	}))

	var ids []string
	for i := 0; i < properties; i++ {
		p, err := e.properties.CreateProperty(ctx, primary.CreatePropertyRequest{Name: "Building", TimeZone: "UTC"})
		require.NoError(t, err)
		require.NoError(t, e.properties.AddStaff(ctx, primary.AddStaffRequest{PropertyID: p.ID, UserID: "alice", Primary: true}))
		require.NoError(t, e.templates.AssignProperty(ctx, tpl.ID, p.ID))
		ids = append(ids, p.ID)
	}
	return tpl, ids
}

func (e *testEnv) countInstances(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.Get(&n, "SELECT COUNT(*) FROM checklist_instances"))
	return n
}

func TestRunGenerationCycle_GeneratesEachOccurrenceOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDailyTemplate(t, date(2026, 3, 10), 2)

	// 3/10 through 3/16 for two properties.
	first, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Schedules)
	assert.Equal(t, 14, first.Generated)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, "2026-03-16", first.AsOf)

	second, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 14, second.Skipped)

	assert.Equal(t, 14, env.countInstances(t))

	list, err := env.checklists.ListChecklists(ctx, primary.ChecklistFilters{})
	require.NoError(t, err)
	for _, c := range list {
		assert.Equal(t, "alice", c.AssigneeID)
		assert.Equal(t, checklist.StatusPending, c.Status)
		assert.NotEmpty(t, c.GenerationID)
	}

	created, err := env.scheduler.ListGenerations(ctx, primary.GenerationFilters{Status: "created"})
	require.NoError(t, err)
	assert.Len(t, created, 14)

	status := env.scheduler.Status()
	assert.Same(t, second, status.LastResult)
}

func TestRunGenerationCycle_ConcurrentCyclesNeverDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.seedDailyTemplate(t, date(2026, 3, 10), 2)

	const cycles = 6
	results := make([]*primary.CycleResult, cycles)
	var wg sync.WaitGroup
	for i := 0; i < cycles; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.scheduler.RunGenerationCycle(context.Background(), date(2026, 3, 16))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	generated, skipped := 0, 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.Zero(t, r.Failed, "errors: %v", r.Errors)
		generated += r.Generated
		skipped += r.Skipped
	}
	assert.Equal(t, 14, generated)
	assert.Equal(t, cycles*14-14, skipped)
	assert.Equal(t, 14, env.countInstances(t))
}

func TestRunGenerationCycle_LeadTimeGeneratesAhead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl, _ := env.seedDailyTemplate(t, date(2026, 3, 16), 1)

	require.NoError(t, env.templates.SaveSchedule(ctx, tpl.ID, recurrence.Definition{
		Enabled:      true,
		Frequency:    recurrence.Daily,
		Interval:     1,
		StartDate:    date(2026, 3, 16),
		LeadTimeDays: 2,
	}))

	res, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Generated)

	rows, err := env.scheduler.ListGenerations(ctx, primary.GenerationFilters{TemplateID: tpl.ID})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-03-18", rows[0].OccurrenceDate)
}

func TestRunGenerationCycle_FailureIsRecordedAndReplayable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tpl, err := env.templates.CreateTemplate(ctx, primary.CreateTemplateRequest{Name: "Empty"})
	require.NoError(t, err)
	p, err := env.properties.CreateProperty(ctx, primary.CreatePropertyRequest{Name: "Annex"})
	require.NoError(t, err)
	require.NoError(t, env.templates.AssignProperty(ctx, tpl.ID, p.ID))
	require.NoError(t, env.templates.SaveSchedule(ctx, tpl.ID, recurrence.Definition{
		Enabled: true, Frequency: recurrence.Daily, Interval: 1, StartDate: date(2026, 3, 16),
	}))

	res, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "2026-03-16", res.Errors[0].OccurrenceDate)

	var failure *generation.Failure
	require.ErrorAs(t, res.Errors[0].Err, &failure)
	assert.Equal(t, generation.ReasonTemplateEmpty, failure.Reason)

	failed, err := env.scheduler.ListGenerations(ctx, primary.GenerationFilters{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ErrorDetail, "template_empty")

	// Failed rows are never retried automatically.
	again, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, 0, again.Failed)

	_, err = env.templates.AddItem(ctx, primary.AddItemRequest{TemplateID: tpl.ID, Text: "Door locked", ItemType: checklist.ItemBoolean})
	require.NoError(t, err)

	replayed, err := env.scheduler.ReplayGeneration(ctx, failed[0].ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, "created", replayed.Status)
	assert.Equal(t, 2, replayed.Attempt)
	assert.NotEmpty(t, replayed.InstanceID)
	assert.Empty(t, replayed.ErrorDetail)
	assert.Equal(t, 1, env.countInstances(t))
	assert.Len(t, env.notifier.ofType("generation.replayed"), 1)

	_, err = env.scheduler.ReplayGeneration(ctx, failed[0].ID, "ops")
	assert.ErrorIs(t, err, generation.ErrNotReplayable, "created rows cannot be replayed")
}

func TestRunGenerationCycle_StaleReservationIsReclaimed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tpl, props := env.seedDailyTemplate(t, date(2026, 3, 16), 1)

	// A generator that reserved and then died.
	env.ledger.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	_, ok, err := env.generator.Reserve(ctx, generation.Key{
		TemplateID: tpl.ID, PropertyID: props[0], OccurrenceDate: date(2026, 3, 16),
	}, date(2026, 3, 16), 0)
	require.NoError(t, err)
	require.True(t, ok)
	env.ledger.WithClock(time.Now)

	env.scheduler.cfg.LookbackDays = 0
	res, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated, "without a stale threshold the pending row is left alone")
	assert.Equal(t, 1, res.Skipped)

	env.scheduler.cfg.StaleAfter = 10 * time.Minute
	res, err = env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)

	rows, err := env.scheduler.ListGenerations(ctx, primary.GenerationFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "created", rows[0].Status)
	assert.Equal(t, 2, rows[0].Attempt)
}

func TestRunGenerationCycle_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.seedDailyTemplate(t, date(2026, 3, 10), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.scheduler.RunGenerationCycle(ctx, date(2026, 3, 16))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.Equal(t, 0, env.countInstances(t))
}

func TestScheduler_StartStop(t *testing.T) {
	env := newTestEnv(t)
	env.seedDailyTemplate(t, date(2026, 3, 14), 1)
	env.scheduler.WithClock(func() time.Time { return time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC) })

	require.NoError(t, env.scheduler.Start(context.Background()))
	assert.Error(t, env.scheduler.Start(context.Background()), "second start must fail")

	require.Eventually(t, func() bool {
		return env.scheduler.Status().LastResult != nil
	}, 5*time.Second, 10*time.Millisecond)

	st := env.scheduler.Status()
	assert.True(t, st.IsRunning)
	assert.Equal(t, 60, st.IntervalMinutes)

	env.scheduler.Stop()
	assert.False(t, env.scheduler.Status().IsRunning)
	assert.True(t, env.scheduler.Status().NextRun.IsZero())

	// 3/14 through 3/16 in the property's zone.
	assert.Equal(t, 3, env.countInstances(t))

	env.scheduler.Stop()
}
