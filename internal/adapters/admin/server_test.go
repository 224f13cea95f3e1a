package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/propcheck/internal/core/generation"
	"github.com/example/propcheck/internal/logging"
	_ "github.com/example/propcheck/internal/metrics"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Mock Implementations
// ============================================================================

type mockScheduler struct {
	status    primary.SchedulerStatus
	result    *primary.CycleResult
	runErr    error
	asOf      time.Time
	ranNow    bool
	rows      []*primary.Generation
	filters   primary.GenerationFilters
	replayRow *primary.Generation
	replayErr error
	actor     string
}

func (m *mockScheduler) Start(ctx context.Context) error { return nil }
func (m *mockScheduler) Stop()                           {}

func (m *mockScheduler) RunGenerationCycle(ctx context.Context, asOf time.Time) (*primary.CycleResult, error) {
	m.asOf = asOf
	return m.result, m.runErr
}

func (m *mockScheduler) RunGenerationCycleNow(ctx context.Context) (*primary.CycleResult, error) {
	m.ranNow = true
	return m.result, m.runErr
}

func (m *mockScheduler) Status() primary.SchedulerStatus { return m.status }

func (m *mockScheduler) ReplayGeneration(ctx context.Context, generationID, actor string) (*primary.Generation, error) {
	m.actor = actor
	return m.replayRow, m.replayErr
}

func (m *mockScheduler) ListGenerations(ctx context.Context, filters primary.GenerationFilters) ([]*primary.Generation, error) {
	m.filters = filters
	return m.rows, nil
}

var _ primary.SchedulerService = (*mockScheduler)(nil)

// ============================================================================
// Tests
// ============================================================================

func serve(t *testing.T, sched *mockScheduler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(":0", sched, logging.Discard())
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	w := serve(t, &mockScheduler{}, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "ok" || resp.Version == "" {
		t.Errorf("unexpected health response %+v", resp)
	}
}

func TestServer_Metrics(t *testing.T) {
	w := serve(t, &mockScheduler{}, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "propcheck_generation_reclaims_total") {
		t.Error("expected propcheck collectors in exposition")
	}
}

func TestServer_Status(t *testing.T) {
	last := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	sched := &mockScheduler{status: primary.SchedulerStatus{
		IsRunning:       true,
		IntervalMinutes: 60,
		LastRun:         last,
		LastResult:      &primary.CycleResult{Generated: 4, Skipped: 2},
	}}

	w := serve(t, sched, http.MethodGet, "/v1/scheduler", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Running || resp.IntervalMinutes != 60 {
		t.Errorf("unexpected status %+v", resp)
	}
	if resp.LastRun == nil || !resp.LastRun.Equal(last) {
		t.Errorf("expected last run %v, got %v", last, resp.LastRun)
	}
	if resp.NextRun != nil {
		t.Error("zero next run should be omitted")
	}
	if resp.LastResult == nil || resp.LastResult.Generated != 4 {
		t.Errorf("unexpected last result %+v", resp.LastResult)
	}
}

func TestServer_Run(t *testing.T) {
	sched := &mockScheduler{result: &primary.CycleResult{
		AsOf:      "2026-03-16",
		Schedules: 1,
		Generated: 1,
		Failed:    1,
		Errors:    []primary.CycleError{{TemplateID: "TPL-001", PropertyID: "PROP-002", Message: "template_empty"}},
	}}

	w := serve(t, sched, http.MethodPost, "/v1/scheduler/run?as_of=2026-03-16", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if sched.ranNow {
		t.Error("as_of must run a fixed-date cycle")
	}
	if sched.asOf.Format("2006-01-02") != "2026-03-16" {
		t.Errorf("unexpected as_of %v", sched.asOf)
	}

	var resp CycleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Generated != 1 || len(resp.Errors) != 1 || resp.Errors[0].PropertyID != "PROP-002" {
		t.Errorf("unexpected cycle response %+v", resp)
	}
	if !strings.Contains(w.Body.String(), `"template_id":"TPL-001"`) {
		t.Errorf("expected snake_case keys, got %s", w.Body.String())
	}
}

func TestServer_RunNow(t *testing.T) {
	sched := &mockScheduler{result: &primary.CycleResult{}}
	w := serve(t, sched, http.MethodPost, "/v1/scheduler/run", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !sched.ranNow {
		t.Error("expected run-now cycle")
	}
}

func TestServer_RunErrors(t *testing.T) {
	w := serve(t, &mockScheduler{}, http.MethodPost, "/v1/scheduler/run?as_of=tomorrow", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad as_of: expected 400, got %d", w.Code)
	}

	w = serve(t, &mockScheduler{runErr: errors.New("database is closed")}, http.MethodPost, "/v1/scheduler/run", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("cycle error: expected 500, got %d", w.Code)
	}
}

func TestServer_ListGenerations(t *testing.T) {
	sched := &mockScheduler{rows: []*primary.Generation{
		{ID: "GEN-001", TemplateID: "TPL-001", Status: "failed", ErrorDetail: "template_empty", Attempt: 1},
	}}

	w := serve(t, sched, http.MethodGet, "/v1/generations?status=failed&limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if sched.filters.Status != "failed" || sched.filters.Limit != 5 {
		t.Errorf("filters not forwarded: %+v", sched.filters)
	}

	var rows []GenerationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(rows) != 1 || rows[0].ErrorDetail != "template_empty" {
		t.Errorf("unexpected rows %+v", rows)
	}

	w = serve(t, &mockScheduler{}, http.MethodGet, "/v1/generations", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty ledger should encode as [], got %s", w.Body.String())
	}

	w = serve(t, &mockScheduler{}, http.MethodGet, "/v1/generations?limit=-1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: expected 400, got %d", w.Code)
	}
}

func TestServer_Replay(t *testing.T) {
	failedRow := &primary.Generation{ID: "GEN-001", Status: "failed", Attempt: 2}
	failure := &generation.Failure{Reason: generation.ReasonTemplateEmpty, Detail: "no items"}

	tests := []struct {
		name     string
		row      *primary.Generation
		err      error
		wantCode int
	}{
		{"created", &primary.Generation{ID: "GEN-001", Status: "created"}, nil, http.StatusOK},
		{"failed again", failedRow, failure, http.StatusUnprocessableEntity},
		{"not found", nil, fmt.Errorf("generation GEN-404: %w", secondary.ErrNotFound), http.StatusNotFound},
		{"not replayable", nil, fmt.Errorf("%w: already created", generation.ErrNotReplayable), http.StatusConflict},
		{"conflict", nil, secondary.ErrConcurrentModification, http.StatusConflict},
		{"other", nil, errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &mockScheduler{replayRow: tt.row, replayErr: tt.err}
			w := serve(t, sched, http.MethodPost, "/v1/generations/GEN-001/replay", map[string]string{"X-Actor": "ops"})
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if sched.actor != "ops" {
				t.Errorf("expected actor ops, got %q", sched.actor)
			}
		})
	}
}

func TestServer_ReplayFailureIncludesRow(t *testing.T) {
	sched := &mockScheduler{
		replayRow: &primary.Generation{ID: "GEN-001", Status: "failed", Attempt: 2},
		replayErr: &generation.Failure{Reason: generation.ReasonPropertyInactive},
	}
	w := serve(t, sched, http.MethodPost, "/v1/generations/GEN-001/replay", nil)

	var body struct {
		Error      string             `json:"error"`
		Generation GenerationResponse `json:"generation"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body.Generation.Attempt != 2 || body.Error == "" {
		t.Errorf("unexpected body %+v", body)
	}
	if sched.actor != "admin" {
		t.Errorf("expected default actor admin, got %q", sched.actor)
	}
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	srv := NewServer("127.0.0.1:0", &mockScheduler{}, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
