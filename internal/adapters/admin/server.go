// Package admin serves the ops-only HTTP surface: health, Prometheus
// metrics and scheduler control. It is not a CRUD API.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/propcheck/internal/core/generation"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/primary"
	"github.com/example/propcheck/internal/ports/secondary"
	"github.com/example/propcheck/internal/version"
)

const shutdownTimeout = 10 * time.Second

// Server is the admin HTTP server.
type Server struct {
	scheduler primary.SchedulerService
	logger    *slog.Logger
	engine    *gin.Engine
	addr      string
}

// NewServer builds the router. Nothing listens until ListenAndServe.
func NewServer(addr string, scheduler primary.SchedulerService, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		scheduler: scheduler,
		logger:    logger,
		engine:    gin.New(),
		addr:      addr,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// registerRoutes wires:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /v1/scheduler
//	POST /v1/scheduler/run?as_of=YYYY-MM-DD
//	GET  /v1/generations?status=&template_id=&property_id=&limit=
//	POST /v1/generations/:id/replay
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.GET("/scheduler", s.handleStatus)
	v1.POST("/scheduler/run", s.handleRun)
	v1.GET("/generations", s.handleListGenerations)
	v1.POST("/generations/:id/replay", s.handleReplay)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("admin server stopped")
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("admin request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

// StatusResponse is the body of GET /v1/scheduler.
type StatusResponse struct {
	Running         bool           `json:"running"`
	IntervalMinutes int            `json:"interval_minutes"`
	LastRun         *time.Time     `json:"last_run,omitempty"`
	NextRun         *time.Time     `json:"next_run,omitempty"`
	LastResult      *CycleResponse `json:"last_result,omitempty"`
}

// CycleResponse is a generation cycle summary.
type CycleResponse struct {
	AsOf       string          `json:"as_of,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Schedules  int             `json:"schedules"`
	Generated  int             `json:"generated"`
	Skipped    int             `json:"skipped"`
	Failed     int             `json:"failed"`
	Errors     []CycleErrorDTO `json:"errors,omitempty"`
}

// CycleErrorDTO is one failure inside a cycle.
type CycleErrorDTO struct {
	TemplateID     string `json:"template_id"`
	PropertyID     string `json:"property_id,omitempty"`
	OccurrenceDate string `json:"occurrence_date,omitempty"`
	Message        string `json:"message"`
}

// GenerationResponse is one ledger row.
type GenerationResponse struct {
	ID             string `json:"id"`
	TemplateID     string `json:"template_id"`
	PropertyID     string `json:"property_id"`
	OccurrenceDate string `json:"occurrence_date"`
	DueAt          string `json:"due_at"`
	Status         string `json:"status"`
	InstanceID     string `json:"instance_id,omitempty"`
	ErrorDetail    string `json:"error_detail,omitempty"`
	Attempt        int    `json:"attempt"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.scheduler.Status()
	resp := StatusResponse{
		Running:         st.IsRunning,
		IntervalMinutes: st.IntervalMinutes,
		LastRun:         optionalTime(st.LastRun),
		NextRun:         optionalTime(st.NextRun),
	}
	if st.LastResult != nil {
		resp.LastResult = toCycleResponse(st.LastResult)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRun(c *gin.Context) {
	var (
		result *primary.CycleResult
		err    error
	)
	if raw := c.Query("as_of"); raw != "" {
		asOf, perr := recurrence.ParseDate(raw)
		if perr != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "as_of must be YYYY-MM-DD"})
			return
		}
		result, err = s.scheduler.RunGenerationCycle(c.Request.Context(), asOf)
	} else {
		result, err = s.scheduler.RunGenerationCycleNow(c.Request.Context())
	}
	if err != nil && result == nil {
		s.logger.Error("run-now cycle failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, toCycleResponse(result))
}

func (s *Server) handleListGenerations(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	rows, err := s.scheduler.ListGenerations(c.Request.Context(), primary.GenerationFilters{
		Status:     c.Query("status"),
		TemplateID: c.Query("template_id"),
		PropertyID: c.Query("property_id"),
		Limit:      limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := make([]GenerationResponse, len(rows))
	for i, g := range rows {
		resp[i] = toGenerationResponse(g)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReplay(c *gin.Context) {
	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "admin"
	}

	row, err := s.scheduler.ReplayGeneration(c.Request.Context(), c.Param("id"), actor)
	var failure *generation.Failure
	switch {
	case err == nil:
		c.JSON(http.StatusOK, toGenerationResponse(row))
	case errors.As(err, &failure) && row != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "generation": toGenerationResponse(row)})
	case errors.Is(err, secondary.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, generation.ErrNotReplayable), errors.Is(err, secondary.ErrConcurrentModification):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("replay failed", "generation_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func toCycleResponse(r *primary.CycleResult) *CycleResponse {
	resp := &CycleResponse{
		AsOf:       r.AsOf,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Schedules:  r.Schedules,
		Generated:  r.Generated,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
	}
	for _, e := range r.Errors {
		resp.Errors = append(resp.Errors, CycleErrorDTO{
			TemplateID:     e.TemplateID,
			PropertyID:     e.PropertyID,
			OccurrenceDate: e.OccurrenceDate,
			Message:        e.Message,
		})
	}
	return resp
}

func toGenerationResponse(g *primary.Generation) GenerationResponse {
	return GenerationResponse{
		ID:             g.ID,
		TemplateID:     g.TemplateID,
		PropertyID:     g.PropertyID,
		OccurrenceDate: g.OccurrenceDate,
		DueAt:          g.DueAt,
		Status:         g.Status,
		InstanceID:     g.InstanceID,
		ErrorDetail:    g.ErrorDetail,
		Attempt:        g.Attempt,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
