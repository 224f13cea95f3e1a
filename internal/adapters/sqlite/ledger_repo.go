package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

const generationColumns = `id, template_id, property_id, occurrence_date, due_at, status, instance_id,
	error_detail, attempt, reserved_at, created_at, updated_at`

// LedgerRepository implements secondary.GenerationLedger with SQLite. The
// UNIQUE(template_id, property_id, occurrence_date) index is what makes
// Reserve an atomic check-and-insert across goroutines and processes.
type LedgerRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewLedgerRepository creates a new SQLite generation ledger.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db, now: time.Now}
}

// WithClock replaces the ledger's clock. Used by tests of stale reclaim.
func (r *LedgerRepository) WithClock(now func() time.Time) *LedgerRepository {
	r.now = now
	return r
}

// Reserve inserts the occurrence if absent. When a row already exists and is
// a pending reservation older than req.StaleAfter, it is reclaimed with a new
// attempt number; exactly one concurrent caller wins the reclaim.
func (r *LedgerRepository) Reserve(ctx context.Context, req secondary.ReserveRequest) (*secondary.GenerationRecord, secondary.ReserveOutcome, error) {
	now := r.now()
	ts := timestamp(now)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO scheduled_generations
			(id, template_id, property_id, occurrence_date, due_at, status, attempt, reserved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'pending', 1, ?, ?, ?)
		ON CONFLICT(template_id, property_id, occurrence_date) DO NOTHING`,
		req.ID, req.TemplateID, req.PropertyID, req.OccurrenceDate, req.DueAt, ts, ts, ts,
	)
	if err != nil {
		return nil, secondary.ReserveAlreadyExists, fmt.Errorf("failed to reserve generation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		record, err := r.GetByID(ctx, req.ID)
		if err != nil {
			return nil, secondary.ReserveAlreadyExists, err
		}
		return record, secondary.ReserveReserved, nil
	}

	if req.StaleAfter > 0 {
		cutoff := timestamp(now.Add(-req.StaleAfter))
		res, err := r.db.ExecContext(ctx,
			`UPDATE scheduled_generations
			SET attempt = attempt + 1, reserved_at = ?, updated_at = ?
			WHERE template_id = ? AND property_id = ? AND occurrence_date = ?
				AND status = 'pending' AND reserved_at <= ?`,
			ts, ts, req.TemplateID, req.PropertyID, req.OccurrenceDate, cutoff,
		)
		if err != nil {
			return nil, secondary.ReserveAlreadyExists, fmt.Errorf("failed to reclaim stale generation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			record, err := r.getByKey(ctx, req.TemplateID, req.PropertyID, req.OccurrenceDate)
			if err != nil {
				return nil, secondary.ReserveAlreadyExists, err
			}
			return record, secondary.ReserveReserved, nil
		}
	}

	existing, err := r.getByKey(ctx, req.TemplateID, req.PropertyID, req.OccurrenceDate)
	if err != nil {
		return nil, secondary.ReserveAlreadyExists, err
	}
	return existing, secondary.ReserveAlreadyExists, nil
}

// MarkFailed moves a pending reservation owned by (id, attempt) to failed.
func (r *LedgerRepository) MarkFailed(ctx context.Context, id string, attempt int, detail string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_generations SET status = 'failed', error_detail = ?, updated_at = ?
		WHERE id = ? AND status = 'pending' AND attempt = ?`,
		detail, timestamp(r.now()), id, attempt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark generation failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// ReopenFailed moves a failed row back to pending under a new attempt.
func (r *LedgerRepository) ReopenFailed(ctx context.Context, id string) (*secondary.GenerationRecord, error) {
	ts := timestamp(r.now())
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_generations
		SET status = 'pending', attempt = attempt + 1, error_detail = '', reserved_at = ?, updated_at = ?
		WHERE id = ? AND status = 'failed'`,
		ts, ts, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen generation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, r.missOrConflict(ctx, id)
	}
	return r.GetByID(ctx, id)
}

// GetByID retrieves a ledger row.
func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*secondary.GenerationRecord, error) {
	record := &secondary.GenerationRecord{}
	err := getOne(ctx, r.db, record, "generation", id,
		"SELECT "+generationColumns+" FROM scheduled_generations WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List retrieves ledger rows matching the given filters, newest occurrence first.
func (r *LedgerRepository) List(ctx context.Context, filters secondary.GenerationFilters) ([]*secondary.GenerationRecord, error) {
	query := "SELECT " + generationColumns + " FROM scheduled_generations WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.TemplateID != "" {
		query += " AND template_id = ?"
		args = append(args, filters.TemplateID)
	}
	if filters.PropertyID != "" {
		query += " AND property_id = ?"
		args = append(args, filters.PropertyID)
	}

	query += " ORDER BY occurrence_date DESC, template_id, property_id"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	var records []*secondary.GenerationRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	return records, nil
}

func (r *LedgerRepository) getByKey(ctx context.Context, templateID, propertyID, occurrenceDate string) (*secondary.GenerationRecord, error) {
	record := &secondary.GenerationRecord{}
	key := fmt.Sprintf("%s/%s@%s", templateID, propertyID, occurrenceDate)
	err := getOne(ctx, r.db, record, "generation", key,
		"SELECT "+generationColumns+" FROM scheduled_generations WHERE template_id = ? AND property_id = ? AND occurrence_date = ?",
		templateID, propertyID, occurrenceDate)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// missOrConflict explains a conditional update that touched no rows.
func (r *LedgerRepository) missOrConflict(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("generation %s: %w", id, secondary.ErrConcurrentModification)
}

// Ensure LedgerRepository implements the interface
var _ secondary.GenerationLedger = (*LedgerRepository)(nil)
