// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/propcheck/internal/ports/secondary"
)

// timestamp renders t the way every timestamp column stores it.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, secondary.ErrNotFound)
}

// getOne runs a single-row query, mapping sql.ErrNoRows to ErrNotFound.
func getOne(ctx context.Context, q sqlx.QueryerContext, dest any, entity, id, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", entity, err)
	}
	return nil
}

// nextID computes PREFIX-NNN from the highest numeric suffix in a table.
func nextID(ctx context.Context, db *sqlx.DB, table, prefix string) (string, error) {
	var maxID int
	query := fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM %s", len(prefix)+2, table)
	if err := db.GetContext(ctx, &maxID, query); err != nil {
		return "", fmt.Errorf("failed to get next %s ID: %w", table, err)
	}
	return fmt.Sprintf("%s-%03d", prefix, maxID+1), nil
}

// inTx runs fn inside a transaction, committing on success.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// prefixed qualifies a column list with a table alias, keeping bare names as
// result column names.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		name := strings.TrimSpace(p)
		parts[i] = alias + name + " AS " + name
	}
	return strings.Join(parts, ", ")
}
