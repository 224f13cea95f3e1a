package db

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sqlx.Tx) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_core_tables",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "backfill_ledger_reserved_at",
		Up:      migrationV2,
	},
	{
		Version: 3,
		Name:    "close_orphaned_pending_generations",
		Up:      migrationV3,
	},
}

// LatestVersion returns the version a fully migrated database is at.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// CurrentVersion reads the applied schema version.
func CurrentVersion(database *sqlx.DB) (int, error) {
	var version int
	if err := database.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	return version, nil
}

// RunMigrations applies pending migrations, each in its own transaction.
func RunMigrations(database *sqlx.DB) error {
	if _, err := database.Exec(schemaVersionSQL); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	currentVersion, err := CurrentVersion(database)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("running migration", "version", migration.Version, "name", migration.Name)

		tx, err := database.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// migrationV1 creates every table. All statements are IF NOT EXISTS so it is
// safe on a database created by an older fresh install.
func migrationV1(tx *sqlx.Tx) error {
	_, err := tx.Exec(SchemaSQL)
	return err
}

// migrationV2 gives ledger rows written before reservation timestamps existed
// a reserved_at, so stale-reservation reclaim can reason about them.
func migrationV2(tx *sqlx.Tx) error {
	_, err := tx.Exec(`UPDATE scheduled_generations SET reserved_at = created_at WHERE reserved_at = ''`)
	return err
}

// migrationV3 repairs pending ledger rows whose instance was created but whose
// status flip was lost. Instance creation and the flip now share a transaction.
func migrationV3(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		UPDATE scheduled_generations
		SET status = 'created',
			instance_id = (SELECT id FROM checklist_instances ci WHERE ci.generation_id = scheduled_generations.id)
		WHERE status = 'pending'
		  AND EXISTS (SELECT 1 FROM checklist_instances ci WHERE ci.generation_id = scheduled_generations.id)`)
	return err
}
