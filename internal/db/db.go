package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverCGO is mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"

	busyTimeoutMillis = 5000
)

// DefaultPath returns ~/.propcheck/propcheck.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".propcheck", "propcheck.db"), nil
}

// Open opens the database with WAL, foreign keys and a busy timeout set on
// every pooled connection, then brings the schema up to date.
func Open(path, driver string) (*sqlx.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn, err := buildDSN(path, driver)
	if err != nil {
		return nil, err
	}

	database, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		database.SetMaxOpenConns(1)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := InitSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

func buildDSN(path, driver string) (string, error) {
	switch driver {
	case DriverCGO:
		params := fmt.Sprintf("_foreign_keys=on&_busy_timeout=%d", busyTimeoutMillis)
		if path != ":memory:" {
			params += "&_journal_mode=WAL"
		}
		return path + sep(path) + params, nil
	case DriverPureGo:
		params := fmt.Sprintf("_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", busyTimeoutMillis)
		if path != ":memory:" {
			params += "&_pragma=journal_mode(WAL)"
		}
		if !strings.HasPrefix(path, "file:") {
			path = "file:" + path
		}
		return path + sep(path) + params, nil
	}
	return "", fmt.Errorf("unsupported database driver %q (valid: %s, %s)", driver, DriverCGO, DriverPureGo)
}

func sep(path string) string {
	if strings.Contains(path, "?") {
		return "&"
	}
	return "?"
}
