// Package sqlite_test contains integration tests for SQLite repositories.
//
// # Schema Protection
//
// This file is the SINGLE POINT where the database schema is loaded for tests.
// All test setup functions use db.GetSchemaSQL() to ensure tests run against
// the authoritative schema, preventing drift between test and production.
//
// DO NOT hardcode CREATE TABLE statements in test files. Use setupTestDB()
// and the seed* helpers.
package sqlite_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/propcheck/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	testDB, err := sqlx.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedProperty inserts an active property and returns its ID.
func seedProperty(t *testing.T, database *sqlx.DB, id string) string {
	t.Helper()
	if id == "" {
		id = "PROP-001"
	}
	_, err := database.Exec("INSERT INTO properties (id, name, time_zone, active) VALUES (?, ?, 'UTC', 1)", id, "Property "+id)
	if err != nil {
		t.Fatalf("failed to seed property: %v", err)
	}
	return id
}

// seedStaff links a user to a property.
func seedStaff(t *testing.T, database *sqlx.DB, propertyID, userID string, primary bool) {
	t.Helper()
	_, err := database.Exec("INSERT INTO property_staff (property_id, user_id, is_primary) VALUES (?, ?, ?)", propertyID, userID, primary)
	if err != nil {
		t.Fatalf("failed to seed staff: %v", err)
	}
}

// seedTemplate inserts an active template with one required item.
func seedTemplate(t *testing.T, database *sqlx.DB, id string) string {
	t.Helper()
	if id == "" {
		id = "TPL-001"
	}
	_, err := database.Exec("INSERT INTO checklist_templates (id, name, active) VALUES (?, ?, 1)", id, "Template "+id)
	if err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	_, err = database.Exec(
		"INSERT INTO template_items (id, template_id, position, text, item_type, required) VALUES (?, ?, 1, 'Check', 'boolean', 1)",
		"TI-"+id, id,
	)
	if err != nil {
		t.Fatalf("failed to seed template item: %v", err)
	}
	return id
}

// seedChecklist inserts a pending instance with the given items and returns its ID.
func seedChecklist(t *testing.T, database *sqlx.DB, id string, itemIDs ...string) string {
	t.Helper()
	if id == "" {
		id = "CHK-001"
	}
	_, err := database.Exec(
		"INSERT INTO checklist_instances (id, template_id, property_id, status, version) VALUES (?, 'TPL-001', 'PROP-001', 'pending', 1)",
		id,
	)
	if err != nil {
		t.Fatalf("failed to seed checklist: %v", err)
	}
	for i, itemID := range itemIDs {
		_, err := database.Exec(
			"INSERT INTO checklist_items (id, instance_id, position, text, item_type, required, approval_required) VALUES (?, ?, ?, 'Item', 'text', 1, 1)",
			itemID, id, i+1,
		)
		if err != nil {
			t.Fatalf("failed to seed checklist item: %v", err)
		}
	}
	return id
}
