package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/propcheck/internal/adapters/sqlite"
	"github.com/example/propcheck/internal/ports/secondary"
)

func TestTemplateRepository_CreateAndItems(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewTemplateRepository(database)
	ctx := context.Background()

	id, err := repo.GetNextID(ctx)
	if err != nil {
		t.Fatalf("GetNextID failed: %v", err)
	}
	if id != "TPL-001" {
		t.Errorf("expected TPL-001, got %s", id)
	}

	template := &secondary.TemplateRecord{ID: id, Name: "Fire safety", Active: true}
	if err := repo.Create(ctx, template); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if template.AssignmentPolicy != "none" {
		t.Errorf("expected default policy none, got %q", template.AssignmentPolicy)
	}

	for _, text := range []string{"Extinguishers", "Alarms"} {
		itemID, err := repo.GetNextItemID(ctx)
		if err != nil {
			t.Fatalf("GetNextItemID failed: %v", err)
		}
		item := &secondary.TemplateItemRecord{ID: itemID, TemplateID: id, Text: text, ItemType: "boolean", Required: true}
		if err := repo.AddItem(ctx, item); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}

	items, err := repo.ListItems(ctx, id)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Position != 2 || items[1].ID != "TI-002" {
		t.Errorf("expected TI-002 at position 2, got %s at %d", items[1].ID, items[1].Position)
	}

	next, _ := repo.GetNextID(ctx)
	if next != "TPL-002" {
		t.Errorf("expected TPL-002, got %s", next)
	}
}

func TestTemplateRepository_SetActive_NotFound(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewTemplateRepository(database)

	err := repo.SetActive(context.Background(), "TPL-404", false)
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_GetActiveSchedules(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewTemplateRepository(database)
	ctx := context.Background()

	seedTemplate(t, database, "TPL-001")
	seedTemplate(t, database, "TPL-002")
	seedTemplate(t, database, "TPL-003")
	seedProperty(t, database, "PROP-001")
	seedProperty(t, database, "PROP-002")

	for _, id := range []string{"TPL-001", "TPL-002", "TPL-003"} {
		schedule := &secondary.ScheduleRecord{
			TemplateID: id, Enabled: id != "TPL-003", Frequency: "daily", Interval: 1, StartDate: "2024-01-01",
		}
		if err := repo.SaveSchedule(ctx, schedule); err != nil {
			t.Fatalf("SaveSchedule failed: %v", err)
		}
		for _, prop := range []string{"PROP-001", "PROP-002"} {
			if err := repo.AssignProperty(ctx, id, prop); err != nil {
				t.Fatalf("AssignProperty failed: %v", err)
			}
		}
	}
	// Assigning twice is a no-op.
	if err := repo.AssignProperty(ctx, "TPL-001", "PROP-001"); err != nil {
		t.Fatalf("second AssignProperty failed: %v", err)
	}

	if err := repo.SetActive(ctx, "TPL-002", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if _, err := database.Exec("UPDATE properties SET active = 0 WHERE id = 'PROP-002'"); err != nil {
		t.Fatalf("deactivate property: %v", err)
	}

	schedules, err := repo.GetActiveSchedules(ctx)
	if err != nil {
		t.Fatalf("GetActiveSchedules failed: %v", err)
	}
	if len(schedules) != 1 {
		t.Fatalf("expected only TPL-001, got %d schedules", len(schedules))
	}
	if schedules[0].TemplateID != "TPL-001" {
		t.Errorf("expected TPL-001, got %s", schedules[0].TemplateID)
	}
	if len(schedules[0].PropertyIDs) != 1 || schedules[0].PropertyIDs[0] != "PROP-001" {
		t.Errorf("expected only the active property, got %v", schedules[0].PropertyIDs)
	}
}

func TestTemplateRepository_SaveScheduleReplaces(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewTemplateRepository(database)
	ctx := context.Background()
	seedTemplate(t, database, "TPL-001")

	first := &secondary.ScheduleRecord{TemplateID: "TPL-001", Enabled: true, Frequency: "weekly", Interval: 1, DaysOfWeek: "1,4", StartDate: "2024-01-01"}
	if err := repo.SaveSchedule(ctx, first); err != nil {
		t.Fatalf("SaveSchedule failed: %v", err)
	}
	second := &secondary.ScheduleRecord{TemplateID: "TPL-001", Enabled: true, Frequency: "monthly", Interval: 1, DayOfMonth: 31, StartDate: "2024-01-01", AutoAssign: true}
	if err := repo.SaveSchedule(ctx, second); err != nil {
		t.Fatalf("SaveSchedule failed: %v", err)
	}

	snapshot, err := repo.GetTemplateSnapshot(ctx, "TPL-001")
	if err != nil {
		t.Fatalf("GetTemplateSnapshot failed: %v", err)
	}
	if !snapshot.AutoAssign {
		t.Error("expected AutoAssign from the replaced schedule")
	}
	if len(snapshot.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(snapshot.Items))
	}

	stored, err := repo.GetSchedule(ctx, "TPL-001")
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if stored.Frequency != "monthly" || stored.DayOfMonth != 31 || stored.DaysOfWeek != "" {
		t.Errorf("schedule not replaced: %+v", stored)
	}

	if _, err := repo.GetTemplateSnapshot(ctx, "TPL-404"); !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
