package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SeedFixtures populates the database with development fixtures: a few
// properties with staff, and scheduled templates assigned to them.
func SeedFixtures(database *sqlx.DB) error {
	now := time.Now().UTC().Format(time.RFC3339)
	startDate := time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02")

	tx, err := database.Beginx()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	defer tx.Rollback()

	properties := []struct{ id, name, tz string }{
		{"PROP-001", "Harbour View Apartments", "Australia/Sydney"},
		{"PROP-002", "Maple Court", "America/Chicago"},
		{"PROP-003", "Old Mill Lofts", "Europe/London"},
	}
	for _, p := range properties {
		if _, err := tx.Exec(
			"INSERT INTO properties (id, name, time_zone, active, created_at) VALUES (?, ?, ?, 1, ?)",
			p.id, p.name, p.tz, now,
		); err != nil {
			return fmt.Errorf("seed properties: %w", err)
		}
	}

	staff := []struct {
		propertyID, userID, role string
		primary                  bool
	}{
		{"PROP-001", "alice", "manager", true},
		{"PROP-001", "bob", "inspector", false},
		{"PROP-002", "carol", "inspector", true},
		{"PROP-003", "dave", "inspector", true},
		{"PROP-003", "erin", "inspector", false},
	}
	for _, s := range staff {
		if _, err := tx.Exec(
			"INSERT INTO property_staff (property_id, user_id, role, is_primary) VALUES (?, ?, ?, ?)",
			s.propertyID, s.userID, s.role, s.primary,
		); err != nil {
			return fmt.Errorf("seed staff: %w", err)
		}
	}

	templates := []struct{ id, name, desc, policy string }{
		{"TPL-001", "Monthly fire safety", "Extinguishers, alarms and exits", "primary"},
		{"TPL-002", "Weekly pool check", "Water chemistry and gate latch", "least_loaded"},
	}
	for _, t := range templates {
		if _, err := tx.Exec(
			"INSERT INTO checklist_templates (id, name, description, active, assignment_policy, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?, ?)",
			t.id, t.name, t.desc, t.policy, now, now,
		); err != nil {
			return fmt.Errorf("seed templates: %w", err)
		}
	}

	items := []struct {
		id, templateID string
		position       int
		text, itemType string
		required       bool
		approval       bool
	}{
		{"TI-001", "TPL-001", 1, "Extinguishers charged", "boolean", true, false},
		{"TI-002", "TPL-001", 2, "Alarm panel photo", "photo", true, true},
		{"TI-003", "TPL-001", 3, "Notes", "text", false, false},
		{"TI-004", "TPL-002", 1, "Chlorine ppm", "number", true, false},
		{"TI-005", "TPL-002", 2, "Gate self-closes", "boolean", true, false},
		{"TI-006", "TPL-002", 3, "Inspector signature", "signature", true, true},
	}
	for _, it := range items {
		if _, err := tx.Exec(
			"INSERT INTO template_items (id, template_id, position, text, item_type, required, approval_required) VALUES (?, ?, ?, ?, ?, ?, ?)",
			it.id, it.templateID, it.position, it.text, it.itemType, it.required, it.approval,
		); err != nil {
			return fmt.Errorf("seed template items: %w", err)
		}
	}

	schedules := []struct {
		templateID, frequency, daysOfWeek string
		dayOfMonth, leadTime              int
	}{
		{"TPL-001", "monthly", "", 31, 3},
		{"TPL-002", "weekly", "1,4", 0, 0},
	}
	for _, s := range schedules {
		if _, err := tx.Exec(
			`INSERT INTO template_schedules (template_id, enabled, frequency, interval_count, days_of_week, day_of_month,
				time_of_day, start_date, lead_time_days, auto_assign, updated_at)
			VALUES (?, 1, ?, 1, ?, ?, '09:00', ?, ?, 1, ?)`,
			s.templateID, s.frequency, s.daysOfWeek, s.dayOfMonth, startDate, s.leadTime, now,
		); err != nil {
			return fmt.Errorf("seed schedules: %w", err)
		}
	}

	links := []struct{ templateID, propertyID string }{
		{"TPL-001", "PROP-001"},
		{"TPL-001", "PROP-002"},
		{"TPL-001", "PROP-003"},
		{"TPL-002", "PROP-001"},
		{"TPL-002", "PROP-003"},
	}
	for _, l := range links {
		if _, err := tx.Exec(
			"INSERT INTO template_properties (template_id, property_id) VALUES (?, ?)",
			l.templateID, l.propertyID,
		); err != nil {
			return fmt.Errorf("seed template properties: %w", err)
		}
	}

	return tx.Commit()
}
