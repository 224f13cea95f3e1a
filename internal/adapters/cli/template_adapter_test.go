package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/primary"
)

// mockTemplateService implements primary.TemplateService for testing
type mockTemplateService struct {
	templates []*primary.Template
	detail    *primary.TemplateDetail
	preview   []time.Time
}

func (m *mockTemplateService) CreateTemplate(ctx context.Context, req primary.CreateTemplateRequest) (*primary.Template, error) {
	return &primary.Template{ID: "TPL-001", Name: req.Name, Active: true}, nil
}

func (m *mockTemplateService) GetTemplate(ctx context.Context, id string) (*primary.TemplateDetail, error) {
	return m.detail, nil
}

func (m *mockTemplateService) ListTemplates(ctx context.Context, activeOnly bool) ([]*primary.Template, error) {
	return m.templates, nil
}

func (m *mockTemplateService) SetTemplateActive(ctx context.Context, id string, active bool) error {
	return nil
}

func (m *mockTemplateService) AddItem(ctx context.Context, req primary.AddItemRequest) (*primary.TemplateItem, error) {
	return &primary.TemplateItem{ID: "item-1", TemplateID: req.TemplateID, Position: 1, Text: req.Text}, nil
}

func (m *mockTemplateService) AssignProperty(ctx context.Context, templateID, propertyID string) error {
	return nil
}

func (m *mockTemplateService) UnassignProperty(ctx context.Context, templateID, propertyID string) error {
	return nil
}

func (m *mockTemplateService) SaveSchedule(ctx context.Context, templateID string, def recurrence.Definition) error {
	return nil
}

func (m *mockTemplateService) PreviewSchedule(ctx context.Context, templateID string, after time.Time, n int) ([]time.Time, error) {
	return m.preview, nil
}

func (m *mockTemplateService) ImportTemplate(ctx context.Context, req primary.ImportTemplateRequest) (*primary.TemplateDetail, error) {
	return &primary.TemplateDetail{
		Template:    &primary.Template{ID: "TPL-003", Name: req.Template.Name},
		Items:       make([]*primary.TemplateItem, len(req.Items)),
		PropertyIDs: req.PropertyIDs,
	}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTemplateAdapter_ListEmpty(t *testing.T) {
	var out bytes.Buffer
	adapter := NewTemplateAdapter(&mockTemplateService{}, &out)

	if _, err := adapter.List(context.Background(), true); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !strings.Contains(out.String(), "propcheck template import") {
		t.Errorf("expected import hint, got %q", out.String())
	}
}

func TestTemplateAdapter_Show(t *testing.T) {
	end := day(2026, 12, 31)
	var out bytes.Buffer
	adapter := NewTemplateAdapter(&mockTemplateService{detail: &primary.TemplateDetail{
		Template: &primary.Template{ID: "TPL-001", Name: "Fire safety", AssignmentPolicy: "primary", Active: true},
		Items: []*primary.TemplateItem{
			{Position: 1, Text: "Extinguishers", ItemType: checklist.ItemBoolean, Required: true},
			{Position: 2, Text: "Panel photo", ItemType: checklist.ItemPhoto, Required: true, ApprovalRequired: true},
		},
		Schedule: &recurrence.Definition{
			Enabled: true, Frequency: recurrence.Monthly, Interval: 1, DayOfMonth: recurrence.LastDay,
			TimeOfDay: "09:00", StartDate: day(2026, 1, 1), EndDate: &end, LeadTimeDays: 3,
		},
		PropertyIDs: []string{"PROP-001", "PROP-002"},
	}}, &out)

	if _, err := adapter.Show(context.Background(), "TPL-001"); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	output := out.String()
	for _, want := range []string{
		"2. Panel photo (photo, required, approval)",
		"monthly on the last day at 09:00 from 2026-01-01 until 2026-12-31, 3d lead",
		"Properties: PROP-001, PROP-002",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}

func TestDescribeSchedule(t *testing.T) {
	tests := []struct {
		name string
		def  recurrence.Definition
		want string
	}{
		{
			name: "daily",
			def:  recurrence.Definition{Enabled: true, Frequency: recurrence.Daily, Interval: 1, StartDate: day(2026, 3, 1)},
			want: "daily from 2026-03-01",
		},
		{
			name: "biweekly days",
			def: recurrence.Definition{Enabled: true, Frequency: recurrence.Biweekly, Interval: 1,
				DaysOfWeek: []time.Weekday{time.Monday, time.Thursday}, StartDate: day(2026, 3, 2), AutoAssign: true},
			want: "biweekly on mon,thu from 2026-03-02, auto-assign",
		},
		{
			name: "disabled interval",
			def:  recurrence.Definition{Frequency: recurrence.Monthly, Interval: 2, DayOfMonth: 15, StartDate: day(2026, 1, 15)},
			want: "monthly every 2 on day 15 from 2026-01-15 (disabled)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeSchedule(tt.def); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTemplateAdapter_Preview(t *testing.T) {
	var out bytes.Buffer
	adapter := NewTemplateAdapter(&mockTemplateService{preview: []time.Time{day(2026, 2, 28), day(2026, 3, 31)}}, &out)

	dates, err := adapter.Preview(context.Background(), "TPL-001", day(2026, 1, 31), 2)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	output := out.String()
	if !strings.Contains(output, "2026-02-28  Sat") || !strings.Contains(output, "2026-03-31  Tue") {
		t.Errorf("unexpected output:\n%s", output)
	}
}

func TestTemplateAdapter_Import(t *testing.T) {
	var out bytes.Buffer
	adapter := NewTemplateAdapter(&mockTemplateService{}, &out)

	_, err := adapter.Import(context.Background(), primary.ImportTemplateRequest{
		Template:    primary.CreateTemplateRequest{Name: "Pool"},
		Items:       []primary.AddItemRequest{{Text: "Chlorine"}},
		PropertyIDs: []string{"PROP-001"},
	})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !strings.Contains(out.String(), "✓ Imported template TPL-003: Pool (1 items, 1 properties)") {
		t.Errorf("unexpected output %q", out.String())
	}
}
