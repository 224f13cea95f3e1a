// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/propcheck/internal/core/checklist"
	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/primary"
)

// TemplateFile is the on-disk YAML form of a checklist template.
type TemplateFile struct {
	Name             string        `yaml:"name"`
	Description      string        `yaml:"description"`
	AssignmentPolicy string        `yaml:"assignment_policy"`
	Items            []ItemFile    `yaml:"items"`
	Schedule         *ScheduleFile `yaml:"schedule"`
	Properties       []string      `yaml:"properties"`
}

// ItemFile is one template item.
type ItemFile struct {
	Text             string `yaml:"text"`
	Description      string `yaml:"description"`
	Type             string `yaml:"type"`
	Required         bool   `yaml:"required"`
	ApprovalRequired bool   `yaml:"approval_required"`
}

// ScheduleFile is the recurrence rule. Weekdays are names ("mon,thu") and
// day_of_month accepts "last".
type ScheduleFile struct {
	Enabled      *bool  `yaml:"enabled"`
	Frequency    string `yaml:"frequency"`
	Interval     int    `yaml:"interval"`
	DaysOfWeek   string `yaml:"days_of_week"`
	DayOfMonth   string `yaml:"day_of_month"`
	TimeOfDay    string `yaml:"time_of_day"`
	TimeZone     string `yaml:"time_zone"`
	StartDate    string `yaml:"start_date"`
	EndDate      string `yaml:"end_date"`
	LeadTimeDays int    `yaml:"lead_time_days"`
	AutoAssign   bool   `yaml:"auto_assign"`
}

// LoadTemplateFile reads and converts a template definition file.
func LoadTemplateFile(path string) (*primary.ImportTemplateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	req, err := ParseTemplate(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// ParseTemplate decodes a YAML template definition. Unknown keys are errors
// so typos do not silently drop settings.
func ParseTemplate(r io.Reader) (*primary.ImportTemplateRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file TemplateFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("template file is empty")
		}
		return nil, fmt.Errorf("invalid template YAML: %w", err)
	}
	return file.toRequest()
}

func (f *TemplateFile) toRequest() (*primary.ImportTemplateRequest, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}

	req := &primary.ImportTemplateRequest{
		Template: primary.CreateTemplateRequest{
			Name:             f.Name,
			Description:      f.Description,
			AssignmentPolicy: f.AssignmentPolicy,
		},
		PropertyIDs: f.Properties,
	}

	for i, it := range f.Items {
		itemType, err := checklist.ParseItemType(it.Type)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		req.Items = append(req.Items, primary.AddItemRequest{
			Text:             it.Text,
			Description:      it.Description,
			ItemType:         itemType,
			Required:         it.Required,
			ApprovalRequired: it.ApprovalRequired,
		})
	}

	if f.Schedule != nil {
		def, err := f.Schedule.Definition()
		if err != nil {
			return nil, fmt.Errorf("schedule: %w", err)
		}
		req.Schedule = &def
	}
	return req, nil
}

// Definition converts the file form into a recurrence rule. Interval
// defaults to 1 and Enabled to true.
func (s *ScheduleFile) Definition() (recurrence.Definition, error) {
	def := recurrence.Definition{
		Enabled:      true,
		Interval:     s.Interval,
		TimeOfDay:    s.TimeOfDay,
		TimeZone:     s.TimeZone,
		LeadTimeDays: s.LeadTimeDays,
		AutoAssign:   s.AutoAssign,
	}
	if s.Enabled != nil {
		def.Enabled = *s.Enabled
	}
	if def.Interval == 0 {
		def.Interval = 1
	}

	var err error
	if def.Frequency, err = recurrence.ParseFrequency(s.Frequency); err != nil {
		return def, err
	}
	if def.DaysOfWeek, err = recurrence.ParseWeekdays(s.DaysOfWeek); err != nil {
		return def, err
	}
	if def.DayOfMonth, err = recurrence.ParseDayOfMonth(s.DayOfMonth); err != nil {
		return def, err
	}
	if def.StartDate, err = recurrence.ParseDate(s.StartDate); err != nil {
		return def, &recurrence.ConfigError{Field: "start_date", Reason: fmt.Sprintf("must be YYYY-MM-DD, got %q", s.StartDate)}
	}
	if s.EndDate != "" {
		end, err := recurrence.ParseDate(s.EndDate)
		if err != nil {
			return def, &recurrence.ConfigError{Field: "end_date", Reason: fmt.Sprintf("must be YYYY-MM-DD, got %q", s.EndDate)}
		}
		def.EndDate = &end
	}
	return def, nil
}
