package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/propcheck/internal/core/recurrence"
	"github.com/example/propcheck/internal/ports/secondary"
)

// timestamp renders an instant the way records store it.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// recordToDefinition converts a stored schedule into a recurrence rule.
func recordToDefinition(rec *secondary.ScheduleRecord) (recurrence.Definition, error) {
	def := recurrence.Definition{
		Enabled:      rec.Enabled,
		Frequency:    recurrence.Frequency(rec.Frequency),
		Interval:     rec.Interval,
		DayOfMonth:   rec.DayOfMonth,
		TimeOfDay:    rec.TimeOfDay,
		TimeZone:     rec.TimeZone,
		LeadTimeDays: rec.LeadTimeDays,
		AutoAssign:   rec.AutoAssign,
	}

	start, err := recurrence.ParseDate(rec.StartDate)
	if err != nil {
		return def, fmt.Errorf("schedule %s: invalid start date %q: %w", rec.TemplateID, rec.StartDate, err)
	}
	def.StartDate = start

	if rec.EndDate != "" {
		end, err := recurrence.ParseDate(rec.EndDate)
		if err != nil {
			return def, fmt.Errorf("schedule %s: invalid end date %q: %w", rec.TemplateID, rec.EndDate, err)
		}
		def.EndDate = &end
	}

	if rec.DaysOfWeek != "" {
		for _, part := range strings.Split(rec.DaysOfWeek, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 0 || n > 6 {
				return def, fmt.Errorf("schedule %s: invalid weekday %q", rec.TemplateID, part)
			}
			def.DaysOfWeek = append(def.DaysOfWeek, time.Weekday(n))
		}
	}

	return def, nil
}

// definitionToRecord converts a recurrence rule into its stored form.
func definitionToRecord(templateID string, def recurrence.Definition) *secondary.ScheduleRecord {
	days := make([]string, len(def.DaysOfWeek))
	for i, wd := range def.DaysOfWeek {
		days[i] = strconv.Itoa(int(wd))
	}

	rec := &secondary.ScheduleRecord{
		TemplateID:   templateID,
		Enabled:      def.Enabled,
		Frequency:    string(def.Frequency),
		Interval:     def.Interval,
		DaysOfWeek:   strings.Join(days, ","),
		DayOfMonth:   def.DayOfMonth,
		TimeOfDay:    def.TimeOfDay,
		TimeZone:     def.TimeZone,
		StartDate:    recurrence.FormatDate(def.StartDate),
		LeadTimeDays: def.LeadTimeDays,
		AutoAssign:   def.AutoAssign,
	}
	if def.EndDate != nil {
		rec.EndDate = recurrence.FormatDate(*def.EndDate)
	}
	return rec
}
