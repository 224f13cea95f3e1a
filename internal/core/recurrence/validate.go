package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ConfigError reports a malformed schedule definition. It is raised when a
// schedule is saved and never reaches the scheduler loop.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid schedule: " + e.Reason
	}
	return fmt.Sprintf("invalid schedule: %s: %s", e.Field, e.Reason)
}

var definitionValidate = validator.New()

// Validate checks a definition for field-level and cross-field errors.
// Rules:
// - Field ranges and enums from struct tags
// - StartDate is required and EndDate may not precede it
// - Weekday sets only apply to weekly variants
// - Day-of-month anchors only apply to monthly variants
func Validate(def Definition) error {
	if err := definitionValidate.Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &ConfigError{Reason: err.Error()}
	}

	if def.StartDate.IsZero() {
		return &ConfigError{Field: "start_date", Reason: "is required"}
	}
	if def.EndDate != nil && DateOf(*def.EndDate).Before(DateOf(def.StartDate)) {
		return &ConfigError{Field: "end_date", Reason: "must not be before start_date"}
	}

	switch def.Frequency {
	case Daily:
		if len(def.DaysOfWeek) > 0 {
			return &ConfigError{Field: "days_of_week", Reason: "not valid for daily schedules"}
		}
		if def.DayOfMonth != 0 {
			return &ConfigError{Field: "day_of_month", Reason: "not valid for daily schedules"}
		}
	case Weekly, Biweekly:
		if def.DayOfMonth != 0 {
			return &ConfigError{Field: "day_of_month", Reason: fmt.Sprintf("conflicts with %s frequency; use days_of_week", def.Frequency)}
		}
	case Monthly, Quarterly, Yearly:
		if len(def.DaysOfWeek) > 0 {
			return &ConfigError{Field: "days_of_week", Reason: fmt.Sprintf("conflicts with %s frequency; use day_of_month", def.Frequency)}
		}
	}

	return nil
}

func fieldError(fe validator.FieldError) *ConfigError {
	field := snakeCase(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ConfigError{Field: field, Reason: "is required"}
	case "oneof":
		return &ConfigError{Field: field, Reason: fmt.Sprintf("must be one of [%s]", fe.Param())}
	case "gte":
		return &ConfigError{Field: field, Reason: "must be at least " + fe.Param()}
	case "lte":
		return &ConfigError{Field: field, Reason: "must be at most " + fe.Param()}
	case "unique":
		return &ConfigError{Field: field, Reason: "contains duplicates"}
	case "datetime":
		return &ConfigError{Field: field, Reason: "must be HH:MM"}
	case "timezone":
		return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown time zone %q", fe.Value())}
	}
	return &ConfigError{Field: field, Reason: "failed " + fe.Tag()}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseFrequency normalizes user input such as "bi-weekly" into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "")
	switch Frequency(normalized) {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return Frequency(normalized), nil
	}
	return "", &ConfigError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", s)}
}

// ParseWeekdays parses a comma separated list such as "mon,wed,fri". Each
// entry is a three-letter abbreviation or a full weekday name.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []time.Weekday
	for _, part := range strings.Split(s, ",") {
		wd, ok := parseWeekday(strings.ToLower(strings.TrimSpace(part)))
		if !ok {
			return nil, &ConfigError{Field: "days_of_week", Reason: fmt.Sprintf("unknown weekday %q", part)}
		}
		out = append(out, wd)
	}
	return out, nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if name == full || name == full[:3] {
			return wd, true
		}
	}
	return 0, false
}

// ParseDayOfMonth accepts 1-31 or "last".
func ParseDayOfMonth(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	if s == "last" {
		return LastDay, nil
	}
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, &ConfigError{Field: "day_of_month", Reason: fmt.Sprintf("must be 1-31 or \"last\", got %q", s)}
	}
	return day, nil
}
