// Package recurrence contains the pure calendar logic for checklist schedules.
// This is part of the Functional Core - no I/O, no clock reads.
//
// Dates are civil calendar dates represented as time.Time values at UTC
// midnight. Evaluation is deliberately DST-naive: a schedule's time zone only
// matters when deciding what "today" is and when an occurrence is due.
package recurrence

import (
	"strconv"
	"strings"
	"time"
)

// Frequency is the cadence of a schedule.
type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// LastDay anchors a monthly schedule on the last day of every month.
const LastDay = -1

// DateLayout is the persisted form of a civil date.
const DateLayout = "2006-01-02"

// searchHorizonDays bounds Next so a schedule that never fires cannot spin.
const searchHorizonDays = 366 * 20

// Definition is a recurrence rule attached to a checklist template.
type Definition struct {
	Enabled   bool
	Frequency Frequency `validate:"required,oneof=daily weekly biweekly monthly quarterly yearly"`
	Interval  int       `validate:"gte=1,lte=365"`

	// DaysOfWeek applies to weekly and biweekly schedules. Empty means the
	// weekday of StartDate.
	DaysOfWeek []time.Weekday `validate:"unique,dive,gte=0,lte=6"`

	// DayOfMonth applies to monthly, quarterly and yearly schedules: 1-31,
	// LastDay, or 0 for the day of StartDate.
	DayOfMonth int `validate:"gte=-1,lte=31"`

	TimeOfDay    string `validate:"omitempty,datetime=15:04"`
	TimeZone     string `validate:"omitempty,timezone"`
	StartDate    time.Time
	EndDate      *time.Time
	LeadTimeDays int `validate:"gte=0,lte=365"`
	AutoAssign   bool
}

// DateOf truncates t to its civil date (as seen in t's own location) and
// returns it at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// Location resolves the schedule's time zone, falling back to UTC.
func (d Definition) Location() *time.Location {
	if d.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the civil date of now in the schedule's time zone.
func Today(def Definition, now time.Time) time.Time {
	return DateOf(now.In(def.Location()))
}

// DueAt returns the instant an occurrence is due: the occurrence date at the
// schedule's time of day, in the schedule's time zone.
func DueAt(def Definition, occurrence time.Time) time.Time {
	hour, minute := parseTimeOfDay(def.TimeOfDay)
	return time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(),
		hour, minute, 0, 0, def.Location())
}

// Due returns the occurrences that should exist as of asOf: every occurrence
// inside the validity window whose generation date (occurrence minus lead
// time) is on or before asOf, looking back at most lookbackDays.
// A schedule whose end date is before asOf is over and yields nothing, even
// inside the lookback. Nothing due is an empty result, never an error.
func Due(def Definition, asOf time.Time, lookbackDays int) []time.Time {
	asOf = DateOf(asOf)
	if def.EndDate != nil && DateOf(*def.EndDate).Before(asOf) {
		return nil
	}
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	from := asOf.AddDate(0, 0, -lookbackDays)
	to := asOf.AddDate(0, 0, def.LeadTimeDays)
	return Between(def, from, to)
}

// Next returns up to n occurrences strictly after the given date.
func Next(def Definition, after time.Time, n int) []time.Time {
	if n <= 0 || !def.Enabled {
		return nil
	}
	from := DateOf(after).AddDate(0, 0, 1)
	limit := from.AddDate(0, 0, searchHorizonDays)

	var out []time.Time
	for from.Before(limit) && len(out) < n {
		to := from.AddDate(1, 0, 0)
		for _, d := range Between(def, from, to) {
			out = append(out, d)
			if len(out) == n {
				break
			}
		}
		if def.EndDate != nil && to.After(DateOf(*def.EndDate)) {
			break
		}
		from = to.AddDate(0, 0, 1)
	}
	return out
}

// Between returns every occurrence in the closed range [from, to] that also
// falls inside the schedule's validity window, in ascending order.
func Between(def Definition, from, to time.Time) []time.Time {
	if !def.Enabled || def.StartDate.IsZero() {
		return nil
	}

	start := DateOf(def.StartDate)
	from, to = DateOf(from), DateOf(to)
	if from.Before(start) {
		from = start
	}
	if def.EndDate != nil {
		if end := DateOf(*def.EndDate); to.After(end) {
			to = end
		}
	}
	if to.Before(from) {
		return nil
	}

	interval := def.Interval
	if interval < 1 {
		interval = 1
	}

	switch def.Frequency {
	case Daily:
		return daily(start, from, to, interval)
	case Weekly:
		return weekly(def, start, from, to, interval)
	case Biweekly:
		return weekly(def, start, from, to, interval*2)
	case Monthly:
		return monthly(def, start, from, to, interval)
	case Quarterly:
		return monthly(def, start, from, to, interval*3)
	case Yearly:
		return monthly(def, start, from, to, interval*12)
	}
	return nil
}

func daily(start, from, to time.Time, interval int) []time.Time {
	offset := daysBetween(start, from)
	steps := (offset + interval - 1) / interval

	var out []time.Time
	for d := start.AddDate(0, 0, steps*interval); !d.After(to); d = d.AddDate(0, 0, interval) {
		out = append(out, d)
	}
	return out
}

func weekly(def Definition, start, from, to time.Time, interval int) []time.Time {
	days := make(map[time.Weekday]bool, 7)
	for _, wd := range def.DaysOfWeek {
		days[wd] = true
	}
	if len(days) == 0 {
		days[start.Weekday()] = true
	}

	startWeek := mondayOf(start)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !days[d.Weekday()] {
			continue
		}
		week := daysBetween(startWeek, mondayOf(d)) / 7
		if week%interval == 0 {
			out = append(out, d)
		}
	}
	return out
}

func monthly(def Definition, start, from, to time.Time, interval int) []time.Time {
	anchor := def.DayOfMonth
	if anchor == 0 {
		anchor = start.Day()
	}

	startIdx := monthIndex(start)
	fromIdx, toIdx := monthIndex(from), monthIndex(to)
	steps := 0
	if fromIdx > startIdx {
		steps = (fromIdx - startIdx + interval - 1) / interval
	}

	var out []time.Time
	for idx := startIdx + steps*interval; idx <= toIdx; idx += interval {
		year, month := idx/12, time.Month(idx%12+1)
		d := time.Date(year, month, clampDay(anchor, year, month), 0, 0, 0, 0, time.UTC)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// clampDay maps an anchor onto a concrete day of the month. Anchors past the
// end of a short month land on its last day.
func clampDay(anchor, year int, month time.Month) int {
	last := daysIn(year, month)
	if anchor == LastDay || anchor > last {
		return last
	}
	return anchor
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthIndex(d time.Time) int {
	return d.Year()*12 + int(d.Month()) - 1
}

func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// daysBetween assumes both arguments are UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func parseTimeOfDay(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0
	}
	return hour, minute
}
