package domain

import (
	"fmt"
	"time"

	"github.com/vberezn/schedulebot/pkg/types"
)

// AvailabilityRule is a single owner-defined availability rule.
// Exactly one of DayOfWeek (recurring weekly) or SpecificDate (one calendar date)
// is set. A rule with SpecificDate takes precedence over every recurring rule for
// that date: specific-date rules replace, not merge with, the recurring set.
// Rules are never mutated in place; changes are delete + re-add.
type AvailabilityRule struct {
	ID           int64
	DayOfWeek    string // "monday".."sunday", empty for a specific-date rule
	SpecificDate string // "2006-01-02", empty for a recurring rule
	StartTime    types.TimeString
	EndTime      types.TimeString
	IsBlocked    bool // true = explicitly unavailable
	CreatedAt    time.Time
}

// IsRecurring reports whether the rule applies to a weekday every week.
func (r *AvailabilityRule) IsRecurring() bool {
	return r.DayOfWeek != ""
}

// Validate checks the rule's structural invariants.
func (r *AvailabilityRule) Validate() error {
	if (r.DayOfWeek == "") == (r.SpecificDate == "") {
		return fmt.Errorf("availability rule: exactly one of day_of_week or specific_date must be set")
	}
	if r.DayOfWeek != "" && !IsWeekdayName(r.DayOfWeek) {
		return fmt.Errorf("availability rule: unknown day of week %q", r.DayOfWeek)
	}
	if r.SpecificDate != "" {
		if _, err := time.Parse(DateFormat, r.SpecificDate); err != nil {
			return fmt.Errorf("availability rule: invalid specific date %q: %w", r.SpecificDate, err)
		}
	}
	if err := r.StartTime.Validate(); err != nil {
		return err
	}
	if err := r.EndTime.Validate(); err != nil {
		return err
	}
	if !r.StartTime.IsBefore(r.EndTime) && r.StartTime != r.EndTime {
		return fmt.Errorf("availability rule: start time %s is after end time %s", r.StartTime, r.EndTime)
	}
	return nil
}

// WeekdayNames lists lowercase English weekday names indexed as in the rules
// (monday first), matching the tool-call vocabulary.
var WeekdayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// WeekdayName returns the lowercase English name for a time.Weekday.
func WeekdayName(d time.Weekday) string {
	// time.Weekday has Sunday = 0
	return WeekdayNames[(int(d)+6)%7]
}

// IsWeekdayName reports whether s is a valid lowercase weekday name.
func IsWeekdayName(s string) bool {
	for _, name := range WeekdayNames {
		if name == s {
			return true
		}
	}
	return false
}
