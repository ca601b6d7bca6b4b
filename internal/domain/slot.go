package domain

import (
	"fmt"
	"time"
)

// TimeSlot is an immutable candidate meeting interval with timezone-aware bounds.
// Produced by the availability engine, consumed by the reservation protocol and
// the calendar layer. End is always strictly after Start.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two intervals truly intersect.
// Intervals are half-open: touching endpoints do not count as overlap.
//
// Examples:
//   - 11:30-12:00 vs 11:20-11:40 → overlap (11:30-11:40)
//   - 11:30-12:00 vs 11:00-11:30 → no overlap (adjacent)
//   - 11:30-12:00 vs 12:00-12:30 → no overlap (adjacent)
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && s.End.After(other.Start)
}

// Duration returns the slot length.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// IsZero reports whether the slot is unset.
func (s TimeSlot) IsZero() bool {
	return s.Start.IsZero() && s.End.IsZero()
}

// String formats the slot in its own location, e.g. "Monday, February 16 10:00-10:30".
func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s",
		s.Start.Format("Monday, January 02"),
		s.Start.Format("15:04"),
		s.End.Format("15:04"),
	)
}

// FormatInLocation formats the slot in the given location, appending the zone name.
func (s TimeSlot) FormatInLocation(loc *time.Location) string {
	start := s.Start.In(loc)
	end := s.End.In(loc)
	return fmt.Sprintf("%s %s-%s (%s)",
		start.Format("Monday, January 02"),
		start.Format("15:04"),
		end.Format("15:04"),
		loc.String(),
	)
}
