// ABOUTME: Weekly recurrence rule construction for imported events
// ABOUTME: Builds RRULE strings anchored to the start weekday and expands them with rrule-go
package sync

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// WeeklyOccurrences is how many instances every imported series has.
const WeeklyOccurrences = 52

// WeekdayCode returns the two-letter RFC 5545 code for a weekday, e.g. MO for Monday.
func WeekdayCode(d time.Weekday) string {
	return strings.ToUpper(d.String()[:2])
}

// WeeklyRule returns the recurrence rule for a series starting at start.
func WeeklyRule(start time.Time) string {
	return fmt.Sprintf("RRULE:FREQ=WEEKLY;COUNT=%d;BYDAY=%s", WeeklyOccurrences, WeekdayCode(start.Weekday()))
}

// WeeklyRecurrence returns the recurrence list for a Calendar API event body.
func WeeklyRecurrence(start time.Time) []string {
	return []string{WeeklyRule(start)}
}

// ExpandRule returns every occurrence of rule anchored at start.
func ExpandRule(rule string, start time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence %q: %w", rule, err)
	}
	r.DTStart(start)
	return r.All(), nil
}

// SeriesEnd returns the last occurrence of the weekly series starting at start.
func SeriesEnd(start time.Time) (time.Time, error) {
	occurrences, err := ExpandRule(WeeklyRule(start), start)
	if err != nil {
		return time.Time{}, err
	}
	if len(occurrences) == 0 {
		return time.Time{}, fmt.Errorf("recurrence for %s has no occurrences", start.Format(time.DateOnly))
	}
	return occurrences[len(occurrences)-1], nil
}
