package slots

import (
	"fmt"
	"time"
)

// DefaultGranularity is the roster slot length in minutes used when no
// explicit granularity is configured.
const DefaultGranularity = 30

// Generate returns the slots in [start, end) stepped by granularityMinutes.
//
// The result is ordered and duplicate-free. A span that is not a multiple
// of the granularity stops before end; no trailing partial slot is emitted.
// end <= start yields an empty, non-nil slice. A non-positive granularity
// falls back to DefaultGranularity.
func Generate(start, end TimeOfDay, granularityMinutes int) []string {
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultGranularity
	}
	out := make([]string, 0)
	if end <= start {
		return out
	}
	for t := start; t+TimeOfDay(granularityMinutes) <= end; t += TimeOfDay(granularityMinutes) {
		out = append(out, t.String())
	}
	return out
}

// GenerateText parses start and end through the normalizer before
// generating. Roster entries store their bounds as text.
func GenerateText(start, end string, granularityMinutes int) ([]string, error) {
	s, err := Parse(start)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	e, err := Parse(end)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	return Generate(s, e, granularityMinutes), nil
}

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" calendar date into UTC midnight.
func ParseDate(text string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, text, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", text)
	}
	return d, nil
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// At combines a calendar date and a slot into an instant in loc.
func At(date time.Time, slot TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, slot.Hour(), slot.Minute(), 0, 0, loc)
}

// IsWeekend reports whether date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
