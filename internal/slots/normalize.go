package slots

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedTime is returned for any time-of-day text outside the
// accepted grammar. Callers match it with errors.Is.
var ErrMalformedTime = errors.New("malformed time")

// TimeOfDay is a wall-clock time without a date, stored as minutes since
// midnight. The zero value is 00:00.
type TimeOfDay int

const minutesPerDay = 24 * 60

// NewTimeOfDay builds a TimeOfDay, rejecting out-of-range components.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d out of range", ErrMalformedTime, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the canonical slot form: 24-hour, zero-padded "HH:mm".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// The accepted grammar is closed. Anything else is rejected:
//
//	24-hour:  "8:30", "08:30", "08.30", "0830"
//	12-hour:  "8AM", "8 am", "8:30PM", "8.30 pm", "830pm", "12:00 AM"
var (
	clock24      = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)
	clock24Dense = regexp.MustCompile(`^(\d{2})(\d{2})$`)
	clock12      = regexp.MustCompile(`^(\d{1,2})(?:[:.]?(\d{2}))? ?([AP]M)$`)
)

// Parse converts time-of-day text into a TimeOfDay.
func Parse(text string) (TimeOfDay, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrMalformedTime)
	}

	if m := clock12.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, text)
		}
		// 12 AM is midnight, 12 PM is noon.
		hour %= 12
		if m[3] == "PM" {
			hour += 12
		}
		t, err := NewTimeOfDay(hour, minute)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, text)
		}
		return t, nil
	}

	m := clock24.FindStringSubmatch(s)
	if m == nil {
		m = clock24Dense.FindStringSubmatch(s)
	}
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, text)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, text)
	}
	return t, nil
}

// Normalize returns the canonical "HH:mm" form of text, or an error
// wrapping ErrMalformedTime. Unparseable input is never passed through.
func Normalize(text string) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}
