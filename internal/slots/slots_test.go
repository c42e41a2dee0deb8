package slots

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := Parse(s)
	require.NoError(t, err)
	return v
}

func TestGenerate(t *testing.T) {
	t.Run("two hour roster at 30 minutes", func(t *testing.T) {
		got := Generate(mustParse(t, "08:00"), mustParse(t, "10:00"), 30)
		assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, got)
	})

	t.Run("end before or equal to start is empty", func(t *testing.T) {
		assert.Empty(t, Generate(mustParse(t, "10:00"), mustParse(t, "10:00"), 30))
		assert.Empty(t, Generate(mustParse(t, "10:00"), mustParse(t, "09:00"), 30))
		assert.NotNil(t, Generate(mustParse(t, "10:00"), mustParse(t, "09:00"), 30))
	})

	t.Run("no trailing partial slot", func(t *testing.T) {
		got := Generate(mustParse(t, "08:00"), mustParse(t, "09:45"), 30)
		assert.Equal(t, []string{"08:00", "08:30", "09:00"}, got)
	})

	t.Run("non-positive granularity uses default", func(t *testing.T) {
		got := Generate(mustParse(t, "08:00"), mustParse(t, "09:00"), 0)
		assert.Equal(t, []string{"08:00", "08:30"}, got)
	})

	t.Run("count and ordering hold across granularities", func(t *testing.T) {
		for _, g := range []int{5, 10, 15, 20, 30, 45, 60, 90} {
			for _, span := range [][2]string{{"00:00", "23:59"}, {"07:10", "13:05"}, {"09:00", "09:20"}} {
				start, end := mustParse(t, span[0]), mustParse(t, span[1])
				got := Generate(start, end, g)
				assert.Len(t, got, (int(end)-int(start))/g, "granularity %d span %v", g, span)
				for i := 1; i < len(got); i++ {
					assert.Less(t, got[i-1], got[i])
				}
			}
		}
	})
}

func TestGenerateText(t *testing.T) {
	got, err := GenerateText("8AM", "10:00", 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "09:00"}, got)

	_, err = GenerateText("eight", "10:00", 30)
	assert.True(t, errors.Is(err, ErrMalformedTime))
}

func TestNormalize(t *testing.T) {
	valid := map[string]string{
		"08:30":    "08:30",
		"8:30":     "08:30",
		"08.30":    "08:30",
		"0830":     "08:30",
		"23:59":    "23:59",
		"00:00":    "00:00",
		" 09:00 ":  "09:00",
		"10AM":     "10:00",
		"10 am":    "10:00",
		"10.30AM":  "10:30",
		"10:30 AM": "10:30",
		"1030pm":   "22:30",
		"12AM":     "00:00",
		"12:15 AM": "00:15",
		"12PM":     "12:00",
		"1:05 pm":  "13:05",
	}
	for in, want := range valid {
		t.Run(in, func(t *testing.T) {
			got, err := Normalize(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	invalid := []string{"", "—", "24:00", "12:60", "noon", "13PM", "0AM", "8", "8:3", "083", "08:30:00", "8:30 XM", "10AM PM"}
	for _, in := range invalid {
		t.Run("reject "+in, func(t *testing.T) {
			got, err := Normalize(in)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, ErrMalformedTime), "input %q", in)
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range []string{"8AM", "08:30", "1030pm", "12AM"} {
		once, err := Normalize(in)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestDates(t *testing.T) {
	d, err := ParseDate("2025-09-20")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d.Weekday())
	assert.True(t, IsWeekend(d))
	assert.False(t, IsWeekend(d.AddDate(0, 0, 2)))

	_, err = ParseDate("20/09/2025")
	assert.Error(t, err)

	at := At(d, mustParse(t, "09:30"), time.UTC)
	assert.Equal(t, time.Date(2025, 9, 20, 9, 30, 0, 0, time.UTC), at)
	assert.Equal(t, d, DateOf(at))
}
