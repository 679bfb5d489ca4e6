package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayCode(t *testing.T) {
	want := map[time.Weekday]string{
		time.Sunday:    "SU",
		time.Monday:    "MO",
		time.Tuesday:   "TU",
		time.Wednesday: "WE",
		time.Thursday:  "TH",
		time.Friday:    "FR",
		time.Saturday:  "SA",
	}
	for day, code := range want {
		assert.Equal(t, code, WeekdayCode(day), day.String())
	}
}

func TestWeeklyRule_MondayStart(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2024, 10, 14, 7, 0, 0, 0, ny)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;COUNT=52;BYDAY=MO", WeeklyRule(start))
	assert.Equal(t, []string{"RRULE:FREQ=WEEKLY;COUNT=52;BYDAY=MO"}, WeeklyRecurrence(start))
}

func TestWeeklyRule_EveryDayOfAYear(t *testing.T) {
	// Every date across a leap year maps to the code of its actual weekday.
	day := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		d := day.AddDate(0, 0, i)
		want := "RRULE:FREQ=WEEKLY;COUNT=52;BYDAY=" + WeekdayCode(d.Weekday())
		require.Equal(t, want, WeeklyRule(d), d.Format(time.DateOnly))
	}
}

func TestExpandRule_52OccurrencesOnStartWeekday(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2024, 10, 16, 18, 30, 0, 0, ny) // Wednesday
	occurrences, err := ExpandRule(WeeklyRule(start), start)
	require.NoError(t, err)

	require.Len(t, occurrences, WeeklyOccurrences)
	assert.True(t, occurrences[0].Equal(start), "series starts on the start date")
	for _, occ := range occurrences {
		local := occ.In(ny)
		assert.Equal(t, time.Wednesday, local.Weekday())
		assert.Equal(t, 18, local.Hour(), "wall clock survives DST changes")
	}
}

func TestExpandRule_Invalid(t *testing.T) {
	_, err := ExpandRule("RRULE:FREQ=SOMETIMES", time.Now())
	require.Error(t, err)
}

func TestSeriesEnd(t *testing.T) {
	start := time.Date(2024, 10, 14, 7, 0, 0, 0, time.UTC)

	end, err := SeriesEnd(start)
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 7*(WeeklyOccurrences-1)), end)
}
