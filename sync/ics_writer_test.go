package sync

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/harperreed/calimport/logger"
)

func TestICSWriter_PreviewOfImport(t *testing.T) {
	src := table(
		`Exercise,2024-10-14,07:00,2024-10-14,08:00,Workout,Gym`,
		`Reading,2024-10-17,21:00,2024-10-17,22:00,,`,
	)
	w := NewICSWriter()

	report, err := ImportEvents(context.Background(), w, strings.NewReader(src), testOptions(t), logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, w.Len())
	assert.NotEmpty(t, report.Rows[0].EventID)

	var buf bytes.Buffer
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(&buf)
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "Exercise", first.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "Gym", first.GetProperty(ics.ComponentPropertyLocation).Value)
	assert.Equal(t, "Workout", first.GetProperty(ics.ComponentPropertyDescription).Value)

	dtStart := first.GetProperty(ics.ComponentPropertyDtStart)
	require.NotNil(t, dtStart)
	assert.Equal(t, "20241014T070000", dtStart.Value)
	assert.Equal(t, []string{"America/New_York"}, dtStart.ICalParameters[string(ics.ParameterTzid)])
	assert.Equal(t, "20241014T080000", first.GetProperty(ics.ComponentPropertyDtEnd).Value)

	rrule := first.GetProperty(ics.ComponentPropertyRrule)
	require.NotNil(t, rrule)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=52;BYDAY=MO", rrule.Value)

	assert.Nil(t, events[1].GetProperty(ics.ComponentPropertyLocation), "empty location is omitted")
	assert.Equal(t, "FREQ=WEEKLY;COUNT=52;BYDAY=TH", events[1].GetProperty(ics.ComponentPropertyRrule).Value)
}

func TestICSWriter_RuleExpandsOnStartWeekday(t *testing.T) {
	loc := newYork(t)
	w := NewICSWriter()

	rec := EventRecord{Subject: "Swim", StartDate: "2024-11-01", StartTime: "06:15", EndDate: "2024-11-01", EndTime: "07:00"}
	event, err := BuildEvent(rec, loc)
	require.NoError(t, err)
	_, err = w.InsertEvent(context.Background(), "cal", event)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)
	cal, err := ics.ParseCalendar(&buf)
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	ev := cal.Events()[0]
	start, err := time.ParseInLocation(icsLocalLayout, ev.GetProperty(ics.ComponentPropertyDtStart).Value, loc)
	require.NoError(t, err)

	occurrences, err := ExpandRule(ev.GetProperty(ics.ComponentPropertyRrule).Value, start)
	require.NoError(t, err)
	require.Len(t, occurrences, WeeklyOccurrences)
	for _, occ := range occurrences {
		assert.Equal(t, time.Friday, occ.In(loc).Weekday())
	}
}

func TestICSWriter_RejectsMissingDateTime(t *testing.T) {
	w := NewICSWriter()
	_, err := w.InsertEvent(context.Background(), "cal", &calendar.Event{Summary: "no times"})
	require.Error(t, err)
	assert.Equal(t, 0, w.Len())
}

func TestICSWriter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	event, err := BuildEvent(EventRecord{StartDate: "2024-10-14", StartTime: "07:00", EndDate: "2024-10-14", EndTime: "08:00"}, time.UTC)
	require.NoError(t, err)

	_, err = NewICSWriter().InsertEvent(ctx, "cal", event)
	require.ErrorIs(t, err, context.Canceled)
}

func TestICSWriter_KeepsWallClockInDSTGap(t *testing.T) {
	w := NewICSWriter()
	rec := EventRecord{Subject: "Early", StartDate: "2024-03-10", StartTime: "02:30", EndDate: "2024-03-10", EndTime: "03:30"}
	event, err := BuildEvent(rec, newYork(t))
	require.NoError(t, err)
	_, err = w.InsertEvent(context.Background(), "cal", event)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)
	cal, err := ics.ParseCalendar(&buf)
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	dtstart := cal.Events()[0].GetProperty(ics.ComponentPropertyDtStart)
	require.NotNil(t, dtstart)
	assert.Equal(t, "20240310T023000", dtstart.Value)
	assert.Equal(t, []string{"America/New_York"}, dtstart.ICalParameters[string(ics.ParameterTzid)])
}
