// ABOUTME: CSV row reading and conversion to Calendar API events
// ABOUTME: Streams rows in file order and maps each one to a calendar.Event with a weekly recurrence
package sync

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	// DateTimeLayout is the layout of a "Start Date"+"Start Time" pair joined by a space.
	DateTimeLayout = "2006-01-02 15:04"

	// eventDateTimeLayout renders wall-clock time without an offset; the zone travels in TimeZone.
	eventDateTimeLayout = "2006-01-02T15:04:05"

	// runIDProperty tags each created event with the import run that created it.
	runIDProperty = "calimportRun"
)

// Column names, as they appear in the header row.
const (
	colSubject     = "Subject"
	colStartDate   = "Start Date"
	colStartTime   = "Start Time"
	colEndDate     = "End Date"
	colEndTime     = "End Time"
	colDescription = "Description"
	colLocation    = "Location"
)

var byteOrderMark = []byte("\ufeff")

var requiredColumns = []string{
	colSubject, colStartDate, colStartTime, colEndDate, colEndTime, colDescription, colLocation,
}

// EventRecord is one data row of the input table.
type EventRecord struct {
	Line        int
	Subject     string
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	Description string
	Location    string
}

// RowReader reads EventRecords from a CSV source with a header row.
type RowReader struct {
	r       *csv.Reader
	header  []string
	columns map[string]int
}

// NewRowReader reads the header and checks that every required column is present.
// A leading UTF-8 byte order mark is dropped before the header is parsed.
func NewRowReader(src io.Reader) (*RowReader, error) {
	br := bufio.NewReader(src)
	if prefix, err := br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = br.Discard(len(byteOrderMark))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("input has no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if _, dup := columns[header[i]]; !dup {
			columns[header[i]] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}

	return &RowReader{r: r, header: header, columns: columns}, nil
}

// Columns returns the header names in file order.
func (rr *RowReader) Columns() []string {
	return append([]string(nil), rr.header...)
}

// Next returns the next record, or io.EOF after the last one.
func (rr *RowReader) Next() (EventRecord, error) {
	fields, err := rr.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return EventRecord{}, io.EOF
		}
		return EventRecord{}, fmt.Errorf("failed to read row: %w", err)
	}

	line, _ := rr.r.FieldPos(0)
	get := func(name string) string {
		i := rr.columns[name]
		if i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	return EventRecord{
		Line:        line,
		Subject:     get(colSubject),
		StartDate:   get(colStartDate),
		StartTime:   get(colStartTime),
		EndDate:     get(colEndDate),
		EndTime:     get(colEndTime),
		Description: get(colDescription),
		Location:    get(colLocation),
	}, nil
}

// Start parses the start date-time as a wall-clock time with no zone attached.
func (rec EventRecord) Start() (time.Time, error) {
	return parseDateTime(rec.Line, "start", rec.StartDate, rec.StartTime)
}

// End parses the end date-time as a wall-clock time with no zone attached.
func (rec EventRecord) End() (time.Time, error) {
	return parseDateTime(rec.Line, "end", rec.EndDate, rec.EndTime)
}

// parseDateTime keeps the wall clock exactly as written. Resolving it in a zone would
// move times that fall in a DST gap.
func parseDateTime(line int, field, date, clock string) (time.Time, error) {
	value := date + " " + clock
	t, err := time.Parse(DateTimeLayout, value)
	if err != nil {
		return time.Time{}, &RowParseError{Line: line, Field: field, Value: value, Err: err}
	}
	return t, nil
}

// inZone places a wall-clock time in loc.
func inZone(wall time.Time, loc *time.Location) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}

// BuildEvent maps a record to the Calendar API payload. Start and end carry the row's
// wall-clock time unchanged, with loc's zone name attached.
func BuildEvent(rec EventRecord, loc *time.Location) (*calendar.Event, error) {
	start, err := rec.Start()
	if err != nil {
		return nil, err
	}
	end, err := rec.End()
	if err != nil {
		return nil, err
	}

	return &calendar.Event{
		Summary:     rec.Subject,
		Location:    rec.Location,
		Description: rec.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(eventDateTimeLayout),
			TimeZone: loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(eventDateTimeLayout),
			TimeZone: loc.String(),
		},
		Recurrence: WeeklyRecurrence(start),
	}, nil
}

// tagRun records the import run ID on the event as a private extended property.
func tagRun(event *calendar.Event, runID string) {
	if event.ExtendedProperties == nil {
		event.ExtendedProperties = &calendar.EventExtendedProperties{}
	}
	if event.ExtendedProperties.Private == nil {
		event.ExtendedProperties.Private = map[string]string{}
	}
	event.ExtendedProperties.Private[runIDProperty] = runID
}

// parseEventDateTime reads back a DateTime/TimeZone pair written by BuildEvent. The
// returned time is the wall clock; use inZone to resolve it.
func parseEventDateTime(edt *calendar.EventDateTime) (time.Time, *time.Location, error) {
	if edt == nil {
		return time.Time{}, nil, fmt.Errorf("event has no date-time")
	}
	loc, err := time.LoadLocation(edt.TimeZone)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("unknown time zone %q: %w", edt.TimeZone, err)
	}
	t, err := time.Parse(eventDateTimeLayout, edt.DateTime)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid date-time %q: %w", edt.DateTime, err)
	}
	return t, loc, nil
}
