// ABOUTME: Calendar event importer from CSV rows into Google Calendar
// ABOUTME: Submits one event per row in file order, isolating API rejections to their row
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// ImportOptions configures a single import run.
type ImportOptions struct {
	CalendarID string
	Location   *time.Location

	// SkipBadRows turns row parse errors into skipped rows instead of aborting the run.
	SkipBadRows bool
}

// RowResult is the outcome of one input row.
type RowResult struct {
	Line     int
	Summary  string
	EventID  string
	HTMLLink string
	Skipped  bool
	Err      error
}

// ImportReport summarizes an import run. It is returned even when the run aborts.
type ImportReport struct {
	RunID     string
	Submitted int
	Created   int
	Failed    int
	Skipped   int
	Rows      []RowResult
}

// ImportFile opens path and imports every row in it.
func ImportFile(ctx context.Context, inserter EventInserter, path string, opts ImportOptions, logger *log.Logger) (*ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event table: %w", err)
	}
	defer func() { _ = f.Close() }()

	logger.Info("Reading events", "file", path)
	return ImportEvents(ctx, inserter, f, opts, logger)
}

// ImportEvents reads rows from src and submits one event per row, in order. Rows rejected by
// the Calendar API are logged and counted; everything else aborts the run. Nothing is
// de-duplicated, so importing the same table twice creates every event twice.
func ImportEvents(ctx context.Context, inserter EventInserter, src io.Reader, opts ImportOptions, logger *log.Logger) (*ImportReport, error) {
	if opts.CalendarID == "" {
		return nil, errors.New("calendar ID cannot be empty")
	}
	if opts.Location == nil {
		return nil, errors.New("time zone location cannot be nil")
	}

	report := &ImportReport{RunID: uuid.NewString()}
	logger = logger.With("run", report.RunID)

	rows, err := NewRowReader(src)
	if err != nil {
		return report, err
	}
	logger.Info("CSV columns", "columns", rows.Columns())
	logger.Info("Using calendar", "calendar_id", opts.CalendarID, "timezone", opts.Location.String())

	for {
		rec, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Error("Failed to read event table", "err", err)
			return report, err
		}

		result, err := importRow(ctx, inserter, rec, opts, report.RunID, logger)
		report.add(result)
		if err != nil && !rowScoped(err, opts.SkipBadRows) {
			logger.Error("Import aborted", "line", rec.Line, "err", err)
			return report, err
		}
	}

	logger.Info("Import finished",
		"submitted", report.Submitted,
		"created", report.Created,
		"failed", report.Failed,
		"skipped", report.Skipped)
	return report, nil
}

func importRow(ctx context.Context, inserter EventInserter, rec EventRecord, opts ImportOptions, runID string, logger *log.Logger) (RowResult, error) {
	result := RowResult{Line: rec.Line, Summary: rec.Subject}

	event, err := BuildEvent(rec, opts.Location)
	if err != nil {
		result.Err = err
		if opts.SkipBadRows {
			result.Skipped = true
			logger.Warn("Skipping row", "line", rec.Line, "err", err)
		}
		return result, err
	}
	tagRun(event, runID)

	logger.Info("Creating event",
		"line", rec.Line,
		"summary", event.Summary,
		"start", event.Start.DateTime,
		"end", event.End.DateTime,
		"recurrence", event.Recurrence[0])
	logSeriesEnd(event, rec.Line, logger)

	created, err := inserter.InsertEvent(ctx, opts.CalendarID, event)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			err = &RemoteSubmissionError{Line: rec.Line, Summary: rec.Subject, Err: err}
			logger.Error("An error occurred", "line", rec.Line, "summary", rec.Subject, "code", apiErr.Code, "err", apiErr.Message)
		}
		result.Err = err
		return result, err
	}

	result.EventID = created.Id
	result.HTMLLink = created.HtmlLink
	logger.Info("Event created", "line", rec.Line, "link", created.HtmlLink)
	return result, nil
}

func logSeriesEnd(event *calendar.Event, line int, logger *log.Logger) {
	start, loc, err := parseEventDateTime(event.Start)
	if err != nil {
		logger.Debug("Series end unavailable", "line", line, "err", err)
		return
	}
	last, err := SeriesEnd(inZone(start, loc))
	if err != nil {
		logger.Debug("Series end unavailable", "line", line, "err", err)
		return
	}
	logger.Debug("Series ends", "line", line, "last", last.Format(time.DateOnly))
}

func (r *ImportReport) add(res RowResult) {
	r.Rows = append(r.Rows, res)
	switch {
	case res.Skipped:
		r.Skipped++
	case res.Err == nil:
		r.Submitted++
		r.Created++
	default:
		var parseErr *RowParseError
		if !errors.As(res.Err, &parseErr) {
			r.Submitted++
		}
		r.Failed++
	}
}
