// ABOUTME: CSV import CLI command
// ABOUTME: Loads config, authenticates, and imports the event table or renders a dry-run preview
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/harperreed/calimport/config"
	"github.com/harperreed/calimport/logger"
	"github.com/harperreed/calimport/sync"
)

// authenticator produces the authenticated HTTP client for a run.
type authenticator interface {
	Authenticate(ctx context.Context) (*http.Client, error)
}

// Swapped in tests so no real OAuth flow or Calendar API is involved.
var (
	newAuthenticator = func(cfg *config.Config, l *log.Logger) authenticator {
		return sync.NewAuthenticator(cfg, l)
	}
	newInserter = func(ctx context.Context, httpClient *http.Client, cfg *config.Config) (sync.EventInserter, error) {
		return sync.NewCalendarClient(ctx, httpClient, cfg.RateLimit)
	}
)

// Env carries what every command shares.
type Env struct {
	LoadOptions config.LoadOptions
	Stdout      io.Writer
	Stderr      io.Writer
}

// DefaultEnv writes to the process streams.
func DefaultEnv(opts config.LoadOptions) Env {
	return Env{LoadOptions: opts, Stdout: os.Stdout, Stderr: os.Stderr}
}

// ImportCommand imports the event table into the configured calendar.
func ImportCommand(ctx context.Context, env Env, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	csvPath := fs.String("csv", "", "Event table to import (default: calendar_events.csv)")
	dryRun := fs.Bool("dry-run", false, "Build events without authenticating or creating anything")
	icsPath := fs.String("ics", "", "With --dry-run, write the events to this .ics file")
	skipBadRows := fs.Bool("skip-bad-rows", false, "Skip rows with invalid dates instead of aborting")
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(env.LoadOptions)
	if err != nil {
		return err
	}
	if *csvPath != "" {
		cfg.CSVPath = *csvPath
	}

	l := logger.New(env.Stderr, cfg.Debug || *debug)
	l.Info("CALENDAR_ID is set", "calendar_id", cfg.CalendarID)

	opts := sync.ImportOptions{
		CalendarID:  cfg.CalendarID,
		Location:    cfg.Location,
		SkipBadRows: *skipBadRows,
	}

	if *dryRun {
		return dryRunImport(ctx, env, cfg, opts, *icsPath, l)
	}
	if *icsPath != "" {
		return fmt.Errorf("--ics requires --dry-run")
	}

	l.Info("Starting authentication process")
	httpClient, err := newAuthenticator(cfg, l).Authenticate(ctx)
	if err != nil {
		return err
	}
	l.Info("Authentication successful")

	inserter, err := newInserter(ctx, httpClient, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Calendar client: %w", err)
	}

	report, err := sync.ImportFile(ctx, inserter, cfg.CSVPath, opts, l)
	if report != nil {
		printSummary(env.Stdout, report, false)
	}
	if err != nil {
		return fmt.Errorf("import aborted: %w", err)
	}
	return nil
}

func dryRunImport(ctx context.Context, env Env, cfg *config.Config, opts sync.ImportOptions, icsPath string, l *log.Logger) error {
	preview := sync.NewICSWriter()

	report, err := sync.ImportFile(ctx, preview, cfg.CSVPath, opts, l)
	if report != nil {
		printSummary(env.Stdout, report, true)
	}
	if err != nil {
		return fmt.Errorf("dry run aborted: %w", err)
	}

	if icsPath == "" {
		return nil
	}

	f, err := os.Create(icsPath)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}
	if _, err := preview.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}

	_, _ = fmt.Fprintf(env.Stdout, "%s Preview written to %s\n", okMark, icsPath)
	return nil
}
