// ABOUTME: Entry point for the CSV to Google Calendar importer
// ABOUTME: Parses global flags and routes to the import, auth and status commands
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/harperreed/calimport/cli"
	"github.com/harperreed/calimport/config"
	"github.com/harperreed/calimport/logger"
)

const version = "0.1.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	envFile := flag.String("env-file", "", "Load environment from this file (default: nearest .env)")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("calimport version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	ctx := context.Background()
	env := cli.DefaultEnv(config.LoadOptions{EnvFile: *envFile})

	command := args[0]
	commandArgs := args[1:]

	var err error
	switch command {
	case "import":
		err = cli.ImportCommand(ctx, env, commandArgs)
	case "auth":
		err = cli.AuthCommand(ctx, env, commandArgs)
	case "status":
		err = cli.StatusCommand(ctx, env, commandArgs)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		l := logger.New(os.Stderr, false)
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			l.Error("Configuration error", "err", err)
		} else {
			l.Error("An error occurred", "command", command, "err", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`calimport v%s - Import a CSV event table into Google Calendar

USAGE:
  calimport [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --env-file <path>      Load environment from this file (default: nearest .env)

COMMANDS:
  import                 Create one weekly recurring event per CSV row
    --csv <path>             Event table (default: calendar_events.csv)
    --dry-run                Build events without authenticating or creating anything
    --ics <path>             With --dry-run, write the events to an .ics file
    --skip-bad-rows          Skip rows with invalid dates instead of aborting
    --debug                  Enable debug logging

  auth                   Open the browser to authorize access and store the token
  status                 Show the stored token's state (no network access)

ENVIRONMENT:
  CALENDAR_ID            Target calendar (required)
  CALIMPORT_TIMEZONE     Time zone for every event (default: America/New_York)
  CALIMPORT_CSV          Event table path
  CALIMPORT_CLIENT_SECRET  OAuth client secret file (default: credentials.json)
  CALIMPORT_TOKEN        Token file (default: ~/.local/share/calimport/token.json)
  CALIMPORT_CALLBACK_PORT  OAuth callback port (default: 8080)
  CALIMPORT_AUTH_TIMEOUT   How long to wait for the browser (default: 5m)
  CALIMPORT_RATE_LIMIT     Insert calls per second (default: 5)
  GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET  Used when no client secret file exists

CSV FORMAT:
  "Subject","Start Date","Start Time","End Date","End Time","Description","Location"
  "Exercise","2024-10-14","07:00","2024-10-14","08:00","Workout","Gym"

EXAMPLES:
  # Preview what would be created
  calimport import --dry-run --ics preview.ics

  # Import the table
  CALENDAR_ID=team@group.calendar.google.com calimport import --csv events.csv

`, version)
}
