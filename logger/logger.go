// ABOUTME: Structured leveled logger construction
// ABOUTME: Text output with timestamps on a terminal, logfmt when piped
package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// New builds the logger handed to every component of a run.
func New(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	formatter := log.LogfmtFormatter
	if isTerminal(w) {
		formatter = log.TextFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       formatter,
	})
}

// NewJSON builds a JSON logger. Tests use it to decode individual log lines.
func NewJSON(w io.Writer, debug bool) *log.Logger {
	l := New(w, debug)
	l.SetFormatter(log.JSONFormatter)
	return l
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
