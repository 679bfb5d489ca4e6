// ABOUTME: Human-readable summaries for CLI commands
// ABOUTME: Renders import reports and token status with lipgloss marks
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/calimport/sync"
)

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	skipMark = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("→")
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// pluralize returns "s" if count != 1, otherwise ""
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

func printSummary(w io.Writer, report *sync.ImportReport, dryRun bool) {
	verb := "Created"
	if dryRun {
		verb = "Prepared"
	}

	_, _ = fmt.Fprintln(w)
	for _, row := range report.Rows {
		switch {
		case row.Skipped:
			_, _ = fmt.Fprintf(w, "  %s line %d %q skipped: %v\n", skipMark, row.Line, row.Summary, row.Err)
		case row.Err != nil:
			_, _ = fmt.Fprintf(w, "  %s line %d %q: %v\n", failMark, row.Line, row.Summary, row.Err)
		case dryRun:
			_, _ = fmt.Fprintf(w, "  %s line %d %q\n", okMark, row.Line, row.Summary)
		default:
			_, _ = fmt.Fprintf(w, "  %s line %d %q %s\n", okMark, row.Line, row.Summary, dimStyle.Render(row.HTMLLink))
		}
	}

	_, _ = fmt.Fprintf(w, "\n%s %s %d event%s\n", okMark, verb, report.Created, pluralize(report.Created))
	if report.Failed > 0 {
		_, _ = fmt.Fprintf(w, "%s %d row%s failed\n", failMark, report.Failed, pluralize(report.Failed))
	}
	if report.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "%s %d row%s skipped\n", skipMark, report.Skipped, pluralize(report.Skipped))
	}
	_, _ = fmt.Fprintln(w, dimStyle.Render("run "+report.RunID))
}

func printTokenStatus(w io.Writer, status sync.TokenStatus) {
	if !status.Present {
		_, _ = fmt.Fprintf(w, "%s No token at %s\n", failMark, status.Path)
		_, _ = fmt.Fprintln(w, "Run 'calimport auth' to authenticate.")
		return
	}

	_, _ = fmt.Fprintf(w, "%s Token: %s\n", okMark, status.Path)
	if status.Expiry.IsZero() {
		_, _ = fmt.Fprintln(w, "  Expires: never")
	} else {
		_, _ = fmt.Fprintf(w, "  Expires: %s\n", status.Expiry.Local().Format("2006-01-02 15:04 MST"))
	}
	if status.Valid {
		_, _ = fmt.Fprintf(w, "  %s valid\n", okMark)
	} else {
		_, _ = fmt.Fprintf(w, "  %s expired\n", failMark)
	}
	if status.Refreshable {
		_, _ = fmt.Fprintf(w, "  %s refreshable\n", okMark)
	} else {
		_, _ = fmt.Fprintf(w, "  %s no refresh token, next import will open the browser\n", skipMark)
	}
}
