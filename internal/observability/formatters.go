// Package observability provides logging setup and formatted terminal output
// for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxLineLength caps single-line fields inside boxes
	maxLineLength = 60
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer

	box     lipgloss.Style
	title   lipgloss.Style
	detail  lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	running lipgloss.Style
}

// NewPrinter creates a new Printer that writes to the given writer. Colors are
// only emitted when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(boxWidth),
		title:   r.NewStyle().Bold(true),
		detail:  r.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		good:    r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		bad:     r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		running: r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
	}
}

// printBox prints a bordered box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	body := p.title.Render(title)
	if content != "" {
		body += "\n\n" + content
	}
	fmt.Fprintln(p.out, p.box.Render(body))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func (p *Printer) statusStyle(status string) lipgloss.Style {
	switch status {
	case string(types.StatusCompleted): // also covers db.JobStatusCompleted (same value)
		return p.good
	case string(types.StatusFailed), string(types.StatusInvalidInput): // also covers db.JobStatusFailed (same value)
		return p.bad
	default:
		return p.running
	}
}

// PrintProgress outputs one progress line emitted while a run executes.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(node string, status types.Status, message string) {
	line := "• " + message
	if node != "" {
		line = fmt.Sprintf("• %-22s %s", node, p.statusStyle(string(status)).Render(string(status)))
	}
	fmt.Fprintln(p.out, line)
}

// PrintResult outputs the outcome of a finished run.
func (p *Printer) PrintResult(result *types.RunResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:     %s\n", result.JobID))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", p.statusStyle(string(result.Status)).Render(string(result.Status))))
	if result.ReportType != "" {
		sb.WriteString(fmt.Sprintf("Report:  %s\n", result.ReportType))
	}
	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:   %s\n", truncate(result.Error, maxLineLength)))
	}

	p.printBox("RUN RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPivots outputs the ideas a job moved through.
func (p *Printer) PrintPivots(pivots []db.PivotEntry) {
	if len(pivots) == 0 {
		return
	}

	var sb strings.Builder
	for i, pv := range pivots {
		sb.WriteString(fmt.Sprintf("#%d  score %d/10\n", pv.AttemptNum, pv.Score))
		sb.WriteString(fmt.Sprintf("    from: %s\n", truncate(pv.OriginalIdea, maxLineLength)))
		sb.WriteString(fmt.Sprintf("    to:   %s\n", truncate(pv.PivotedIdea, maxLineLength)))
		if pv.Reason != "" {
			sb.WriteString(p.detail.Render("    "+truncate(pv.Reason, maxLineLength)) + "\n")
		}
		if i < len(pivots)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("PIVOT JOURNEY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSteps outputs the stage executions recorded for a job.
func (p *Printer) PrintSteps(steps []db.JobStep) {
	if len(steps) == 0 {
		return
	}

	var sb strings.Builder
	for _, s := range steps {
		sb.WriteString(fmt.Sprintf("%-22s attempt %d  %6dms", s.NodeName, s.PivotAttempt, s.DurationMs))
		if s.Error != nil {
			sb.WriteString("  " + p.bad.Render("✗ "+truncate(*s.Error, 30)))
		}
		sb.WriteString("\n")
	}

	p.printBox(fmt.Sprintf("STAGES (%d)", len(steps)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobs outputs a session's job history, newest first.
func (p *Printer) PrintJobs(jobs []db.Job) {
	if len(jobs) == 0 {
		p.printBox("JOB HISTORY", "No jobs yet")
		return
	}

	var sb strings.Builder
	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		j := jobs[i]
		sb.WriteString(fmt.Sprintf("%s  %s\n", j.CreatedAt.Format("2006-01-02 15:04"), p.statusStyle(j.Status).Render(j.Status)))
		sb.WriteString(fmt.Sprintf("  %s\n", truncate(j.CurrentIdea, maxLineLength)))
		if j.PivotAttempts > 0 {
			sb.WriteString(p.detail.Render(fmt.Sprintf("  pivoted %d times from: %s", j.PivotAttempts, truncate(j.OriginalIdea, 40))) + "\n")
		}
	}
	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(jobs)-maxItemsToShow))
	}

	p.printBox("JOB HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport writes the final markdown report unboxed.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReport(report string) {
	if strings.TrimSpace(report) == "" {
		return
	}
	fmt.Fprintln(p.out, report)
}
