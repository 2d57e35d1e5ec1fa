package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// truncate shortens long payloads for display
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// ConsoleFormatter prints run progress for humans. It is an event.Sink.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	quiet   bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

// WithQuiet limits output to failures, warnings and the final summary.
func WithQuiet(q bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.quiet = q
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) Emit(e event.Event) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	switch e.Kind {
	case event.KindRequestFailed:
		fmt.Fprintf(f.writer, "  %s %s %s %s\n", red("✗"), progress(e), truncate(e.Data, 80), red(fmt.Sprintf("(%v)", e.Err)))
		return
	case event.KindLoginFailed:
		fmt.Fprintf(f.writer, "%s %s\n", red("Login failed:"), e.Message)
		return
	case event.KindWarning:
		fmt.Fprintf(f.writer, "%s %s", yellow("Warning:"), e.Message)
		if e.Err != nil {
			fmt.Fprintf(f.writer, ": %v", e.Err)
		}
		fmt.Fprintf(f.writer, "\n")
		return
	}

	if f.quiet {
		return
	}

	switch e.Kind {
	case event.KindRunStarted:
		fmt.Fprintf(f.writer, "\n%s\n", bold(fmt.Sprintf("Running: %s (%d records)", e.URL, e.Total)))
		if f.verbose && e.Message != "" {
			fmt.Fprintf(f.writer, "%s\n", faint(e.Message))
		}
		fmt.Fprintf(f.writer, "\n")
	case event.KindLoginStarted:
		fmt.Fprintf(f.writer, "%s %s\n", cyan("Login:"), e.URL)
	case event.KindLoginSucceeded:
		fmt.Fprintf(f.writer, "%s %s\n", green("Login:"), e.Message)
	case event.KindSaved:
		fmt.Fprintf(f.writer, "  %s %s %s %s\n", green("✓"), progress(e), truncate(e.Data, 80), cyan(fmt.Sprintf("(%dms)", e.Duration.Milliseconds())))
		if f.verbose {
			fmt.Fprintf(f.writer, "    Status: %d, attempts: %d\n", e.Status, e.Attempt)
			fmt.Fprintf(f.writer, "    Saved:  %s\n", e.Path)
		}
	case event.KindSkipped:
		fmt.Fprintf(f.writer, "  %s %s %s %s\n", yellow("-"), progress(e), truncate(e.Data, 80), faint("(already done)"))
	case event.KindPlanned:
		fmt.Fprintf(f.writer, "  %s %s %s\n", cyan("→"), progress(e), truncate(e.Data, 80))
	case event.KindRetry:
		fmt.Fprintf(f.writer, "    %s attempt %d/%d: %v\n", yellow("↻"), e.Attempt, e.MaxAttempts, e.Err)
	}

	if !f.verbose {
		return
	}

	switch e.Kind {
	case event.KindCookieVisit:
		fmt.Fprintf(f.writer, "  %s %s %s\n", faint("cookie"), e.URL, faint(fmt.Sprintf("(%d, %s)", e.Status, e.Message)))
	case event.KindAttempt:
		fmt.Fprintf(f.writer, "    %s\n", faint(fmt.Sprintf("attempt %d/%d %s", e.Attempt, e.MaxAttempts, e.URL)))
	case event.KindDelay:
		fmt.Fprintf(f.writer, "    %s\n", faint(fmt.Sprintf("waiting %s", e.Duration.Round(time.Millisecond))))
	}
}

// progress renders the 1-based record position, e.g. [3/10].
func progress(e event.Event) string {
	if e.Index < 0 {
		return ""
	}
	return fmt.Sprintf("[%d/%d]", e.Index+1, e.Total)
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	sum := result.Summary

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Records: ")
	if sum.Saved > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d saved", sum.Saved)))
	}
	if sum.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", sum.Failed)))
	}
	if sum.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", sum.Skipped)))
	}
	if sum.Pending > 0 {
		fmt.Fprintf(f.writer, "%d pending, ", sum.Pending)
	}
	fmt.Fprintf(f.writer, "%d total\n", sum.Records)
	fmt.Fprintf(f.writer, "Requests: %d\n", sum.Attempts)
	if sum.Saved+sum.Failed > 0 {
		fmt.Fprintf(f.writer, "Latency: p50=%s p95=%s p99=%s max=%s\n",
			fmtDuration(sum.P50), fmtDuration(sum.P95), fmtDuration(sum.P99), fmtDuration(sum.Max))
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", sum.Duration.Milliseconds())

	if f.verbose {
		fmt.Fprintf(f.writer, "Run:   %s (%s, ledger %d)\n", result.RunID, result.State, result.LedgerSize)
	}
	if len(result.Failures) > 0 && !f.quiet {
		fmt.Fprintf(f.writer, "\n")
		f.failureTable(result.Failures)
	}
	if result.Interrupted {
		fmt.Fprintf(f.writer, "%s\n", yellow("Interrupted: remaining records are pending and will run on resume"))
	}
	fmt.Fprintf(f.writer, "\n")
}

// FormatStatus prints the done/pending split reported by the status command.
func (f *ConsoleFormatter) FormatStatus(st *runner.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.AppendHeader(table.Row{"Records", "Done", "Pending", "Ledger"})
	t.AppendRow(table.Row{st.Records, st.Done, st.Records - st.Done, st.LedgerPath})
	t.SetStyle(table.StyleRounded)
	if f.noColor || color.NoColor {
		t.SetStyle(table.StyleLight)
	}
	t.Render()

	if f.verbose && len(st.Pending) > 0 {
		fmt.Fprintf(f.writer, "\nPending:\n")
		for _, p := range st.Pending {
			fmt.Fprintf(f.writer, "  [%d] %s\n", p.Index+1, truncate(p.Data, 100))
		}
	}
}

// failureTable lists records that produced no body.
func (f *ConsoleFormatter) failureTable(failures []*runner.RecordResult) {
	t := table.NewWriter()
	t.SetOutputMirror(f.writer)
	t.AppendHeader(table.Row{"#", "Record", "Attempts", "Status", "Error"})
	for _, r := range failures {
		status := "-"
		if r.Status != 0 {
			status = fmt.Sprintf("%d", r.Status)
		}
		t.AppendRow(table.Row{r.Index + 1, truncate(r.Record, 40), r.Attempts, status, truncate(fmt.Sprint(r.Error), 80)})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitbatch"), version)
}

func fmtDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
