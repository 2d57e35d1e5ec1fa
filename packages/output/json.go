package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbatch/packages/stats"
)

// JSONOutput represents the complete JSON report structure
type JSONOutput struct {
	RunID       string        `json:"runId"`
	URL         string        `json:"url,omitempty"`
	State       string        `json:"state"`
	Interrupted bool          `json:"interrupted,omitempty"`
	LedgerSize  int           `json:"ledgerSize"`
	Summary     stats.Summary `json:"summary"`
	Records     []RecordEntry `json:"records"`
	Duration    float64       `json:"duration"`
	Time        string        `json:"time"`
}

// JSONFormatter writes a run report as JSON. Feed it events during the run,
// then the final result, then Flush.
type JSONFormatter struct {
	Collector
	writer io.Writer
	url    string
	result *runner.RunResult
	now    func() time.Time
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// JSONWithURL records the target endpoint in the report.
func JSONWithURL(url string) JSONOption {
	return func(f *JSONFormatter) {
		f.url = url
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.result = result
}

func (f *JSONFormatter) FormatError(err error) {
	// Per-record errors are part of the records list
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON report
func (f *JSONFormatter) Flush() error {
	output := JSONOutput{
		URL:     f.url,
		State:   string(runner.StateIdle),
		Records: f.Records(),
		Time:    f.now().Format(time.RFC3339),
	}
	if output.Records == nil {
		output.Records = []RecordEntry{}
	}
	if r := f.result; r != nil {
		output.RunID = r.RunID
		output.State = string(r.State)
		output.Interrupted = r.Interrupted
		output.LedgerSize = r.LedgerSize
		output.Summary = r.Summary
		output.Duration = float64(r.Summary.Duration.Milliseconds())
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
