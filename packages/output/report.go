package output

import (
	"github.com/abdul-hamid-achik/hitbatch/packages/event"
)

// Outcome is what happened to one record in a run.
type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomePlanned Outcome = "planned"
)

// RecordEntry is one record's line in a report.
type RecordEntry struct {
	Index    int     `json:"index"`
	Data     string  `json:"data"`
	Outcome  Outcome `json:"outcome"`
	Status   int     `json:"status,omitempty"`
	Attempts int     `json:"attempts,omitempty"`
	Path     string  `json:"path,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Collector turns the event stream into one entry per processed record.
type Collector struct {
	records []RecordEntry
}

func (c *Collector) Emit(e event.Event) {
	entry := RecordEntry{Index: e.Index, Data: e.Data}
	switch e.Kind {
	case event.KindSaved:
		entry.Outcome = OutcomeSaved
		entry.Status = e.Status
		entry.Attempts = e.Attempt
		entry.Path = e.Path
		entry.Duration = float64(e.Duration.Milliseconds())
	case event.KindSkipped:
		entry.Outcome = OutcomeSkipped
	case event.KindPlanned:
		entry.Outcome = OutcomePlanned
	case event.KindRequestFailed:
		entry.Outcome = OutcomeFailed
		entry.Status = e.Status
		entry.Attempts = e.Attempt
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
	default:
		return
	}
	c.records = append(c.records, entry)
}

// Records returns the collected entries in emission order.
func (c *Collector) Records() []RecordEntry {
	return c.records
}
