// Package stats aggregates per-record outcomes of a batch run.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Stats collects counters and a latency histogram. It is used from the single
// run goroutine and is not safe for concurrent use.
type Stats struct {
	records  int64
	saved    int64
	skipped  int64
	failed   int64
	attempts int64

	// Latency histogram (in microseconds for precision)
	histogram *hdrhistogram.Histogram

	startTime time.Time
	endTime   time.Time
}

func New() *Stats {
	return &Stats{
		// 1us to 60s range, 3 significant digits
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Start marks the beginning of the run
func (s *Stats) Start() {
	s.startTime = time.Now()
}

// Stop marks the end of the run
func (s *Stats) Stop() {
	s.endTime = time.Now()
}

// SetRecords sets how many records the run was given.
func (s *Stats) SetRecords(n int) {
	s.records = int64(n)
}

// RecordSaved counts a record whose response was persisted.
func (s *Stats) RecordSaved(latency time.Duration, attempts int) {
	s.saved++
	s.attempts += int64(attempts)
	s.recordLatency(latency)
}

// RecordFailed counts a record that produced no body.
func (s *Stats) RecordFailed(latency time.Duration, attempts int) {
	s.failed++
	s.attempts += int64(attempts)
	s.recordLatency(latency)
}

// RecordSkipped counts a record already in the ledger.
func (s *Stats) RecordSkipped() {
	s.skipped++
}

func (s *Stats) recordLatency(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = s.histogram.RecordValue(us)
}

// Summary is a point-in-time view of a run.
type Summary struct {
	Records  int64         `json:"records"`
	Saved    int64         `json:"saved"`
	Skipped  int64         `json:"skipped"`
	Failed   int64         `json:"failed"`
	Pending  int64         `json:"pending"`
	Attempts int64         `json:"attempts"`
	Duration time.Duration `json:"durationNs"`

	// Latency percentiles over executed records (saved and failed)
	P50  time.Duration `json:"p50Ns"`
	P95  time.Duration `json:"p95Ns"`
	P99  time.Duration `json:"p99Ns"`
	Max  time.Duration `json:"maxNs"`
	Mean time.Duration `json:"meanNs"`
}

// Summary returns the current totals. Pending counts records never reached.
func (s *Stats) Summary() Summary {
	end := s.endTime
	if end.IsZero() {
		end = time.Now()
	}
	var duration time.Duration
	if !s.startTime.IsZero() {
		duration = end.Sub(s.startTime)
	}

	sum := Summary{
		Records:  s.records,
		Saved:    s.saved,
		Skipped:  s.skipped,
		Failed:   s.failed,
		Attempts: s.attempts,
		Duration: duration,
	}
	if pending := s.records - s.saved - s.skipped - s.failed; pending > 0 {
		sum.Pending = pending
	}

	if s.histogram.TotalCount() > 0 {
		sum.P50 = usToDuration(s.histogram.ValueAtQuantile(50))
		sum.P95 = usToDuration(s.histogram.ValueAtQuantile(95))
		sum.P99 = usToDuration(s.histogram.ValueAtQuantile(99))
		sum.Max = usToDuration(s.histogram.Max())
		sum.Mean = time.Duration(s.histogram.Mean() * float64(time.Microsecond))
	}
	return sum
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
