// Package notify posts a summary of a finished batch to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications when a record failed, the run was
	// interrupted or it could not finish
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only for clean runs
	NotifySuccess NotifyOn = "success"
)

// ParseNotifyOn validates a policy name; empty means NotifyFailure.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch NotifyOn(strings.ToLower(strings.TrimSpace(s))) {
	case "", NotifyFailure:
		return NotifyFailure, nil
	case NotifyAlways:
		return NotifyAlways, nil
	case NotifySuccess:
		return NotifySuccess, nil
	}
	return "", fmt.Errorf("unknown notify-on value %q (use always, failure or success)", s)
}

// RunSummary is what a notifier reports about one batch run
type RunSummary struct {
	RunID       string         `json:"run_id"`
	URL         string         `json:"url"`
	State       string         `json:"state"`
	Records     int64          `json:"records"`
	Saved       int64          `json:"saved"`
	Skipped     int64          `json:"skipped"`
	Failed      int64          `json:"failed"`
	Pending     int64          `json:"pending"`
	Duration    time.Duration  `json:"duration"`
	Interrupted bool           `json:"interrupted,omitempty"`
	Error       string         `json:"error,omitempty"`
	Failures    []FailedRecord `json:"failures,omitempty"`
}

// FailedRecord is a record that produced no response file
type FailedRecord struct {
	Index  int    `json:"index"`
	Record string `json:"record"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error"`
}

// Healthy reports whether every reached record was saved or skipped and the
// run finished on its own.
func (s *RunSummary) Healthy() bool {
	return s.Failed == 0 && !s.Interrupted && s.Error == ""
}

// NewRunSummary condenses a run result. runErr is the error Run returned, if any.
func NewRunSummary(url string, result *runner.RunResult, runErr error) *RunSummary {
	sum := result.Summary
	s := &RunSummary{
		RunID:       result.RunID,
		URL:         url,
		State:       string(result.State),
		Records:     sum.Records,
		Saved:       sum.Saved,
		Skipped:     sum.Skipped,
		Failed:      sum.Failed,
		Pending:     sum.Pending,
		Duration:    sum.Duration,
		Interrupted: result.Interrupted,
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	for _, f := range result.Failures {
		s.Failures = append(s.Failures, FailedRecord{
			Index:  f.Index,
			Record: f.Record,
			Status: f.Status,
			Error:  fmt.Sprint(f.Error),
		})
	}
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a finished run
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
	}
}

// Notify sends the summary to every notifier when the policy allows it.
// Every notifier is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	if !m.shouldNotify(summary) {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) shouldNotify(summary *RunSummary) bool {
	switch m.notifyOn {
	case NotifyAlways:
		return true
	case NotifySuccess:
		return summary.Healthy()
	default:
		return !summary.Healthy()
	}
}
