// Package event carries progress notifications from the batch engine to
// whatever presents them. Engine packages never print; they emit events.
package event

import (
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindRunStarted     Kind = "run_started"
	KindRunFinished    Kind = "run_finished"
	KindLoginStarted   Kind = "login_started"
	KindLoginSucceeded Kind = "login_succeeded"
	KindLoginFailed    Kind = "login_failed"
	KindCookieVisit    Kind = "cookie_visit"
	KindAttempt        Kind = "attempt"
	KindRetry          Kind = "retry"
	KindRequestFailed  Kind = "request_failed"
	KindSkipped        Kind = "skipped"
	KindPlanned        Kind = "planned"
	KindSaved          Kind = "saved"
	KindDelay          Kind = "delay"
	KindWarning        Kind = "warning"
)

// Level is a coarse severity used by sinks to filter output.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return "unknown"
}

// Event is a single notification. Fields that do not apply to a kind are left zero.
type Event struct {
	Kind        Kind
	Level       Level
	Message     string
	Index       int // zero-based record index, -1 when not tied to a record
	Total       int
	URL         string
	Data        string
	Attempt     int
	MaxAttempts int
	Status      int
	Path        string
	Duration    time.Duration
	Err         error
}

// Sink receives events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// Nop returns a sink that discards everything.
func Nop() Sink {
	return nopSink{}
}

type multiSink []Sink

func (m multiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	return out
}

// Recorder keeps every event it receives. Useful in tests and for post-run reports.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// OfKind returns the recorded events matching k.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// Warn is a shorthand for emitting a warning not tied to a record.
func Warn(s Sink, msg string, err error) {
	if s == nil {
		return
	}
	s.Emit(Event{Kind: KindWarning, Level: LevelWarn, Message: msg, Index: -1, Err: err})
}
