// Package executor issues one request per record with a bounded retry on
// transient failures.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	hhttp "github.com/abdul-hamid-achik/hitbatch/packages/http"
	"github.com/abdul-hamid-achik/hitbatch/packages/session"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxRetries is the number of re-issues after the original attempt.
	DefaultMaxRetries = 3
)

// ErrRetriesExhausted marks a transient failure that outlasted every retry.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Failure is the only error Execute returns. Callers are expected to treat it
// as "no body produced"; the fields exist for reporting.
type Failure struct {
	Attempts  int
	Status    int // zero when no response was received
	Transient bool
	Err       error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("request failed after %d attempt(s): status %d: %v", f.Attempts, f.Status, f.Err)
	}
	return fmt.Sprintf("request failed after %d attempt(s): %v", f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Request is one record's call.
type Request struct {
	Index      int
	URL        string
	Headers    map[string]string
	Data       string
	Credential *session.Credential
}

// Result is a successful call: the 2xx response and how many attempts it took.
type Result struct {
	*hhttp.Response
	Attempts int
}

type Executor struct {
	client     *hhttp.Client
	maxRetries int
	limiter    *rate.Limiter
	sink       event.Sink
}

type Option func(*Executor)

// WithMaxRetries sets how many times a transient failure is re-issued.
func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n < 0 {
			n = 0
		}
		e.maxRetries = n
	}
}

// WithRateLimiter paces every attempt, retries included.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(e *Executor) {
		e.limiter = l
	}
}

// WithSink sets where attempts and retries are reported.
func WithSink(s event.Sink) Option {
	return func(e *Executor) {
		e.sink = s
	}
}

func New(client *hhttp.Client, opts ...Option) *Executor {
	e := &Executor{
		client:     client,
		maxRetries: DefaultMaxRetries,
		sink:       event.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxAttempts is the total number of tries for a single request.
func (e *Executor) MaxAttempts() int {
	return 1 + e.maxRetries
}

// Execute sends a POST with req.Data as the raw body, or a GET when Data is
// empty. The credential's Cookie header overrides any header of the same name.
// A 2xx response is returned; anything else ends as a *Failure.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	headers := hhttp.MergeHeaders(req.Headers, req.Credential.Headers())
	httpReq := hhttp.NewPayloadRequest(req.URL, req.Data, headers)
	maxAttempts := e.MaxAttempts()

	var last Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, e.fail(req, &Failure{Attempts: attempt - 1, Err: err})
			}
		}

		e.sink.Emit(event.Event{
			Kind:        event.KindAttempt,
			Level:       event.LevelDebug,
			Index:       req.Index,
			URL:         req.URL,
			Data:        req.Data,
			Attempt:     attempt,
			MaxAttempts: maxAttempts,
		})

		resp, err := e.client.Do(ctx, httpReq)
		last = Classify(resp, err)
		if last.Verdict == Success {
			return &Result{Response: resp, Attempts: attempt}, nil
		}

		// A cancelled run stops here; the record stays pending for the next run.
		if ctx.Err() != nil {
			return nil, e.fail(req, &Failure{Attempts: attempt, Err: ctx.Err()})
		}

		if last.Verdict == Permanent {
			return nil, e.fail(req, &Failure{Attempts: attempt, Status: last.Status, Err: last.Err})
		}

		if attempt < maxAttempts {
			e.sink.Emit(event.Event{
				Kind:        event.KindRetry,
				Level:       event.LevelInfo,
				Index:       req.Index,
				URL:         req.URL,
				Data:        req.Data,
				Attempt:     attempt,
				MaxAttempts: maxAttempts,
				Status:      last.Status,
				Err:         last.Err,
				Message:     "transient failure, retrying",
			})
		}
	}

	return nil, e.fail(req, &Failure{
		Attempts:  maxAttempts,
		Status:    last.Status,
		Transient: true,
		Err:       fmt.Errorf("%w: %v", ErrRetriesExhausted, last.Err),
	})
}

func (e *Executor) fail(req Request, f *Failure) error {
	e.sink.Emit(event.Event{
		Kind:        event.KindRequestFailed,
		Level:       event.LevelError,
		Index:       req.Index,
		URL:         req.URL,
		Data:        req.Data,
		Attempt:     f.Attempts,
		MaxAttempts: e.MaxAttempts(),
		Status:      f.Status,
		Err:         f,
	})
	return f
}

// Verdict is the retry classification of one attempt.
type Verdict int

const (
	Success Verdict = iota
	Transient
	Permanent
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	}
	return "unknown"
}

// Outcome is the classified result of one attempt.
type Outcome struct {
	Verdict Verdict
	Status  int
	Err     error
}

// Classify decides what an attempt means for the retry loop:
//   - 2xx is Success
//   - 429, or an error with no response received, is Transient
//   - any other status, an unreadable body or an invalid URL is Permanent
func Classify(resp *hhttp.Response, err error) Outcome {
	if err != nil {
		var bodyErr *hhttp.BodyError
		if errors.As(err, &bodyErr) {
			return Outcome{Verdict: Permanent, Status: bodyErr.StatusCode, Err: err}
		}
		if errors.Is(err, hhttp.ErrInvalidURL) {
			return Outcome{Verdict: Permanent, Err: err}
		}
		return Outcome{Verdict: Transient, Err: err}
	}

	switch {
	case resp.IsSuccess():
		return Outcome{Verdict: Success, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Outcome{Verdict: Transient, Status: resp.StatusCode, Err: fmt.Errorf("rate limited: %s", resp.Status)}
	default:
		return Outcome{Verdict: Permanent, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}
}
