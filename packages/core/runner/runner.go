package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	"github.com/abdul-hamid-achik/hitbatch/packages/executor"
	"github.com/abdul-hamid-achik/hitbatch/packages/http"
	"github.com/abdul-hamid-achik/hitbatch/packages/ledger"
	"github.com/abdul-hamid-achik/hitbatch/packages/payload"
	"github.com/abdul-hamid-achik/hitbatch/packages/persist"
	"github.com/abdul-hamid-achik/hitbatch/packages/session"
	"github.com/abdul-hamid-achik/hitbatch/packages/stats"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultIntervalMin is the default lower bound of the inter-record delay
	DefaultIntervalMin = 100 * time.Millisecond
	// DefaultIntervalMax is the default upper bound of the inter-record delay
	DefaultIntervalMax = 2 * time.Second
)

type Config struct {
	URL      string
	Headers  map[string]string
	Template string
	Login    session.Config

	OutputFolder string
	BaseName     string
	Extension    string

	IntervalMin time.Duration
	IntervalMax time.Duration
	// NoDelayOnSkip skips the inter-record delay after a record already in the ledger.
	NoDelayOnSkip bool

	LedgerPath string
	KeyMode    ledger.KeyMode

	Timeout     time.Duration
	ValidateSSL bool
	Proxy       string
	UserAgent   string
	// MaxRate caps attempts per second; zero disables the cap.
	MaxRate float64

	// DryRun consults the ledger but sends nothing, writes nothing and never sleeps.
	DryRun bool
}

type Runner struct {
	config    *Config
	acquirer  *session.Acquirer
	executor  *executor.Executor
	persister *persist.Persister
	sink      event.Sink
	sleep     func(ctx context.Context, d time.Duration) error
	random    func() float64
	now       func() time.Time
}

type Option func(*Runner)

// WithSink sets where the run reports its progress.
func WithSink(s event.Sink) Option {
	return func(r *Runner) {
		r.sink = s
	}
}

// WithSleep replaces the inter-record wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithRandom replaces the source of the delay jitter, a value in [0,1).
func WithRandom(random func() float64) Option {
	return func(r *Runner) {
		r.random = random
	}
}

// WithClock sets the time used to date output files.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	r := &Runner{
		config: cfg,
		sink:   event.Nop(),
		sleep:  sleepContext,
		random: rand.Float64,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	clientOpts := []http.ClientOption{http.WithValidateSSL(cfg.ValidateSSL)}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, http.WithDefaultHeader("User-Agent", cfg.UserAgent))
	}

	execOpts := []executor.Option{executor.WithSink(r.sink)}
	if cfg.MaxRate > 0 {
		execOpts = append(execOpts, executor.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.MaxRate), 1)))
	}

	r.acquirer = session.NewAcquirer(clientOpts, session.WithSink(r.sink))
	r.executor = executor.New(http.NewClient(clientOpts...), execOpts...)
	r.persister = persist.New(cfg.OutputFolder, cfg.BaseName, cfg.Extension, persist.WithClock(r.now))
	return r
}

// State is the run controller's lifecycle position.
type State string

const (
	StateIdle         State = "idle"
	StateLoginPending State = "login_pending"
	StateProcessing   State = "processing"
	StateDone         State = "done"
	StateAborted      State = "aborted"
)

// RecordResult describes one record that was executed and did not succeed.
type RecordResult struct {
	Index    int
	Record   string
	Data     string
	Attempts int
	Status   int
	Error    error
}

type RunResult struct {
	RunID       string
	State       State
	Transitions []State
	Interrupted bool
	LedgerSize  int
	Summary     stats.Summary
	Failures    []*RecordResult
}

func (res *RunResult) transition(s State) {
	res.State = s
	res.Transitions = append(res.Transitions, s)
}

// Run processes records in order, strictly one request at a time.
//
// The returned error is non-nil only when the run cannot continue: a failed
// login (wrapping session.ErrNoSessionCookie), a ledger that cannot be opened,
// or a ledger write that fails after a response was saved. Individual record
// failures are reported through the sink and RunResult.Failures. Cancelling
// ctx, during login or later, sets RunResult.Interrupted and returns no error.
func (r *Runner) Run(ctx context.Context, records []string) (*RunResult, error) {
	cfg := r.config
	result := &RunResult{RunID: uuid.NewString()}
	result.transition(StateIdle)

	started := time.Now()
	st := stats.New()
	st.SetRecords(len(records))
	st.Start()
	defer func() {
		st.Stop()
		result.Summary = st.Summary()
	}()

	r.sink.Emit(event.Event{
		Kind:    event.KindRunStarted,
		Level:   event.LevelInfo,
		Index:   -1,
		Total:   len(records),
		URL:     cfg.URL,
		Message: "run " + result.RunID,
	})

	var credential *session.Credential
	if cfg.Login.Enabled() && !cfg.DryRun {
		result.transition(StateLoginPending)
		cred, err := r.acquirer.Acquire(ctx, cfg.Login)
		if err != nil && ctx.Err() != nil {
			result.Interrupted = true
			result.transition(StateDone)
			return result, nil
		}
		if err != nil {
			result.transition(StateAborted)
			return result, fmt.Errorf("login: %w", err)
		}
		credential = cred
	}

	led, err := ledger.Open(ctx, cfg.LedgerPath, r.sink)
	if err != nil {
		return result, fmt.Errorf("opening ledger: %w", err)
	}
	defer led.Close()

	result.transition(StateProcessing)

	for i, record := range records {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		data := payload.Derive(cfg.Template, record)
		key := cfg.KeyMode.Key(i, data)

		if led.Has(key) {
			st.RecordSkipped()
			r.sink.Emit(event.Event{Kind: event.KindSkipped, Level: event.LevelInfo, Index: i, Total: len(records), Data: data})
			if !cfg.NoDelayOnSkip && !cfg.DryRun {
				r.delay(ctx, i, len(records))
			}
			continue
		}

		if cfg.DryRun {
			r.sink.Emit(event.Event{Kind: event.KindPlanned, Level: event.LevelInfo, Index: i, Total: len(records), URL: cfg.URL, Data: data})
			continue
		}

		if err := r.process(ctx, led, st, result, i, len(records), record, data, key, credential); err != nil {
			return result, err
		}
		if result.Interrupted {
			break
		}

		r.delay(ctx, i, len(records))
	}

	if ctx.Err() != nil {
		result.Interrupted = true
	}
	result.LedgerSize = led.Len()
	result.transition(StateDone)

	r.sink.Emit(event.Event{
		Kind:     event.KindRunFinished,
		Level:    event.LevelInfo,
		Index:    -1,
		Total:    len(records),
		Duration: time.Since(started),
	})
	return result, nil
}

// process executes one record, saves its body and marks it done. Only a
// ledger write failure is returned; everything else is recorded as a failure.
func (r *Runner) process(ctx context.Context, led *ledger.Ledger, st *stats.Stats, result *RunResult,
	index, total int, record, data, key string, credential *session.Credential) error {
	cfg := r.config
	start := time.Now()

	res, err := r.executor.Execute(ctx, executor.Request{
		Index:      index,
		URL:        cfg.URL,
		Headers:    cfg.Headers,
		Data:       data,
		Credential: credential,
	})
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			result.Interrupted = true
			return nil
		}
		failed := &RecordResult{Index: index, Record: record, Data: data, Error: err}
		var failure *executor.Failure
		if errors.As(err, &failure) {
			failed.Attempts = failure.Attempts
			failed.Status = failure.Status
		}
		result.Failures = append(result.Failures, failed)
		st.RecordFailed(elapsed, failed.Attempts)
		return nil
	}

	path, err := r.persister.Save(record, res.Body)
	if err != nil {
		r.sink.Emit(event.Event{
			Kind:    event.KindRequestFailed,
			Level:   event.LevelError,
			Index:   index,
			Total:   total,
			Data:    data,
			Status:  res.StatusCode,
			Attempt: res.Attempts,
			Message: "response not saved",
			Err:     err,
		})
		result.Failures = append(result.Failures, &RecordResult{
			Index: index, Record: record, Data: data, Attempts: res.Attempts, Status: res.StatusCode, Error: err,
		})
		st.RecordFailed(elapsed, res.Attempts)
		return nil
	}

	if err := led.MarkAndPersist(ctx, key); err != nil {
		return err
	}

	st.RecordSaved(elapsed, res.Attempts)
	r.sink.Emit(event.Event{
		Kind:     event.KindSaved,
		Level:    event.LevelInfo,
		Index:    index,
		Total:    total,
		Data:     data,
		Status:   res.StatusCode,
		Attempt:  res.Attempts,
		Path:     path,
		Duration: elapsed,
	})
	return nil
}

// delay waits a uniformly random duration in [IntervalMin, IntervalMax] unless
// index is the last record.
func (r *Runner) delay(ctx context.Context, index, total int) {
	if index >= total-1 {
		return
	}
	d := r.jitter()
	if d <= 0 {
		return
	}
	r.sink.Emit(event.Event{Kind: event.KindDelay, Level: event.LevelDebug, Index: index, Total: total, Duration: d})
	_ = r.sleep(ctx, d)
}

func (r *Runner) jitter() time.Duration {
	lo, hi := r.config.IntervalMin, r.config.IntervalMax
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + time.Duration(r.random()*float64(hi-lo))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
