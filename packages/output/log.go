package output

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/abdul-hamid-achik/hitbatch/packages/event"
)

// LogSink writes every event as one structured slog record. It is the
// machine-readable alternative to the console formatter.
type LogSink struct {
	logger *slog.Logger
}

type LogOption func(*logConfig)

type logConfig struct {
	writer  io.Writer
	verbose bool
}

func LogWithWriter(w io.Writer) LogOption {
	return func(c *logConfig) {
		c.writer = w
	}
}

// LogWithVerbose includes debug events (attempts, delays, cookie visits).
func LogWithVerbose(v bool) LogOption {
	return func(c *logConfig) {
		c.verbose = v
	}
}

func NewLogSink(opts ...LogOption) *LogSink {
	cfg := &logConfig{writer: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(cfg.writer, &slog.HandlerOptions{Level: level})
	return &LogSink{logger: slog.New(handler)}
}

func (s *LogSink) Emit(e event.Event) {
	attrs := []slog.Attr{slog.String("kind", string(e.Kind))}
	if e.Index >= 0 {
		attrs = append(attrs, slog.Int("index", e.Index))
	}
	if e.Total > 0 {
		attrs = append(attrs, slog.Int("total", e.Total))
	}
	if e.URL != "" {
		attrs = append(attrs, slog.String("url", e.URL))
	}
	if e.Data != "" {
		attrs = append(attrs, slog.String("data", e.Data))
	}
	if e.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", e.Attempt))
	}
	if e.MaxAttempts > 0 {
		attrs = append(attrs, slog.Int("maxAttempts", e.MaxAttempts))
	}
	if e.Status != 0 {
		attrs = append(attrs, slog.Int("status", e.Status))
	}
	if e.Path != "" {
		attrs = append(attrs, slog.String("path", e.Path))
	}
	if e.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", e.Duration))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	s.logger.LogAttrs(context.Background(), slogLevel(e.Level), msg, attrs...)
}

func slogLevel(l event.Level) slog.Level {
	switch l {
	case event.LevelDebug:
		return slog.LevelDebug
	case event.LevelWarn:
		return slog.LevelWarn
	case event.LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}
