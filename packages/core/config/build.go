package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	"github.com/abdul-hamid-achik/hitbatch/packages/http"
	"github.com/abdul-hamid-achik/hitbatch/packages/ledger"
	"github.com/abdul-hamid-achik/hitbatch/packages/payload"
	"github.com/abdul-hamid-achik/hitbatch/packages/session"
)

// RunnerConfig turns a validated Config into the run controller's settings.
// Malformed header lines and a cookie-login-headers value that is not a JSON
// object are dropped with a warning on sink.
func (c *Config) RunnerConfig(sink event.Sink) (*runner.Config, error) {
	keyMode, err := ledger.ParseKeyMode(c.LedgerKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	headers, invalid := http.ParseHeaderLines(c.Headers)
	for _, line := range invalid {
		event.Warn(sink, fmt.Sprintf("ignoring header %q: expected \"Key: Value\"", line), nil)
	}

	loginHeaders := http.ParseJSONHeaders(c.CookieLoginHeaders)
	if raw := strings.TrimSpace(c.CookieLoginHeaders); len(loginHeaders) == 0 && raw != "" && raw != "{}" {
		event.Warn(sink, "cookie-login-headers is not a JSON object, ignored", nil)
	}

	form := session.DefaultLoginForm()
	if c.LoginForm != nil {
		form = *c.LoginForm
	}

	return &runner.Config{
		URL:      c.URL,
		Headers:  headers,
		Template: c.DataRaw,
		Login: session.Config{
			LoginURL:   c.LoginURL,
			Username:   c.Username,
			Password:   c.Password,
			CookieURLs: c.CookieURLs,
			Headers:    loginHeaders,
			Form:       form,
		},
		OutputFolder:  c.OutputFolder,
		BaseName:      c.BaseName,
		Extension:     c.Extension,
		IntervalMin:   seconds(c.GetTimeIntervalMin()),
		IntervalMax:   seconds(c.GetTimeIntervalMax()),
		NoDelayOnSkip: c.GetNoDelayOnSkip(),
		LedgerPath:    c.LogFile,
		KeyMode:       keyMode,
		Timeout:       time.Duration(c.Timeout) * time.Millisecond,
		ValidateSSL:   !c.GetInsecure(),
		Proxy:         c.Proxy,
		UserAgent:     c.UserAgent,
		MaxRate:       c.MaxRate,
	}, nil
}

// Records loads the payload source. An unreadable records file is reported
// on sink and yields no records.
func (c *Config) Records(sink event.Sink) []string {
	records, err := payload.Load(c.DataRawFile, c.SingleDataRaw, c.RecordLimit)
	if err != nil {
		event.Warn(sink, fmt.Sprintf("cannot read %s, no records to process", c.DataRawFile), err)
	}
	return records
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
