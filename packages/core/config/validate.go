package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitbatch/packages/http"
	"github.com/abdul-hamid-achik/hitbatch/packages/ledger"
	"github.com/abdul-hamid-achik/hitbatch/packages/notify"
	"github.com/abdul-hamid-achik/hitbatch/packages/persist"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the merged configuration before a run. All problems are
// reported together.
func (c *Config) Validate() error {
	var problems []string

	if c.URL == "" {
		problems = append(problems, "url is required")
	} else if err := http.ValidateURL(c.URL); err != nil {
		problems = append(problems, fmt.Sprintf("url: %v", err))
	}

	if !persist.ValidExtension(c.Extension) {
		problems = append(problems, fmt.Sprintf("extension %q is not one of %s", c.Extension, strings.Join(persist.Extensions, ", ")))
	}

	minInterval, maxInterval := c.GetTimeIntervalMin(), c.GetTimeIntervalMax()
	if minInterval < 0 || maxInterval < 0 {
		problems = append(problems, "time intervals must not be negative")
	} else if minInterval > maxInterval {
		problems = append(problems, fmt.Sprintf("time-interval-min (%g) is greater than time-interval-max (%g)", minInterval, maxInterval))
	}

	if c.RecordLimit < 0 {
		problems = append(problems, "record-limit must not be negative")
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if c.MaxRate < 0 {
		problems = append(problems, "max-rate must not be negative")
	}

	if (c.Username == "") != (c.Password == "") {
		problems = append(problems, "username and password must be supplied together")
	}
	if c.Username != "" && c.LoginURL == "" {
		problems = append(problems, "login-url is required when username and password are set")
	}
	if c.LoginURL != "" {
		if err := http.ValidateURL(c.LoginURL); err != nil {
			problems = append(problems, fmt.Sprintf("login-url: %v", err))
		}
	}

	if _, err := ledger.ParseKeyMode(c.LedgerKey); err != nil {
		problems = append(problems, err.Error())
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("log-format %q is not one of console, json", c.LogFormat))
	}
	switch strings.ToLower(c.ReportFormat) {
	case "", "json", "junit":
	default:
		problems = append(problems, fmt.Sprintf("report-format %q is not one of json, junit", c.ReportFormat))
	}

	if _, err := notify.ParseNotifyOn(c.NotifyOn); err != nil {
		problems = append(problems, err.Error())
	}
	if c.SlackWebhook != "" {
		if err := http.ValidateURL(c.SlackWebhook); err != nil {
			problems = append(problems, fmt.Sprintf("slack-webhook: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
