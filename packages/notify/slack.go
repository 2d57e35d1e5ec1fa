package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	hhttp "github.com/abdul-hamid-achik/hitbatch/packages/http"
)

// maxListedFailures caps the failure lines in one message
const maxListedFailures = 10

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	client     *hhttp.Client
	now        func() time.Time
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackClient replaces the HTTP client used to post the webhook
func WithSlackClient(c *hhttp.Client) SlackOption {
	return func(s *SlackNotifier) {
		s.client = c
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "hitbatch",
		client:     hhttp.NewClient(hhttp.WithTimeout(10*time.Second), hhttp.WithFollowRedirects(false)),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the name of the notifier
func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify sends a notification to Slack
func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color, title := "good", ":white_check_mark: Batch finished"
	switch {
	case summary.Error != "":
		color, title = "danger", ":x: Batch stopped: "+summary.Error
	case summary.Interrupted:
		color, title = "warning", fmt.Sprintf(":pause_button: Batch interrupted, %d record(s) pending", summary.Pending)
	case summary.Failed > 0:
		color, title = "danger", fmt.Sprintf(":x: %d record(s) failed", summary.Failed)
	}

	fields := []slackField{
		{Title: "Records", Value: fmt.Sprintf("%d", summary.Records), Short: true},
		{Title: "Saved", Value: fmt.Sprintf("%d", summary.Saved), Short: true},
		{Title: "Skipped", Value: fmt.Sprintf("%d", summary.Skipped), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.Failed), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Second).String(), Short: true},
	}
	if summary.URL != "" {
		fields = append(fields, slackField{Title: "URL", Value: summary.URL})
	}

	var text strings.Builder
	if len(summary.Failures) > 0 {
		text.WriteString("*Failed records:*\n")
		for i, f := range summary.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(&text, "and %d more\n", len(summary.Failures)-i)
				break
			}
			fmt.Fprintf(&text, "• [%d] `%s`: %s\n", f.Index+1, f.Record, f.Error)
		}
	}

	msg := slackMessage{
		Channel:  s.channel,
		Username: s.username,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  title,
			Text:   text.String(),
			Fields: fields,
			Footer: "hitbatch run " + summary.RunID,
			TS:     s.now().Unix(),
		}},
	}

	return s.send(ctx, msg)
}

func (s *SlackNotifier) send(ctx context.Context, msg slackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req := &hhttp.Request{
		Method:  http.MethodPost,
		URL:     s.webhookURL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    string(data),
	}
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body := resp.BodyString()
		if len(body) > 1024 {
			body = body[:1024]
		}
		return fmt.Errorf("slack API returned status %d: %s", resp.StatusCode, body)
	}

	return nil
}
