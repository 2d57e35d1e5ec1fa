package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	hhttp "github.com/abdul-hamid-achik/hitbatch/packages/http"
)

// Acquirer runs the login protocol.
type Acquirer struct {
	client *hhttp.Client
	sink   event.Sink
}

type AcquirerOption func(*Acquirer)

// WithSink sets where login progress is reported.
func WithSink(s event.Sink) AcquirerOption {
	return func(a *Acquirer) {
		a.sink = s
	}
}

// NewAcquirer wraps client, forcing redirects off for every exchange.
func NewAcquirer(opts []hhttp.ClientOption, acquirerOpts ...AcquirerOption) *Acquirer {
	clientOpts := append(append([]hhttp.ClientOption(nil), opts...), hhttp.WithFollowRedirects(false))
	a := &Acquirer{
		client: hhttp.NewClient(clientOpts...),
		sink:   event.Nop(),
	}
	for _, opt := range acquirerOpts {
		opt(a)
	}
	return a
}

// Acquire logs in and then visits every cookie URL in order, accumulating
// cookies. It returns ErrNoSessionCookie when the login yields no cookie,
// whether because of a network error, a rejected status or a missing header.
// A cancelled ctx is returned as ctx.Err() instead. A failing cookie URL only
// contributes nothing.
func (a *Acquirer) Acquire(ctx context.Context, cfg Config) (*Credential, error) {
	a.sink.Emit(event.Event{
		Kind:    event.KindLoginStarted,
		Level:   event.LevelInfo,
		Index:   -1,
		URL:     cfg.LoginURL,
		Message: "logging in",
	})

	cookies := a.login(ctx, cfg)
	if len(cookies) == 0 && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(cookies) == 0 {
		a.sink.Emit(event.Event{
			Kind:    event.KindLoginFailed,
			Level:   event.LevelError,
			Index:   -1,
			URL:     cfg.LoginURL,
			Message: "login returned no session cookie",
			Err:     ErrNoSessionCookie,
		})
		return nil, ErrNoSessionCookie
	}

	for _, u := range cfg.CookieURLs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cookies = append(cookies, a.visit(ctx, u, cookies, cfg.Headers)...)
	}

	cred := NewCredential(cookies...)
	a.sink.Emit(event.Event{
		Kind:    event.KindLoginSucceeded,
		Level:   event.LevelInfo,
		Index:   -1,
		URL:     cfg.LoginURL,
		Message: fmt.Sprintf("session established with %d cookie(s)", len(cookies)),
	})
	return cred, nil
}

func (a *Acquirer) login(ctx context.Context, cfg Config) []string {
	headers := hhttp.MergeHeaders(cfg.Headers, map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	req := &hhttp.Request{
		Method:  http.MethodPost,
		URL:     cfg.LoginURL,
		Headers: headers,
		Body:    cfg.Form.Encode(cfg.Username, cfg.Password),
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		a.warn(cfg.LoginURL, "login request failed", err)
		return nil
	}
	if !resp.IsSuccessOrRedirect() {
		a.warn(cfg.LoginURL, "login rejected", fmt.Errorf("unexpected status %d", resp.StatusCode))
		return nil
	}
	return resp.SetCookies()
}

func (a *Acquirer) visit(ctx context.Context, rawURL string, cookies []string, extra map[string]string) []string {
	headers := hhttp.MergeHeaders(extra, NewCredential(cookies...).Headers())

	resp, err := a.client.Get(ctx, rawURL, headers)
	if err != nil {
		a.warn(rawURL, "cookie url visit failed", err)
		return nil
	}
	if !resp.IsSuccessOrRedirect() {
		a.warn(rawURL, "cookie url visit rejected", fmt.Errorf("unexpected status %d", resp.StatusCode))
		return nil
	}

	got := resp.SetCookies()
	a.sink.Emit(event.Event{
		Kind:    event.KindCookieVisit,
		Level:   event.LevelDebug,
		Index:   -1,
		URL:     rawURL,
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("collected %d cookie(s)", len(got)),
	})
	return got
}

func (a *Acquirer) warn(rawURL, msg string, err error) {
	a.sink.Emit(event.Event{
		Kind:    event.KindWarning,
		Level:   event.LevelWarn,
		Index:   -1,
		URL:     rawURL,
		Message: msg,
		Err:     err,
	})
}
