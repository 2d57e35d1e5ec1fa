package http

import (
	"net/http"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header returns the first value for key, matched case-insensitively.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// SetCookies returns the name=value part of every Set-Cookie header, in order.
// Cookie attributes (Path, Expires, HttpOnly...) are dropped.
func (r *Response) SetCookies() []string {
	var cookies []string
	for _, raw := range r.Headers.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(raw, ";")
		pair = strings.TrimSpace(pair)
		if pair != "" {
			cookies = append(cookies, pair)
		}
	}
	return cookies
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsSuccessOrRedirect reports a status in [200,400), the acceptance window for
// login and cookie-collection exchanges.
func (r *Response) IsSuccessOrRedirect() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}
