// Package session performs a form login and collects the session cookies used
// for the rest of a batch run.
//
// Login and cookie-collection exchanges never follow redirects; any status in
// [200,400) counts as success because a login commonly answers with a redirect.
package session

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoSessionCookie is returned when the login response carries no Set-Cookie.
var ErrNoSessionCookie = errors.New("authentication failed: no session cookie")

// LoginForm names the fields posted to the login endpoint.
type LoginForm struct {
	UserField      string            `json:"userField,omitempty" yaml:"userField,omitempty"`
	PasswordField  string            `json:"passwordField,omitempty" yaml:"passwordField,omitempty"`
	SubmitField    string            `json:"submitField,omitempty" yaml:"submitField,omitempty"`
	SubmitValue    string            `json:"submitValue,omitempty" yaml:"submitValue,omitempty"`
	LoginTypeField string            `json:"loginTypeField,omitempty" yaml:"loginTypeField,omitempty"`
	LoginTypeValue string            `json:"loginTypeValue,omitempty" yaml:"loginTypeValue,omitempty"`
	Extra          map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// DefaultLoginForm returns the field layout used when none is configured.
func DefaultLoginForm() LoginForm {
	return LoginForm{
		UserField:      "username",
		PasswordField:  "password",
		SubmitField:    "submit",
		SubmitValue:    "Login",
		LoginTypeField: "login_type",
		LoginTypeValue: "normal",
		Extra:          map[string]string{"remember": "1"},
	}
}

// withDefaults fills every unset field from DefaultLoginForm.
func (f LoginForm) withDefaults() LoginForm {
	d := DefaultLoginForm()
	if f.UserField == "" {
		f.UserField = d.UserField
	}
	if f.PasswordField == "" {
		f.PasswordField = d.PasswordField
	}
	if f.SubmitField == "" {
		f.SubmitField = d.SubmitField
	}
	if f.SubmitValue == "" {
		f.SubmitValue = d.SubmitValue
	}
	if f.LoginTypeField == "" {
		f.LoginTypeField = d.LoginTypeField
	}
	if f.LoginTypeValue == "" {
		f.LoginTypeValue = d.LoginTypeValue
	}
	if f.Extra == nil {
		f.Extra = d.Extra
	}
	return f
}

// Encode returns the url-encoded login body.
func (f LoginForm) Encode(username, password string) string {
	f = f.withDefaults()
	values := url.Values{}
	for k, v := range f.Extra {
		values.Set(k, v)
	}
	values.Set(f.UserField, username)
	values.Set(f.PasswordField, password)
	values.Set(f.SubmitField, f.SubmitValue)
	values.Set(f.LoginTypeField, f.LoginTypeValue)
	return values.Encode()
}

// Config describes one login exchange.
type Config struct {
	LoginURL   string
	Username   string
	Password   string
	CookieURLs []string
	Headers    map[string]string
	Form       LoginForm
}

// Enabled reports whether enough is configured to attempt a login.
func (c Config) Enabled() bool {
	return c.LoginURL != "" && c.Username != "" && c.Password != ""
}

// Credential is the ordered set of cookies collected during login. It is
// built once and read-only afterwards.
type Credential struct {
	cookies []string
}

// NewCredential wraps an already known cookie list.
func NewCredential(cookies ...string) *Credential {
	return &Credential{cookies: append([]string(nil), cookies...)}
}

// Cookies returns a copy of the collected cookies.
func (c *Credential) Cookies() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.cookies...)
}

// Empty reports whether no cookie was collected.
func (c *Credential) Empty() bool {
	return c == nil || len(c.cookies) == 0
}

// Header returns the Cookie header value, cookies joined by "; ".
func (c *Credential) Header() string {
	if c.Empty() {
		return ""
	}
	return strings.Join(c.cookies, "; ")
}

// Headers returns the credential as a header map to overlay on request headers.
func (c *Credential) Headers() map[string]string {
	if c.Empty() {
		return nil
	}
	return map[string]string{"Cookie": c.Header()}
}
