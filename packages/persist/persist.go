// Package persist writes response bodies to deterministic, filesystem-safe paths.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const (
	// MaxVariableLength bounds the record-derived part of a filename.
	MaxVariableLength = 200
	// DateLayout is the date stamp embedded in every filename.
	DateLayout = "2006-01-02"
	// UnknownDate replaces the date stamp when no usable clock reading exists.
	UnknownDate = "unknown-date"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9\-_.]`)

// Extensions lists the accepted output file extensions.
var Extensions = []string{"html", "json", "xml", "txt", "csv", "tsv", "yml"}

// ValidExtension reports whether ext is one of Extensions.
func ValidExtension(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Sanitize strips every character outside [A-Za-z0-9-_.] and truncates the
// result to MaxVariableLength bytes.
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	if len(s) > MaxVariableLength {
		s = s[:MaxVariableLength]
	}
	return s
}

type Persister struct {
	folder    string
	baseName  string
	extension string
	now       func() time.Time
}

type Option func(*Persister)

// WithClock overrides the time source used for the date stamp.
func WithClock(now func() time.Time) Option {
	return func(p *Persister) {
		p.now = now
	}
}

func New(folder, baseName, extension string, opts ...Option) *Persister {
	p := &Persister{
		folder:    folder,
		baseName:  baseName,
		extension: extension,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns <folder>/<base>.<sanitized variable>.<YYYY-MM-DD>.<ext>.
func (p *Persister) Path(variable string) string {
	name := fmt.Sprintf("%s.%s.%s.%s", p.baseName, Sanitize(variable), p.dateStamp(), p.extension)
	return filepath.Join(p.folder, name)
}

func (p *Persister) dateStamp() string {
	t := p.now()
	if t.IsZero() {
		return UnknownDate
	}
	return t.Format(DateLayout)
}

// Save writes body verbatim, creating the folder when missing and overwriting
// an existing file of the same name. It returns the written path.
func (p *Persister) Save(variable string, body []byte) (string, error) {
	if err := os.MkdirAll(p.folder, 0755); err != nil {
		return "", fmt.Errorf("creating output folder: %w", err)
	}

	path := p.Path(variable)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return "", fmt.Errorf("writing response: %w", err)
	}
	return path, nil
}
