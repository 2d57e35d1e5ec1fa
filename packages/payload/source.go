// Package payload produces the records a batch run iterates over and derives
// the request body sent for each of them.
package payload

import (
	"fmt"
	"os"
	"strings"
)

// Placeholder is the token a template replaces with the record value.
const Placeholder = "{variable}"

// Load returns the ordered records for a run.
//
// A non-empty file takes precedence over single. File mode splits the file on
// line boundaries and keeps the first limit lines when limit > 0. When the file
// cannot be read, Load returns an empty slice together with the error so the
// caller can report it and continue with a zero-record run.
//
// Without a file the result is always exactly one record: single, which may be
// empty to request a single no-payload call.
func Load(file, single string, limit int) ([]string, error) {
	if file == "" {
		return []string{single}, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return []string{}, fmt.Errorf("reading records file: %w", err)
	}

	lines := SplitLines(string(data))
	if limit > 0 && limit < len(lines) {
		lines = lines[:limit]
	}
	return lines, nil
}

// SplitLines splits on \n or \r\n. A single trailing line terminator does not
// produce an extra empty record; blank lines elsewhere are kept.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Derive builds the RequestData for record. The first Placeholder in template
// is replaced by record; an empty template sends the record as is.
func Derive(template, record string) string {
	if template == "" {
		return record
	}
	return strings.Replace(template, Placeholder, record, 1)
}
