package env

import (
	"os"
	"regexp"
	"strings"
)

var referencePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\{\{\s*\$([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Expand replaces environment references in input. An unset variable is left
// as written and reported through warn, which may be nil.
func Expand(input string, warn WarnFunc) string {
	if !strings.Contains(input, "${") && !strings.Contains(input, "{{") {
		return input
	}
	return referencePattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := referencePattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		if warn != nil {
			warn("unresolved environment variable: $%s", name)
		}
		return match
	})
}

// ExpandAll expands every element of values in place.
func ExpandAll(values []string, warn WarnFunc) []string {
	for i, v := range values {
		values[i] = Expand(v, warn)
	}
	return values
}
