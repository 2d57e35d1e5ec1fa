package http

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ParseHeaderLines turns "Key: Value" strings into a header map. Entries without
// a colon or with an empty key are returned in invalid and left out of the map.
func ParseHeaderLines(lines []string) (headers map[string]string, invalid []string) {
	headers = make(map[string]string)
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			invalid = append(invalid, line)
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, invalid
}

// ParseJSONHeaders reads a JSON object of header names to values. Anything that
// is not a JSON object yields an empty map. Non-string values use their raw JSON text.
func ParseJSONHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return headers
	}

	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return headers
	}

	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			headers[key.String()] = value.String()
		} else {
			headers[key.String()] = value.Raw
		}
		return true
	})
	return headers
}

// MergeHeaders returns a new map holding base overlaid by each override in turn.
// Later maps win on conflicting names, compared case-insensitively.
func MergeHeaders(base map[string]string, overrides ...map[string]string) map[string]string {
	merged := make(map[string]string, len(base))
	canonical := make(map[string]string, len(base))

	set := func(k, v string) {
		lower := strings.ToLower(k)
		if prev, ok := canonical[lower]; ok && prev != k {
			delete(merged, prev)
		}
		canonical[lower] = k
		merged[k] = v
	}

	for k, v := range base {
		set(k, v)
	}
	for _, o := range overrides {
		for k, v := range o {
			set(k, v)
		}
	}
	return merged
}
