// Package http provides the HTTP client used by hitbatch.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts, TLS verification and proxy
//   - A per-client redirect policy (login exchanges never follow redirects)
//   - Whole-body reads with unreadable bodies reported as *BodyError
//   - Parsing of "Key: Value" header arguments and JSON header objects
package http
