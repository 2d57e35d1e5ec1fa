// Package env loads dotenv files and expands environment references in
// configuration values.
//
// Supported reference forms:
//   - ${VAR}
//   - {{$VAR}}
//
// Dotenv values never override variables already present in the process.
package env
