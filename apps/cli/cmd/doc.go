// Package cmd implements the hitbatch CLI commands using Cobra.
//
// Available commands:
//   - run: Send one request per record and save each response body
//   - status: Report done and pending records from the ledger
//   - init: Write a sample .hitbatch.yaml and records file
//   - version: Show hitbatch version information
//   - completion: Generate shell completion scripts
//
// Settings come from flags, HITBATCH_* environment variables, an optional
// --env-file and the config file, in that order of precedence.
package cmd
