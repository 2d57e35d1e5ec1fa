package cmd

// Exit codes for hitbatch CLI
const (
	// ExitSuccess indicates the batch completed; individual records may still have failed
	ExitSuccess = 0

	// ExitRunError indicates the run could not continue (ledger write failure, unexpected error)
	ExitRunError = 1

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitAuthError indicates the login returned no session cookie
	ExitAuthError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64

	// ExitInterrupted indicates the run was stopped by SIGINT or SIGTERM
	ExitInterrupted = 130
)
