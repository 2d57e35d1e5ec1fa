package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hitbatch",
	Short: "Resumable batch HTTP requests. One record, one response file.",
	Long: `hitbatch sends one HTTP request per input record, saves every successful
response body to its own file and keeps a ledger of finished records so an
interrupted batch picks up where it stopped.

Requests run strictly one at a time with a randomized pause between them.
An optional form login collects session cookies before the first record.`,
	SilenceUsage: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsageError)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
