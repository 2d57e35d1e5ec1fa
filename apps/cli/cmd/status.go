package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbatch/packages/output"
	"github.com/spf13/cobra"
)

var statusJSONFlag bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many records are done and how many are pending",
	Long: `Load the same records, template and ledger a run would use and report
which records are already finished. Nothing is requested or written.

Examples:
  hitbatch status --config batch.yaml
  hitbatch status --data-raw-file ids.txt --data-raw 'id={variable}' --log-file progress.json -v
  hitbatch status --config batch.yaml --json`,
	Args: cobra.NoArgs,
	RunE: statusCommand,
}

func init() {
	addPayloadFlags(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSONFlag, "json", false, "Print the status as JSON")
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		output.NewConsoleFormatter(output.WithWriter(cmd.ErrOrStderr()), output.WithNoColor(noColorFlag)).FormatError(err)
		os.Exit(ExitConfigError)
	}

	console := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
	)

	rc, err := cfg.RunnerConfig(console)
	if err != nil {
		console.FormatError(err)
		os.Exit(ExitConfigError)
	}
	records := cfg.Records(console)

	st, err := runner.NewRunner(rc, runner.WithSink(console)).Status(context.Background(), records)
	if err != nil {
		console.FormatError(err)
		os.Exit(ExitRunError)
	}

	if statusJSONFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	console.FormatStatus(st)
	return nil
}
