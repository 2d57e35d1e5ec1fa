package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitbatch batch",
	Long: `Initialize a new hitbatch batch in the current directory.

This creates:
  - .hitbatch.yaml - Configuration file read by run and status
  - records.txt    - Example records file, one record per line

Secrets such as the login password belong in .hitbatch.local.yaml or an
--env-file rather than in .hitbatch.yaml.

Examples:
  hitbatch init
  hitbatch init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, ".hitbatch.yaml")
	recordsFile := filepath.Join(cwd, "records.txt")

	if !forceInit {
		for _, f := range []string{configFile, recordsFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	sample := config.DefaultConfig()
	sample.URL = "https://api.example.com/items"
	sample.Headers = []string{"Accept: application/json"}
	sample.DataRaw = `{"id": "{variable}"}`
	sample.DataRawFile = "records.txt"
	sample.Extension = "json"
	sample.LogFile = "progress.json"

	if err := sample.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(recordsFile, []byte("1001\n1002\n1003\n"), 0644); err != nil {
		return fmt.Errorf("failed to create records file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", recordsFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nCheck what would run with:\n  hitbatch run --dry-run\n")
	return nil
}
