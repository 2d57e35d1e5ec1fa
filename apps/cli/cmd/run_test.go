package cmd

import (
	"testing"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayloadCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addPayloadFlags(c)
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "HITBATCH_LOGIN_URL", envName("login-url"))
	assert.Equal(t, "HITBATCH_DATA_RAW_FILE", envName("data-raw-file"))
}

func TestFlagConfig_OnlyChangedFlags(t *testing.T) {
	c := newPayloadCommand(t, "--data-raw", "id={variable}", "--record-limit", "3")

	fc, err := flagConfig(c, nil)

	require.NoError(t, err)
	assert.Equal(t, "id={variable}", fc.DataRaw)
	assert.Equal(t, 3, fc.RecordLimit)
	assert.Empty(t, fc.LedgerKey, "unchanged flags leave the file value alone")
	assert.Nil(t, fc.Verbose)
}

func TestFlagConfig_PositionalURL(t *testing.T) {
	c := newPayloadCommand(t)
	fc, err := flagConfig(c, []string{"https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", fc.URL)
}

func TestApplyEnvDefaults(t *testing.T) {
	c := newPayloadCommand(t, "--ledger-key", "record")
	t.Setenv("HITBATCH_LOG_FILE", "progress.json")
	t.Setenv("HITBATCH_VERBOSE", "yes")
	t.Setenv("HITBATCH_LEDGER_KEY", "data")

	require.NoError(t, applyEnvDefaults(c))
	fc, err := flagConfig(c, nil)

	require.NoError(t, err)
	assert.Equal(t, "progress.json", fc.LogFile)
	require.NotNil(t, fc.Verbose)
	assert.True(t, *fc.Verbose)
	assert.Equal(t, "record", fc.LedgerKey, "command line beats environment")
}

func TestApplyEnvDefaults_InvalidValue(t *testing.T) {
	c := newPayloadCommand(t)
	t.Setenv("HITBATCH_RECORD_LIMIT", "many")

	err := applyEnvDefaults(c)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HITBATCH_RECORD_LIMIT")
}

func TestReportFormat(t *testing.T) {
	tests := []struct {
		file, format, want string
	}{
		{"report.json", "", "json"},
		{"report.xml", "", "junit"},
		{"report.XML", "", "junit"},
		{"report.txt", "junit", "junit"},
		{"report.xml", "JSON", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.format, func(t *testing.T) {
			cfg := &config.Config{ReportFile: tt.file, ReportFormat: tt.format}
			assert.Equal(t, tt.want, reportFormat(cfg))
		})
	}
}
