package config

const (
	DefaultOutputFolder    = "./output"
	DefaultBaseName        = "response"
	DefaultExtension       = "html"
	DefaultTimeIntervalMin = 0.1 // seconds
	DefaultTimeIntervalMax = 2.0 // seconds
	DefaultTimeout         = 30000
	DefaultLedgerKey       = "data"
	DefaultLogFormat       = "console"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		OutputFolder:    DefaultOutputFolder,
		BaseName:        DefaultBaseName,
		Extension:       DefaultExtension,
		TimeIntervalMin: FloatPtr(DefaultTimeIntervalMin),
		TimeIntervalMax: FloatPtr(DefaultTimeIntervalMax),
		Timeout:         DefaultTimeout,
		LedgerKey:       DefaultLedgerKey,
		LogFormat:       DefaultLogFormat,
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.URL == "" &&
		len(c.Headers) == 0 &&
		c.Username == "" &&
		c.LoginURL == "" &&
		c.DataRaw == "" &&
		c.SingleDataRaw == "" &&
		c.DataRawFile == "" &&
		c.OutputFolder == defaults.OutputFolder &&
		c.BaseName == defaults.BaseName &&
		c.Extension == defaults.Extension &&
		c.GetTimeIntervalMin() == defaults.GetTimeIntervalMin() &&
		c.GetTimeIntervalMax() == defaults.GetTimeIntervalMax() &&
		c.Timeout == defaults.Timeout &&
		c.LedgerKey == defaults.LedgerKey &&
		c.LogFile == "" &&
		c.LogFormat == defaults.LogFormat
}
