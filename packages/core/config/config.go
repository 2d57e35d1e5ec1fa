package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"dario.cat/mergo"
	"github.com/abdul-hamid-achik/hitbatch/packages/core/env"
	"github.com/abdul-hamid-achik/hitbatch/packages/session"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// Config represents the hitbatch configuration. It mirrors the run flags so a
// batch can be described once in a file and resumed with a bare command.
type Config struct {
	URL     string   `json:"url,omitempty" yaml:"url,omitempty"`
	Headers []string `json:"headers,omitempty" yaml:"headers,omitempty"` // "Key: Value" lines

	Username           string             `json:"username,omitempty" yaml:"username,omitempty"`
	Password           string             `json:"password,omitempty" yaml:"password,omitempty"`
	LoginURL           string             `json:"loginUrl,omitempty" yaml:"loginUrl,omitempty"`
	CookieLoginHeaders string             `json:"cookieLoginHeaders,omitempty" yaml:"cookieLoginHeaders,omitempty"` // JSON object
	CookieURLs         []string           `json:"cookieUrls,omitempty" yaml:"cookieUrls,omitempty"`
	LoginForm          *session.LoginForm `json:"loginForm,omitempty" yaml:"loginForm,omitempty"`

	DataRaw       string `json:"dataRaw,omitempty" yaml:"dataRaw,omitempty"`
	SingleDataRaw string `json:"singleDataRaw,omitempty" yaml:"singleDataRaw,omitempty"`
	DataRawFile   string `json:"dataRawFile,omitempty" yaml:"dataRawFile,omitempty"`
	RecordLimit   int    `json:"recordLimit,omitempty" yaml:"recordLimit,omitempty"`

	OutputFolder string `json:"outputFolder,omitempty" yaml:"outputFolder,omitempty"`
	BaseName     string `json:"baseName,omitempty" yaml:"baseName,omitempty"`
	Extension    string `json:"extension,omitempty" yaml:"extension,omitempty"`

	TimeIntervalMin *float64 `json:"timeIntervalMin,omitempty" yaml:"timeIntervalMin,omitempty"` // seconds
	TimeIntervalMax *float64 `json:"timeIntervalMax,omitempty" yaml:"timeIntervalMax,omitempty"` // seconds
	NoDelayOnSkip   *bool    `json:"noDelayOnSkip,omitempty" yaml:"noDelayOnSkip,omitempty"`

	LogFile   string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	LedgerKey string `json:"ledgerKey,omitempty" yaml:"ledgerKey,omitempty"`

	Timeout   int     `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	Insecure  *bool   `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	Proxy     string  `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	UserAgent string  `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	MaxRate   float64 `json:"maxRate,omitempty" yaml:"maxRate,omitempty"` // requests per second

	ReportFile   string `json:"reportFile,omitempty" yaml:"reportFile,omitempty"`
	ReportFormat string `json:"reportFormat,omitempty" yaml:"reportFormat,omitempty"`
	LogFormat    string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
	Verbose      *bool  `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Quiet        *bool  `json:"quiet,omitempty" yaml:"quiet,omitempty"`
	NoColor      *bool  `json:"noColor,omitempty" yaml:"noColor,omitempty"`

	SlackWebhook string `json:"slackWebhook,omitempty" yaml:"slackWebhook,omitempty"`
	SlackChannel string `json:"slackChannel,omitempty" yaml:"slackChannel,omitempty"`
	NotifyOn     string `json:"notifyOn,omitempty" yaml:"notifyOn,omitempty"` // always, failure, success
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// FloatPtr returns a pointer to f
func FloatPtr(f float64) *float64 {
	return &f
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

func getFloat(f *float64, defaultVal float64) float64 {
	if f == nil {
		return defaultVal
	}
	return *f
}

// GetInsecure returns the insecure setting, defaulting to false
func (c *Config) GetInsecure() bool {
	return getBool(c.Insecure, false)
}

// GetNoDelayOnSkip returns whether skipped records skip the delay, defaulting to false
func (c *Config) GetNoDelayOnSkip() bool {
	return getBool(c.NoDelayOnSkip, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetQuiet returns the quiet setting, defaulting to false
func (c *Config) GetQuiet() bool {
	return getBool(c.Quiet, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetTimeIntervalMin returns the lower delay bound in seconds
func (c *Config) GetTimeIntervalMin() float64 {
	return getFloat(c.TimeIntervalMin, DefaultTimeIntervalMin)
}

// GetTimeIntervalMax returns the upper delay bound in seconds
func (c *Config) GetTimeIntervalMax() float64 {
	return getFloat(c.TimeIntervalMax, DefaultTimeIntervalMax)
}

// ConfigFilenames contains the possible config file names, in lookup order
var ConfigFilenames = []string{
	".hitbatch.json",
	"hitbatch.json",
	".hitbatch.yaml",
	".hitbatch.yml",
}

// LoadConfig loads configuration from the specified path or searches for
// config files in the working directory. The result is layered over defaults.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile decodes path and, when present, its "<name>.local.<ext>"
// sibling on top of it. String values may reference the environment.
func loadConfigFromFile(path string) (*Config, error) {
	fileConfig, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	local, err := decodeFile(localPath(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if local != nil {
		fileConfig = fileConfig.Merge(local)
	}

	fileConfig.expandEnv()
	return DefaultConfig().Merge(fileConfig), nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json5.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return config, nil
}

// localPath turns ".hitbatch.json" into ".hitbatch.local.json".
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func (c *Config) expandEnv() {
	for _, s := range []*string{&c.URL, &c.Username, &c.Password, &c.LoginURL, &c.CookieLoginHeaders, &c.DataRaw, &c.SingleDataRaw, &c.Proxy, &c.UserAgent, &c.SlackWebhook} {
		*s = env.Expand(*s, nil)
	}
	env.ExpandAll(c.Headers, nil)
	env.ExpandAll(c.CookieURLs, nil)
}

// Merge returns a copy of c with every field set in other taking precedence.
// A field counts as set when it is non-zero; pointer fields let a file or flag
// set false or 0 explicitly.
func (c *Config) Merge(other *Config) *Config {
	result := *c // Copy
	if other == nil {
		return &result
	}
	if c.LoginForm != nil {
		form := *c.LoginForm
		form.Extra = maps.Clone(c.LoginForm.Extra)
		result.LoginForm = &form
	}
	if err := mergo.Merge(&result, *other, mergo.WithOverride, mergo.WithTransformers(optionalTransformer{})); err != nil {
		// Only reachable with mismatched types, which Config rules out.
		panic(fmt.Sprintf("merging config: %v", err))
	}
	return &result
}

// optionalTransformer replaces *bool and *float64 fields wholesale when the
// source sets them, instead of merging through the pointer.
type optionalTransformer struct{}

func (optionalTransformer) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	switch t {
	case reflect.TypeOf((*bool)(nil)), reflect.TypeOf((*float64)(nil)):
		return func(dst, src reflect.Value) error {
			if !src.IsNil() && dst.CanSet() {
				dst.Set(src)
			}
			return nil
		}
	}
	return nil
}

// SaveConfig saves the configuration to a file, as YAML when the extension says so
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
