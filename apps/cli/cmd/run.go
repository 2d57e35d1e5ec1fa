package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hitbatch/packages/core/config"
	"github.com/abdul-hamid-achik/hitbatch/packages/core/env"
	"github.com/abdul-hamid-achik/hitbatch/packages/core/runner"
	"github.com/abdul-hamid-achik/hitbatch/packages/event"
	"github.com/abdul-hamid-achik/hitbatch/packages/notify"
	"github.com/abdul-hamid-achik/hitbatch/packages/output"
	"github.com/abdul-hamid-achik/hitbatch/packages/session"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Send one request per record and save each response",
	Long: `Send one request per input record to the target URL and save every
successful response body under the output folder.

Records come from --data-raw-file (one per line) or --single-data-raw. The
{variable} placeholder in --data-raw is replaced by each record. With
--log-file, finished records are remembered and skipped on the next run.

Examples:
  hitbatch run https://api.example.com/items --data-raw-file ids.txt --data-raw 'id={variable}'
  hitbatch run --config batch.yaml --log-file progress.json
  hitbatch run https://example.com/report --username me --password "$PASS" \
      --login-url https://example.com/login --cookie-url https://example.com/home
  hitbatch run --config batch.yaml --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCommand,
}

var (
	urlFlag                string
	headerFlags            []string
	usernameFlag           string
	passwordFlag           string
	loginURLFlag           string
	cookieLoginHeadersFlag string
	cookieURLFlags         []string
	dataRawFlag            string
	singleDataRawFlag      string
	dataRawFileFlag        string
	recordLimitFlag        int
	outputFolderFlag       string
	baseNameFlag           string
	extensionFlag          string
	intervalMinFlag        float64
	intervalMaxFlag        float64
	noDelayOnSkipFlag      bool
	logFileFlag            string
	ledgerKeyFlag          string

	timeoutFlag   string
	insecureFlag  bool
	proxyFlag     string
	userAgentFlag string
	maxRateFlag   float64

	configFlag       string
	envFileFlag      string
	dryRunFlag       bool
	reportFileFlag   string
	reportFormatFlag string
	logFormatFlag    string
	verboseFlag      bool
	quietFlag        bool
	noColorFlag      bool

	// Notification flags
	notifyOnFlag     string
	slackWebhookFlag string
	slackChannelFlag string
)

func init() {
	// Target flags
	runCmd.Flags().StringVarP(&urlFlag, "url", "u", getEnvString("HITBATCH_URL", ""), "Target URL (env: HITBATCH_URL)")
	runCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, `Request header as "Key: Value" (repeatable)`)

	// Login flags
	runCmd.Flags().StringVar(&usernameFlag, "username", getEnvString("HITBATCH_USERNAME", ""), "Login username (env: HITBATCH_USERNAME)")
	runCmd.Flags().StringVar(&passwordFlag, "password", getEnvString("HITBATCH_PASSWORD", ""), "Login password (env: HITBATCH_PASSWORD)")
	runCmd.Flags().StringVar(&loginURLFlag, "login-url", getEnvString("HITBATCH_LOGIN_URL", ""), "Login form endpoint (env: HITBATCH_LOGIN_URL)")
	runCmd.Flags().StringVar(&cookieLoginHeadersFlag, "cookie-login-headers", getEnvString("HITBATCH_COOKIE_LOGIN_HEADERS", ""), "JSON object of headers sent with login and cookie requests (env: HITBATCH_COOKIE_LOGIN_HEADERS)")
	runCmd.Flags().StringArrayVar(&cookieURLFlags, "cookie-url", nil, "URL visited after login to collect more cookies (repeatable)")

	addPayloadFlags(runCmd)

	// Output flags
	runCmd.Flags().StringVar(&outputFolderFlag, "output-folder", getEnvString("HITBATCH_OUTPUT_FOLDER", config.DefaultOutputFolder), "Folder for response files (env: HITBATCH_OUTPUT_FOLDER)")
	runCmd.Flags().StringVar(&baseNameFlag, "base-name", getEnvString("HITBATCH_BASE_NAME", config.DefaultBaseName), "Response file name prefix (env: HITBATCH_BASE_NAME)")
	runCmd.Flags().StringVar(&extensionFlag, "extension", getEnvString("HITBATCH_EXTENSION", config.DefaultExtension), "Response file extension: html, json, xml, txt, csv, tsv, yml (env: HITBATCH_EXTENSION)")

	// Pacing flags
	runCmd.Flags().Float64Var(&intervalMinFlag, "time-interval-min", getEnvFloat("HITBATCH_TIME_INTERVAL_MIN", config.DefaultTimeIntervalMin), "Minimum pause between records in seconds (env: HITBATCH_TIME_INTERVAL_MIN)")
	runCmd.Flags().Float64Var(&intervalMaxFlag, "time-interval-max", getEnvFloat("HITBATCH_TIME_INTERVAL_MAX", config.DefaultTimeIntervalMax), "Maximum pause between records in seconds (env: HITBATCH_TIME_INTERVAL_MAX)")
	runCmd.Flags().BoolVar(&noDelayOnSkipFlag, "no-delay-on-skip", getEnvBool("HITBATCH_NO_DELAY_ON_SKIP", false), "Do not pause after records the ledger already holds (env: HITBATCH_NO_DELAY_ON_SKIP)")
	runCmd.Flags().Float64Var(&maxRateFlag, "max-rate", getEnvFloat("HITBATCH_MAX_RATE", 0), "Cap on requests per second, retries included; 0 disables (env: HITBATCH_MAX_RATE)")

	// Network flags
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITBATCH_TIMEOUT", "30s"), "Request timeout (e.g., 30s, 1m) (env: HITBATCH_TIMEOUT)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITBATCH_INSECURE", false), "Disable SSL certificate validation (env: HITBATCH_INSECURE)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITBATCH_PROXY", ""), "Proxy URL for HTTP requests (env: HITBATCH_PROXY)")
	runCmd.Flags().StringVar(&userAgentFlag, "user-agent", getEnvString("HITBATCH_USER_AGENT", ""), "User-Agent header for every request (env: HITBATCH_USER_AGENT)")

	// Execution and reporting flags
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show which records would be requested without sending anything")
	runCmd.Flags().StringVar(&reportFileFlag, "report-file", getEnvString("HITBATCH_REPORT_FILE", ""), "Write a run report to this file (env: HITBATCH_REPORT_FILE)")
	runCmd.Flags().StringVar(&reportFormatFlag, "report-format", getEnvString("HITBATCH_REPORT_FORMAT", ""), "Report format: json, junit (default: from file extension) (env: HITBATCH_REPORT_FORMAT)")
	runCmd.Flags().StringVar(&logFormatFlag, "log-format", getEnvString("HITBATCH_LOG_FORMAT", config.DefaultLogFormat), "Progress output: console, json (env: HITBATCH_LOG_FORMAT)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("HITBATCH_QUIET", false), "Only print failures, warnings and the summary (env: HITBATCH_QUIET)")

	// Notification flags
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("HITBATCH_NOTIFY_ON", "failure"), "When to notify: always, failure, success (env: HITBATCH_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhookFlag, "slack-webhook", getEnvString("HITBATCH_SLACK_WEBHOOK", ""), "Slack webhook URL posted a run summary (env: HITBATCH_SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannelFlag, "slack-channel", getEnvString("HITBATCH_SLACK_CHANNEL", ""), "Slack channel override (env: HITBATCH_SLACK_CHANNEL)")
}

// addPayloadFlags registers the flags that decide which records a batch has
// and how they map to ledger keys. run and status share them.
func addPayloadFlags(c *cobra.Command) {
	c.Flags().StringVar(&configFlag, "config", getEnvString("HITBATCH_CONFIG", ""), "Path to config file (env: HITBATCH_CONFIG)")
	c.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITBATCH_ENV_FILE", ""), "Path to .env file exported before flags are read (env: HITBATCH_ENV_FILE)")
	c.Flags().StringVarP(&dataRawFlag, "data-raw", "d", getEnvString("HITBATCH_DATA_RAW", ""), "Request body template; {variable} is replaced by each record (env: HITBATCH_DATA_RAW)")
	c.Flags().StringVar(&singleDataRawFlag, "single-data-raw", getEnvString("HITBATCH_SINGLE_DATA_RAW", ""), "Single record used when no records file is given (env: HITBATCH_SINGLE_DATA_RAW)")
	c.Flags().StringVarP(&dataRawFileFlag, "data-raw-file", "f", getEnvString("HITBATCH_DATA_RAW_FILE", ""), "File with one record per line (env: HITBATCH_DATA_RAW_FILE)")
	c.Flags().IntVar(&recordLimitFlag, "record-limit", getEnvInt("HITBATCH_RECORD_LIMIT", 0), "Only use the first N records; 0 means all (env: HITBATCH_RECORD_LIMIT)")
	c.Flags().StringVar(&logFileFlag, "log-file", getEnvString("HITBATCH_LOG_FILE", ""), "Ledger of finished records: JSON file, or SQLite for .db/.sqlite/sqlite: paths (env: HITBATCH_LOG_FILE)")
	c.Flags().StringVar(&ledgerKeyFlag, "ledger-key", getEnvString("HITBATCH_LEDGER_KEY", config.DefaultLedgerKey), "What identifies finished work: data or record (env: HITBATCH_LEDGER_KEY)")
	c.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HITBATCH_VERBOSE", false), "Show attempts, retries and pauses (env: HITBATCH_VERBOSE)")
	c.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITBATCH_NO_COLOR", false), "Disable colored output (env: HITBATCH_NO_COLOR)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// envName is the variable that supplies a flag's default: --login-url reads
// HITBATCH_LOGIN_URL.
func envName(flag string) string {
	return "HITBATCH_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnvDefaults sets every flag not given on the command line from its
// environment variable. Flag defaults are computed before --env-file is
// loaded, so this is what lets a dotenv file feed the flags. A flag set this
// way counts as changed and takes precedence over the config file.
func applyEnvDefaults(c *cobra.Command) error {
	var errs []error
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Value.Type() == "stringArray" {
			return
		}
		val, ok := os.LookupEnv(envName(f.Name))
		if !ok || val == "" {
			return
		}
		if f.Value.Type() == "bool" {
			val = strconv.FormatBool(val == "true" || val == "1" || val == "yes")
		}
		if err := c.Flags().Set(f.Name, val); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", envName(f.Name), err))
		}
	})
	return errors.Join(errs...)
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush() error
}

// Reporter collects a run from its events and writes it once the run ends.
type Reporter interface {
	event.Sink
	Formatter
	Flushable
}

func changed(c *cobra.Command, name string) bool {
	f := c.Flags().Lookup(name)
	return f != nil && f.Changed
}

// flagConfig holds only what was set on the command line (or through the
// environment), so merging it over the file config keeps file values for
// everything else.
func flagConfig(c *cobra.Command, args []string) (*config.Config, error) {
	fc := &config.Config{}
	set := func(name string) bool { return changed(c, name) }

	if len(args) == 1 {
		if set("url") {
			return nil, fmt.Errorf("give the target either as an argument or with --url, not both")
		}
		fc.URL = args[0]
	}
	if set("url") {
		fc.URL = urlFlag
	}
	if set("header") {
		fc.Headers = headerFlags
	}
	if set("username") {
		fc.Username = usernameFlag
	}
	if set("password") {
		fc.Password = passwordFlag
	}
	if set("login-url") {
		fc.LoginURL = loginURLFlag
	}
	if set("cookie-login-headers") {
		fc.CookieLoginHeaders = cookieLoginHeadersFlag
	}
	if set("cookie-url") {
		fc.CookieURLs = cookieURLFlags
	}
	if set("data-raw") {
		fc.DataRaw = dataRawFlag
	}
	if set("single-data-raw") {
		fc.SingleDataRaw = singleDataRawFlag
	}
	if set("data-raw-file") {
		fc.DataRawFile = dataRawFileFlag
	}
	if set("record-limit") {
		fc.RecordLimit = recordLimitFlag
	}
	if set("output-folder") {
		fc.OutputFolder = outputFolderFlag
	}
	if set("base-name") {
		fc.BaseName = baseNameFlag
	}
	if set("extension") {
		fc.Extension = strings.ToLower(strings.TrimPrefix(extensionFlag, "."))
	}
	if set("time-interval-min") {
		fc.TimeIntervalMin = config.FloatPtr(intervalMinFlag)
	}
	if set("time-interval-max") {
		fc.TimeIntervalMax = config.FloatPtr(intervalMaxFlag)
	}
	if set("no-delay-on-skip") {
		fc.NoDelayOnSkip = config.BoolPtr(noDelayOnSkipFlag)
	}
	if set("log-file") {
		fc.LogFile = logFileFlag
	}
	if set("ledger-key") {
		fc.LedgerKey = ledgerKeyFlag
	}
	if set("timeout") {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		fc.Timeout = int(timeout.Milliseconds())
	}
	if set("insecure") {
		fc.Insecure = config.BoolPtr(insecureFlag)
	}
	if set("proxy") {
		fc.Proxy = proxyFlag
	}
	if set("user-agent") {
		fc.UserAgent = userAgentFlag
	}
	if set("max-rate") {
		fc.MaxRate = maxRateFlag
	}
	if set("report-file") {
		fc.ReportFile = reportFileFlag
	}
	if set("report-format") {
		fc.ReportFormat = reportFormatFlag
	}
	if set("log-format") {
		fc.LogFormat = logFormatFlag
	}
	if set("verbose") {
		fc.Verbose = config.BoolPtr(verboseFlag)
	}
	if set("quiet") {
		fc.Quiet = config.BoolPtr(quietFlag)
	}
	if set("no-color") {
		fc.NoColor = config.BoolPtr(noColorFlag)
	}
	if set("notify-on") {
		fc.NotifyOn = notifyOnFlag
	}
	if set("slack-webhook") {
		fc.SlackWebhook = slackWebhookFlag
	}
	if set("slack-channel") {
		fc.SlackChannel = slackChannelFlag
	}
	return fc, nil
}

// resolveConfig layers defaults, the config file, the environment and the
// command line, in increasing precedence.
func resolveConfig(c *cobra.Command, args []string) (*config.Config, error) {
	if envFileFlag != "" {
		if _, err := env.LoadAndExportDotEnv(envFileFlag); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}
	if err := applyEnvDefaults(c); err != nil {
		return nil, err
	}

	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	fc, err := flagConfig(c, args)
	if err != nil {
		return nil, err
	}
	return fileConfig.Merge(fc), nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		output.NewConsoleFormatter(output.WithWriter(cmd.ErrOrStderr()), output.WithNoColor(noColorFlag)).FormatError(err)
		os.Exit(ExitConfigError)
	}

	// Progress goes to the console or, with --log-format json, to stderr as JSON lines
	jsonLogs := strings.EqualFold(cfg.LogFormat, "json")
	console := output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithQuiet(cfg.GetQuiet()),
		output.WithNoColor(cfg.GetNoColor()),
	)
	var sink event.Sink = console
	if jsonLogs {
		sink = output.NewLogSink(output.LogWithWriter(cmd.ErrOrStderr()), output.LogWithVerbose(cfg.GetVerbose()))
		console = output.NewConsoleFormatter(output.WithWriter(cmd.ErrOrStderr()), output.WithQuiet(true), output.WithNoColor(true))
	}

	var reporter Reporter
	if cfg.ReportFile != "" {
		reportFile, err := createReportFile(cfg.ReportFile)
		if err != nil {
			console.FormatError(err)
			os.Exit(ExitConfigError)
		}
		defer reportFile.Close()
		reporter = newReporter(reportFormat(cfg), reportFile, cfg.URL)
		sink = event.Multi(sink, reporter)
	}

	rc, err := cfg.RunnerConfig(sink)
	if err != nil {
		console.FormatError(err)
		os.Exit(ExitConfigError)
	}
	rc.DryRun = dryRunFlag
	records := cfg.Records(sink)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !jsonLogs && !cfg.GetQuiet() {
		console.FormatHeader(version)
	}

	r := runner.NewRunner(rc, runner.WithSink(sink))
	result, runErr := r.Run(ctx, records)

	if !jsonLogs {
		console.FormatResult(result)
	}
	if reporter != nil {
		reporter.FormatResult(result)
		if err := reporter.Flush(); err != nil {
			console.FormatError(fmt.Errorf("error writing report: %w", err))
		}
	}

	if cfg.SlackWebhook != "" && !rc.DryRun {
		sendNotification(cfg, result, runErr, sink)
	}

	if runErr != nil {
		console.FormatError(runErr)
		if errors.Is(runErr, session.ErrNoSessionCookie) {
			os.Exit(ExitAuthError)
		}
		os.Exit(ExitRunError)
	}
	if result.Interrupted {
		os.Exit(ExitInterrupted)
	}
	return nil
}

// sendNotification posts the run summary. It gets its own deadline because the
// run context is already cancelled after an interrupt.
func sendNotification(cfg *config.Config, result *runner.RunResult, runErr error, sink event.Sink) {
	notifyOn, _ := notify.ParseNotifyOn(cfg.NotifyOn) // validated with the config
	manager := notify.NewManager(notifyOn, notify.NewSlackNotifier(cfg.SlackWebhook, notify.WithSlackChannel(cfg.SlackChannel)))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := manager.Notify(ctx, notify.NewRunSummary(cfg.URL, result, runErr)); err != nil {
		event.Warn(sink, "failed to send notification", err)
	}
}

func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create report folder: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create report file: %w", err)
	}
	return f, nil
}

func reportFormat(cfg *config.Config) string {
	if cfg.ReportFormat != "" {
		return strings.ToLower(cfg.ReportFormat)
	}
	if strings.EqualFold(filepath.Ext(cfg.ReportFile), ".xml") {
		return "junit"
	}
	return "json"
}

func newReporter(format string, w io.Writer, url string) Reporter {
	if format == "junit" {
		return output.NewJUnitFormatter(output.JUnitWithWriter(w), output.JUnitWithSuiteName(url))
	}
	return output.NewJSONFormatter(output.JSONWithWriter(w), output.JSONWithURL(url))
}
