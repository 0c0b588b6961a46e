package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/promptworkbench/wbtest/internal/logging"
	"github.com/promptworkbench/wbtest/internal/probe"
	"github.com/promptworkbench/wbtest/internal/server"
	"github.com/promptworkbench/wbtest/internal/suite"
)

// EnvVarPrefix prefixes every environment variable wbtest reads.
const EnvVarPrefix = "WBTEST"

func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

// Global flags.
var (
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Value:   "warn",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Diagnostic log level: debug, info, warn or error",
	}
	LogFormatFlag = &cli.StringFlag{
		Name:    "log-format",
		Value:   logging.FormatPretty,
		EnvVars: prefixEnvVar("LOG_FORMAT"),
		Usage:   "Diagnostic log format: pretty or json",
	}
	LogFileFlag = &cli.StringFlag{
		Name:    "log-file",
		EnvVars: prefixEnvVar("LOG_FILE"),
		Usage:   "Write JSON diagnostic logs to this file instead of stderr",
	}
	QuietFlag = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		EnvVars: prefixEnvVar("QUIET"),
		Usage:   "Suppress progress narration",
	}
)

// run flags.
var (
	SuiteFlag = &cli.StringFlag{
		Name:    "suite",
		Aliases: []string{"f"},
		EnvVars: prefixEnvVar("SUITE"),
		Usage:   "Suite file (default: " + suite.DefaultFile + " if present, else the built-in suite)",
	}
	BaseURLFlag = &cli.StringFlag{
		Name:    "base-url",
		EnvVars: prefixEnvVar("BASE_URL"),
		Usage:   "URL of the application under test",
	}
	ReportDirFlag = &cli.StringFlag{
		Name:    "report-dir",
		EnvVars: prefixEnvVar("REPORT_DIR"),
		Usage:   "Directory for test_report_*.json",
	}
	ScreenshotDirFlag = &cli.StringFlag{
		Name:    "screenshot-dir",
		EnvVars: prefixEnvVar("SCREENSHOT_DIR"),
		Usage:   "Directory for probe screenshots",
	}
	DelayFlag = &cli.StringFlag{
		Name:    "delay",
		EnvVars: prefixEnvVar("DELAY"),
		Usage:   "Pause between tests (e.g. '3s' or '3')",
	}
)

// probe flags.
var (
	HeadlessFlag = &cli.BoolFlag{
		Name:  "headless",
		Usage: "Run the browser headless (default: per probe, or " + EnvVarPrefix + "_HEADLESS)",
	}
	SelectorsFlag = &cli.StringFlag{
		Name:    "selectors",
		EnvVars: prefixEnvVar("SELECTORS"),
		Usage:   "YAML file overriding UI selector candidates",
	}
	LoadTimeoutFlag = &cli.DurationFlag{
		Name:    "load-timeout",
		Value:   probe.DefaultLoadTimeout,
		EnvVars: prefixEnvVar("LOAD_TIMEOUT"),
		Usage:   "Bound on the network-idle wait after navigation",
	}
)

// with-server flags.
var (
	ServerCommandFlag = &cli.StringFlag{
		Name:     "server",
		Required: true,
		Usage:    "Shell command that starts the application",
	}
	PortFlag = &cli.IntFlag{
		Name:  "port",
		Value: suite.DefaultServerPort,
		Usage: "Port the application listens on",
	}
	HostFlag = &cli.StringFlag{
		Name:  "host",
		Value: server.DefaultHost,
		Usage: "Host to poll for the application port",
	}
	ServerTimeoutFlag = &cli.StringFlag{
		Name:  "timeout",
		Value: "45",
		Usage: "How long to wait for the port (seconds or a duration)",
	}
	GraceFlag = &cli.DurationFlag{
		Name:  "grace",
		Value: server.DefaultGrace,
		Usage: "Time the application gets to exit after SIGTERM",
	}
	ServerOutputFlag = &cli.BoolFlag{
		Name:  "server-output",
		Usage: "Forward the application's output to stderr",
	}
)
