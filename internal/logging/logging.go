// Package logging builds the zap logger used for diagnostic output.
//
// Console narration (markers, summaries) goes through internal/output.
// This logger carries the structured side: command lines, pids, exit
// codes, port polling and uploads.
package logging

import (
	"fmt"
	"strings"

	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// Config selects level, encoding and destination.
type Config struct {
	Level  string // debug, info, warn, error (default warn)
	Format string // pretty or json (default pretty)
	File   string // optional path; JSON logs are written there instead of stderr
}

// New builds a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(cfg.Format)
	if cfg.File != "" {
		format = FormatJSON
	}

	switch format {
	case "", FormatPretty:
		return prettyconsole.NewLogger(level), nil
	case FormatJSON:
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if cfg.File != "" {
			zcfg.OutputPaths = []string{cfg.File}
			zcfg.ErrorOutputPaths = []string{cfg.File}
		}
		logger, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		return logger, nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %q or %q)", cfg.Format, FormatPretty, FormatJSON)
	}
}

// ParseLevel maps a level name to a zap level. Empty means warn.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zap.WarnLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zap.WarnLevel, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
