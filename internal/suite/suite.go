// Package suite loads and validates the ordered list of probe invocations
// that `wbtest run` executes.
package suite

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the suite file looked up in the working directory when
// no --suite flag is given.
const DefaultFile = "wbtest.yaml"

// Suite is the parsed suite file.
type Suite struct {
	BaseURL       string            `yaml:"base_url,omitempty"`
	WorkDir       string            `yaml:"work_dir,omitempty"`
	ReportDir     string            `yaml:"report_dir,omitempty"`
	ScreenshotDir string            `yaml:"screenshot_dir,omitempty"`
	Delay         *Duration         `yaml:"delay,omitempty"`
	Server        ServerConfig      `yaml:"server,omitempty"`
	Vars          map[string]string `yaml:"vars,omitempty"`
	Tests         []TestConfig      `yaml:"tests"`
	Artifacts     *ArtifactsConfig  `yaml:"artifacts,omitempty"`
	Metrics       *MetricsConfig    `yaml:"metrics,omitempty"`

	// Path is the file the suite was loaded from; empty for the built-in suite.
	Path string `yaml:"-"`
}

// ServerConfig describes the application server probes run against.
type ServerConfig struct {
	Command string   `yaml:"command,omitempty"`
	Port    int      `yaml:"port,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// TestConfig is one entry of the tests list. Exactly one of Command and
// Probe is set; a Probe entry expands to the standard with-server
// invocation of that probe.
type TestConfig struct {
	Name    string   `yaml:"name,omitempty"`
	Command string   `yaml:"command,omitempty"`
	Probe   string   `yaml:"probe,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// ArtifactsConfig enables uploading run artifacts.
type ArtifactsConfig struct {
	S3 *S3Config `yaml:"s3,omitempty"`
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Resolve returns p unchanged when absolute, otherwise joined to the
// suite's working directory.
func (s *Suite) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.WorkDir, p)
}

// DelayDuration returns the inter-test delay.
func (s *Suite) DelayDuration() time.Duration {
	if s.Delay == nil {
		return DefaultDelay
	}
	return s.Delay.Std()
}

// Duration is a time.Duration that unmarshals from either a Go duration
// string ("45s", "1m30s") or an integer number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if value.Tag == "!!int" {
		secs, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration accepts a Go duration string or a bare integer number of
// seconds, the same forms the suite file accepts.
func ParseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
