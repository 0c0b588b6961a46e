package suite

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default suite values.
const (
	DefaultBaseURL       = "http://localhost:3000"
	DefaultScreenshotDir = "testing/screenshots"
	DefaultReportDir     = "."
	DefaultDelay         = 3 * time.Second
	DefaultTestTimeout   = 300 * time.Second
	DefaultServerCommand = "cd .. && npm run dev"
	DefaultServerPort    = 3000
	DefaultServerTimeout = 45 * time.Second
)

// Probe identifiers accepted by `wbtest probe` and by `probe:` test entries.
const (
	ProbeDiscovery         = "discovery"
	ProbeProjectManagement = "project-management"
	ProbeVersionControl    = "version-control"
)

// ProbeNames lists the known probes in their canonical run order.
var ProbeNames = []string{ProbeDiscovery, ProbeProjectManagement, ProbeVersionControl}

// Builtin returns the suite used when no suite file exists: the three
// probes, each behind the with-server helper.
func Builtin() *Suite {
	s := &Suite{
		Tests: []TestConfig{
			{Name: "Element Discovery", Probe: ProbeDiscovery, Timeout: Duration(120 * time.Second)},
			{Name: "Project Management", Probe: ProbeProjectManagement, Timeout: Duration(180 * time.Second)},
			{Name: "Version Control", Probe: ProbeVersionControl, Timeout: Duration(180 * time.Second)},
		},
	}
	applyDefaults(s)
	return s
}

// applyDefaults fills in default values for unset suite fields.
func applyDefaults(s *Suite) {
	if s.BaseURL == "" {
		s.BaseURL = DefaultBaseURL
	}
	if s.ReportDir == "" {
		s.ReportDir = DefaultReportDir
	}
	if s.ScreenshotDir == "" {
		s.ScreenshotDir = DefaultScreenshotDir
	}
	if s.Delay == nil {
		d := Duration(DefaultDelay)
		s.Delay = &d
	}
	applyServerDefaults(&s.Server)
	for i := range s.Tests {
		applyTestDefaults(&s.Tests[i])
	}
}

func applyServerDefaults(srv *ServerConfig) {
	if srv.Command == "" {
		srv.Command = DefaultServerCommand
	}
	if srv.Port == 0 {
		srv.Port = DefaultServerPort
	}
	if srv.Timeout == 0 {
		srv.Timeout = Duration(DefaultServerTimeout)
	}
}

func applyTestDefaults(tc *TestConfig) {
	if tc.Timeout == 0 {
		tc.Timeout = Duration(DefaultTestTimeout)
	}
	if tc.Name == "" && tc.Probe != "" {
		tc.Name = DisplayName(tc.Probe)
	}
}

// DisplayName turns a probe id into a test name: "version-control"
// becomes "Version Control".
func DisplayName(probe string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(probe, "-", " "))
}

// Overrides carries command-line and environment overrides applied on
// top of a loaded suite. Empty fields leave the suite value unchanged.
type Overrides struct {
	BaseURL       string
	ReportDir     string
	ScreenshotDir string
	Delay         *time.Duration
}

// Apply merges non-empty overrides into the suite.
func (s *Suite) Apply(o Overrides) {
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.ReportDir != "" {
		s.ReportDir = o.ReportDir
	}
	if o.ScreenshotDir != "" {
		s.ScreenshotDir = o.ScreenshotDir
	}
	if o.Delay != nil {
		d := Duration(*o.Delay)
		s.Delay = &d
	}
}
