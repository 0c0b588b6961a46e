package suite

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/promptworkbench/wbtest/internal/runner"
)

// varPattern matches variable references in the format ${name}.
var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// escapePlaceholder stands in for "$${" while variables are substituted so
// escaped references survive as literal "${".
const escapePlaceholder = "\x00ESCAPED\x00"

// Variables returns the interpolation variables for commands. self is the
// absolute path of the running wbtest binary. User vars override built-ins.
func (s *Suite) Variables(self string) map[string]string {
	vars := map[string]string{
		"self":           self,
		"base_url":       s.BaseURL,
		"server_command": s.Server.Command,
		"server_port":    strconv.Itoa(s.Server.Port),
		"server_timeout": strconv.Itoa(int(math.Ceil(s.Server.Timeout.Std().Seconds()))),
		"screenshot_dir": s.ScreenshotDir,
	}
	for k, v := range s.Vars {
		vars[k] = v
	}
	return vars
}

// Specs resolves the suite into the ordered test specifications the runner
// executes.
func (s *Suite) Specs(self string) []runner.TestSpec {
	vars := s.Variables(self)
	specs := make([]runner.TestSpec, 0, len(s.Tests))
	for _, tc := range s.Tests {
		cmd := tc.Command
		if tc.Probe != "" {
			cmd = probeCommand(tc.Probe, vars)
		} else {
			cmd = interpolate(cmd, vars)
		}
		specs = append(specs, runner.TestSpec{
			Name:    tc.Name,
			Command: cmd,
			Timeout: tc.Timeout.Std(),
		})
	}
	return specs
}

// probeCommand builds the with-server invocation of a probe.
func probeCommand(probe string, vars map[string]string) string {
	self := shellQuote(vars["self"])
	return strings.Join([]string{
		self, "with-server",
		"--server", shellQuote(vars["server_command"]),
		"--port", vars["server_port"],
		"--timeout", vars["server_timeout"],
		"--",
		self, "probe",
		"--base-url", shellQuote(vars["base_url"]),
		"--screenshot-dir", shellQuote(vars["screenshot_dir"]),
		probe,
	}, " ")
}

// interpolate replaces ${name} with variable values. Unknown variables are
// kept as-is; $${name} yields a literal ${name}.
func interpolate(cmd string, vars map[string]string) string {
	result := strings.ReplaceAll(cmd, "$${", escapePlaceholder)

	result = varPattern.ReplaceAllStringFunc(result, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})

	return strings.ReplaceAll(result, escapePlaceholder, "${")
}

// shellQuote wraps s in single quotes for sh -c.
func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]#~!{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
