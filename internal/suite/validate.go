package suite

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a suite validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a suite with defaults applied and returns warnings for
// non-fatal issues.
func Validate(s *Suite) (warnings []string, err error) {
	if err := validateBaseURL(s.BaseURL); err != nil {
		return nil, err
	}
	if s.Delay != nil && *s.Delay < 0 {
		return nil, &ValidationError{Field: "delay", Message: "must not be negative"}
	}
	if err := validateServer(s.Server); err != nil {
		return nil, err
	}
	if err := validateOutputs(s); err != nil {
		return nil, err
	}
	return validateTests(s)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "base_url", Message: fmt.Sprintf("must be an absolute http(s) URL, got %q", raw)}
	}
	return nil
}

func validateServer(srv ServerConfig) error {
	if srv.Port < 1 || srv.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if srv.Timeout <= 0 {
		return &ValidationError{Field: "server.timeout", Message: "must be positive"}
	}
	return nil
}

func validateOutputs(s *Suite) error {
	if s.Artifacts != nil && s.Artifacts.S3 != nil && s.Artifacts.S3.Bucket == "" {
		return &ValidationError{Field: "artifacts.s3.bucket", Message: "is required"}
	}
	if s.Metrics != nil && s.Metrics.Textfile == "" {
		return &ValidationError{Field: "metrics.textfile", Message: "is required"}
	}
	return nil
}

func validateTests(s *Suite) ([]string, error) {
	if len(s.Tests) == 0 {
		return nil, &ValidationError{Field: "tests", Message: "must contain at least one test"}
	}

	var warnings []string
	seen := make(map[string]bool, len(s.Tests))
	for i, tc := range s.Tests {
		field := fmt.Sprintf("tests[%d]", i)

		if strings.TrimSpace(tc.Name) == "" {
			return nil, &ValidationError{Field: field + ".name", Message: "is required"}
		}
		if seen[tc.Name] {
			return nil, &ValidationError{Field: field + ".name", Message: fmt.Sprintf("duplicate test name %q", tc.Name)}
		}
		seen[tc.Name] = true

		switch {
		case tc.Command == "" && tc.Probe == "":
			return nil, &ValidationError{Field: field, Message: "one of command or probe is required"}
		case tc.Command != "" && tc.Probe != "":
			return nil, &ValidationError{Field: field, Message: "command and probe are mutually exclusive"}
		case tc.Probe != "" && !slices.Contains(ProbeNames, tc.Probe):
			return nil, &ValidationError{
				Field:   field + ".probe",
				Message: fmt.Sprintf("unknown probe %q (known: %s)", tc.Probe, strings.Join(ProbeNames, ", ")),
			}
		}

		if tc.Timeout <= 0 {
			return nil, &ValidationError{Field: field + ".timeout", Message: "must be positive"}
		}
		if tc.Probe != "" && tc.Timeout.Std() <= s.Server.Timeout.Std() {
			warnings = append(warnings, fmt.Sprintf(
				"test %q timeout (%s) does not exceed the server startup timeout (%s)",
				tc.Name, tc.Timeout.Std(), s.Server.Timeout.Std()))
		}
	}
	return warnings, nil
}
