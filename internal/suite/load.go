package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/promptworkbench/wbtest/internal/schema"
)

// Load reads a suite file, validates it against the embedded schema,
// applies defaults and runs semantic validation. Non-fatal findings are
// returned as warnings.
func Load(path string) (*Suite, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	s, warnings, err := Parse(data)
	if err != nil {
		return nil, warnings, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to resolve suite path: %w", err)
	}
	s.Path = abs
	dir := filepath.Dir(abs)
	switch {
	case s.WorkDir == "":
		s.WorkDir = dir
	case !filepath.IsAbs(s.WorkDir):
		s.WorkDir = filepath.Join(dir, s.WorkDir)
	}

	return s, warnings, nil
}

// Parse decodes and validates suite YAML. Relative directories are left
// for the caller to anchor.
func Parse(data []byte) (*Suite, []string, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse suite file: %w", err)
	}

	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert suite file for validation: %w", err)
	}
	if err := schema.ValidateSuite(doc); err != nil {
		return nil, nil, err
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, nil, fmt.Errorf("failed to parse suite file: %w", err)
	}

	warnings := detectUnknownFields(raw)

	applyDefaults(&s)

	validationWarnings, err := Validate(&s)
	warnings = append(warnings, validationWarnings...)
	if err != nil {
		return nil, warnings, err
	}

	return &s, warnings, nil
}

// detectUnknownFields reports top-level keys the Suite type does not know.
// Nested objects are closed by the schema, so only the root can carry them.
func detectUnknownFields(raw interface{}) []string {
	root, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}

	known := getYAMLFields(reflect.TypeOf(Suite{}))
	var warnings []string
	for key := range root {
		if key == "$schema" {
			continue
		}
		if !known[key] {
			warnings = append(warnings, fmt.Sprintf("unknown field %q at root level (ignored)", key))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// getYAMLFields returns the set of YAML field names for a struct type.
func getYAMLFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		if name := strings.Split(tag, ",")[0]; name != "" {
			fields[name] = true
		}
	}
	return fields
}
