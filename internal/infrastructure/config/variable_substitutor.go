package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/plumbline-dev/plumbline/internal/application/dto"
)

// Variable pattern: {{ .vars.key }}
var varPattern = regexp.MustCompile(`\{\{\s*\.vars\.([a-zA-Z0-9_.]+)\s*\}\}`)

// Environment pattern: {{ env "NAME" }}
var envPattern = regexp.MustCompile(`\{\{\s*env\s+"([a-zA-Z0-9_]+)"\s*\}\}`)

// VariableSubstitutor performs variable substitution in run manifests.
type VariableSubstitutor struct {
	lookupEnv func(string) (string, bool)
}

// NewVariableSubstitutor creates a new variable substitutor.
func NewVariableSubstitutor() *VariableSubstitutor {
	return &VariableSubstitutor{lookupEnv: os.LookupEnv}
}

// Substitute replaces {{ .vars.key }} patterns in the manifest's string
// fields with values from its vars map, and {{ env "NAME" }} with
// environment variables. Nested paths like {{ .vars.paths.renders }} are
// supported. A reference to a missing variable is an error.
// Modifies the manifest in place.
func (s *VariableSubstitutor) Substitute(m *dto.RunManifest) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"run_id", &m.RunID},
		{"state", &m.State},
		{"lock", &m.Lock},
		{"artifacts", &m.Artifacts},
		{"built", &m.Built},
		{"baseline", &m.Baseline},
		{"baseline_artifacts", &m.BaselineArtifacts},
	}
	for _, f := range fields {
		substituted, err := s.substituteInString(*f.value, m.Vars)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = substituted
	}

	for i := range m.Assets {
		asset := &m.Assets[i]
		var err error
		if asset.Path, err = s.substituteInString(asset.Path, m.Vars); err != nil {
			return fmt.Errorf("assets[%d].path: %w", i, err)
		}
		if asset.Name, err = s.substituteInString(asset.Name, m.Vars); err != nil {
			return fmt.Errorf("assets[%d].name: %w", i, err)
		}
	}

	return nil
}

// substituteInString replaces patterns with values.
func (s *VariableSubstitutor) substituteInString(str string, vars map[string]any) (string, error) {
	var lastErr error

	// 1. Substitute variables: {{ .vars.key }}
	result := varPattern.ReplaceAllStringFunc(str, func(match string) string {
		submatches := varPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			lastErr = fmt.Errorf("invalid variable pattern: %s", match)
			return match
		}

		value, err := lookupVar(vars, submatches[1])
		if err != nil {
			lastErr = err
			return match
		}
		return fmt.Sprintf("%v", value)
	})
	if lastErr != nil {
		return "", lastErr
	}

	// 2. Substitute environment: {{ env "NAME" }}
	result = envPattern.ReplaceAllStringFunc(result, func(match string) string {
		submatches := envPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			lastErr = fmt.Errorf("invalid env pattern: %s", match)
			return match
		}
		value, ok := s.lookupEnv(submatches[1])
		if !ok {
			lastErr = fmt.Errorf("environment variable not set: %s", submatches[1])
			return match
		}
		return value
	})
	if lastErr != nil {
		return "", lastErr
	}

	return result, nil
}

// lookupVar looks up a variable value by path (e.g., "paths.renders").
// Supports nested paths using dot notation.
func lookupVar(vars map[string]any, path string) (any, error) {
	parts := strings.Split(path, ".")
	current := any(vars)

	for i, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("variable path %s: cannot access %s (not a map)", path, strings.Join(parts[:i+1], "."))
		}

		value, exists := m[part]
		if !exists {
			return nil, fmt.Errorf("variable not found: %s", path)
		}
		current = value
	}

	switch v := current.(type) {
	case string, int, int64, uint64, float64, bool:
		return v, nil
	default:
		val := reflect.ValueOf(v)
		switch val.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return val.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return val.Uint(), nil
		case reflect.Float32:
			return val.Float(), nil
		}
		return v, nil
	}
}
