// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads the YAML file at filename into target with environment
// variable expansion, applies overrides in order and validates the result.
// A missing file is an error only when required is set; otherwise target
// keeps its defaults.
func Load[T any](filename string, required bool, target *T, overrides ...func(*T)) error {
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
	case errors.Is(err, os.ErrNotExist) && !required:
	default:
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	for _, o := range overrides {
		o(target)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
