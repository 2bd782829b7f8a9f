package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadWithSources loads configuration for the current directory.
func LoadWithSources() (*TrackedConfig, error) {
	return LoadLayered(".", "")
}

// LoadWithSourcesFrom loads configuration for the given project directory.
func LoadWithSourcesFrom(dir string) (*TrackedConfig, error) {
	return LoadLayered(dir, "")
}

// LoadLayered loads configuration with source tracking.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. User config (~/.plank/config.yaml) - optional
//  3. Project config (<dir>/.plank/config.yaml) - optional
//  4. Explicit file (--config) - must exist when given
//  5. Environment variables (PLANK_*)
func LoadLayered(dir, explicitPath string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, PlankDir, ConfigFileName)
		if _, err := os.Stat(userPath); err == nil {
			if err := mergeFromFile(tc, userPath, SourceUser); err != nil {
				slog.Warn("failed to load user config", "path", userPath, "error", err)
			}
		}
	}

	projectPath := filepath.Join(dir, PlankDir, ConfigFileName)
	if _, err := os.Stat(projectPath); err == nil {
		if err := mergeFromFile(tc, projectPath, SourceProject); err != nil {
			return nil, err // Project config errors are fatal
		}
	}

	if explicitPath != "" {
		if err := mergeFromFile(tc, explicitPath, SourceFile); err != nil {
			return nil, err
		}
	}

	ApplyEnvVars(tc)

	return tc, nil
}

// mergeFromFile merges configuration from a file into tc.
// yaml.v3 leaves fields absent from the document untouched, so decoding onto
// the current config is the merge; the raw map only feeds source tracking.
func mergeFromFile(tc *TrackedConfig, path string, source ConfigSource) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, tc.Config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for _, p := range flattenKeys("", raw) {
		tc.SetSource(p, source)
	}
	return nil
}

// flattenKeys returns dotted paths for every leaf in a decoded YAML map.
func flattenKeys(prefix string, m map[string]any) []string {
	var out []string
	for k, v := range m {
		p := k
		if prefix != "" {
			p = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			out = append(out, flattenKeys(p, child)...)
			continue
		}
		out = append(out, p)
	}
	return out
}
