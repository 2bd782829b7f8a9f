package config

import "sort"

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates a built-in default value.
	SourceDefault ConfigSource = "default"
	// SourceUser indicates user config (~/.plank/config.yaml).
	SourceUser ConfigSource = "user"
	// SourceProject indicates project config (.plank/config.yaml).
	SourceProject ConfigSource = "project"
	// SourceFile indicates an explicitly named config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates an environment variable override.
	SourceEnv ConfigSource = "env"
	// SourceFlag indicates a CLI flag override.
	SourceFlag ConfigSource = "flag"
)

// TrackedConfig wraps Config with per-path source tracking.
type TrackedConfig struct {
	Config  *Config
	sources map[string]ConfigSource
}

// NewTrackedConfig creates a tracked config seeded with defaults.
func NewTrackedConfig() *TrackedConfig {
	return &TrackedConfig{
		Config:  Default(),
		sources: make(map[string]ConfigSource),
	}
}

// SetSource records the source of a config path.
func (tc *TrackedConfig) SetSource(path string, source ConfigSource) {
	tc.sources[path] = source
}

// GetSource returns where a config path was set; defaults when never overridden.
func (tc *TrackedConfig) GetSource(path string) ConfigSource {
	if s, ok := tc.sources[path]; ok {
		return s
	}
	return SourceDefault
}

// OverriddenPaths returns the sorted list of paths not at their default.
func (tc *TrackedConfig) OverriddenPaths() []string {
	paths := make([]string, 0, len(tc.sources))
	for p, s := range tc.sources {
		if s != SourceDefault {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
