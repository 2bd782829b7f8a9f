package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoadWithSources_DefaultsOnly(t *testing.T) {
	tmpDir := t.TempDir()

	// Use empty home to avoid picking up real user config
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))

	tc, err := LoadWithSourcesFrom(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", tc.Config.Database.Driver)
	assert.Equal(t, SourceDefault, tc.GetSource("database.driver"))
	assert.Empty(t, tc.OverriddenPaths())
}

func TestLoadWithSources_ProjectOverridesUser(t *testing.T) {
	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, "home")
	t.Setenv("HOME", home)

	writeConfig(t, filepath.Join(home, ".plank", "config.yaml"), `
actor:
  id: user-home
  name: Home User
logging:
  level: debug
`)
	writeConfig(t, filepath.Join(tmpDir, ".plank", "config.yaml"), `
actor:
  id: user-project
activity:
  feed_limit: 20
`)

	tc, err := LoadWithSourcesFrom(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "user-project", tc.Config.Actor.ID)
	assert.Equal(t, "Home User", tc.Config.Actor.Name, "fields absent from project config keep the user value")
	assert.Equal(t, 20, tc.Config.Activity.FeedLimit)
	assert.Equal(t, "debug", tc.Config.Logging.Level)
	assert.Equal(t, "localhost", tc.Config.Server.Host, "untouched defaults survive")

	assert.Equal(t, SourceProject, tc.GetSource("actor.id"))
	assert.Equal(t, SourceUser, tc.GetSource("actor.name"))
	assert.Equal(t, SourceUser, tc.GetSource("logging.level"))
	assert.Equal(t, SourceDefault, tc.GetSource("server.host"))
}

func TestLoadWithSources_EnvWins(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))
	writeConfig(t, filepath.Join(tmpDir, ".plank", "config.yaml"), "server:\n  port: 9000\n")

	t.Setenv("PLANK_PORT", "9100")
	t.Setenv("PLANK_DB_DRIVER", "postgres")

	tc, err := LoadWithSourcesFrom(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 9100, tc.Config.Server.Port)
	assert.Equal(t, "postgres", tc.Config.Database.Driver)
	assert.Equal(t, SourceEnv, tc.GetSource("server.port"))
	assert.Equal(t, []string{"database.driver", "server.port"}, tc.OverriddenPaths())
}

func TestLoadLayered_ExplicitFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))
	explicit := filepath.Join(tmpDir, "custom.yaml")
	writeConfig(t, explicit, "database:\n  sqlite:\n    path: /tmp/custom.db\n")

	tc, err := LoadLayered(tmpDir, explicit)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", tc.Config.Database.SQLite.Path)
	assert.Equal(t, SourceFile, tc.GetSource("database.sqlite.path"))

	_, err = LoadLayered(tmpDir, filepath.Join(tmpDir, "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestLoadWithSources_InvalidProjectConfigIsFatal(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "nonexistent"))
	writeConfig(t, filepath.Join(tmpDir, ".plank", "config.yaml"), "actor: [not, a, map")

	_, err := LoadWithSourcesFrom(tmpDir)
	assert.Error(t, err)
}

func TestSetValue_IgnoresBadNumbers(t *testing.T) {
	cfg := Default()
	assert.False(t, SetValue(cfg, "server.port", "eighty"))
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, SetValue(cfg, "no.such.path", "x"))
	assert.True(t, SetValue(cfg, "activity.feed_limit", "5"))
	assert.Equal(t, 5, cfg.Activity.FeedLimit)
}

func TestGetValue_RoundTripsSetValue(t *testing.T) {
	cfg := Default()
	for _, path := range AllPaths() {
		if path == "database.postgres.password" {
			continue
		}
		_, ok := GetValue(cfg, path)
		assert.True(t, ok, path)
	}

	require.True(t, SetValue(cfg, "server.port", "9090"))
	v, ok := GetValue(cfg, "server.port")
	require.True(t, ok)
	assert.Equal(t, "9090", v)

	_, ok = GetValue(cfg, "no.such.path")
	assert.False(t, ok)
}

func TestGetValue_MasksPassword(t *testing.T) {
	cfg := Default()
	v, _ := GetValue(cfg, "database.postgres.password")
	assert.Empty(t, v)

	SetValue(cfg, "database.postgres.password", "hunter2")
	v, _ = GetValue(cfg, "database.postgres.password")
	assert.Equal(t, "********", v)
}
