package config

import (
	"os"
	"sort"
	"strconv"
)

// EnvVarMapping defines the mapping between environment variables and config paths.
var EnvVarMapping = map[string]string{
	"PLANK_ACTOR_ID":    "actor.id",
	"PLANK_ACTOR_NAME":  "actor.name",
	"PLANK_DB_DRIVER":   "database.driver",
	"PLANK_DB_PATH":     "database.sqlite.path",
	"PLANK_DB_HOST":     "database.postgres.host",
	"PLANK_DB_PORT":     "database.postgres.port",
	"PLANK_DB_NAME":     "database.postgres.database",
	"PLANK_DB_USER":     "database.postgres.user",
	"PLANK_DB_PASSWORD": "database.postgres.password",
	"PLANK_DB_SSL_MODE": "database.postgres.ssl_mode",
	"PLANK_FEED_LIMIT":  "activity.feed_limit",
	"PLANK_HOST":        "server.host",
	"PLANK_PORT":        "server.port",
	"PLANK_LOG_LEVEL":   "logging.level",
	"PLANK_LOG_FORMAT":  "logging.format",
}

// ApplyEnvVars applies environment variable overrides to a TrackedConfig.
// Returns a list of paths that were overridden.
func ApplyEnvVars(tc *TrackedConfig) []string {
	var overridden []string

	for envVar, configPath := range EnvVarMapping {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		if SetValue(tc.Config, configPath, value) {
			tc.SetSource(configPath, SourceEnv)
			overridden = append(overridden, configPath)
		}
	}

	return overridden
}

// SetValue applies a single string value to the config path.
// Returns true if the value was applied; unparseable numbers are ignored.
func SetValue(cfg *Config, path string, value string) bool {
	switch path {
	case "actor.id":
		cfg.Actor.ID = value
	case "actor.name":
		cfg.Actor.Name = value
	case "database.driver":
		cfg.Database.Driver = value
	case "database.sqlite.path":
		cfg.Database.SQLite.Path = value
	case "database.postgres.host":
		cfg.Database.Postgres.Host = value
	case "database.postgres.port":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.Database.Postgres.Port = v
	case "database.postgres.database":
		cfg.Database.Postgres.Database = value
	case "database.postgres.user":
		cfg.Database.Postgres.User = value
	case "database.postgres.password":
		cfg.Database.Postgres.Password = value
	case "database.postgres.ssl_mode":
		cfg.Database.Postgres.SSLMode = value
	case "activity.feed_limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.Activity.FeedLimit = v
	case "server.host":
		cfg.Server.Host = value
	case "server.port":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.Server.Port = v
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.format":
		cfg.Logging.Format = value
	default:
		return false
	}
	return true
}

// AllPaths returns every settable config path, sorted.
func AllPaths() []string {
	paths := make([]string, 0, len(EnvVarMapping))
	for _, p := range EnvVarMapping {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GetValue returns the string form of the value at path.
func GetValue(cfg *Config, path string) (string, bool) {
	switch path {
	case "actor.id":
		return cfg.Actor.ID, true
	case "actor.name":
		return cfg.Actor.Name, true
	case "database.driver":
		return cfg.Database.Driver, true
	case "database.sqlite.path":
		return cfg.Database.SQLite.Path, true
	case "database.postgres.host":
		return cfg.Database.Postgres.Host, true
	case "database.postgres.port":
		return strconv.Itoa(cfg.Database.Postgres.Port), true
	case "database.postgres.database":
		return cfg.Database.Postgres.Database, true
	case "database.postgres.user":
		return cfg.Database.Postgres.User, true
	case "database.postgres.password":
		if cfg.Database.Postgres.Password == "" {
			return "", true
		}
		return "********", true
	case "database.postgres.ssl_mode":
		return cfg.Database.Postgres.SSLMode, true
	case "activity.feed_limit":
		return strconv.Itoa(cfg.Activity.FeedLimit), true
	case "server.host":
		return cfg.Server.Host, true
	case "server.port":
		return strconv.Itoa(cfg.Server.Port), true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.format":
		return cfg.Logging.Format, true
	}
	return "", false
}
