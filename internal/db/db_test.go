package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/plank/internal/config"
	"github.com/randalmurphal/plank/internal/db/driver"
)

func TestNewTestDB_CreatesCoreTables(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)

	for _, table := range []string{"workspaces", "projects", "tasks", "activities"} {
		var name string
		err := d.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	d := NewTestDB(t)
	require.NoError(t, d.Migrate(context.Background()))
	require.NoError(t, d.Migrate(context.Background()))
}

func TestOpenInMemory_Isolated(t *testing.T) {
	t.Parallel()
	a := NewTestDB(t)
	b := NewTestDB(t)
	ctx := context.Background()

	_, err := a.ExecContext(ctx,
		"INSERT INTO workspaces (id, name, color, owner_id, created_at) VALUES (?, ?, ?, ?, ?)",
		"w-1", "one", "#fff", "u-1", "2026-01-01T00:00:00.000000000Z")
	require.NoError(t, err)

	var n int
	require.NoError(t, b.QueryRowContext(ctx, "SELECT COUNT(*) FROM workspaces").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOpenFromConfig_SQLiteFile(t *testing.T) {
	t.Parallel()
	cfg := config.Default().Database
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "nested", "plank.db")

	d, err := OpenFromConfig(context.Background(), &cfg)
	require.NoError(t, err)
	defer func() { _ = d.Close() }()

	assert.Equal(t, driver.DialectSQLite, d.Dialect())
	assert.Equal(t, cfg.SQLite.Path, d.Path())
	assert.FileExists(t, cfg.SQLite.Path)
}

func TestOpenFromConfig_UnknownDriver(t *testing.T) {
	t.Parallel()
	cfg := config.Default().Database
	cfg.Driver = "mysql"

	_, err := OpenFromConfig(context.Background(), &cfg)
	assert.Error(t, err)
}
