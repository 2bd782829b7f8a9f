package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/randalmurphal/plank/internal/config"
	"github.com/randalmurphal/plank/internal/db"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

// InitOptions configures project initialization.
type InitOptions struct {
	// WorkDir is the directory to initialize (default: current directory).
	WorkDir string

	// Force overwrites an existing configuration.
	Force bool

	// ActorID and ActorName are written to the project config when set.
	ActorID   string
	ActorName string

	// Logger receives non-fatal warnings. Defaults to slog.Default.
	Logger *slog.Logger
}

// InitResult describes what Init created.
type InitResult struct {
	Duration     time.Duration
	ConfigPath   string
	DatabasePath string
}

// Init creates .plank/config.yaml in WorkDir, creates and migrates the
// SQLite database it points at, and ignores the database files in git.
// Workspaces are not created here; the first load for an actor does that.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		opts.WorkDir = wd
	}
	absPath, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	plankDir := filepath.Join(absPath, config.PlankDir)
	configPath := filepath.Join(plankDir, config.ConfigFileName)
	if !opts.Force {
		if _, err := os.Stat(configPath); err == nil {
			return nil, plankerrors.ErrInvalidInput("workdir",
				fmt.Sprintf("plank already initialized in %s (use --force to reinitialize)", absPath))
		}
	}
	if err := os.MkdirAll(plankDir, 0755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", plankDir, err)
	}

	cfg := config.Default()
	cfg.Actor.ID = opts.ActorID
	cfg.Actor.Name = opts.ActorName
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.SaveTo(configPath); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	// The stored path is relative to the project; open it from here.
	dbCfg := cfg.Database
	if !filepath.IsAbs(dbCfg.SQLite.Path) {
		dbCfg.SQLite.Path = filepath.Join(absPath, dbCfg.SQLite.Path)
	}
	database, err := db.OpenFromConfig(ctx, &dbCfg)
	if err != nil {
		return nil, plankerrors.ErrUnavailable("create database", err)
	}
	defer database.Close()

	if err := updateGitignore(absPath); err != nil {
		logger.Warn("could not update .gitignore", "error", err)
	}

	return &InitResult{
		Duration:     time.Since(start),
		ConfigPath:   configPath,
		DatabasePath: database.Path(),
	}, nil
}
