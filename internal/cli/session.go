package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/plank/internal/config"
	"github.com/randalmurphal/plank/internal/db"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
	"github.com/randalmurphal/plank/internal/store"
)

// session is an opened database with a store loaded for the configured actor.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *db.DB
	store  *store.Store
}

// openSession loads config, connects to the database and loads the mirror.
// With requireActor unset a missing actor leaves the store logged out.
func (a *app) openSession(cmd *cobra.Command, requireActor bool) (*session, error) {
	tc, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg := tc.Config
	if requireActor && cfg.Actor.ID == "" {
		return nil, plankerrors.ErrNoActor()
	}

	logger, err := newLogger(cfg.Logging, a.stderr, a.verbose || a.serving)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.OpenFromConfig(ctx, &cfg.Database)
	if err != nil {
		return nil, plankerrors.ErrUnavailable("open database", err)
	}

	st := store.New(gateway.New(database, gateway.WithLogger(logger)),
		store.WithLogger(logger),
		store.WithFeedLimit(cfg.Activity.FeedLimit),
	)
	s := &session{cfg: cfg, logger: logger, db: database, store: st}

	if cfg.Actor.ID != "" {
		actor := &schema.Actor{ID: cfg.Actor.ID, Name: cfg.Actor.Name}
		if err := st.SetActor(ctx, actor); err != nil {
			s.Close()
			return nil, fmt.Errorf("load data for %s: %w", actor.ID, err)
		}
	}
	return s, nil
}

// Close releases the store and the database.
func (s *session) Close() {
	s.store.Close()
	_ = s.db.Close()
}

// newLogger builds the slog handler described by cfg. One-shot commands
// stay at warn unless --verbose is given so store chatter does not mix
// with command output.
func newLogger(cfg config.LoggingConfig, w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, plankerrors.ErrConfigInvalid("logging.level", err.Error())
	}
	if !verbose && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
