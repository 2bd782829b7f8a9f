// Package bootstrap guarantees that an actor owns at least one workspace
// before the store loads projects.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

// Result is the outcome of Ensure.
type Result struct {
	// Workspaces owned by the actor, oldest first. Never empty on success.
	Workspaces []schema.Workspace
	// Created is true when Ensure inserted the default workspace.
	Created bool
}

// Bootstrapper creates the default workspace for actors that have none.
type Bootstrapper struct {
	table  gateway.Table[schema.WorkspaceRow]
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	group  singleflight.Group
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bootstrapper) {
		b.logger = logger
	}
}

// WithClock sets the time source for created_at.
func WithClock(now func() time.Time) Option {
	return func(b *Bootstrapper) {
		b.now = now
	}
}

// WithIDGenerator sets the workspace id source.
func WithIDGenerator(newID func() string) Option {
	return func(b *Bootstrapper) {
		b.newID = newID
	}
}

// New creates a Bootstrapper over the workspaces table.
func New(table gateway.Table[schema.WorkspaceRow], opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		table:  table,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WorkspaceName is the name of the workspace created for actor.
func WorkspaceName(actor schema.Actor) string {
	return fmt.Sprintf("%s's Workspace", actor.DisplayName())
}

// Ensure returns the actor's workspaces, inserting exactly one default
// workspace when the actor owns none. Concurrent calls for the same actor
// share one round of remote calls.
func (b *Bootstrapper) Ensure(ctx context.Context, actor schema.Actor) (Result, error) {
	if actor.ID == "" {
		return Result{}, plankerrors.ErrNoActor()
	}
	v, err, _ := b.group.Do(actor.ID, func() (any, error) {
		return b.ensure(ctx, actor)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	// Each caller gets its own slice.
	res.Workspaces = append([]schema.Workspace{}, res.Workspaces...)
	return res, nil
}

func (b *Bootstrapper) ensure(ctx context.Context, actor schema.Actor) (Result, error) {
	rows, err := b.table.Select(ctx, gateway.Where("owner_id", actor.ID).Order("created_at", false))
	if err != nil {
		return Result{}, fmt.Errorf("load workspaces: %w", err)
	}
	if len(rows) > 0 {
		ws := make([]schema.Workspace, len(rows))
		for i, r := range rows {
			ws[i] = schema.WorkspaceToDomain(r)
		}
		return Result{Workspaces: ws}, nil
	}

	w := schema.Workspace{
		ID:    b.newID(),
		Name:  WorkspaceName(actor),
		Color: schema.DefaultColor,
	}
	row, err := b.table.Insert(ctx, schema.WorkspaceToStorage(w, actor.ID, b.now()))
	if err != nil {
		return Result{}, fmt.Errorf("create default workspace: %w", err)
	}
	b.logger.Info("created default workspace", "actor", actor.ID, "workspace", row.ID)
	return Result{Workspaces: []schema.Workspace{schema.WorkspaceToDomain(row)}, Created: true}, nil
}
