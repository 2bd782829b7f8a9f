// Package gateway is the remote persistence boundary. It exposes one Table
// per entity and converts every driver failure into a typed error; it holds
// no cache and never retries.
package gateway

import (
	"log/slog"

	"github.com/randalmurphal/plank/internal/db"
	"github.com/randalmurphal/plank/internal/schema"
)

// Gateway groups the entity tables. Fields are interfaces so callers and
// tests can wrap individual tables.
type Gateway struct {
	Workspaces Table[schema.WorkspaceRow]
	Projects   Table[schema.ProjectRow]
	Tasks      Table[schema.TaskRow]
	Activities Table[schema.ActivityRow]
}

// Option configures a Gateway.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for per-call debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New returns a gateway backed by d. d must already be migrated.
func New(d *db.DB, opts ...Option) *Gateway {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "gateway")

	return &Gateway{
		Workspaces: newSQLTable(d, rowCodec[schema.WorkspaceRow]{
			table:   "workspaces",
			columns: schema.WorkspaceColumns,
			values:  schema.WorkspaceRow.Values,
			targets: (*schema.WorkspaceRow).Targets,
		}, logger),
		Projects: newSQLTable(d, rowCodec[schema.ProjectRow]{
			table:   "projects",
			columns: schema.ProjectColumns,
			values:  schema.ProjectRow.Values,
			targets: (*schema.ProjectRow).Targets,
		}, logger),
		Tasks: newSQLTable(d, rowCodec[schema.TaskRow]{
			table:   "tasks",
			columns: schema.TaskColumns,
			values:  schema.TaskRow.Values,
			targets: (*schema.TaskRow).Targets,
		}, logger),
		Activities: newSQLTable(d, rowCodec[schema.ActivityRow]{
			table:   "activities",
			columns: schema.ActivityColumns,
			values:  schema.ActivityRow.Values,
			targets: (*schema.ActivityRow).Targets,
		}, logger),
	}
}
