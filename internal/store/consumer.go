package store

import (
	"context"

	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/schema"
)

// Consumer is everything UI collaborators may use. Transports and the CLI
// depend on this interface, never on the gateway.
type Consumer interface {
	Snapshot() Snapshot
	Subscribe() (<-chan events.Event, func())
	SetCurrentProject(id string) error

	CreateProject(ctx context.Context, in schema.ProjectInput) (schema.Project, error)
	UpdateProject(ctx context.Context, id string, patch schema.ProjectPatch) (schema.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (schema.Project, error)

	CreateTask(ctx context.Context, in schema.TaskInput) (schema.Task, error)
	UpdateTask(ctx context.Context, id string, patch schema.TaskPatch) (schema.Task, error)
	DeleteTask(ctx context.Context, id string) error

	AddMilestone(ctx context.Context, in schema.MilestoneInput) (schema.Milestone, error)
	UpdateMilestone(ctx context.Context, id string, patch schema.MilestonePatch) (schema.Milestone, error)
	DeleteMilestone(ctx context.Context, id string) error
	ToggleMilestone(ctx context.Context, id string) (schema.Milestone, error)

	AddSubtask(ctx context.Context, in schema.SubtaskInput) (schema.Subtask, error)
	UpdateSubtask(ctx context.Context, id string, patch schema.SubtaskPatch) (schema.Subtask, error)
	DeleteSubtask(ctx context.Context, id string) error
	ToggleSubtask(ctx context.Context, id string) (schema.Subtask, error)
}

var _ Consumer = (*Store)(nil)
