package store

import (
	"context"

	"github.com/randalmurphal/plank/internal/activity"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

// CreateTask persists a new task in the project named by in.ProjectID.
func (s *Store) CreateTask(ctx context.Context, in schema.TaskInput) (schema.Task, error) {
	const op = "createTask"
	actor, epoch, err := s.session()
	if err != nil {
		return schema.Task{}, s.reject(op, err)
	}
	if err := in.Validate(); err != nil {
		return schema.Task{}, s.reject(op, err)
	}

	s.mu.RLock()
	found := findProject(s.projects, in.ProjectID) >= 0
	s.mu.RUnlock()
	if !found {
		return schema.Task{}, s.reject(op, plankerrors.ErrEntityNotFound("project", in.ProjectID))
	}

	t := schema.Task{
		ID:          s.newID(),
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		CreatedAt:   s.now(),
		Tags:        in.Tags,
		Subtasks:    s.withSubtaskIDs(in.Subtasks),
	}
	schema.ApplyTaskDefaults(&t)
	row, err := schema.TaskToStorage(t)
	if err != nil {
		return schema.Task{}, s.reject(op, plankerrors.ErrInvalidInput("task", err.Error()))
	}

	err = s.run(ctx, mutation{
		op:    op,
		epoch: epoch,
		persist: func(ctx context.Context) error {
			_, err := s.gw.Tasks.Insert(ctx, row)
			return err
		},
		mirror: func() {
			if j := findProject(s.projects, t.ProjectID); j >= 0 {
				s.projects[j].Tasks = append(s.projects[j].Tasks, t.Clone())
			}
		},
		audit: activity.Entry{
			ActorID:    actor.ID,
			Action:     activity.ActionCreated,
			EntityType: activity.EntityTask,
			EntityID:   t.ID,
			EntityName: t.Title,
			Metadata:   map[string]any{"projectId": t.ProjectID},
		},
		change:  events.Change{Action: activity.ActionCreated, EntityType: activity.EntityTask, EntityID: t.ID, ProjectID: t.ProjectID},
		message: "Task created",
	})
	if err != nil {
		return schema.Task{}, err
	}
	return t.Clone(), nil
}

// UpdateTask writes the fields set in patch and merges them into the
// mirrored task. A transition into done is recorded as completed.
func (s *Store) UpdateTask(ctx context.Context, id string, patch schema.TaskPatch) (schema.Task, error) {
	return s.updateTask(ctx, "updateTask", id, patch, nil)
}

// updateTask implements UpdateTask; base plays the same role as in
// updateProject for the subtask revision.
func (s *Store) updateTask(ctx context.Context, op, id string, patch schema.TaskPatch, base *int) (schema.Task, error) {
	actor, epoch, err := s.session()
	if err != nil {
		return schema.Task{}, s.reject(op, err)
	}
	if err := patch.Validate(); err != nil {
		return schema.Task{}, s.reject(op, err)
	}
	if patch.Empty() {
		return schema.Task{}, s.reject(op, plankerrors.ErrInvalidInput("patch", "no fields to update"))
	}

	s.mu.RLock()
	pi, ti := findTask(s.projects, id)
	var current schema.Task
	if pi >= 0 {
		current = s.projects[pi].Tasks[ti].Clone()
	}
	s.mu.RUnlock()
	if pi < 0 {
		return schema.Task{}, s.reject(op, plankerrors.ErrEntityNotFound("task", id))
	}

	cols, err := patch.Columns()
	if err != nil {
		return schema.Task{}, s.reject(op, plankerrors.ErrInvalidInput("patch", err.Error()))
	}
	var guards []gateway.Cond
	nextRev := current.SubtasksRev
	if patch.Subtasks != nil {
		rev := current.SubtasksRev
		if base != nil {
			rev = *base
		}
		nextRev = rev + 1
		cols = cols.Set("subtasks_rev", nextRev)
		guards = append(guards, gateway.Eq("subtasks_rev", rev))
	}

	updated := current
	patch.Apply(&updated)
	updated.SubtasksRev = nextRev

	action := activity.ActionUpdated
	if patch.Status != nil && *patch.Status == schema.TaskDone && current.Status != schema.TaskDone {
		action = activity.ActionCompleted
	}
	meta := map[string]any{"fields": patch.Fields(), "projectId": current.ProjectID}
	if patch.Status != nil {
		meta["status"] = string(*patch.Status)
		meta["previousStatus"] = string(current.Status)
	}

	err = s.run(ctx, mutation{
		op:    op,
		epoch: epoch,
		persist: func(ctx context.Context) error {
			return s.gw.Tasks.Update(ctx, id, cols, guards...)
		},
		mirror: func() {
			pj, tj := findTask(s.projects, id)
			if pj < 0 {
				return
			}
			t := &s.projects[pj].Tasks[tj]
			patch.Apply(t)
			if patch.Subtasks != nil {
				t.SubtasksRev = nextRev
			}
			updated = t.Clone()
		},
		audit: activity.Entry{
			ActorID:    actor.ID,
			Action:     action,
			EntityType: activity.EntityTask,
			EntityID:   id,
			EntityName: updated.Title,
			Metadata:   meta,
		},
		change:  events.Change{Action: action, EntityType: activity.EntityTask, EntityID: id, ProjectID: current.ProjectID},
		message: "Task updated",
	})
	if err != nil {
		return schema.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes the task from the remote store and the mirror.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	const op = "deleteTask"
	actor, epoch, err := s.session()
	if err != nil {
		return s.reject(op, err)
	}

	s.mu.RLock()
	pi, ti := findTask(s.projects, id)
	var title, projectID string
	if pi >= 0 {
		title = s.projects[pi].Tasks[ti].Title
		projectID = s.projects[pi].ID
	}
	s.mu.RUnlock()
	if pi < 0 {
		return s.reject(op, plankerrors.ErrEntityNotFound("task", id))
	}

	return s.run(ctx, mutation{
		op:    op,
		epoch: epoch,
		persist: func(ctx context.Context) error {
			return s.gw.Tasks.Delete(ctx, id)
		},
		mirror: func() {
			pj, tj := findTask(s.projects, id)
			if pj < 0 {
				return
			}
			tasks := s.projects[pj].Tasks
			s.projects[pj].Tasks = append(tasks[:tj:tj], tasks[tj+1:]...)
		},
		audit: activity.Entry{
			ActorID:    actor.ID,
			Action:     activity.ActionDeleted,
			EntityType: activity.EntityTask,
			EntityID:   id,
			EntityName: title,
			Metadata:   map[string]any{"projectId": projectID},
		},
		change:  events.Change{Action: activity.ActionDeleted, EntityType: activity.EntityTask, EntityID: id, ProjectID: projectID},
		message: "Task deleted",
	})
}

func (s *Store) withSubtaskIDs(in []schema.Subtask) []schema.Subtask {
	out := make([]schema.Subtask, len(in))
	for i, st := range in {
		if st.ID == "" {
			st.ID = s.newID()
		}
		out[i] = st
	}
	return out
}
