package store

import (
	"context"
	"strings"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/schema"
)

// Subtasks are embedded in their task the same way milestones are embedded
// in projects, and are written through updateTask.

// AddSubtask appends a subtask to a task.
func (s *Store) AddSubtask(ctx context.Context, in schema.SubtaskInput) (schema.Subtask, error) {
	const op = "addSubtask"
	if _, _, err := s.session(); err != nil {
		return schema.Subtask{}, s.reject(op, err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return schema.Subtask{}, s.reject(op, plankerrors.ErrInvalidInput("title", "must not be empty"))
	}

	s.mu.RLock()
	pi, ti := findTask(s.projects, in.TaskID)
	var subtasks []schema.Subtask
	var rev int
	if pi >= 0 {
		t := s.projects[pi].Tasks[ti]
		subtasks = append([]schema.Subtask{}, t.Subtasks...)
		rev = t.SubtasksRev
	}
	s.mu.RUnlock()
	if pi < 0 {
		return schema.Subtask{}, s.reject(op, plankerrors.ErrEntityNotFound("task", in.TaskID))
	}

	st := schema.Subtask{ID: s.newID(), Title: in.Title, Completed: in.Completed}
	subtasks = append(subtasks, st)
	if _, err := s.updateTask(ctx, op, in.TaskID, schema.TaskPatch{Subtasks: &subtasks}, &rev); err != nil {
		return schema.Subtask{}, err
	}
	return st, nil
}

// UpdateSubtask merges patch into the subtask with id.
func (s *Store) UpdateSubtask(ctx context.Context, id string, patch schema.SubtaskPatch) (schema.Subtask, error) {
	const op = "updateSubtask"
	if err := patch.Validate(); err != nil {
		return schema.Subtask{}, s.reject(op, err)
	}
	return s.editSubtask(ctx, op, id, func(sts []schema.Subtask, i int) []schema.Subtask {
		patch.Apply(&sts[i])
		return sts
	})
}

// ToggleSubtask flips the completed flag of the subtask with id.
func (s *Store) ToggleSubtask(ctx context.Context, id string) (schema.Subtask, error) {
	return s.editSubtask(ctx, "toggleSubtask", id, func(sts []schema.Subtask, i int) []schema.Subtask {
		sts[i].Completed = !sts[i].Completed
		return sts
	})
}

// DeleteSubtask removes the subtask with id from its task.
func (s *Store) DeleteSubtask(ctx context.Context, id string) error {
	_, err := s.editSubtask(ctx, "deleteSubtask", id, func(sts []schema.Subtask, i int) []schema.Subtask {
		return append(sts[:i], sts[i+1:]...)
	})
	return err
}

func (s *Store) editSubtask(ctx context.Context, op, id string, edit func([]schema.Subtask, int) []schema.Subtask) (schema.Subtask, error) {
	if _, _, err := s.session(); err != nil {
		return schema.Subtask{}, s.reject(op, err)
	}
	s.mu.RLock()
	var (
		taskID   string
		subtasks []schema.Subtask
		rev      int
		index    = -1
	)
outer:
	for _, p := range s.projects {
		for _, t := range p.Tasks {
			if i := t.FindSubtask(id); i >= 0 {
				taskID = t.ID
				subtasks = append([]schema.Subtask{}, t.Subtasks...)
				rev = t.SubtasksRev
				index = i
				break outer
			}
		}
	}
	s.mu.RUnlock()
	if index < 0 {
		return schema.Subtask{}, s.reject(op, plankerrors.ErrEntityNotFound("subtask", id))
	}

	result := subtasks[index]
	next := edit(subtasks, index)
	for _, st := range next {
		if st.ID == id {
			result = st
		}
	}
	if _, err := s.updateTask(ctx, op, taskID, schema.TaskPatch{Subtasks: &next}, &rev); err != nil {
		return schema.Subtask{}, err
	}
	return result, nil
}
