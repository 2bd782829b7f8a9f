package store

import (
	"context"

	"github.com/randalmurphal/plank/internal/activity"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

// CreateProject persists a new project in the given workspace, or in the
// first loaded workspace when in.WorkspaceID is empty.
func (s *Store) CreateProject(ctx context.Context, in schema.ProjectInput) (schema.Project, error) {
	const op = "createProject"
	actor, epoch, err := s.session()
	if err != nil {
		return schema.Project{}, s.reject(op, err)
	}
	if err := in.Validate(); err != nil {
		return schema.Project{}, s.reject(op, err)
	}

	s.mu.RLock()
	workspaceID := in.WorkspaceID
	switch {
	case workspaceID == "" && len(s.workspaces) > 0:
		workspaceID = s.workspaces[0].ID
	case workspaceID == "":
		err = plankerrors.ErrNoWorkspaceAvailable()
	case findWorkspace(s.workspaces, workspaceID) < 0:
		err = plankerrors.ErrEntityNotFound("workspace", workspaceID)
	}
	s.mu.RUnlock()
	if err != nil {
		return schema.Project{}, s.reject(op, err)
	}

	p := schema.Project{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.now(),
		DueDate:     in.DueDate,
		Status:      in.Status,
		Progress:    in.Progress,
		Members:     in.Members,
		WorkspaceID: workspaceID,
		Favorite:    in.Favorite,
		Color:       in.Color,
		Tags:        in.Tags,
		Milestones:  s.withMilestoneIDs(in.Milestones),
	}
	schema.ApplyProjectDefaults(&p)
	row, err := schema.ProjectToStorage(p, actor.ID)
	if err != nil {
		return schema.Project{}, s.reject(op, plankerrors.ErrInvalidInput("project", err.Error()))
	}

	err = s.run(ctx, mutation{
		op:    op,
		epoch: epoch,
		persist: func(ctx context.Context) error {
			_, err := s.gw.Projects.Insert(ctx, row)
			return err
		},
		mirror: func() {
			s.projects = append(s.projects, p.Clone())
		},
		audit: activity.Entry{
			ActorID:    actor.ID,
			Action:     activity.ActionCreated,
			EntityType: activity.EntityProject,
			EntityID:   p.ID,
			EntityName: p.Name,
			Metadata:   map[string]any{"workspaceId": workspaceID},
		},
		change:  events.Change{Action: activity.ActionCreated, EntityType: activity.EntityProject, EntityID: p.ID, ProjectID: p.ID},
		message: "Project created",
	})
	if err != nil {
		return schema.Project{}, err
	}
	return p.Clone(), nil
}

// UpdateProject writes the fields set in patch and merges them into the
// mirrored project. A patch that sets Milestones is guarded by the
// project's milestone revision.
func (s *Store) UpdateProject(ctx context.Context, id string, patch schema.ProjectPatch) (schema.Project, error) {
	return s.updateProject(ctx, "updateProject", id, patch, nil)
}

// updateProject implements UpdateProject. When base is non-nil it is the
// milestone revision the patch's Milestones were computed from; otherwise
// the mirrored revision is used.
func (s *Store) updateProject(ctx context.Context, op, id string, patch schema.ProjectPatch, base *int) (schema.Project, error) {
	actor, epoch, err := s.session()
	if err != nil {
		return schema.Project{}, s.reject(op, err)
	}
	if err := patch.Validate(); err != nil {
		return schema.Project{}, s.reject(op, err)
	}
	if patch.Empty() {
		return schema.Project{}, s.reject(op, plankerrors.ErrInvalidInput("patch", "no fields to update"))
	}

	s.mu.RLock()
	i := findProject(s.projects, id)
	var current schema.Project
	if i >= 0 {
		current = s.projects[i].Clone()
	}
	wsOK := patch.WorkspaceID == nil || findWorkspace(s.workspaces, *patch.WorkspaceID) >= 0
	s.mu.RUnlock()
	if i < 0 {
		return schema.Project{}, s.reject(op, plankerrors.ErrEntityNotFound("project", id))
	}
	if !wsOK {
		return schema.Project{}, s.reject(op, plankerrors.ErrEntityNotFound("workspace", *patch.WorkspaceID))
	}

	cols, err := patch.Columns()
	if err != nil {
		return schema.Project{}, s.reject(op, plankerrors.ErrInvalidInput("patch", err.Error()))
	}
	var guards []gateway.Cond
	nextRev := current.MilestonesRev
	if patch.Milestones != nil {
		rev := current.MilestonesRev
		if base != nil {
			rev = *base
		}
		nextRev = rev + 1
		cols = cols.Set("milestones_rev", nextRev)
		guards = append(guards, gateway.Eq("milestones_rev", rev))
	}

	updated := current
	patch.Apply(&updated)
	updated.MilestonesRev = nextRev

	action := activity.ActionUpdated
	if patch.Favorite != nil {
		action = activity.ActionUnfavorited
		if *patch.Favorite {
			action = activity.ActionFavorited
		}
	}
	meta := map[string]any{"fields": patch.Fields()}
	if patch.Status != nil {
		meta["status"] = string(*patch.Status)
	}

	err = s.run(ctx, mutation{
		op:    op,
		epoch: epoch,
		persist: func(ctx context.Context) error {
			return s.gw.Projects.Update(ctx, id, cols, guards...)
		},
		mirror: func() {
			j := findProject(s.projects, id)
			if j < 0 {
				return
			}
			patch.Apply(&s.projects[j])
			if patch.Milestones != nil {
				s.projects[j].MilestonesRev = nextRev
			}
			updated = s.projects[j].Clone()
		},
		audit: activity.Entry{
			ActorID:    actor.ID,
			Action:     action,
			EntityType: activity.EntityProject,
			EntityID:   id,
			EntityName: updated.Name,
			Metadata:   meta,
		},
		change:  events.Change{Action: action, EntityType: activity.EntityProject, EntityID: id, ProjectID: id},
		message: "Project updated",
	})
	if err != nil {
		return schema.Project{}, err
	}
	return updated, nil
}

// DeleteProject removes the project and, through the remote cascade, its
// tasks. The selection is cleared when it pointed at the project.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	const op = "deleteProject"
	actor, epoch, err := s.session()
	if err != nil {
		return s.reject(op, err)
	}

	s.mu.RLock()
	i := findProject(s.projects, id)
	var name string
	var taskCount int
	if i >= 0 {
		name = s.projects[i].Name
		taskCount = len(s.projects[i].Tasks)
	}
	s.mu.RUnlock()
	if i < 0 {
		return s.reject(op, plankerrors.ErrEntityNotFound("project", id))
	}

	return s.run(ctx, mutation{
		op:    op,
		epoch: epoch,
		persist: func(ctx context.Context) error {
			return s.gw.Projects.Delete(ctx, id)
		},
		mirror: func() {
			if j := findProject(s.projects, id); j >= 0 {
				s.projects = append(s.projects[:j:j], s.projects[j+1:]...)
			}
			if s.currentID == id {
				s.currentID = ""
			}
		},
		audit: activity.Entry{
			ActorID:    actor.ID,
			Action:     activity.ActionDeleted,
			EntityType: activity.EntityProject,
			EntityID:   id,
			EntityName: name,
			Metadata:   map[string]any{"tasks": taskCount},
		},
		change:  events.Change{Action: activity.ActionDeleted, EntityType: activity.EntityProject, EntityID: id, ProjectID: id},
		message: "Project deleted",
	})
}

// ToggleFavorite negates the project's favorite flag through UpdateProject.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (schema.Project, error) {
	const op = "toggleFavorite"
	if _, _, err := s.session(); err != nil {
		return schema.Project{}, s.reject(op, err)
	}
	s.mu.RLock()
	i := findProject(s.projects, id)
	var favorite bool
	if i >= 0 {
		favorite = s.projects[i].Favorite
	}
	s.mu.RUnlock()
	if i < 0 {
		return schema.Project{}, s.reject(op, plankerrors.ErrEntityNotFound("project", id))
	}
	return s.UpdateProject(ctx, id, schema.ProjectPatch{Favorite: schema.Ptr(!favorite)})
}

func (s *Store) withMilestoneIDs(in []schema.Milestone) []schema.Milestone {
	out := make([]schema.Milestone, len(in))
	for i, m := range in {
		if m.ID == "" {
			m.ID = s.newID()
		}
		out[i] = m
	}
	return out
}
