package store

import (
	"context"
	"strings"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/schema"
)

// Milestones have no table of their own. Each operation computes the new
// milestones array of the owning project and writes it through
// updateProject, guarded by the revision the array was computed from.

// AddMilestone appends a milestone to a project.
func (s *Store) AddMilestone(ctx context.Context, in schema.MilestoneInput) (schema.Milestone, error) {
	const op = "addMilestone"
	if _, _, err := s.session(); err != nil {
		return schema.Milestone{}, s.reject(op, err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return schema.Milestone{}, s.reject(op, plankerrors.ErrInvalidInput("title", "must not be empty"))
	}

	s.mu.RLock()
	i := findProject(s.projects, in.ProjectID)
	var milestones []schema.Milestone
	var rev int
	if i >= 0 {
		milestones = append([]schema.Milestone{}, s.projects[i].Milestones...)
		rev = s.projects[i].MilestonesRev
	}
	s.mu.RUnlock()
	if i < 0 {
		return schema.Milestone{}, s.reject(op, plankerrors.ErrEntityNotFound("project", in.ProjectID))
	}

	m := schema.Milestone{
		ID:        s.newID(),
		Title:     in.Title,
		Date:      in.Date,
		Completed: in.Completed,
	}
	milestones = append(milestones, m)
	if _, err := s.updateProject(ctx, op, in.ProjectID, schema.ProjectPatch{Milestones: &milestones}, &rev); err != nil {
		return schema.Milestone{}, err
	}
	return m, nil
}

// UpdateMilestone merges patch into the milestone with id.
func (s *Store) UpdateMilestone(ctx context.Context, id string, patch schema.MilestonePatch) (schema.Milestone, error) {
	const op = "updateMilestone"
	if err := patch.Validate(); err != nil {
		return schema.Milestone{}, s.reject(op, err)
	}
	return s.editMilestone(ctx, op, id, func(ms []schema.Milestone, i int) []schema.Milestone {
		patch.Apply(&ms[i])
		return ms
	})
}

// ToggleMilestone flips the completed flag of the milestone with id.
func (s *Store) ToggleMilestone(ctx context.Context, id string) (schema.Milestone, error) {
	return s.editMilestone(ctx, "toggleMilestone", id, func(ms []schema.Milestone, i int) []schema.Milestone {
		ms[i].Completed = !ms[i].Completed
		return ms
	})
}

// DeleteMilestone removes the milestone with id from its project.
func (s *Store) DeleteMilestone(ctx context.Context, id string) error {
	_, err := s.editMilestone(ctx, "deleteMilestone", id, func(ms []schema.Milestone, i int) []schema.Milestone {
		return append(ms[:i], ms[i+1:]...)
	})
	return err
}

// editMilestone locates the milestone's project, lets edit compute the new
// array from a private copy, and writes it. It returns the milestone as it
// was after the edit (or before, when edit removed it).
func (s *Store) editMilestone(ctx context.Context, op, id string, edit func([]schema.Milestone, int) []schema.Milestone) (schema.Milestone, error) {
	if _, _, err := s.session(); err != nil {
		return schema.Milestone{}, s.reject(op, err)
	}
	s.mu.RLock()
	var (
		projectID  string
		milestones []schema.Milestone
		rev        int
		index      = -1
	)
	for _, p := range s.projects {
		if i := p.FindMilestone(id); i >= 0 {
			projectID = p.ID
			milestones = append([]schema.Milestone{}, p.Milestones...)
			rev = p.MilestonesRev
			index = i
			break
		}
	}
	s.mu.RUnlock()
	if index < 0 {
		return schema.Milestone{}, s.reject(op, plankerrors.ErrEntityNotFound("milestone", id))
	}

	before := milestones[index]
	next := edit(milestones, index)
	result := before
	for _, m := range next {
		if m.ID == id {
			result = m
		}
	}
	if _, err := s.updateProject(ctx, op, projectID, schema.ProjectPatch{Milestones: &next}, &rev); err != nil {
		return schema.Milestone{}, err
	}
	return result, nil
}
