// Package schema defines the plank entities in their domain shape and their
// storage shape, and the mapping between the two.
//
// Every other package works with the domain types. Only the gateway touches
// rows, and only the functions in this package translate between them, so
// column naming, JSON encoding of embedded collections and defaults live in
// one place.
package schema

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// Workspace is a top-level grouping of projects.
type Workspace struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Project owns its tasks and embeds its milestones.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"createdAt"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Status      ProjectStatus `json:"status"`
	Progress    int           `json:"progress"`
	Members     []string      `json:"members"`
	Tasks       []Task        `json:"tasks"`
	WorkspaceID string        `json:"workspace"`
	Favorite    bool          `json:"favorite"`
	Color       string        `json:"color"`
	Tags        []string      `json:"tags"`
	Milestones  []Milestone   `json:"milestones"`

	// MilestonesRev increments on every write of Milestones.
	MilestonesRev int `json:"milestonesRev"`
}

// Task belongs to exactly one project and embeds its subtasks.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Tags        []string   `json:"tags"`
	Subtasks    []Subtask  `json:"subtasks"`
	ProjectID   string     `json:"projectId"`

	// SubtasksRev increments on every write of Subtasks.
	SubtasksRev int `json:"subtasksRev"`
}

// Subtask is always embedded in a Task.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Milestone is always embedded in a Project.
type Milestone struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// Activity is an append-only audit record.
type Activity struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	EntityName string          `json:"entityName,omitempty"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Meta looks up a gjson path in the activity metadata.
func (a Activity) Meta(path string) gjson.Result {
	return gjson.GetBytes(a.Metadata, path)
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	c := p
	c.DueDate = cloneTime(p.DueDate)
	c.Members = cloneStrings(p.Members)
	c.Tags = cloneStrings(p.Tags)
	c.Milestones = cloneSlice(p.Milestones)
	if p.Tasks != nil {
		c.Tasks = make([]Task, len(p.Tasks))
		for i, t := range p.Tasks {
			c.Tasks[i] = t.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.DueDate = cloneTime(t.DueDate)
	c.Tags = cloneStrings(t.Tags)
	c.Subtasks = cloneSlice(t.Subtasks)
	return c
}

// Clone returns a deep copy of the activity.
func (a Activity) Clone() Activity {
	c := a
	c.Metadata = cloneSlice(a.Metadata)
	return c
}

// FindMilestone returns the index of the milestone with id, or -1.
func (p Project) FindMilestone(id string) int {
	for i, m := range p.Milestones {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// FindTask returns the index of the task with id, or -1.
func (p Project) FindTask(id string) int {
	for i, t := range p.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// FindSubtask returns the index of the subtask with id, or -1.
func (t Task) FindSubtask(id string) int {
	for i, s := range t.Subtasks {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneStrings(s []string) []string {
	return cloneSlice(s)
}

// cloneSlice copies s, keeping nil as nil.
func cloneSlice[S ~[]E, E any](s S) S {
	if s == nil {
		return nil
	}
	return append(S{}, s...)
}

// Actor is the identity mutations are recorded against.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName is the actor's name, or its id when unnamed.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
