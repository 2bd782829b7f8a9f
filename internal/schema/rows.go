package schema

import (
	"database/sql"
	"time"
)

// TimeLayout is the storage encoding of every timestamp. It is fixed width
// and always UTC so lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// DefaultColor is applied to workspaces and projects stored without one.
const DefaultColor = "#6366f1"

// FormatTime encodes t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a stored timestamp. RFC 3339 is accepted as well so rows
// written by other clients still load.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// WorkspaceRow is the storage shape of a workspace.
type WorkspaceRow struct {
	ID        string
	Name      string
	Color     string
	OwnerID   string
	CreatedAt string
}

// ProjectRow is the storage shape of a project. Members, Tags and Milestones
// hold JSON arrays.
type ProjectRow struct {
	ID            string
	Name          string
	Description   string
	Status        string
	DueDate       sql.NullString
	Progress      int
	Members       string
	WorkspaceID   string
	Favorite      bool
	Color         string
	Tags          string
	Milestones    string
	MilestonesRev int
	OwnerID       string
	CreatedAt     string
}

// TaskRow is the storage shape of a task. Tags and Subtasks hold JSON arrays.
type TaskRow struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  sql.NullString
	DueDate     sql.NullString
	Tags        string
	Subtasks    string
	SubtasksRev int
	CreatedAt   string
}

// ActivityRow is the storage shape of an activity. Metadata holds a JSON
// object.
type ActivityRow struct {
	ID         string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	EntityName sql.NullString
	Metadata   string
	CreatedAt  string
}

// Column names of each table in insert/select order.
var (
	WorkspaceColumns = []string{"id", "name", "color", "owner_id", "created_at"}
	ProjectColumns   = []string{
		"id", "name", "description", "status", "due_date", "progress", "members",
		"workspace_id", "favorite", "color", "tags", "milestones", "milestones_rev",
		"owner_id", "created_at",
	}
	TaskColumns = []string{
		"id", "project_id", "title", "description", "status", "priority",
		"assignee_id", "due_date", "tags", "subtasks", "subtasks_rev", "created_at",
	}
	ActivityColumns = []string{
		"id", "user_id", "action", "entity_type", "entity_id", "entity_name",
		"metadata", "created_at",
	}
)

// Values returns the row's values in WorkspaceColumns order.
func (r WorkspaceRow) Values() []any {
	return []any{r.ID, r.Name, r.Color, r.OwnerID, r.CreatedAt}
}

// Targets returns scan destinations in WorkspaceColumns order.
func (r *WorkspaceRow) Targets() []any {
	return []any{&r.ID, &r.Name, &r.Color, &r.OwnerID, &r.CreatedAt}
}

// Values returns the row's values in ProjectColumns order.
func (r ProjectRow) Values() []any {
	return []any{
		r.ID, r.Name, r.Description, r.Status, r.DueDate, r.Progress, r.Members,
		r.WorkspaceID, r.Favorite, r.Color, r.Tags, r.Milestones, r.MilestonesRev,
		r.OwnerID, r.CreatedAt,
	}
}

// Targets returns scan destinations in ProjectColumns order.
func (r *ProjectRow) Targets() []any {
	return []any{
		&r.ID, &r.Name, &r.Description, &r.Status, &r.DueDate, &r.Progress, &r.Members,
		&r.WorkspaceID, &r.Favorite, &r.Color, &r.Tags, &r.Milestones, &r.MilestonesRev,
		&r.OwnerID, &r.CreatedAt,
	}
}

// Values returns the row's values in TaskColumns order.
func (r TaskRow) Values() []any {
	return []any{
		r.ID, r.ProjectID, r.Title, r.Description, r.Status, r.Priority,
		r.AssigneeID, r.DueDate, r.Tags, r.Subtasks, r.SubtasksRev, r.CreatedAt,
	}
}

// Targets returns scan destinations in TaskColumns order.
func (r *TaskRow) Targets() []any {
	return []any{
		&r.ID, &r.ProjectID, &r.Title, &r.Description, &r.Status, &r.Priority,
		&r.AssigneeID, &r.DueDate, &r.Tags, &r.Subtasks, &r.SubtasksRev, &r.CreatedAt,
	}
}

// Values returns the row's values in ActivityColumns order.
func (r ActivityRow) Values() []any {
	return []any{
		r.ID, r.UserID, r.Action, r.EntityType, r.EntityID, r.EntityName,
		r.Metadata, r.CreatedAt,
	}
}

// Targets returns scan destinations in ActivityColumns order.
func (r *ActivityRow) Targets() []any {
	return []any{
		&r.ID, &r.UserID, &r.Action, &r.EntityType, &r.EntityID, &r.EntityName,
		&r.Metadata, &r.CreatedAt,
	}
}

// Column is one assignment in a partial update.
type Column struct {
	Name  string
	Value any
}

// Columns is an ordered set of column assignments.
type Columns []Column

// Names returns the column names in order.
func (c Columns) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// Has reports whether name is assigned.
func (c Columns) Has(name string) bool {
	for _, col := range c {
		if col.Name == name {
			return true
		}
	}
	return false
}

// Set appends or replaces an assignment.
func (c Columns) Set(name string, value any) Columns {
	for i, col := range c {
		if col.Name == name {
			c[i].Value = value
			return c
		}
	}
	return append(c, Column{Name: name, Value: value})
}
