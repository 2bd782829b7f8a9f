package schema

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// WorkspaceToDomain converts a stored workspace. OwnerID and CreatedAt have
// no domain counterpart and are dropped.
func WorkspaceToDomain(r WorkspaceRow) Workspace {
	w := Workspace{ID: r.ID, Name: r.Name, Color: r.Color}
	if w.Color == "" {
		w.Color = DefaultColor
	}
	return w
}

// WorkspaceToStorage converts a workspace for insertion on behalf of owner.
func WorkspaceToStorage(w Workspace, ownerID string, createdAt time.Time) WorkspaceRow {
	color := w.Color
	if color == "" {
		color = DefaultColor
	}
	return WorkspaceRow{
		ID:        w.ID,
		Name:      w.Name,
		Color:     color,
		OwnerID:   ownerID,
		CreatedAt: FormatTime(createdAt),
	}
}

// ProjectToDomain converts a stored project. Tasks is left empty; the store
// attaches them after loading the task table.
func ProjectToDomain(r ProjectRow) (Project, error) {
	p := Project{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Status:        ProjectStatus(r.Status),
		Progress:      r.Progress,
		WorkspaceID:   r.WorkspaceID,
		Favorite:      r.Favorite,
		Color:         r.Color,
		MilestonesRev: r.MilestonesRev,
		Tasks:         []Task{},
	}
	var err error
	if p.CreatedAt, err = ParseTime(r.CreatedAt); err != nil {
		return Project{}, fmt.Errorf("project %s: created_at: %w", r.ID, err)
	}
	if p.DueDate, err = nullTime(r.DueDate); err != nil {
		return Project{}, fmt.Errorf("project %s: due_date: %w", r.ID, err)
	}
	if p.Members, err = decodeArray[string](r.Members); err != nil {
		return Project{}, fmt.Errorf("project %s: members: %w", r.ID, err)
	}
	if p.Tags, err = decodeArray[string](r.Tags); err != nil {
		return Project{}, fmt.Errorf("project %s: tags: %w", r.ID, err)
	}
	if p.Milestones, err = decodeArray[Milestone](r.Milestones); err != nil {
		return Project{}, fmt.Errorf("project %s: milestones: %w", r.ID, err)
	}
	ApplyProjectDefaults(&p)
	return p, nil
}

// ProjectToStorage converts a project for insertion on behalf of owner.
// Tasks are stored in their own table and are not part of the row.
func ProjectToStorage(p Project, ownerID string) (ProjectRow, error) {
	ApplyProjectDefaults(&p)
	r := ProjectRow{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Status:        string(p.Status),
		DueDate:       nullString(p.DueDate),
		Progress:      p.Progress,
		WorkspaceID:   p.WorkspaceID,
		Favorite:      p.Favorite,
		Color:         p.Color,
		MilestonesRev: p.MilestonesRev,
		OwnerID:       ownerID,
		CreatedAt:     FormatTime(p.CreatedAt),
	}
	var err error
	if r.Members, err = encodeJSON(p.Members); err != nil {
		return ProjectRow{}, err
	}
	if r.Tags, err = encodeJSON(p.Tags); err != nil {
		return ProjectRow{}, err
	}
	if r.Milestones, err = encodeJSON(p.Milestones); err != nil {
		return ProjectRow{}, err
	}
	return r, nil
}

// TaskToDomain converts a stored task.
func TaskToDomain(r TaskRow) (Task, error) {
	t := Task{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		Status:      TaskStatus(r.Status),
		Priority:    Priority(r.Priority),
		SubtasksRev: r.SubtasksRev,
	}
	if r.AssigneeID.Valid {
		t.AssigneeID = r.AssigneeID.String
	}
	var err error
	if t.CreatedAt, err = ParseTime(r.CreatedAt); err != nil {
		return Task{}, fmt.Errorf("task %s: created_at: %w", r.ID, err)
	}
	if t.DueDate, err = nullTime(r.DueDate); err != nil {
		return Task{}, fmt.Errorf("task %s: due_date: %w", r.ID, err)
	}
	if t.Tags, err = decodeArray[string](r.Tags); err != nil {
		return Task{}, fmt.Errorf("task %s: tags: %w", r.ID, err)
	}
	if t.Subtasks, err = decodeArray[Subtask](r.Subtasks); err != nil {
		return Task{}, fmt.Errorf("task %s: subtasks: %w", r.ID, err)
	}
	ApplyTaskDefaults(&t)
	return t, nil
}

// TaskToStorage converts a task for insertion.
func TaskToStorage(t Task) (TaskRow, error) {
	ApplyTaskDefaults(&t)
	r := TaskRow{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		AssigneeID:  sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""},
		DueDate:     nullString(t.DueDate),
		SubtasksRev: t.SubtasksRev,
		CreatedAt:   FormatTime(t.CreatedAt),
	}
	var err error
	if r.Tags, err = encodeJSON(t.Tags); err != nil {
		return TaskRow{}, err
	}
	if r.Subtasks, err = encodeJSON(t.Subtasks); err != nil {
		return TaskRow{}, err
	}
	return r, nil
}

// ActivityToDomain converts a stored activity.
func ActivityToDomain(r ActivityRow) (Activity, error) {
	a := Activity{
		ID:         r.ID,
		UserID:     r.UserID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Metadata:   json.RawMessage(r.Metadata),
	}
	if r.EntityName.Valid {
		a.EntityName = r.EntityName.String
	}
	if len(a.Metadata) == 0 || string(a.Metadata) == "null" {
		a.Metadata = json.RawMessage("{}")
	}
	if !json.Valid(a.Metadata) {
		return Activity{}, fmt.Errorf("activity %s: metadata is not valid JSON", r.ID)
	}
	var err error
	if a.CreatedAt, err = ParseTime(r.CreatedAt); err != nil {
		return Activity{}, fmt.Errorf("activity %s: created_at: %w", r.ID, err)
	}
	return a, nil
}

// ActivityToStorage converts an activity for insertion.
func ActivityToStorage(a Activity) ActivityRow {
	meta := string(a.Metadata)
	if meta == "" || meta == "null" {
		meta = "{}"
	}
	return ActivityRow{
		ID:         a.ID,
		UserID:     a.UserID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		EntityName: sql.NullString{String: a.EntityName, Valid: a.EntityName != ""},
		Metadata:   meta,
		CreatedAt:  FormatTime(a.CreatedAt),
	}
}

// ApplyProjectDefaults fills every unset project field with its default.
func ApplyProjectDefaults(p *Project) {
	if p.Status == "" {
		p.Status = ProjectActive
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	if p.Members == nil {
		p.Members = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Milestones == nil {
		p.Milestones = []Milestone{}
	}
	if p.Tasks == nil {
		p.Tasks = []Task{}
	}
}

// ApplyTaskDefaults fills every unset task field with its default.
func ApplyTaskDefaults(t *Task) {
	if t.Status == "" {
		t.Status = TaskTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %T: %w", v, err)
	}
	return string(data), nil
}

func decodeArray[T any](s string) ([]T, error) {
	out := []T{}
	if s == "" || s == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func nullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: FormatTime(*t), Valid: true}
}
