package schema

import (
	"strings"
	"time"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

// ProjectInput holds the caller-provided fields of a new project. Unset
// fields receive their defaults.
type ProjectInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Progress    int           `json:"progress"`
	Members     []string      `json:"members"`
	WorkspaceID string        `json:"workspace"`
	Favorite    bool          `json:"favorite"`
	Color       string        `json:"color"`
	Tags        []string      `json:"tags"`
	Milestones  []Milestone   `json:"milestones"`
}

// Validate rejects inputs that the store would refuse to persist.
func (in ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return plankerrors.ErrInvalidInput("name", "must not be empty")
	}
	if in.Status != "" && !in.Status.Valid() {
		return plankerrors.ErrInvalidInput("status", "unknown project status "+string(in.Status))
	}
	return validateProgress(in.Progress)
}

// TaskInput holds the caller-provided fields of a new task.
type TaskInput struct {
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags"`
	Subtasks    []Subtask  `json:"subtasks"`
}

// Validate rejects inputs that the store would refuse to persist.
func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return plankerrors.ErrInvalidInput("title", "must not be empty")
	}
	if in.ProjectID == "" {
		return plankerrors.ErrInvalidInput("projectId", "must not be empty")
	}
	if in.Status != "" && !in.Status.Valid() {
		return plankerrors.ErrInvalidInput("status", "unknown task status "+string(in.Status))
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return plankerrors.ErrInvalidInput("priority", "unknown priority "+string(in.Priority))
	}
	return nil
}

// MilestoneInput describes a milestone to append to a project.
type MilestoneInput struct {
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// SubtaskInput describes a subtask to append to a task.
type SubtaskInput struct {
	TaskID    string `json:"taskId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ProjectPatch is a partial project update. Nil fields are left untouched.
// ClearDueDate removes the due date; it wins over DueDate.
type ProjectPatch struct {
	Name         *string        `json:"name,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Status       *ProjectStatus `json:"status,omitempty"`
	DueDate      *time.Time     `json:"dueDate,omitempty"`
	ClearDueDate bool           `json:"clearDueDate,omitempty"`
	Progress     *int           `json:"progress,omitempty"`
	Members      *[]string      `json:"members,omitempty"`
	WorkspaceID  *string        `json:"workspace,omitempty"`
	Favorite     *bool          `json:"favorite,omitempty"`
	Color        *string        `json:"color,omitempty"`
	Tags         *[]string      `json:"tags,omitempty"`
	Milestones   *[]Milestone   `json:"milestones,omitempty"`
}

// Fields returns the domain names of the fields the patch sets.
func (p ProjectPatch) Fields() []string {
	var f []string
	add := func(set bool, name string) {
		if set {
			f = append(f, name)
		}
	}
	add(p.Name != nil, "name")
	add(p.Description != nil, "description")
	add(p.Status != nil, "status")
	add(p.DueDate != nil || p.ClearDueDate, "dueDate")
	add(p.Progress != nil, "progress")
	add(p.Members != nil, "members")
	add(p.WorkspaceID != nil, "workspace")
	add(p.Favorite != nil, "favorite")
	add(p.Color != nil, "color")
	add(p.Tags != nil, "tags")
	add(p.Milestones != nil, "milestones")
	return f
}

// Empty reports whether the patch sets nothing.
func (p ProjectPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Validate rejects patches that the store would refuse to persist.
func (p ProjectPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return plankerrors.ErrInvalidInput("name", "must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return plankerrors.ErrInvalidInput("status", "unknown project status "+string(*p.Status))
	}
	if p.Progress != nil {
		if err := validateProgress(*p.Progress); err != nil {
			return err
		}
	}
	if p.WorkspaceID != nil && *p.WorkspaceID == "" {
		return plankerrors.ErrInvalidInput("workspace", "must not be empty")
	}
	return nil
}

// Columns maps the set fields onto storage columns. The milestones_rev
// guard is not included; the store adds it.
func (p ProjectPatch) Columns() (Columns, error) {
	var c Columns
	if p.Name != nil {
		c = c.Set("name", *p.Name)
	}
	if p.Description != nil {
		c = c.Set("description", *p.Description)
	}
	if p.Status != nil {
		c = c.Set("status", string(*p.Status))
	}
	if p.ClearDueDate {
		c = c.Set("due_date", nullString(nil))
	} else if p.DueDate != nil {
		c = c.Set("due_date", nullString(p.DueDate))
	}
	if p.Progress != nil {
		c = c.Set("progress", *p.Progress)
	}
	if p.Members != nil {
		v, err := encodeJSON(nonNil(*p.Members))
		if err != nil {
			return nil, err
		}
		c = c.Set("members", v)
	}
	if p.WorkspaceID != nil {
		c = c.Set("workspace_id", *p.WorkspaceID)
	}
	if p.Favorite != nil {
		c = c.Set("favorite", *p.Favorite)
	}
	if p.Color != nil {
		c = c.Set("color", *p.Color)
	}
	if p.Tags != nil {
		v, err := encodeJSON(nonNil(*p.Tags))
		if err != nil {
			return nil, err
		}
		c = c.Set("tags", v)
	}
	if p.Milestones != nil {
		v, err := encodeJSON(nonNil(*p.Milestones))
		if err != nil {
			return nil, err
		}
		c = c.Set("milestones", v)
	}
	return c, nil
}

// Apply merges the set fields into project. Fields the patch does not set,
// including Tasks, are left as they are.
func (p ProjectPatch) Apply(project *Project) {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
	if p.Status != nil {
		project.Status = *p.Status
	}
	if p.ClearDueDate {
		project.DueDate = nil
	} else if p.DueDate != nil {
		project.DueDate = cloneTime(p.DueDate)
	}
	if p.Progress != nil {
		project.Progress = *p.Progress
	}
	if p.Members != nil {
		project.Members = nonNil(cloneStrings(*p.Members))
	}
	if p.WorkspaceID != nil {
		project.WorkspaceID = *p.WorkspaceID
	}
	if p.Favorite != nil {
		project.Favorite = *p.Favorite
	}
	if p.Color != nil {
		project.Color = *p.Color
	}
	if p.Tags != nil {
		project.Tags = nonNil(cloneStrings(*p.Tags))
	}
	if p.Milestones != nil {
		project.Milestones = append([]Milestone{}, *p.Milestones...)
	}
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title         *string     `json:"title,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Status        *TaskStatus `json:"status,omitempty"`
	Priority      *Priority   `json:"priority,omitempty"`
	AssigneeID    *string     `json:"assigneeId,omitempty"`
	ClearAssignee bool        `json:"clearAssignee,omitempty"`
	DueDate       *time.Time  `json:"dueDate,omitempty"`
	ClearDueDate  bool        `json:"clearDueDate,omitempty"`
	Tags          *[]string   `json:"tags,omitempty"`
	Subtasks      *[]Subtask  `json:"subtasks,omitempty"`
}

// Fields returns the domain names of the fields the patch sets.
func (p TaskPatch) Fields() []string {
	var f []string
	add := func(set bool, name string) {
		if set {
			f = append(f, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.Description != nil, "description")
	add(p.Status != nil, "status")
	add(p.Priority != nil, "priority")
	add(p.AssigneeID != nil || p.ClearAssignee, "assigneeId")
	add(p.DueDate != nil || p.ClearDueDate, "dueDate")
	add(p.Tags != nil, "tags")
	add(p.Subtasks != nil, "subtasks")
	return f
}

// Empty reports whether the patch sets nothing.
func (p TaskPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Validate rejects patches that the store would refuse to persist.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return plankerrors.ErrInvalidInput("title", "must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return plankerrors.ErrInvalidInput("status", "unknown task status "+string(*p.Status))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return plankerrors.ErrInvalidInput("priority", "unknown priority "+string(*p.Priority))
	}
	return nil
}

// Columns maps the set fields onto storage columns. The subtasks_rev guard
// is not included; the store adds it.
func (p TaskPatch) Columns() (Columns, error) {
	var c Columns
	if p.Title != nil {
		c = c.Set("title", *p.Title)
	}
	if p.Description != nil {
		c = c.Set("description", *p.Description)
	}
	if p.Status != nil {
		c = c.Set("status", string(*p.Status))
	}
	if p.Priority != nil {
		c = c.Set("priority", string(*p.Priority))
	}
	if p.ClearAssignee {
		c = c.Set("assignee_id", nullStringValue(""))
	} else if p.AssigneeID != nil {
		c = c.Set("assignee_id", nullStringValue(*p.AssigneeID))
	}
	if p.ClearDueDate {
		c = c.Set("due_date", nullString(nil))
	} else if p.DueDate != nil {
		c = c.Set("due_date", nullString(p.DueDate))
	}
	if p.Tags != nil {
		v, err := encodeJSON(nonNil(*p.Tags))
		if err != nil {
			return nil, err
		}
		c = c.Set("tags", v)
	}
	if p.Subtasks != nil {
		v, err := encodeJSON(nonNil(*p.Subtasks))
		if err != nil {
			return nil, err
		}
		c = c.Set("subtasks", v)
	}
	return c, nil
}

// Apply merges the set fields into task.
func (p TaskPatch) Apply(task *Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.ClearAssignee {
		task.AssigneeID = ""
	} else if p.AssigneeID != nil {
		task.AssigneeID = *p.AssigneeID
	}
	if p.ClearDueDate {
		task.DueDate = nil
	} else if p.DueDate != nil {
		task.DueDate = cloneTime(p.DueDate)
	}
	if p.Tags != nil {
		task.Tags = nonNil(cloneStrings(*p.Tags))
	}
	if p.Subtasks != nil {
		task.Subtasks = append([]Subtask{}, *p.Subtasks...)
	}
}

// MilestonePatch is a partial milestone update.
type MilestonePatch struct {
	Title     *string    `json:"title,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
}

// Apply merges the set fields into m.
func (p MilestonePatch) Apply(m *Milestone) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Date != nil {
		m.Date = *p.Date
	}
	if p.Completed != nil {
		m.Completed = *p.Completed
	}
}

// Validate rejects patches that would store an untitled milestone.
func (p MilestonePatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return plankerrors.ErrInvalidInput("title", "must not be empty")
	}
	return nil
}

// SubtaskPatch is a partial subtask update.
type SubtaskPatch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Apply merges the set fields into s.
func (p SubtaskPatch) Apply(s *Subtask) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Completed != nil {
		s.Completed = *p.Completed
	}
}

// Validate rejects patches that would store an untitled subtask.
func (p SubtaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return plankerrors.ErrInvalidInput("title", "must not be empty")
	}
	return nil
}

func validateProgress(v int) error {
	if v < 0 || v > 100 {
		return plankerrors.ErrInvalidInput("progress", "must be between 0 and 100")
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nullStringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}
