package schema

import (
	"fmt"
	"strings"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "onHold"
)

// TaskStatus is the board column of a task.
type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "inProgress"
	TaskInReview   TaskStatus = "inReview"
	TaskDone       TaskStatus = "done"
)

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ProjectStatuses lists every project status in display order.
var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectOnHold, ProjectCompleted}

// TaskStatuses lists every task status in board order.
var TaskStatuses = []TaskStatus{TaskBacklog, TaskTodo, TaskInProgress, TaskInReview, TaskDone}

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// normalizeEnum lowercases and strips separators so "on_hold", "On-Hold" and
// "onHold" compare equal.
func normalizeEnum(s string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(s))
}

// ParseProjectStatus parses a project status.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	n := normalizeEnum(s)
	for _, st := range ProjectStatuses {
		if normalizeEnum(string(st)) == n {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown project status %q", s)
}

// ParseTaskStatus parses a task status.
func ParseTaskStatus(s string) (TaskStatus, error) {
	n := normalizeEnum(s)
	for _, st := range TaskStatuses {
		if normalizeEnum(string(st)) == n {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// ParsePriority parses a task priority.
func ParsePriority(s string) (Priority, error) {
	n := normalizeEnum(s)
	for _, p := range Priorities {
		if string(p) == n {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	for _, st := range ProjectStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	for _, st := range TaskStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, pr := range Priorities {
		if pr == p {
			return true
		}
	}
	return false
}
