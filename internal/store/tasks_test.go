package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/plank/internal/activity"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

func TestCreateTask_Defaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")

	task := f.task(t, p.ID, "Write copy")
	assert.Equal(t, schema.TaskTodo, task.Status)
	assert.Equal(t, schema.PriorityMedium, task.Priority)
	assert.Equal(t, []string{}, task.Tags)
	assert.Equal(t, []schema.Subtask{}, task.Subtasks)
	assert.Equal(t, p.ID, task.ProjectID)

	got, ok := f.store.Snapshot().Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, task, got)

	feed := f.store.Snapshot().Activities
	assert.Equal(t, activity.EntityTask, feed[0].EntityType)
	assert.Equal(t, p.ID, feed[0].Meta("projectId").String())
}

func TestCreateTask_AssignsSubtaskIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")

	task, err := f.store.CreateTask(context.Background(), schema.TaskInput{
		ProjectID: p.ID,
		Title:     "Ship",
		Subtasks:  []schema.Subtask{{Title: "a"}, {ID: "keep", Title: "b"}},
	})
	require.NoError(t, err)
	require.Len(t, task.Subtasks, 2)
	assert.NotEmpty(t, task.Subtasks[0].ID)
	assert.Equal(t, "keep", task.Subtasks[1].ID)
}

func TestCreateTask_UnknownProject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.store.CreateTask(context.Background(), schema.TaskInput{ProjectID: "p-missing", Title: "x"})
	assert.ErrorIs(t, err, plankerrors.ErrNotFound)
	assert.Equal(t, 0, f.faults.Tasks.Calls(gateway.OpInsert))
}

func TestCreateTask_InvalidInput(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")

	tests := []schema.TaskInput{
		{ProjectID: p.ID},
		{Title: "no project"},
		{ProjectID: p.ID, Title: "x", Status: "blocked"},
		{ProjectID: p.ID, Title: "x", Priority: "critical"},
	}
	for _, in := range tests {
		_, err := f.store.CreateTask(context.Background(), in)
		assert.ErrorIs(t, err, plankerrors.ErrInvalid, "%+v", in)
	}
}

func TestUpdateTask_CompletedLabel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	task := f.task(t, p.ID, "Ship")
	ctx := context.Background()

	_, err := f.store.UpdateTask(ctx, task.ID, schema.TaskPatch{Status: schema.Ptr(schema.TaskDone)})
	require.NoError(t, err)

	entry := f.store.Snapshot().Activities[0]
	assert.Equal(t, activity.ActionCompleted, entry.Action)
	assert.Equal(t, "done", entry.Meta("status").String())
	assert.Equal(t, "todo", entry.Meta("previousStatus").String())

	// Already done: a second write is a plain update.
	_, err = f.store.UpdateTask(ctx, task.ID, schema.TaskPatch{
		Status: schema.Ptr(schema.TaskDone),
		Title:  schema.Ptr("Shipped"),
	})
	require.NoError(t, err)
	assert.Equal(t, activity.ActionUpdated, f.store.Snapshot().Activities[0].Action)
}

func TestUpdateTask_PartialMerge(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	task, err := f.store.CreateTask(context.Background(), schema.TaskInput{
		ProjectID:  p.ID,
		Title:      "Ship",
		AssigneeID: "u-ada",
		DueDate:    &due,
		Tags:       []string{"release"},
	})
	require.NoError(t, err)

	updated, err := f.store.UpdateTask(context.Background(), task.ID, schema.TaskPatch{
		Priority:      schema.Ptr(schema.PriorityUrgent),
		ClearAssignee: true,
	})
	require.NoError(t, err)
	assert.Equal(t, schema.PriorityUrgent, updated.Priority)
	assert.Empty(t, updated.AssigneeID)
	assert.Equal(t, "Ship", updated.Title)
	assert.Equal(t, []string{"release"}, updated.Tags)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))

	got, _ := f.store.Snapshot().Task(task.ID)
	assert.Equal(t, updated, got)
}

func TestUpdateTask_FailureLeavesMirror(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	task := f.task(t, p.ID, "Ship")
	before := f.store.Snapshot()

	ch, cancel := f.store.Subscribe()
	defer cancel()
	f.faults.Tasks.Fail(gateway.OpUpdate, plankerrors.ErrUnavailable("update tasks", nil))

	_, err := f.store.UpdateTask(context.Background(), task.ID, schema.TaskPatch{Title: schema.Ptr("Renamed")})
	assert.ErrorIs(t, err, plankerrors.ErrRemoteUnavailable)

	after := f.store.Snapshot()
	assert.Equal(t, before.Projects, after.Projects)
	assert.Len(t, after.Activities, len(before.Activities))

	ev := waitFor(t, ch, events.EventNotice)
	notice := ev.Data.(events.Notice)
	assert.Equal(t, events.NoticeError, notice.Level)
	assert.Equal(t, "updateTask", notice.Op)
	assert.Equal(t, string(plankerrors.CodeRemoteUnavailable), notice.Code)
}

func TestUpdateTask_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	task := f.task(t, p.ID, "Ship")
	ctx := context.Background()

	_, err := f.store.UpdateTask(ctx, "t-missing", schema.TaskPatch{Title: schema.Ptr("x")})
	assert.ErrorIs(t, err, plankerrors.ErrNotFound)
	_, err = f.store.UpdateTask(ctx, task.ID, schema.TaskPatch{})
	assert.ErrorIs(t, err, plankerrors.ErrInvalid)
	_, err = f.store.UpdateTask(ctx, task.ID, schema.TaskPatch{Priority: schema.Ptr(schema.Priority("p0"))})
	assert.ErrorIs(t, err, plankerrors.ErrInvalid)
	assert.Equal(t, 0, f.faults.Tasks.Calls(gateway.OpUpdate))
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	keep := f.task(t, p.ID, "keep")
	doomed := f.task(t, p.ID, "doomed")

	require.NoError(t, f.store.DeleteTask(context.Background(), doomed.ID))

	got, _ := f.store.Snapshot().Project(p.ID)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, keep.ID, got.Tasks[0].ID)

	entry := f.store.Snapshot().Activities[0]
	assert.Equal(t, activity.ActionDeleted, entry.Action)
	assert.Equal(t, "doomed", entry.EntityName)

	assert.ErrorIs(t, f.store.DeleteTask(context.Background(), doomed.ID), plankerrors.ErrNotFound)
}

func TestDeleteTask_RemovedRemotely(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	task := f.task(t, p.ID, "Ship")
	require.NoError(t, f.gw.Tasks.Delete(context.Background(), task.ID))

	err := f.store.DeleteTask(context.Background(), task.ID)
	assert.ErrorIs(t, err, plankerrors.ErrRemoteNotFound)
	_, ok := f.store.Snapshot().Task(task.ID)
	assert.True(t, ok)
}
