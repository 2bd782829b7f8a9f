package store

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/plank/internal/activity"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

func TestPipeline_EverySuccessLogsOneActivity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := f.store.CreateProject(ctx, schema.ProjectInput{Name: "A"}); return err },
		func() error {
			_, err := f.store.CreateTask(ctx, schema.TaskInput{ProjectID: f.store.Snapshot().Projects[0].ID, Title: "t"})
			return err
		},
		func() error {
			_, err := f.store.ToggleFavorite(ctx, f.store.Snapshot().Projects[0].ID)
			return err
		},
		func() error {
			_, err := f.store.AddMilestone(ctx, schema.MilestoneInput{ProjectID: f.store.Snapshot().Projects[0].ID, Title: "m"})
			return err
		},
		func() error {
			id := f.store.Snapshot().Projects[0].Tasks[0].ID
			_, err := f.store.UpdateTask(ctx, id, schema.TaskPatch{Status: schema.Ptr(schema.TaskInProgress)})
			return err
		},
		func() error { return f.store.DeleteTask(ctx, f.store.Snapshot().Projects[0].Tasks[0].ID) },
		func() error { return f.store.DeleteProject(ctx, f.store.Snapshot().Projects[0].ID) },
	}
	for i, step := range steps {
		before := len(f.store.Snapshot().Activities)
		require.NoError(t, step(), "step %d", i)
		assert.Equal(t, before+1, len(f.store.Snapshot().Activities), "step %d", i)
	}
}

func TestPipeline_FailedWritesLogNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "A")
	before := len(f.store.Snapshot().Activities)

	f.faults.Projects.Fail(gateway.OpUpdate, plankerrors.ErrConstraint("update projects", nil))
	_, err := f.store.UpdateProject(ctx, p.ID, schema.ProjectPatch{Name: schema.Ptr("B")})
	assert.ErrorIs(t, err, plankerrors.ErrRemoteConstraint)
	_, err = f.store.UpdateProject(ctx, "missing", schema.ProjectPatch{Name: schema.Ptr("B")})
	assert.ErrorIs(t, err, plankerrors.ErrNotFound)

	assert.Len(t, f.store.Snapshot().Activities, before)
	assert.Equal(t, before, f.faults.Activities.Calls(gateway.OpInsert))
}

func TestPipeline_ActivityFailureKeepsMutation(t *testing.T) {
	t.Parallel()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	var logs bytes.Buffer
	seq := newSequence("id")
	s := New(gw,
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithClock(seq.Now),
		WithIDGenerator(seq.ID),
	)
	t.Cleanup(s.Close)
	ctx := context.Background()
	require.NoError(t, s.SetActor(ctx, &ada))

	ch, cancel := s.Subscribe()
	defer cancel()
	faults.Activities.Fail(gateway.OpInsert, plankerrors.ErrUnavailable("insert activities", nil))

	p, err := s.CreateProject(ctx, schema.ProjectInput{Name: "Unlogged"})
	require.NoError(t, err)

	_, ok := s.Snapshot().Project(p.ID)
	assert.True(t, ok)
	assert.Empty(t, s.Snapshot().Activities)
	assert.Contains(t, logs.String(), "activity logging failed")
	assert.Contains(t, logs.String(), "entity_id="+p.ID)

	ev := waitFor(t, ch, events.EventNotice)
	assert.Equal(t, events.NoticeSuccess, ev.Data.(events.Notice).Level)
}

func TestPipeline_NoActor(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t, gateway.NewTestGateway(t), "id")
	ctx := context.Background()

	_, err := s.CreateProject(ctx, schema.ProjectInput{Name: "x"})
	assert.ErrorIs(t, err, plankerrors.ErrNotAuthenticated)
	_, err = s.CreateTask(ctx, schema.TaskInput{ProjectID: "p", Title: "x"})
	assert.ErrorIs(t, err, plankerrors.ErrNotAuthenticated)
	_, err = s.UpdateProject(ctx, "p", schema.ProjectPatch{Name: schema.Ptr("x")})
	assert.ErrorIs(t, err, plankerrors.ErrNotAuthenticated)
	_, err = s.ToggleFavorite(ctx, "p")
	assert.ErrorIs(t, err, plankerrors.ErrNotAuthenticated)
	assert.ErrorIs(t, s.DeleteTask(ctx, "t"), plankerrors.ErrNotAuthenticated)
	_, err = s.ToggleSubtask(ctx, "s")
	assert.ErrorIs(t, err, plankerrors.ErrNotAuthenticated)
}

func TestPipeline_WriteAfterActorSwitchIsNotMirrored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Log out while the insert is in flight.
	f.faults.Projects.Before(gateway.OpInsert, f.store.Clear)
	_, err := f.store.CreateProject(ctx, schema.ProjectInput{Name: "Orphan"})
	require.NoError(t, err)

	assert.Empty(t, f.store.Snapshot().Projects)
	assert.Empty(t, f.store.Snapshot().Activities)

	// The project row was committed, so it is still audited for ada.
	projects, err := f.gw.Projects.Select(ctx, gateway.Where("name", "Orphan"))
	require.NoError(t, err)
	require.Len(t, projects, 1)
	rows, err := f.gw.Activities.Select(ctx, gateway.Where("entity_id", projects[0].ID))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ada.ID, rows[0].UserID)
	assert.Equal(t, activity.ActionCreated, rows[0].Action)

	// Logging in again shows it.
	require.NoError(t, f.store.SetActor(ctx, &ada))
	feed := f.store.Snapshot().Activities
	require.NotEmpty(t, feed)
	assert.Equal(t, projects[0].ID, feed[0].EntityID)
}

func TestPipeline_WriteDuringActorSwitchKeepsNewFeed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	// Switch to grace while ada's insert is in flight.
	var once sync.Once
	f.faults.Projects.Before(gateway.OpInsert, func() {
		once.Do(func() { require.NoError(t, f.store.SetActor(ctx, &grace)) })
	})
	_, err := f.store.CreateProject(ctx, schema.ProjectInput{Name: "Ada's late project"})
	require.NoError(t, err)

	snap := f.store.Snapshot()
	assert.Equal(t, grace.ID, snap.Actor.ID)
	assert.Empty(t, snap.Projects)
	assert.Empty(t, snap.Activities, "ada's audit must not land in grace's feed")
}

func TestPipeline_ChangeTopicIsProject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "A")

	pub := f.store.publisher
	ch := pub.Subscribe(p.ID)
	defer pub.Unsubscribe(p.ID, ch)

	task := f.task(t, p.ID, "t")
	ev := waitFor(t, ch, events.EventChange)
	assert.Equal(t, events.Change{
		Action:     activity.ActionCreated,
		EntityType: activity.EntityTask,
		EntityID:   task.ID,
		ProjectID:  p.ID,
	}, ev.Data)
}
