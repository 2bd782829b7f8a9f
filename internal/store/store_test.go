package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

var (
	ada   = schema.Actor{ID: "u-ada", Name: "Ada"}
	grace = schema.Actor{ID: "u-grace", Name: "Grace"}
)

// sequence hands out deterministic ids and strictly increasing times.
type sequence struct {
	mu   sync.Mutex
	n    int
	now  time.Time
	name string
}

func newSequence(name string) *sequence {
	return &sequence{name: name, now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func (s *sequence) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.name, s.n)
}

func (s *sequence) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(time.Millisecond)
	return s.now
}

type fixture struct {
	store  *Store
	gw     *gateway.Gateway
	faults *gateway.Faults
	seq    *sequence
}

func newStore(t *testing.T, gw *gateway.Gateway, name string) (*Store, *sequence) {
	t.Helper()
	seq := newSequence(name)
	s := New(gw,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(seq.Now),
		WithIDGenerator(seq.ID),
	)
	t.Cleanup(s.Close)
	return s, seq
}

// newFixture returns a store loaded for ada over a fault-injectable gateway.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	s, seq := newStore(t, gw, "id")
	require.NoError(t, s.SetActor(context.Background(), &ada))
	return &fixture{store: s, gw: gw, faults: faults, seq: seq}
}

func (f *fixture) project(t *testing.T, name string) schema.Project {
	t.Helper()
	p, err := f.store.CreateProject(context.Background(), schema.ProjectInput{Name: name})
	require.NoError(t, err)
	return p
}

func (f *fixture) task(t *testing.T, projectID, title string) schema.Task {
	t.Helper()
	task, err := f.store.CreateTask(context.Background(), schema.TaskInput{ProjectID: projectID, Title: title})
	require.NoError(t, err)
	return task
}

func TestSetActor_BootstrapsWorkspace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	snap := f.store.Snapshot()
	require.Len(t, snap.Workspaces, 1)
	assert.Equal(t, "Ada's Workspace", snap.Workspaces[0].Name)
	assert.Empty(t, snap.Projects)
	assert.NotNil(t, snap.Projects)
	assert.Empty(t, snap.Activities)
	assert.Nil(t, snap.CurrentProject)
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.Actor)
	assert.Equal(t, ada, *snap.Actor)
}

func TestBootstrap_TwiceCreatesOneWorkspace(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Reload(ctx))
	require.NoError(t, f.store.SetActor(ctx, &ada))

	rows, err := f.gw.Workspaces.Select(ctx, gateway.Where("owner_id", ada.ID))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Len(t, f.store.Snapshot().Workspaces, 1)
	assert.Equal(t, 1, f.faults.Workspaces.Calls(gateway.OpInsert))
}

func TestSetActor_LoadsExistingData(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	f.task(t, p.ID, "one")
	f.task(t, p.ID, "two")
	_, err := f.store.AddMilestone(context.Background(), schema.MilestoneInput{ProjectID: p.ID, Title: "Beta"})
	require.NoError(t, err)

	// A second session over the same remote store sees the same state.
	other, _ := newStore(t, f.gw, "other")
	require.NoError(t, other.SetActor(context.Background(), &ada))

	snap := other.Snapshot()
	require.Len(t, snap.Projects, 1)
	loaded := snap.Projects[0]
	assert.Equal(t, "Launch", loaded.Name)
	require.Len(t, loaded.Tasks, 2)
	assert.Equal(t, "one", loaded.Tasks[0].Title)
	assert.Equal(t, "two", loaded.Tasks[1].Title)
	require.Len(t, loaded.Milestones, 1)
	assert.Equal(t, 1, loaded.MilestonesRev)
	assert.Len(t, snap.Activities, 4)
}

func TestSetActor_SwitchReseeds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t, "Ada's project")
	require.NoError(t, f.store.SetCurrentProject(p.ID))

	require.NoError(t, f.store.SetActor(ctx, &grace))

	snap := f.store.Snapshot()
	require.Len(t, snap.Workspaces, 1)
	assert.Equal(t, "Grace's Workspace", snap.Workspaces[0].Name)
	assert.Empty(t, snap.Projects)
	assert.Empty(t, snap.Activities, "feed is scoped to the actor")
	assert.Nil(t, snap.CurrentProject)
}

func TestSetActor_NilClears(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.project(t, "Launch")

	require.NoError(t, f.store.SetActor(context.Background(), nil))

	snap := f.store.Snapshot()
	assert.Nil(t, snap.Actor)
	assert.Empty(t, snap.Workspaces)
	assert.Empty(t, snap.Projects)
	assert.Empty(t, snap.Activities)

	_, err := f.store.CreateProject(context.Background(), schema.ProjectInput{Name: "x"})
	assert.ErrorIs(t, err, plankerrors.ErrNotAuthenticated)
	assert.ErrorIs(t, f.store.Reload(context.Background()), plankerrors.ErrNotAuthenticated)
}

func TestSetActor_RejectsEmptyID(t *testing.T) {
	t.Parallel()
	s, _ := newStore(t, gateway.NewTestGateway(t), "id")
	err := s.SetActor(context.Background(), &schema.Actor{Name: "nobody"})
	assert.ErrorIs(t, err, plankerrors.ErrInvalid)
}

func TestLoad_FailureLeavesMirrorEmpty(t *testing.T) {
	t.Parallel()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	s, _ := newStore(t, gw, "id")
	ch, cancel := s.Subscribe()
	defer cancel()

	faults.Tasks.Fail(gateway.OpSelect, plankerrors.ErrUnavailable("select tasks", nil))
	err := s.SetActor(context.Background(), &ada)
	require.Error(t, err)
	assert.ErrorIs(t, err, plankerrors.ErrRemoteUnavailable)

	snap := s.Snapshot()
	assert.Empty(t, snap.Projects)
	assert.Empty(t, snap.Workspaces)
	assert.False(t, snap.IsLoading)

	notice := waitFor(t, ch, events.EventNotice)
	assert.Equal(t, events.NoticeError, notice.Data.(events.Notice).Level)
	assert.Equal(t, string(plankerrors.CodeRemoteUnavailable), notice.Data.(events.Notice).Code)
}

func TestLoad_FeedFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	s, _ := newStore(t, gw, "id")

	faults.Activities.Fail(gateway.OpSelect, plankerrors.ErrUnavailable("select activities", nil))
	require.NoError(t, s.SetActor(context.Background(), &ada))
	assert.Len(t, s.Snapshot().Workspaces, 1)
}

func TestLoad_DiscardedWhenActorChanges(t *testing.T) {
	t.Parallel()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	s, _ := newStore(t, gw, "id")

	var once sync.Once
	faults.Projects.Before(gateway.OpSelect, func() {
		once.Do(s.Clear)
	})
	require.NoError(t, s.SetActor(context.Background(), &ada))

	snap := s.Snapshot()
	assert.Nil(t, snap.Actor)
	assert.Empty(t, snap.Workspaces)
}

func TestSetActor_SwitchResetsFeedWhenRefreshFails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.project(t, "Ada's project")
	require.NotEmpty(t, f.store.Snapshot().Activities)

	f.faults.Activities.Fail(gateway.OpSelect, plankerrors.ErrUnavailable("select activities", nil))
	require.NoError(t, f.store.SetActor(context.Background(), &grace))

	snap := f.store.Snapshot()
	assert.Equal(t, grace.ID, snap.Actor.ID)
	assert.Empty(t, snap.Activities)
}

func TestLoad_LogoutDiscardsFeedRefresh(t *testing.T) {
	// Logout lands before the feed refetch is issued.
	t.Run("before refetch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.project(t, "Launch")
		require.NotEmpty(t, f.store.Snapshot().Activities)

		var once sync.Once
		f.faults.Workspaces.Before(gateway.OpSelect, func() { once.Do(f.store.Clear) })
		require.NoError(t, f.store.Reload(context.Background()))

		snap := f.store.Snapshot()
		assert.Nil(t, snap.Actor)
		assert.Empty(t, snap.Projects)
		assert.Empty(t, snap.Activities)
	})

	// Logout lands while the feed refetch is running.
	t.Run("during refetch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.project(t, "Launch")
		require.NotEmpty(t, f.store.Snapshot().Activities)

		var once sync.Once
		f.faults.Activities.Before(gateway.OpSelect, func() { once.Do(f.store.Clear) })
		require.NoError(t, f.store.Reload(context.Background()))

		snap := f.store.Snapshot()
		assert.Nil(t, snap.Actor)
		assert.Empty(t, snap.Activities)
	})
}

func TestIsLoading_DuringLoad(t *testing.T) {
	t.Parallel()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	s, _ := newStore(t, gw, "id")

	var during bool
	faults.Projects.Before(gateway.OpSelect, func() {
		during = s.IsLoading() && s.Snapshot().IsLoading
	})
	require.NoError(t, s.SetActor(context.Background(), &ada))

	assert.True(t, during)
	assert.False(t, s.IsLoading())
}

func TestSetCurrentProject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")

	require.NoError(t, f.store.SetCurrentProject(p.ID))
	cur := f.store.Snapshot().CurrentProject
	require.NotNil(t, cur)
	assert.Equal(t, p.ID, cur.ID)

	err := f.store.SetCurrentProject("missing")
	assert.ErrorIs(t, err, plankerrors.ErrNotFound)
	assert.NotNil(t, f.store.Snapshot().CurrentProject, "failed selection keeps the old one")

	require.NoError(t, f.store.SetCurrentProject(""))
	assert.Nil(t, f.store.Snapshot().CurrentProject)
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	p := f.project(t, "Launch")
	f.task(t, p.ID, "one")

	snap := f.store.Snapshot()
	snap.Projects[0].Name = "tampered"
	snap.Projects[0].Tasks[0].Title = "tampered"
	snap.Workspaces[0].Name = "tampered"

	again := f.store.Snapshot()
	assert.Equal(t, "Launch", again.Projects[0].Name)
	assert.Equal(t, "one", again.Projects[0].Tasks[0].Title)
	assert.Equal(t, "Ada's Workspace", again.Workspaces[0].Name)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ch, cancel := f.store.Subscribe()

	p := f.project(t, "Launch")

	change := waitFor(t, ch, events.EventChange)
	assert.Equal(t, events.Change{Action: "created", EntityType: "project", EntityID: p.ID, ProjectID: p.ID}, change.Data)

	snapEv := waitFor(t, ch, events.EventSnapshot)
	snap, ok := snapEv.Data.(Snapshot)
	require.True(t, ok)
	_, found := snap.Project(p.ID)
	assert.True(t, found)

	cancel()
	cancel()
	for range ch {
		// drain until closed
	}
}

// waitFor reads events until one of type typ arrives.
func waitFor(t *testing.T, ch <-chan events.Event, typ events.EventType) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed waiting for %s", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", typ)
		}
	}
}
