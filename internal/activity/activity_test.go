package activity

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

// testClock returns strictly increasing timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func newTestLogger(t *testing.T, opts ...Option) (*Logger, *gateway.Faults, *bytes.Buffer) {
	t.Helper()
	gw := gateway.NewTestGateway(t)
	faults := gateway.InjectFaults(gw)
	var buf bytes.Buffer
	clock := &testClock{now: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithClock(clock.Now),
	}
	return New(gw.Activities, append(base, opts...)...), faults, &buf
}

func TestLog_AppendsAndRefreshesNewestFirst(t *testing.T) {
	t.Parallel()
	l, _, _ := newTestLogger(t)
	ctx := context.Background()

	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1", EntityName: "Launch"})
	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionFavorited, EntityType: EntityProject, EntityID: "p-1"})

	feed := l.Feed()
	require.Len(t, feed, 2)
	assert.Equal(t, ActionFavorited, feed[0].Action)
	assert.Equal(t, ActionCreated, feed[1].Action)
	assert.Equal(t, "Launch", feed[1].EntityName)
	assert.JSONEq(t, "{}", string(feed[0].Metadata))
}

func TestLog_Metadata(t *testing.T) {
	t.Parallel()
	l, _, _ := newTestLogger(t)

	l.Log(context.Background(), 0, Entry{
		ActorID:    "u-1",
		Action:     ActionUpdated,
		EntityType: EntityTask,
		EntityID:   "t-1",
		Metadata:   map[string]any{"fields": []string{"status"}, "projectId": "p-1"},
	})

	feed := l.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, "status", feed[0].Meta("fields.0").String())
	assert.Equal(t, "p-1", feed[0].Meta("projectId").String())
}

func TestLog_FeedBoundedByLimit(t *testing.T) {
	t.Parallel()
	l, _, _ := newTestLogger(t, WithLimit(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionUpdated, EntityType: EntityTask, EntityID: fmt.Sprintf("t-%d", i)})
	}

	feed := l.Feed()
	require.Len(t, feed, 3)
	assert.Equal(t, "t-4", feed[0].EntityID)
	assert.Equal(t, "t-2", feed[2].EntityID)
	assert.Equal(t, 3, l.Limit())
}

func TestLog_ScopedToActor(t *testing.T) {
	t.Parallel()
	l, _, _ := newTestLogger(t)
	ctx := context.Background()

	l.Log(ctx, 0, Entry{ActorID: "u-2", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-9"})
	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})

	feed := l.Feed()
	require.Len(t, feed, 1)
	assert.Equal(t, "u-1", feed[0].UserID)
}

func TestLog_InsertFailureIsSwallowed(t *testing.T) {
	t.Parallel()
	l, faults, buf := newTestLogger(t)
	ctx := context.Background()

	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})
	before := l.Feed()

	faults.Activities.Fail(gateway.OpInsert, plankerrors.ErrUnavailable("insert activities", nil))
	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionDeleted, EntityType: EntityProject, EntityID: "p-1"})

	assert.Equal(t, before, l.Feed())
	assert.Contains(t, buf.String(), "activity logging failed")
	assert.Contains(t, buf.String(), "action=deleted")
	assert.Equal(t, 1, faults.Activities.Calls(gateway.OpSelect), "no refetch after a failed insert")
}

func TestLog_RefetchFailureKeepsOldFeed(t *testing.T) {
	t.Parallel()
	l, faults, buf := newTestLogger(t)
	ctx := context.Background()

	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityTask, EntityID: "t-1"})
	faults.Activities.Fail(gateway.OpSelect, plankerrors.ErrUnavailable("select activities", nil))
	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionCompleted, EntityType: EntityTask, EntityID: "t-1"})

	assert.Equal(t, 1, l.Len())
	assert.Contains(t, buf.String(), "refetch")

	// The row landed remotely and shows up on the next refresh.
	faults.Activities.Heal(gateway.OpSelect)
	require.NoError(t, l.Refresh(ctx, 0, "u-1"))
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, ActionCompleted, l.Feed()[0].Action)
}

func TestReset_DiscardsInFlightRefresh(t *testing.T) {
	t.Parallel()
	l, faults, _ := newTestLogger(t)
	ctx := context.Background()

	l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})
	require.Equal(t, 1, l.Len())

	// Reset lands while the refetch is in flight.
	faults.Activities.Before(gateway.OpSelect, func() { l.Reset(0) })
	require.NoError(t, l.Refresh(ctx, 0, "u-1"))

	assert.Equal(t, 0, l.Len())
}

func TestRefresh_OlderScopeIsDiscarded(t *testing.T) {
	t.Parallel()
	l, _, _ := newTestLogger(t)
	ctx := context.Background()

	l.Log(ctx, 1, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})
	require.Equal(t, 1, l.Len())

	l.Reset(2)
	require.NoError(t, l.Refresh(ctx, 1, "u-1"))
	assert.Equal(t, 0, l.Len(), "a refresh for scope 1 must not repopulate a feed reset to scope 2")

	require.NoError(t, l.Refresh(ctx, 2, "u-1"))
	assert.Equal(t, 1, l.Len())
}

func TestAppend_InsertsWithoutRefresh(t *testing.T) {
	t.Parallel()
	l, faults, buf := newTestLogger(t)
	ctx := context.Background()

	l.Append(ctx, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 1, faults.Activities.Calls(gateway.OpInsert))
	assert.Equal(t, 0, faults.Activities.Calls(gateway.OpSelect))

	require.NoError(t, l.Refresh(ctx, 0, "u-1"))
	require.Equal(t, 1, l.Len())
	assert.Equal(t, ActionCreated, l.Feed()[0].Action)

	faults.Activities.Fail(gateway.OpInsert, plankerrors.ErrUnavailable("insert activities", nil))
	l.Append(ctx, Entry{ActorID: "u-1", Action: ActionDeleted, EntityType: EntityProject, EntityID: "p-1"})
	assert.Contains(t, buf.String(), "activity logging failed")
}

func TestLog_OrderStableOnFrozenClock(t *testing.T) {
	t.Parallel()
	frozen := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	l, _, _ := newTestLogger(t, WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Log(ctx, 0, Entry{ActorID: "u-1", Action: ActionUpdated, EntityType: EntityTask, EntityID: fmt.Sprintf("t-%d", i)})
	}

	feed := l.Feed()
	require.Len(t, feed, 5)
	for i, a := range feed {
		assert.Equal(t, fmt.Sprintf("t-%d", 4-i), a.EntityID)
	}
	assert.True(t, feed[0].CreatedAt.After(feed[1].CreatedAt))
}

func TestOnChange(t *testing.T) {
	t.Parallel()
	var got [][]schema.Activity
	l, _, _ := newTestLogger(t, WithOnChange(func(feed []schema.Activity) {
		got = append(got, feed)
	}))

	l.Log(context.Background(), 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})
	l.Reset(0)

	require.Len(t, got, 2)
	assert.Len(t, got[0], 1)
	assert.Empty(t, got[1])
}

func TestFeed_ReturnsCopy(t *testing.T) {
	t.Parallel()
	l, _, _ := newTestLogger(t)
	l.Log(context.Background(), 0, Entry{ActorID: "u-1", Action: ActionCreated, EntityType: EntityProject, EntityID: "p-1"})

	feed := l.Feed()
	feed[0].Action = "tampered"
	assert.Equal(t, ActionCreated, l.Feed()[0].Action)
}
