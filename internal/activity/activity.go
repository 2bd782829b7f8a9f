// Package activity records the audit trail of confirmed mutations and keeps
// a bounded, newest-first feed of the current actor's activities.
//
// Logging is best effort: a failed insert or refetch is reported to the
// logger and otherwise ignored, so it never undoes the mutation it records.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/plank/internal/config"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

// Action labels.
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionFavorited   = "favorited"
	ActionUnfavorited = "unfavorited"
	ActionCompleted   = "completed"
)

// Entity types.
const (
	EntityProject = "project"
	EntityTask    = "task"
)

// Entry is one activity to record.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	EntityName string
	Metadata   map[string]any
}

// Logger appends activities and maintains the feed.
type Logger struct {
	table    gateway.Table[schema.ActivityRow]
	limit    int
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	onChange func([]schema.Activity)

	mu      sync.RWMutex
	last    time.Time // createdAt of the previous insert
	feed    []schema.Activity
	scope   uint64 // feeds fetched for an older scope are discarded
	gen     uint64 // bumped by every refetch start and every Reset
	applied uint64 // gen of the refetch that produced feed
}

// Option configures a Logger.
type Option func(*Logger)

// WithLimit sets how many activities the feed retains.
func WithLimit(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.limit = n
		}
	}
}

// WithLogger sets the observability sink for logging failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// WithClock sets the time source for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// WithIDGenerator sets the activity id source.
func WithIDGenerator(newID func() string) Option {
	return func(l *Logger) {
		l.newID = newID
	}
}

// WithOnChange registers a hook called with a copy of the feed every time
// it is replaced.
func WithOnChange(fn func([]schema.Activity)) Option {
	return func(l *Logger) {
		l.onChange = fn
	}
}

// New creates a logger writing to table.
func New(table gateway.Table[schema.ActivityRow], opts ...Option) *Logger {
	l := &Logger{
		table:  table,
		limit:  config.DefaultFeedLimit,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
		feed:   []schema.Activity{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records e and refreshes the feed for scope. Failures are reported
// and swallowed.
func (l *Logger) Log(ctx context.Context, scope uint64, e Entry) {
	err := l.insert(ctx, e)
	if err == nil {
		if rerr := l.Refresh(ctx, scope, e.ActorID); rerr != nil {
			err = plankerrors.ErrActivity("refetch", rerr)
		}
	}
	if err != nil {
		l.warn(e, err)
	}
}

// Append records e without touching the feed. It is used for writes whose
// feed has already been reset.
func (l *Logger) Append(ctx context.Context, e Entry) {
	if err := l.insert(ctx, e); err != nil {
		l.warn(e, err)
	}
}

func (l *Logger) warn(e Entry, err error) {
	l.logger.Warn("activity logging failed",
		"actor", e.ActorID,
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
		"error", err,
	)
}

func (l *Logger) insert(ctx context.Context, e Entry) error {
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return plankerrors.ErrActivity("encode metadata", err)
		}
		meta = data
	}

	a := schema.Activity{
		ID:         l.newID(),
		UserID:     e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		EntityName: e.EntityName,
		Metadata:   meta,
		CreatedAt:  l.stamp(),
	}
	if _, err := l.table.Insert(ctx, schema.ActivityToStorage(a)); err != nil {
		return plankerrors.ErrActivity("insert", err)
	}
	return nil
}

// stamp returns the clock reading, nudged forward so it is strictly after
// the previous activity's.
func (l *Logger) stamp() time.Time {
	t := l.now().UTC().Round(0)
	l.mu.Lock()
	defer l.mu.Unlock()
	if !t.After(l.last) {
		t = l.last.Add(time.Nanosecond)
	}
	l.last = t
	return t
}

// Refresh replaces the feed with the most recent activities of actorID.
// The result is discarded when a newer refresh finished first, or when the
// feed was reset for a later scope while the refresh was in flight.
func (l *Logger) Refresh(ctx context.Context, scope uint64, actorID string) error {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	rows, err := l.table.Select(ctx, gateway.Where("user_id", actorID).Order("created_at", true).Take(l.limit))
	if err != nil {
		return err
	}
	feed := make([]schema.Activity, 0, len(rows))
	for _, r := range rows {
		a, err := schema.ActivityToDomain(r)
		if err != nil {
			return plankerrors.ErrRemote("decode activity", err)
		}
		feed = append(feed, a)
	}

	l.mu.Lock()
	if scope < l.scope || gen < l.applied {
		l.mu.Unlock()
		return nil
	}
	l.scope = scope
	l.feed = feed
	l.applied = gen
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(cloneFeed(feed))
	}
	return nil
}

// Feed returns a copy of the feed, newest first.
func (l *Logger) Feed() []schema.Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneFeed(l.feed)
}

// Len returns the number of activities in the feed.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.feed)
}

// Limit returns the retention window.
func (l *Logger) Limit() int {
	return l.limit
}

// Reset empties the feed and moves it to scope. Refreshes in flight, and
// any later refresh for an older scope, are discarded.
func (l *Logger) Reset(scope uint64) {
	l.mu.Lock()
	if scope > l.scope {
		l.scope = scope
	}
	l.gen++
	l.applied = l.gen
	l.feed = []schema.Activity{}
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange([]schema.Activity{})
	}
}

func cloneFeed(feed []schema.Activity) []schema.Activity {
	out := make([]schema.Activity, len(feed))
	for i, a := range feed {
		out[i] = a.Clone()
	}
	return out
}
