// Package store holds the mirror: the in-memory copy of the actor's
// workspaces, projects and tasks. Every mutation is written to the remote
// store first and applied to the mirror only after the write succeeds.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/plank/internal/activity"
	"github.com/randalmurphal/plank/internal/bootstrap"
	"github.com/randalmurphal/plank/internal/config"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
	"github.com/randalmurphal/plank/internal/gateway"
	"github.com/randalmurphal/plank/internal/schema"
)

// Snapshot is the consumer-visible state of the store.
type Snapshot struct {
	Actor          *schema.Actor      `json:"actor,omitempty"`
	Workspaces     []schema.Workspace `json:"workspaces"`
	Projects       []schema.Project   `json:"projects"`
	Activities     []schema.Activity  `json:"activities"`
	CurrentProject *schema.Project    `json:"currentProject"`
	IsLoading      bool               `json:"isLoading"`
}

// Project returns the project with id from the snapshot.
func (s Snapshot) Project(id string) (schema.Project, bool) {
	for _, p := range s.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return schema.Project{}, false
}

// Task returns the task with id from the snapshot.
func (s Snapshot) Task(id string) (schema.Task, bool) {
	for _, p := range s.Projects {
		if i := p.FindTask(id); i >= 0 {
			return p.Tasks[i], true
		}
	}
	return schema.Task{}, false
}

// Store is the domain store. Create one with New and share it by
// reference; there is no package-level instance.
type Store struct {
	gw        *gateway.Gateway
	boot      *bootstrap.Bootstrapper
	feed      *activity.Logger
	publisher events.Publisher
	ownsPub   bool
	notify    *events.PublishHelper
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	feedLimit int

	loads singleflight.Group

	// mu guards the mirror. It is never held across a gateway call.
	mu         sync.RWMutex
	actor      *schema.Actor
	epoch      uint64 // bumped whenever the actor changes
	workspaces []schema.Workspace
	projects   []schema.Project
	currentID  string
	loading    int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store and its collaborators.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPublisher sets the publisher subscribers are served from. The store
// does not close a publisher it was given.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// WithFeedLimit sets how many activities the feed retains.
func WithFeedLimit(n int) Option {
	return func(s *Store) {
		s.feedLimit = n
	}
}

// WithClock sets the time source for createdAt values.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the id source for new entities.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// New creates a store over gw. The mirror is empty until SetActor.
func New(gw *gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		gw:        gw,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
		feedLimit: config.DefaultFeedLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NewMemoryPublisher()
		s.ownsPub = true
	}
	s.logger = s.logger.With("component", "store")
	s.notify = events.NewPublishHelper(s.publisher)
	s.boot = bootstrap.New(gw.Workspaces,
		bootstrap.WithLogger(s.logger),
		bootstrap.WithClock(s.now),
		bootstrap.WithIDGenerator(s.newID),
	)
	s.feed = activity.New(gw.Activities,
		activity.WithLimit(s.feedLimit),
		activity.WithLogger(s.logger),
		activity.WithClock(s.now),
		activity.WithIDGenerator(s.newID),
		activity.WithOnChange(func(feed []schema.Activity) {
			s.notify.Feed(len(feed))
		}),
	)
	return s
}

// Close releases the publisher if the store created it.
func (s *Store) Close() {
	if s.ownsPub {
		s.publisher.Close()
	}
}

// Actor returns the current actor, or nil when logged out.
func (s *Store) Actor() *schema.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actor == nil {
		return nil
	}
	a := *s.actor
	return &a
}

// IsLoading reports whether a load cycle is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// SetActor switches the identity the mirror belongs to. nil logs out and
// clears the mirror; any other actor clears the mirror and re-seeds it from
// the remote store.
func (s *Store) SetActor(ctx context.Context, actor *schema.Actor) error {
	if actor == nil {
		s.Clear()
		return nil
	}
	if actor.ID == "" {
		return plankerrors.ErrInvalidInput("actor.id", "must not be empty")
	}

	a := *actor
	s.mu.Lock()
	changed := s.actor == nil || s.actor.ID != a.ID
	if changed {
		s.epoch++
		s.workspaces = nil
		s.projects = nil
		s.currentID = ""
	}
	epoch := s.epoch
	s.actor = &a
	s.mu.Unlock()

	if changed {
		s.feed.Reset(epoch)
	}
	return s.Reload(ctx)
}

// Clear logs out: the actor, the mirror, the selection and the feed are
// all dropped. Loads in flight for the previous actor are discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.actor = nil
	s.workspaces = nil
	s.projects = nil
	s.currentID = ""
	s.mu.Unlock()

	s.feed.Reset(epoch)
	s.publishSnapshot()
}

// Reload re-seeds the mirror for the current actor. Concurrent reloads
// for the same actor share one load cycle.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.RLock()
	if s.actor == nil {
		s.mu.RUnlock()
		return plankerrors.ErrNoActor()
	}
	actor := *s.actor
	epoch := s.epoch
	s.mu.RUnlock()

	key := fmt.Sprintf("%s/%d", actor.ID, epoch)
	_, err, _ := s.loads.Do(key, func() (any, error) {
		return nil, s.load(ctx, actor, epoch)
	})
	return err
}

// mirrorState is the result of one load cycle.
type mirrorState struct {
	workspaces []schema.Workspace
	projects   []schema.Project
}

func (s *Store) load(ctx context.Context, actor schema.Actor, epoch uint64) error {
	s.setLoading(true, actor.ID)
	defer s.setLoading(false, actor.ID)

	start := s.now()
	state, err := s.fetch(ctx, actor, epoch)
	if err != nil {
		s.logger.Warn("load failed", "actor", actor.ID, "error", err)
		s.notify.Failure("load", errorCode(err), err)
		return err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding load for previous actor", "actor", actor.ID)
		return nil
	}
	s.workspaces = state.workspaces
	s.projects = state.projects
	if s.currentID != "" && findProject(s.projects, s.currentID) < 0 {
		s.currentID = ""
	}
	s.mu.Unlock()

	s.logger.Info("mirror loaded",
		"actor", actor.ID,
		"workspaces", len(state.workspaces),
		"projects", len(state.projects),
		"duration", s.now().Sub(start),
	)
	return nil
}

// fetch runs bootstrap, then loads projects with their tasks while the
// activity feed refreshes alongside. The feed refresh is tagged with epoch
// so it is dropped if the actor changes before it lands.
func (s *Store) fetch(ctx context.Context, actor schema.Actor, epoch uint64) (mirrorState, error) {
	res, err := s.boot.Ensure(ctx, actor)
	if err != nil {
		return mirrorState{}, err
	}
	state := mirrorState{workspaces: res.Workspaces}
	wsIDs := make([]string, len(res.Workspaces))
	for i, w := range res.Workspaces {
		wsIDs[i] = w.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects, err := s.fetchProjects(gctx, wsIDs)
		if err != nil {
			return err
		}
		state.projects = projects
		return nil
	})
	g.Go(func() error {
		// The feed is not part of the mirror; a failure only leaves it stale.
		if err := s.feed.Refresh(gctx, epoch, actor.ID); err != nil {
			s.logger.Warn("activity feed refresh failed", "actor", actor.ID, "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return mirrorState{}, err
	}
	return state, nil
}

func (s *Store) fetchProjects(ctx context.Context, workspaceIDs []string) ([]schema.Project, error) {
	rows, err := s.gw.Projects.Select(ctx,
		gateway.Filter{}.WhereIn("workspace_id", workspaceIDs...).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	projects := make([]schema.Project, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		p, err := schema.ProjectToDomain(r)
		if err != nil {
			return nil, plankerrors.ErrRemote("decode project", err)
		}
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}

	taskRows, err := s.gw.Tasks.Select(ctx,
		gateway.Filter{}.WhereIn("project_id", ids...).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	for _, r := range taskRows {
		t, err := schema.TaskToDomain(r)
		if err != nil {
			return nil, plankerrors.ErrRemote("decode task", err)
		}
		// Tasks whose project is not loaded are not mirrored.
		if i := findProject(projects, t.ProjectID); i >= 0 {
			projects[i].Tasks = append(projects[i].Tasks, t)
		}
	}
	return projects, nil
}

func (s *Store) setLoading(on bool, actorID string) {
	s.mu.Lock()
	if on {
		s.loading++
	} else {
		s.loading--
	}
	s.mu.Unlock()
	s.notify.Loading(on, actorID)
	if !on {
		s.publishSnapshot()
	}
}

// Snapshot returns a deep copy of the consumer-visible state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		Workspaces: append([]schema.Workspace{}, s.workspaces...),
		Projects:   make([]schema.Project, len(s.projects)),
		IsLoading:  s.loading > 0,
	}
	for i, p := range s.projects {
		snap.Projects[i] = p.Clone()
	}
	if s.actor != nil {
		a := *s.actor
		snap.Actor = &a
	}
	if i := findProject(s.projects, s.currentID); i >= 0 {
		cur := s.projects[i].Clone()
		snap.CurrentProject = &cur
	}
	s.mu.RUnlock()

	snap.Activities = s.feed.Feed()
	return snap
}

// Subscribe registers an observer. The channel receives snapshot, change,
// notice, feed and loading events until cancel is called. Slow observers
// miss events rather than block the store.
func (s *Store) Subscribe() (<-chan events.Event, func()) {
	ch := s.publisher.Subscribe(events.GlobalTopic)
	var once sync.Once
	return ch, func() {
		once.Do(func() { s.publisher.Unsubscribe(events.GlobalTopic, ch) })
	}
}

// SetCurrentProject selects the project with id; "" clears the selection.
func (s *Store) SetCurrentProject(id string) error {
	s.mu.Lock()
	if id != "" && findProject(s.projects, id) < 0 {
		s.mu.Unlock()
		return plankerrors.ErrEntityNotFound("project", id)
	}
	s.currentID = id
	s.mu.Unlock()

	s.publishSnapshot()
	return nil
}

func (s *Store) publishSnapshot() {
	s.notify.Snapshot(s.Snapshot())
}

// session returns the current actor and epoch, failing when logged out.
func (s *Store) session() (schema.Actor, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actor == nil {
		return schema.Actor{}, 0, plankerrors.ErrNoActor()
	}
	return *s.actor, s.epoch, nil
}

func findProject(projects []schema.Project, id string) int {
	if id == "" {
		return -1
	}
	for i := range projects {
		if projects[i].ID == id {
			return i
		}
	}
	return -1
}

// findTask returns the indexes of the task with id and its project.
func findTask(projects []schema.Project, id string) (int, int) {
	for pi := range projects {
		if ti := projects[pi].FindTask(id); ti >= 0 {
			return pi, ti
		}
	}
	return -1, -1
}

func findWorkspace(workspaces []schema.Workspace, id string) int {
	for i := range workspaces {
		if workspaces[i].ID == id {
			return i
		}
	}
	return -1
}

func errorCode(err error) string {
	if pe := plankerrors.AsPlankError(err); pe != nil {
		return string(pe.Code)
	}
	return ""
}
