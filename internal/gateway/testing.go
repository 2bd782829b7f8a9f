package gateway

import (
	"context"
	"sync"
	"testing"

	"github.com/randalmurphal/plank/internal/db"
	"github.com/randalmurphal/plank/internal/schema"
)

// NewTestGateway returns a gateway over a fresh migrated in-memory
// database that is closed when the test completes.
func NewTestGateway(t testing.TB) *Gateway {
	t.Helper()
	return New(db.NewTestDB(t))
}

// Op names a Table method for fault injection.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// FaultTable wraps a Table and fails chosen operations on demand. It also
// counts calls per operation.
type FaultTable[R any] struct {
	inner Table[R]

	mu       sync.Mutex
	failures map[Op]error
	calls    map[Op]int
	before   map[Op]func()
}

// NewFaultTable wraps inner.
func NewFaultTable[R any](inner Table[R]) *FaultTable[R] {
	return &FaultTable[R]{
		inner:    inner,
		failures: make(map[Op]error),
		calls:    make(map[Op]int),
		before:   make(map[Op]func()),
	}
}

// Fail makes every subsequent op return err without reaching the inner table.
func (f *FaultTable[R]) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// Heal stops failing op.
func (f *FaultTable[R]) Heal(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// Before runs fn at the start of every op call, before any injected
// failure is returned.
func (f *FaultTable[R]) Before(op Op, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fn == nil {
		delete(f.before, op)
		return
	}
	f.before[op] = fn
}

// Calls returns how many times op was invoked.
func (f *FaultTable[R]) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultTable[R]) enter(op Op) error {
	f.mu.Lock()
	f.calls[op]++
	hook := f.before[op]
	err := f.failures[op]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *FaultTable[R]) Select(ctx context.Context, filter Filter) ([]R, error) {
	if err := f.enter(OpSelect); err != nil {
		return nil, err
	}
	return f.inner.Select(ctx, filter)
}

func (f *FaultTable[R]) Insert(ctx context.Context, row R) (R, error) {
	if err := f.enter(OpInsert); err != nil {
		var zero R
		return zero, err
	}
	return f.inner.Insert(ctx, row)
}

func (f *FaultTable[R]) Update(ctx context.Context, id string, cols schema.Columns, guards ...Cond) error {
	if err := f.enter(OpUpdate); err != nil {
		return err
	}
	return f.inner.Update(ctx, id, cols, guards...)
}

func (f *FaultTable[R]) Delete(ctx context.Context, id string) error {
	if err := f.enter(OpDelete); err != nil {
		return err
	}
	return f.inner.Delete(ctx, id)
}

// Faults holds the fault wrappers installed by InjectFaults.
type Faults struct {
	Workspaces *FaultTable[schema.WorkspaceRow]
	Projects   *FaultTable[schema.ProjectRow]
	Tasks      *FaultTable[schema.TaskRow]
	Activities *FaultTable[schema.ActivityRow]
}

// InjectFaults wraps every table of gw in place and returns the wrappers.
func InjectFaults(gw *Gateway) *Faults {
	f := &Faults{
		Workspaces: NewFaultTable(gw.Workspaces),
		Projects:   NewFaultTable(gw.Projects),
		Tasks:      NewFaultTable(gw.Tasks),
		Activities: NewFaultTable(gw.Activities),
	}
	gw.Workspaces = f.Workspaces
	gw.Projects = f.Projects
	gw.Tasks = f.Tasks
	gw.Activities = f.Activities
	return f
}
