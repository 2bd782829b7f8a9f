package store

import (
	"context"

	"github.com/randalmurphal/plank/internal/activity"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/events"
)

// mutation is one pass through the write pipeline:
//
//	persist -> mirror -> audit -> notify
//
// persist is the only stage that can fail the operation. mirror runs under
// the store lock and only when persist succeeded and the actor is unchanged.
// audit and notify are best effort. A write that outlives its actor is
// audited but neither mirrored nor announced.
type mutation struct {
	op      string
	epoch   uint64
	persist func(ctx context.Context) error
	mirror  func()
	audit   activity.Entry
	change  events.Change
	message string
}

// run executes m and returns the persist error, if any.
func (s *Store) run(ctx context.Context, m mutation) error {
	if err := m.persist(ctx); err != nil {
		s.fail(m.op, err)
		return err
	}
	if !s.applyMirror(m) {
		// The actor changed while the write was in flight; the write
		// belongs to a mirror that no longer exists. The remote row is
		// committed, so it is still audited.
		s.logger.Info("mirror changed during write; skipping local apply", "op", m.op)
		s.feed.Append(ctx, m.audit)
		return nil
	}
	s.feed.Log(ctx, m.epoch, m.audit)
	s.notify.Change(m.change)
	s.notify.Success(m.op, m.message)
	s.publishSnapshot()
	return nil
}

func (s *Store) applyMirror(m mutation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != m.epoch {
		return false
	}
	m.mirror()
	return true
}

// fail reports a failed operation to the logger and to subscribers.
func (s *Store) fail(op string, err error) {
	switch plankerrors.Classify(err) {
	case plankerrors.ClassInput:
		s.logger.Debug("operation rejected", "op", op, "error", err)
	default:
		s.logger.Warn("operation failed", "op", op, "error", err)
	}
	s.notify.Failure(op, errorCode(err), err)
}

// reject reports an operation refused before reaching the remote store.
func (s *Store) reject(op string, err error) error {
	s.fail(op, err)
	return err
}
