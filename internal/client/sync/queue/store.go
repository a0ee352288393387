// Package queue holds the pending change queue and the failed change store.
//
// Both lists live in one Store so that moving a change between them is a
// single locked step: a change is always in exactly one of the two lists
// until it is completed or cleared. Every mutation is flushed through the
// Persister before it becomes visible.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/google/uuid"
)

// Persister stores both lists. changes.SQLiteRepository satisfies it.
type Persister interface {
	LoadAll(ctx context.Context) (pending, failed []models.Change, err error)
	ReplaceAll(ctx context.Context, pending, failed []models.Change) error
}

// Intent is a mutation requested by a caller. ID and Priority are optional.
type Intent struct {
	ID       models.ChangeID
	Type     models.ChangeType
	Entity   models.Entity
	Data     map[string]any
	Priority models.Priority
}

// Snapshot is a point-in-time copy of both lists.
type Snapshot struct {
	Pending []models.Change
	Failed  []models.Change
}

// Store holds the Pending and Failed lists and persists every mutation.
type Store struct {
	mu        sync.Mutex
	pending   []models.Change
	failed    []models.Change
	persister Persister
	policy    Policy
	log       logging.Logger

	now   func() time.Time
	newID func() string
}

// NewStore returns an empty Store; call Load to restore persisted lists.
func NewStore(p Persister, policy Policy, log logging.Logger) *Store {
	return &Store{
		persister: p,
		policy:    policy,
		log:       log.With("module", "queue"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load replaces the in-memory lists with the persisted ones.
func (s *Store) Load(ctx context.Context) error {
	pending, failed, err := s.persister.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending, s.failed = pending, failed

	s.log.Info(ctx, "queue loaded", "pending", len(pending), "failed", len(failed))
	return nil
}

// Enqueue appends a new change built from in.
//
// When in.ID names a change that is still pending, the intent is folded into
// it: position is kept, data is replaced, an update of an unsynced create
// stays a create, and the revision grows. When in.ID names a failed change,
// that change is superseded by the new one at the end of the pending list.
func (s *Store) Enqueue(ctx context.Context, in Intent) (models.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := in.ID
	if id == "" {
		id = models.ChangeID(s.newID())
	}

	data := models.Change{Data: in.Data}.Clone().Data
	pending, failed := s.copyLists()

	if i := indexOf(pending, id); i >= 0 {
		c := pending[i]
		if !(c.Type == models.ChangeCreate && in.Type == models.ChangeUpdate) {
			c.Type = in.Type
		}
		c.Entity = in.Entity
		c.Data = data
		c.Timestamp = s.now()
		c.Priority = s.priority(in.Priority, c.Type, c.Entity)
		c.Revision++
		pending[i] = c

		if err := s.commit(ctx, pending, failed); err != nil {
			return models.Change{}, err
		}
		s.log.Debug(ctx, "change coalesced", "id", id, "revision", c.Revision)
		return c.Clone(), nil
	}

	if i := indexOf(failed, id); i >= 0 {
		failed = append(failed[:i], failed[i+1:]...)
	}

	c := models.Change{
		ID:        id,
		Type:      in.Type,
		Entity:    in.Entity,
		Data:      data,
		Timestamp: s.now(),
		Priority:  s.priority(in.Priority, in.Type, in.Entity),
	}
	pending = append(pending, c)

	if err := s.commit(ctx, pending, failed); err != nil {
		return models.Change{}, err
	}
	s.log.Debug(ctx, "change enqueued", "id", id, "type", c.Type, "entity", c.Entity, "priority", c.Priority)
	return c.Clone(), nil
}

// Remove drops a pending change. Absent ids are ignored.
func (s *Store) Remove(ctx context.Context, id models.ChangeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, failed := s.copyLists()
	i := indexOf(pending, id)
	if i < 0 {
		return nil
	}
	pending = append(pending[:i], pending[i+1:]...)
	return s.commit(ctx, pending, failed)
}

// Complete removes a pending change that was applied remotely, but only if it
// still has the given revision. It reports whether the change was removed.
func (s *Store) Complete(ctx context.Context, id models.ChangeID, revision int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, failed := s.copyLists()
	i := indexOf(pending, id)
	if i < 0 || pending[i].Revision != revision {
		return false, nil
	}
	pending = append(pending[:i], pending[i+1:]...)
	if err := s.commit(ctx, pending, failed); err != nil {
		return false, err
	}
	return true, nil
}

// MoveFromPending records a failed attempt and moves the change to the
// failed store. Absent ids are ignored.
func (s *Store) MoveFromPending(ctx context.Context, id models.ChangeID, errMsg string) (bool, error) {
	return s.fail(ctx, id, -1, errMsg)
}

// FailRevision is MoveFromPending guarded by revision: a change that was
// edited after the failed attempt started stays pending for the next drain.
func (s *Store) FailRevision(ctx context.Context, id models.ChangeID, revision int, errMsg string) (bool, error) {
	return s.fail(ctx, id, revision, errMsg)
}

func (s *Store) fail(ctx context.Context, id models.ChangeID, revision int, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, failed := s.copyLists()
	i := indexOf(pending, id)
	if i < 0 || (revision >= 0 && pending[i].Revision != revision) {
		return false, nil
	}

	c := pending[i].Clone()
	pending = append(pending[:i], pending[i+1:]...)

	now := s.now()
	c.Error = errMsg
	c.RetryCount++
	c.LastFailedAt = &now
	failed = append(failed, c)

	if err := s.commit(ctx, pending, failed); err != nil {
		return false, err
	}
	s.log.Warn(ctx, "change failed", "id", id, "retry_count", c.RetryCount, "error", errMsg)
	return true, nil
}

// Retry moves a failed change back to the end of the pending list when it has
// retries left. It reports whether the change was moved.
func (s *Store) Retry(ctx context.Context, id models.ChangeID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, failed := s.copyLists()
	i := indexOf(failed, id)
	if i < 0 || !failed[i].CanRetry() {
		return false, nil
	}

	c := failed[i]
	failed = append(failed[:i], failed[i+1:]...)
	pending = append(pending, c)

	if err := s.commit(ctx, pending, failed); err != nil {
		return false, err
	}
	return true, nil
}

// RetryAll retries every eligible failed change, keeping their relative
// order, and returns how many were moved.
func (s *Store) RetryAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, _ := s.copyLists()
	kept := make([]models.Change, 0, len(s.failed))
	moved := 0
	for _, c := range s.failed {
		if c.CanRetry() {
			pending = append(pending, c)
			moved++
			continue
		}
		kept = append(kept, c)
	}
	if moved == 0 {
		return 0, nil
	}

	if err := s.commit(ctx, pending, kept); err != nil {
		return 0, err
	}
	s.log.Info(ctx, "failed changes retried", "count", moved, "exhausted", len(kept))
	return moved, nil
}

// ClearFailed discards every failed change.
func (s *Store) ClearFailed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.failed)
	if n == 0 {
		return 0, nil
	}
	pending, _ := s.copyLists()
	if err := s.commit(ctx, pending, nil); err != nil {
		return 0, err
	}
	s.log.Warn(ctx, "failed changes cleared", "count", n)
	return n, nil
}

// Pending returns a copy of the pending changes in drain order.
func (s *Store) Pending() []models.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.pending)
}

// Failed returns a copy of the failed changes.
func (s *Store) Failed() []models.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.failed)
}

// Snapshot copies both lists under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Pending: cloneAll(s.pending), Failed: cloneAll(s.failed)}
}

// commit persists the new lists and swaps them in. On error the current
// lists are left untouched.
func (s *Store) commit(ctx context.Context, pending, failed []models.Change) error {
	if err := s.persister.ReplaceAll(ctx, pending, failed); err != nil {
		s.log.Error(ctx, "queue flush failed", "err", err)
		return fmt.Errorf("persist queue: %w", err)
	}
	s.pending, s.failed = pending, failed
	return nil
}

func (s *Store) copyLists() ([]models.Change, []models.Change) {
	pending := make([]models.Change, len(s.pending))
	copy(pending, s.pending)
	failed := make([]models.Change, len(s.failed))
	copy(failed, s.failed)
	return pending, failed
}

func (s *Store) priority(explicit models.Priority, typ models.ChangeType, entity models.Entity) models.Priority {
	if explicit != "" {
		return explicit
	}
	return s.policy.Assign(typ, entity)
}

func indexOf(list []models.Change, id models.ChangeID) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(list []models.Change) []models.Change {
	out := make([]models.Change, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}
