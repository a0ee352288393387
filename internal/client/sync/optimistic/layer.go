// Package optimistic keeps local projections of mutations that have been
// queued but not yet applied remotely, keyed by the change id.
package optimistic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/executor"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/queue"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusDeleting = "deleting"
)

// Enqueuer is the part of queue.Store the layer uses.
type Enqueuer interface {
	Enqueue(ctx context.Context, in queue.Intent) (models.Change, error)
}

// Record is the assumed post-mutation state shown before the change syncs.
type Record struct {
	ID        models.ChangeID   `json:"id"`
	Type      models.ChangeType `json:"type"`
	Entity    models.Entity     `json:"entity"`
	Data      map[string]any    `json:"data"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Action is a mutation with its optimistic projection. ID is generated when empty.
type Action struct {
	ID             models.ChangeID
	Type           models.ChangeType
	Entity         models.Entity
	Data           map[string]any
	OptimisticData map[string]any
	Priority       models.Priority
}

type Result struct {
	Record Record        `json:"record"`
	Change models.Change `json:"change"`
}

type Layer struct {
	mu      sync.RWMutex
	records map[models.ChangeID]Record

	queue            Enqueuer
	discardOnFailure bool
	log              logging.Logger

	now   func() time.Time
	newID func() string
}

// New returns a layer enqueuing into q. When discardOnFailure is set, a
// change that fails remotely also drops its optimistic record.
func New(q Enqueuer, discardOnFailure bool, log logging.Logger) *Layer {
	return &Layer{
		records:          make(map[models.ChangeID]Record),
		queue:            q,
		discardOnFailure: discardOnFailure,
		log:              log.With("module", "optimistic"),
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

// Perform records the optimistic data and then enqueues the change under the
// same id. It fails only when the change cannot be stored locally, in which
// case the previous optimistic record (if any) is restored.
func (l *Layer) Perform(ctx context.Context, a Action) (Result, error) {
	if a.ID == "" {
		a.ID = models.ChangeID(l.newID())
	}

	rec := Record{
		ID:        a.ID,
		Type:      a.Type,
		Entity:    a.Entity,
		Data:      models.Change{Data: a.OptimisticData}.Clone().Data,
		CreatedAt: l.now(),
	}

	l.mu.Lock()
	prev, hadPrev := l.records[a.ID]
	l.records[a.ID] = rec
	l.mu.Unlock()

	change, err := l.queue.Enqueue(ctx, queue.Intent{
		ID:       a.ID,
		Type:     a.Type,
		Entity:   a.Entity,
		Data:     a.Data,
		Priority: a.Priority,
	})
	if err != nil {
		l.mu.Lock()
		if hadPrev {
			l.records[a.ID] = prev
		} else {
			delete(l.records, a.ID)
		}
		l.mu.Unlock()
		return Result{}, fmt.Errorf("enqueue %s %s: %w", a.Type, a.Entity, err)
	}

	return Result{Record: cloneRecord(rec), Change: change}, nil
}

// Create queues a create with a generated record id shared by the record,
// the change and the payload.
func (l *Layer) Create(ctx context.Context, entity models.Entity, data map[string]any) (Result, error) {
	id := l.newID()

	payload := withFields(data, map[string]any{"id": id})
	return l.Perform(ctx, Action{
		ID:             models.ChangeID(id),
		Type:           models.ChangeCreate,
		Entity:         entity,
		Data:           payload,
		OptimisticData: withFields(payload, map[string]any{"status": StatusPending}),
	})
}

// Update queues an update of record id. Repeated updates of a record that has
// not synced yet fold into the same pending change.
func (l *Layer) Update(ctx context.Context, entity models.Entity, id string, data map[string]any) (Result, error) {
	payload := withFields(data, map[string]any{"id": id})
	return l.Perform(ctx, Action{
		ID:             models.ChangeID(id),
		Type:           models.ChangeUpdate,
		Entity:         entity,
		Data:           payload,
		OptimisticData: withFields(payload, map[string]any{"status": StatusPending}),
	})
}

func (l *Layer) Delete(ctx context.Context, entity models.Entity, id string) (Result, error) {
	return l.Perform(ctx, Action{
		ID:             models.ChangeID(id),
		Type:           models.ChangeDelete,
		Entity:         entity,
		Data:           map[string]any{"id": id},
		OptimisticData: map[string]any{"id": id, "status": StatusDeleting},
	})
}

func (l *Layer) Get(id models.ChangeID) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[id]
	if !ok {
		return Record{}, false
	}
	return cloneRecord(rec), true
}

func (l *Layer) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, cloneRecord(rec))
	}
	return out
}

// Remove drops the record for id. Absent ids are ignored.
func (l *Layer) Remove(id models.ChangeID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, id)
}

// Settle reacts to a change leaving the pending queue.
func (l *Layer) Settle(s executor.Settlement) {
	if !s.Succeeded() && !l.discardOnFailure {
		return
	}
	l.Remove(s.Change.ID)
	l.log.Debug(context.Background(), "optimistic record settled", "id", s.Change.ID, "succeeded", s.Succeeded())
}

func withFields(data map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(data)+len(extra))
	for k, v := range data {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func cloneRecord(r Record) Record {
	r.Data = models.Change{Data: r.Data}.Clone().Data
	return r
}
