// Package executor drains the pending change queue against the remote
// collaborators, one change at a time, in queue order.
package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// Queue is the part of queue.Store the executor uses.
type Queue interface {
	Pending() []models.Change
	Complete(ctx context.Context, id models.ChangeID, revision int) (bool, error)
	FailRevision(ctx context.Context, id models.ChangeID, revision int, errMsg string) (bool, error)
}

// Applier applies one change remotely. remote.Registry satisfies it.
type Applier interface {
	Apply(ctx context.Context, change models.Change, timeout time.Duration) error
}

// Connectivity reports the current online state.
type Connectivity interface {
	IsOnline() bool
}

// LastSyncStore persists the completion time of the last drain.
type LastSyncStore interface {
	SetLastSync(ctx context.Context, t time.Time) error
}

// StatsRecorder receives drain outcomes.
type StatsRecorder interface {
	Record(processed, failed int, elapsed time.Duration)
}

// Result summarises one drain.
type Result struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
	Failed    int  `json:"failed"`
	// Skipped counts changes edited while their attempt was running; they
	// stay pending for the next drain.
	Skipped int `json:"skipped"`
}

// Settlement tells listeners how a change left the pending queue.
type Settlement struct {
	Change models.Change
	Err    error
}

// Succeeded reports whether the change was applied remotely.
func (s Settlement) Succeeded() bool { return s.Err == nil }

// Config tunes the executor. CallTimeout bounds each remote call; 0 disables it.
type Config struct {
	CallTimeout time.Duration
}

const DefaultCallTimeout = 30 * time.Second

type Executor struct {
	queue    Queue
	applier  Applier
	conn     Connectivity
	lastSync LastSyncStore
	stats    StatsRecorder
	cfg      Config
	log      logging.Logger

	inProgress atomic.Bool

	listenersMu sync.RWMutex
	listeners   []func(Settlement)

	now func() time.Time
}

func New(q Queue, a Applier, conn Connectivity, lastSync LastSyncStore, stats StatsRecorder, cfg Config, log logging.Logger) *Executor {
	return &Executor{
		queue:    q,
		applier:  a,
		conn:     conn,
		lastSync: lastSync,
		stats:    stats,
		cfg:      cfg,
		log:      log.With("module", "executor"),
		now:      time.Now,
	}
}

// OnSettled registers fn to be called for every change a drain settles.
func (e *Executor) OnSettled(fn func(Settlement)) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// InProgress reports whether a drain is running.
func (e *Executor) InProgress() bool {
	return e.inProgress.Load()
}

// Drain applies the current pending snapshot. It returns a successful empty
// Result without doing anything when offline, when nothing is pending or
// when another drain is running. The error is non-nil only when local
// persistence fails or ctx is cancelled; both abort the drain and leave the
// unprocessed changes pending.
func (e *Executor) Drain(ctx context.Context) (Result, error) {
	if !e.conn.IsOnline() {
		e.log.Debug(ctx, "drain skipped", "reason", "offline")
		return Result{Success: true}, nil
	}

	snapshot := e.queue.Pending()
	if len(snapshot) == 0 {
		return Result{Success: true}, nil
	}

	if !e.inProgress.CompareAndSwap(false, true) {
		e.log.Debug(ctx, "drain skipped", "reason", "in progress")
		return Result{Success: true}, nil
	}
	defer e.inProgress.Store(false)

	start := e.now()
	var res Result

	for _, change := range snapshot {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, res, start, err)
		}

		callErr := e.applier.Apply(ctx, change, e.cfg.CallTimeout)
		if callErr != nil && ctx.Err() != nil {
			return e.finish(ctx, res, start, ctx.Err())
		}
		if callErr == nil {
			removed, err := e.queue.Complete(ctx, change.ID, change.Revision)
			if err != nil {
				return e.finish(ctx, res, start, err)
			}
			if !removed {
				res.Skipped++
				continue
			}
			res.Processed++
			e.settle(change, nil)
			continue
		}

		moved, err := e.queue.FailRevision(ctx, change.ID, change.Revision, callErr.Error())
		if err != nil {
			return e.finish(ctx, res, start, err)
		}
		if !moved {
			res.Skipped++
			continue
		}
		res.Failed++
		e.log.Warn(ctx, "change failed", "id", change.ID, "entity", change.Entity, "type", change.Type, "err", callErr)
		e.settle(change, callErr)
	}

	return e.finish(ctx, res, start, nil)
}

func (e *Executor) finish(ctx context.Context, res Result, start time.Time, err error) (Result, error) {
	res.Success = res.Failed == 0 && err == nil
	completed := e.now()

	if e.stats != nil {
		e.stats.Record(res.Processed, res.Failed, completed.Sub(start))
	}
	if e.lastSync != nil {
		if serr := e.lastSync.SetLastSync(context.WithoutCancel(ctx), completed); serr != nil && err == nil {
			err = serr
		}
	}

	if err != nil {
		e.log.Error(ctx, "drain aborted", "processed", res.Processed, "failed", res.Failed, "err", err)
		return res, err
	}
	e.log.Info(ctx, "drain finished", "processed", res.Processed, "failed", res.Failed, "skipped", res.Skipped,
		"elapsed", completed.Sub(start))
	return res, nil
}

func (e *Executor) settle(c models.Change, err error) {
	e.listenersMu.RLock()
	listeners := append([]func(Settlement){}, e.listeners...)
	e.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(Settlement{Change: c, Err: err})
	}
}
