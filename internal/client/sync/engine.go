// Package syncer wires the offline-sync components together and exposes the
// operations the UI layers (HTTP API, REPL) call.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/remote"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/connectivity"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/executor"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/optimistic"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/queue"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/scheduler"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/status"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// SettingsStore persists the offline-sync document fields outside the queues.
// settings.Store satisfies it.
type SettingsStore interface {
	LastSync(ctx context.Context) (*time.Time, error)
	SetLastSync(ctx context.Context, t time.Time) error
	SyncSettings(ctx context.Context) (models.SyncSettings, error)
	SetAutoSync(ctx context.Context, enabled bool) error
	SetSyncInterval(ctx context.Context, d time.Duration) error
}

type Config struct {
	ReconnectDelay   time.Duration
	CallTimeout      time.Duration
	DiscardOnFailure bool
	Policy           queue.Policy
}

type Engine struct {
	store      *queue.Store
	conn       *connectivity.Tracker
	exec       *executor.Executor
	sched      *scheduler.Scheduler
	stats      *status.StatsTracker
	optimistic *optimistic.Layer
	settings   SettingsStore
	log        logging.Logger

	mu       sync.RWMutex
	lastSync *time.Time

	now func() time.Time
}

// New loads persisted state and builds the engine. The scheduler is not
// started; call Start.
func New(ctx context.Context, persister queue.Persister, settings SettingsStore, registry *remote.Registry,
	conn *connectivity.Tracker, cfg Config, log logging.Logger) (*Engine, error) {

	store := queue.NewStore(persister, cfg.Policy, log)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	lastSync, err := settings.LastSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("load last sync: %w", err)
	}
	syncSettings, err := settings.SyncSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sync settings: %w", err)
	}

	e := &Engine{
		store:    store,
		conn:     conn,
		stats:    status.NewStatsTracker(),
		settings: settings,
		log:      log.With("module", "engine"),
		lastSync: lastSync,
		now:      time.Now,
	}

	e.exec = executor.New(store, registry, conn, e, e.stats, executor.Config{CallTimeout: cfg.CallTimeout}, log)
	e.optimistic = optimistic.New(store, cfg.DiscardOnFailure, log)
	e.exec.OnSettled(e.optimistic.Settle)

	e.sched = scheduler.New(e.exec, conn, scheduler.Config{
		AutoSync:       syncSettings.AutoSync,
		Interval:       syncSettings.SyncInterval,
		ReconnectDelay: cfg.ReconnectDelay,
	}, log)

	return e, nil
}

func (e *Engine) Start(ctx context.Context) { e.sched.Start(ctx) }
func (e *Engine) Stop()                     { e.sched.Stop() }

// SetLastSync persists and caches the completion time of a drain.
func (e *Engine) SetLastSync(ctx context.Context, t time.Time) error {
	if err := e.settings.SetLastSync(ctx, t); err != nil {
		return fmt.Errorf("persist last sync: %w", err)
	}
	e.mu.Lock()
	e.lastSync = &t
	e.mu.Unlock()
	return nil
}

func (e *Engine) GetSyncStatus() status.Status {
	snap := e.store.Snapshot()
	info := e.conn.NetworkInfo()

	e.mu.RLock()
	lastSync := e.lastSync
	e.mu.RUnlock()

	return status.Derive(status.Input{
		Pending:        snap.Pending,
		Failed:         snap.Failed,
		SyncInProgress: e.exec.InProgress(),
		IsOnline:       e.conn.IsOnline(),
		LastSync:       lastSync,
		RTT:            info.RTT,
		RTTSamples:     info.Samples,
		Stats:          e.stats.Stats(),
		Now:            e.now(),
	})
}

// ProcessPendingChanges runs one drain now, regardless of auto-sync.
func (e *Engine) ProcessPendingChanges(ctx context.Context) (executor.Result, error) {
	return e.exec.Drain(ctx)
}

// RetryFailedChange moves one failed change back to the pending queue.
// It returns common.ErrNotFound or common.ErrRetryExhausted when it cannot.
func (e *Engine) RetryFailedChange(ctx context.Context, id models.ChangeID) error {
	var found *models.Change
	for _, c := range e.store.Failed() {
		if c.ID == id {
			found = &c
			break
		}
	}
	if found == nil {
		return fmt.Errorf("failed change %s: %w", id, common.ErrNotFound)
	}
	if !found.CanRetry() {
		return fmt.Errorf("failed change %s: %w", id, common.ErrRetryExhausted)
	}

	moved, err := e.store.Retry(ctx, id)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("failed change %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (e *Engine) RetryAllFailedChanges(ctx context.Context) (int, error) {
	return e.store.RetryAll(ctx)
}

// ClearFailedChanges discards every failed change. Callers must have
// obtained explicit user confirmation.
func (e *Engine) ClearFailedChanges(ctx context.Context) (int, error) {
	return e.store.ClearFailed(ctx)
}

// ForceSyncAll retries every eligible failed change and drains, ignoring
// the auto-sync flag. It does nothing while offline or while a drain runs.
func (e *Engine) ForceSyncAll(ctx context.Context) (executor.Result, error) {
	if !e.conn.IsOnline() || e.exec.InProgress() {
		return executor.Result{Success: true}, nil
	}
	if _, err := e.store.RetryAll(ctx); err != nil {
		return executor.Result{}, err
	}
	return e.exec.Drain(ctx)
}

func (e *Engine) SetAutoSync(ctx context.Context, enabled bool) error {
	if err := e.settings.SetAutoSync(ctx, enabled); err != nil {
		return fmt.Errorf("persist auto sync: %w", err)
	}
	e.sched.SetAutoSync(enabled)
	return nil
}

func (e *Engine) SetSyncInterval(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", d)
	}
	if err := e.settings.SetSyncInterval(ctx, d); err != nil {
		return fmt.Errorf("persist sync interval: %w", err)
	}
	e.sched.SetInterval(d)
	return nil
}

func (e *Engine) SyncSettings() models.SyncSettings {
	cfg := e.sched.Config()
	return models.SyncSettings{AutoSync: cfg.AutoSync, SyncInterval: cfg.Interval}
}

func (e *Engine) Pending() []models.Change            { return e.store.Pending() }
func (e *Engine) Failed() []models.Change             { return e.store.Failed() }
func (e *Engine) Optimistic() *optimistic.Layer       { return e.optimistic }
func (e *Engine) Connectivity() *connectivity.Tracker { return e.conn }
