package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/executor"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/optimistic"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/status"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	status   status.Status
	pending  []models.Change
	failed   []models.Change
	result   executor.Result
	retryErr error
	autoSync bool
	cleared  bool
}

func (f *fakeEngine) GetSyncStatus() status.Status { return f.status }

func (f *fakeEngine) ProcessPendingChanges(context.Context) (executor.Result, error) {
	return f.result, nil
}

func (f *fakeEngine) ForceSyncAll(context.Context) (executor.Result, error) { return f.result, nil }

func (f *fakeEngine) RetryFailedChange(context.Context, models.ChangeID) error { return f.retryErr }

func (f *fakeEngine) RetryAllFailedChanges(context.Context) (int, error) { return len(f.failed), nil }

func (f *fakeEngine) ClearFailedChanges(context.Context) (int, error) {
	f.cleared = true
	n := len(f.failed)
	f.failed = nil
	return n, nil
}

func (f *fakeEngine) Pending() []models.Change { return f.pending }
func (f *fakeEngine) Failed() []models.Change  { return f.failed }

func (f *fakeEngine) SetAutoSync(_ context.Context, v bool) error {
	f.autoSync = v
	return nil
}

type fakeMutator struct {
	last optimistic.Action
	err  error
}

func (m *fakeMutator) result(a optimistic.Action) (optimistic.Result, error) {
	m.last = a
	if m.err != nil {
		return optimistic.Result{}, m.err
	}
	return optimistic.Result{Record: optimistic.Record{ID: a.ID, Entity: a.Entity, Data: a.Data}}, nil
}

func (m *fakeMutator) Create(_ context.Context, e models.Entity, data map[string]any) (optimistic.Result, error) {
	return m.result(optimistic.Action{ID: "gen-1", Type: models.ChangeCreate, Entity: e, Data: data})
}

func (m *fakeMutator) Update(_ context.Context, e models.Entity, id string, data map[string]any) (optimistic.Result, error) {
	return m.result(optimistic.Action{ID: models.ChangeID(id), Type: models.ChangeUpdate, Entity: e, Data: data})
}

func (m *fakeMutator) Delete(_ context.Context, e models.Entity, id string) (optimistic.Result, error) {
	return m.result(optimistic.Action{ID: models.ChangeID(id), Type: models.ChangeDelete, Entity: e})
}

type fakeConn struct{ online bool }

func (c *fakeConn) Set(online bool) { c.online = online }

type fakeAuth struct {
	users map[string]string
	err   error
}

func (a *fakeAuth) Register(_ context.Context, u, p string) error {
	if _, ok := a.users[u]; ok {
		return common.ErrAlreadyExists
	}
	a.users[u] = p
	return nil
}

func (a *fakeAuth) Login(_ context.Context, u, p string) error {
	if a.err != nil {
		return a.err
	}
	if a.users[u] != p {
		return common.ErrUnauthorized
	}
	return nil
}

type appFixture struct {
	engine  *fakeEngine
	mutator *fakeMutator
	conn    *fakeConn
	auth    *fakeAuth
	out     *bytes.Buffer
}

func newApp(t *testing.T, input string) (*App, *appFixture) {
	t.Helper()
	f := &appFixture{
		engine:  &fakeEngine{},
		mutator: &fakeMutator{},
		conn:    &fakeConn{},
		auth:    &fakeAuth{users: map[string]string{}},
		out:     &bytes.Buffer{},
	}
	return NewApp(f.engine, f.mutator, f.conn, f.auth, strings.NewReader(input), f.out), f
}

func TestApp_Status(t *testing.T) {
	a, f := newApp(t, "")
	last := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	f.engine.status = status.Status{
		PendingCount: 3, HighPriorityCount: 1, FailedCount: 1, RetryExhaustedCount: 1,
		Message: "1 high-priority change pending", LastSync: &last,
		ConnectionQuality: status.ConnectionQuality{Level: status.QualityGood},
		SyncStats:         status.SyncStats{TotalSynced: 9, TotalFailed: 1, SuccessRate: 0.9},
	}

	require.NoError(t, a.Status(context.Background()))
	out := f.out.String()
	assert.Contains(t, out, "1 high-priority change pending")
	assert.Contains(t, out, "pending: 3 (high priority: 1)")
	assert.Contains(t, out, "retry exhausted: 1")
	assert.Contains(t, out, "last sync: 2026-03-01 09:30:00")
	assert.Contains(t, out, "success rate: 90%")
}

func TestApp_Prompt(t *testing.T) {
	a, f := newApp(t, "")
	assert.Equal(t, "(offline)", a.prompt())

	f.engine.status = status.Status{IsOnline: true, PendingCount: 2}
	a.userName = "sam"
	assert.Equal(t, "(sam, online, 2 pending)", a.prompt())
}

func TestApp_ListFailedShowsExhausted(t *testing.T) {
	a, f := newApp(t, "")
	f.engine.failed = []models.Change{
		{ID: "c-1", Type: models.ChangeUpdate, Entity: models.EntityTasks, RetryCount: 1, Error: "timeout"},
		{ID: "c-2", Type: models.ChangeCreate, Entity: models.EntityProjects, RetryCount: models.MaxRetries, Error: "conflict"},
	}

	require.NoError(t, a.ListFailed(context.Background()))
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "retries 1/3")
	assert.NotContains(t, lines[0], "exhausted")
	assert.Contains(t, lines[1], "3/3 exhausted")

	f.out.Reset()
	require.NoError(t, a.ListPending(context.Background()))
	assert.Equal(t, "No pending changes\n", f.out.String())
}

func TestApp_SyncPrintsResult(t *testing.T) {
	a, f := newApp(t, "")
	f.engine.result = executor.Result{Processed: 2, Failed: 1, Skipped: 1}

	require.NoError(t, a.Sync(context.Background()))
	assert.Equal(t, "Processed 2, failed 1, still pending 1\n", f.out.String())
}

func TestApp_Retry(t *testing.T) {
	a, f := newApp(t, "")
	require.NoError(t, a.Retry(context.Background(), "c-1"))
	assert.Contains(t, f.out.String(), "queued for retry")

	f.engine.retryErr = common.ErrRetryExhausted
	require.ErrorIs(t, a.Retry(context.Background(), "c-1"), common.ErrRetryExhausted)
	assert.Contains(t, f.out.String(), "retry limit")
}

func TestApp_ClearNeedsConfirmation(t *testing.T) {
	a, f := newApp(t, "no\nyes\n")
	f.engine.failed = []models.Change{{ID: "c-1"}, {ID: "c-2"}}

	require.ErrorIs(t, a.Clear(context.Background()), common.ErrConfirmationNeeded)
	assert.False(t, f.engine.cleared)

	require.NoError(t, a.Clear(context.Background()))
	assert.True(t, f.engine.cleared)
	assert.Contains(t, f.out.String(), "Discarded 2 failed changes")
}

func TestApp_CreateReadsFields(t *testing.T) {
	a, f := newApp(t, "title=Hang doors\nhours=3\n\n")

	require.NoError(t, a.Create(context.Background(), "tasks"))
	assert.Equal(t, models.EntityTasks, f.mutator.last.Entity)
	assert.Equal(t, map[string]any{"title": "Hang doors", "hours": 3.0}, f.mutator.last.Data)
	assert.Contains(t, f.out.String(), "Queued create of tasks gen-1")
}

func TestApp_UpdateAndDelete(t *testing.T) {
	a, f := newApp(t, "status=done\n\n")
	ctx := context.Background()

	require.NoError(t, a.Update(ctx, "tasks", "t-1"))
	assert.Equal(t, models.ChangeUpdate, f.mutator.last.Type)
	assert.Equal(t, "done", f.mutator.last.Data["status"])

	require.NoError(t, a.Delete(ctx, "tasks", "t-1"))
	assert.Equal(t, models.ChangeDelete, f.mutator.last.Type)

	f.mutator.err = errors.New("persist queue: disk full")
	require.Error(t, a.Delete(ctx, "tasks", "t-2"))
	assert.Contains(t, f.out.String(), "error: persist queue: disk full")
}

func TestApp_OnlineAndAutoSync(t *testing.T) {
	a, f := newApp(t, "")
	ctx := context.Background()

	require.NoError(t, a.SetOnline(ctx, true))
	assert.True(t, f.conn.online)
	require.NoError(t, a.SetAutoSync(ctx, true))
	assert.True(t, f.engine.autoSync)
	assert.Contains(t, f.out.String(), "Auto-sync enabled")
}

func TestApp_RegisterAndLogin(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }

	a, f := newApp(t, "sam\nsam\nsam\n")
	ctx := context.Background()

	require.NoError(t, a.Register(ctx))
	require.ErrorIs(t, a.Register(ctx), common.ErrAlreadyExists)
	require.NoError(t, a.Login(ctx))
	assert.Equal(t, "sam", a.userName)

	f.auth.err = common.ErrUnavailable
	a2, _ := newApp(t, "sam\n")
	a2.auth = f.auth
	require.ErrorIs(t, a2.Login(ctx), common.ErrUnavailable)
	assert.Empty(t, a2.userName)
}

func TestApp_RunDrivesREPL(t *testing.T) {
	a, f := newApp(t, "create tasks\ntitle=Inspect\n\npending\nexit\n")
	f.engine.status = status.Status{IsOnline: true}

	a.Run(context.Background())
	assert.Equal(t, "Inspect", f.mutator.last.Data["title"])
	assert.Contains(t, f.out.String(), "Bye!")
}
