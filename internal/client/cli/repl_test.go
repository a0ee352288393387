package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
}

func (f *fakeExec) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeExec) Status(context.Context) error      { return f.record("status") }
func (f *fakeExec) ListPending(context.Context) error { return f.record("pending") }
func (f *fakeExec) ListFailed(context.Context) error  { return f.record("failed") }
func (f *fakeExec) Sync(context.Context) error        { return f.record("sync") }
func (f *fakeExec) Force(context.Context) error       { return f.record("force") }
func (f *fakeExec) RetryAll(context.Context) error    { return f.record("retryall") }
func (f *fakeExec) Clear(context.Context) error       { return f.record("clear") }
func (f *fakeExec) Register(context.Context) error    { return f.record("register") }
func (f *fakeExec) Login(context.Context) error       { return f.record("login") }

func (f *fakeExec) Retry(_ context.Context, id string) error { return f.record("retry %s", id) }

func (f *fakeExec) Create(_ context.Context, entity string) error {
	return f.record("create %s", entity)
}

func (f *fakeExec) Update(_ context.Context, entity, id string) error {
	return f.record("update %s %s", entity, id)
}

func (f *fakeExec) Delete(_ context.Context, entity, id string) error {
	return f.record("delete %s %s", entity, id)
}

func (f *fakeExec) SetOnline(_ context.Context, online bool) error {
	return f.record("online %t", online)
}

func (f *fakeExec) SetAutoSync(_ context.Context, enabled bool) error {
	return f.record("autosync %t", enabled)
}

func run(t *testing.T, input string) (*fakeExec, string) {
	t.Helper()
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), exec, func() string { return "(online)" }, bufio.NewReader(strings.NewReader(input)), &out)
	return exec, out.String()
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	exec, out := run(t, strings.Join([]string{
		"help",
		"status",
		"pending",
		"failed",
		"",
		"sync",
		"force",
		"retry c-1",
		"retryall",
		"clear",
		"create tasks",
		"update tasks t-1",
		"delete daily_logs d-9",
		"offline",
		"online",
		"autosync off",
		"register",
		"login",
		"exit",
		"status",
	}, "\n"))

	assert.Equal(t, []string{
		"status", "pending", "failed", "sync", "force", "retry c-1", "retryall", "clear",
		"create tasks", "update tasks t-1", "delete daily_logs d-9",
		"online false", "online true", "autosync false", "register", "login",
	}, exec.calls)
	assert.Contains(t, out, "Available commands:")
	assert.Contains(t, out, "fs (online)> ")
	assert.Contains(t, out, "Bye!")
}

func TestRunREPL_UsageAndUnknown(t *testing.T) {
	exec, out := run(t, "retry\nupdate tasks\ncreate\nautosync maybe\nfoobar\nquit\n")

	assert.Empty(t, exec.calls)
	assert.Contains(t, out, "Usage: retry <id>")
	assert.Contains(t, out, "Usage: update <entity> <id>")
	assert.Contains(t, out, "Usage: autosync on|off")
	assert.Contains(t, out, "Unknown command: foobar")
}

func TestRunREPL_StopsAtEOFAndCancel(t *testing.T) {
	exec, _ := run(t, "sync")
	assert.Equal(t, []string{"sync"}, exec.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &fakeExec{}
	runREPL(ctx, e, func() string { return "" }, bufio.NewReader(strings.NewReader("sync\n")), &bytes.Buffer{})
	assert.Empty(t, e.calls)
}
