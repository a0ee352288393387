package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/executor"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/optimistic"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/status"
	"github.com/dmitrijs2005/fieldsync/internal/common"
)

// SyncEngine is the part of the sync engine the REPL drives.
type SyncEngine interface {
	GetSyncStatus() status.Status
	ProcessPendingChanges(ctx context.Context) (executor.Result, error)
	ForceSyncAll(ctx context.Context) (executor.Result, error)
	RetryFailedChange(ctx context.Context, id models.ChangeID) error
	RetryAllFailedChanges(ctx context.Context) (int, error)
	ClearFailedChanges(ctx context.Context) (int, error)
	Pending() []models.Change
	Failed() []models.Change
	SetAutoSync(ctx context.Context, enabled bool) error
}

type Mutator interface {
	Create(ctx context.Context, entity models.Entity, data map[string]any) (optimistic.Result, error)
	Update(ctx context.Context, entity models.Entity, id string, data map[string]any) (optimistic.Result, error)
	Delete(ctx context.Context, entity models.Entity, id string) (optimistic.Result, error)
}

// ConnectivityOverride forces the online flag, e.g. to work offline on purpose.
type ConnectivityOverride interface {
	Set(online bool)
}

type Authenticator interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
}

type App struct {
	engine  SyncEngine
	mutator Mutator
	conn    ConnectivityOverride
	auth    Authenticator

	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(engine SyncEngine, mutator Mutator, conn ConnectivityOverride, auth Authenticator, in io.Reader, out io.Writer) *App {
	return &App{
		engine:  engine,
		mutator: mutator,
		conn:    conn,
		auth:    auth,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// Run reads commands until EOF, exit or ctx cancellation.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "fieldsync CLI (type 'help' for commands)")
	runREPL(ctx, a, a.prompt, a.reader, a.out)
}

func (a *App) prompt() string {
	s := a.engine.GetSyncStatus()
	parts := make([]string, 0, 3)
	if a.userName != "" {
		parts = append(parts, a.userName)
	}
	if s.IsOnline {
		parts = append(parts, "online")
	} else {
		parts = append(parts, "offline")
	}
	if s.PendingCount > 0 {
		parts = append(parts, fmt.Sprintf("%d pending", s.PendingCount))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) Status(ctx context.Context) error {
	s := a.engine.GetSyncStatus()
	a.printf("%s\n", s.Message)
	a.printf("  pending: %d (high priority: %d)  failed: %d (retry exhausted: %d)\n",
		s.PendingCount, s.HighPriorityCount, s.FailedCount, s.RetryExhaustedCount)
	a.printf("  connection: %s  estimated sync: %s\n", s.ConnectionQuality.Level, s.EstimatedSyncTime)
	if s.LastSync != nil {
		a.printf("  last sync: %s\n", s.LastSync.Format("2006-01-02 15:04:05"))
	}
	a.printf("  synced: %d  failed: %d  success rate: %.0f%%\n",
		s.SyncStats.TotalSynced, s.SyncStats.TotalFailed, s.SyncStats.SuccessRate*100)
	return nil
}

func (a *App) ListPending(ctx context.Context) error {
	changes := a.engine.Pending()
	if len(changes) == 0 {
		a.printf("No pending changes\n")
		return nil
	}
	for _, c := range changes {
		a.printf("%s  %-6s %-12s %-6s %s\n", c.ID, c.Type, c.Entity, c.Priority, c.Timestamp.Format("15:04:05"))
	}
	return nil
}

func (a *App) ListFailed(ctx context.Context) error {
	changes := a.engine.Failed()
	if len(changes) == 0 {
		a.printf("No failed changes\n")
		return nil
	}
	for _, c := range changes {
		retry := fmt.Sprintf("%d/%d", c.RetryCount, models.MaxRetries)
		if !c.CanRetry() {
			retry += " exhausted"
		}
		a.printf("%s  %-6s %-12s retries %s  %s\n", c.ID, c.Type, c.Entity, retry, c.Error)
	}
	return nil
}

func (a *App) printResult(res executor.Result) {
	a.printf("Processed %d, failed %d", res.Processed, res.Failed)
	if res.Skipped > 0 {
		a.printf(", still pending %d", res.Skipped)
	}
	a.printf("\n")
}

func (a *App) Sync(ctx context.Context) error {
	res, err := a.engine.ProcessPendingChanges(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printResult(res)
	return nil
}

func (a *App) Force(ctx context.Context) error {
	res, err := a.engine.ForceSyncAll(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printResult(res)
	return nil
}

func (a *App) Retry(ctx context.Context, id string) error {
	err := a.engine.RetryFailedChange(ctx, models.ChangeID(id))
	switch {
	case errors.Is(err, common.ErrRetryExhausted):
		a.printf("Change %s reached the retry limit; clear it or edit the record again\n", id)
		return err
	case err != nil:
		return a.fail(err)
	}
	a.printf("Change %s queued for retry\n", id)
	return nil
}

func (a *App) RetryAll(ctx context.Context) error {
	n, err := a.engine.RetryAllFailedChanges(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Queued %d failed changes for retry\n", n)
	return nil
}

// Clear discards failed changes after the user types "yes".
func (a *App) Clear(ctx context.Context) error {
	n := len(a.engine.Failed())
	if n == 0 {
		a.printf("No failed changes\n")
		return nil
	}
	answer, err := GetSimpleText(a.reader, fmt.Sprintf("Discard %d failed changes? They cannot be recovered. Type 'yes' to confirm", n), a.out)
	if err != nil {
		return a.fail(err)
	}
	if answer != "yes" {
		a.printf("Cancelled\n")
		return common.ErrConfirmationNeeded
	}

	cleared, err := a.engine.ClearFailedChanges(ctx)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Discarded %d failed changes\n", cleared)
	return nil
}

func (a *App) Create(ctx context.Context, entity string) error {
	data, err := GetFields(a.reader, a.out)
	if err != nil {
		return a.fail(err)
	}
	res, err := a.mutator.Create(ctx, models.Entity(entity), data)
	if err != nil {
		return a.fail(err)
	}
	a.printf("Queued create of %s %s\n", entity, res.Record.ID)
	return nil
}

func (a *App) Update(ctx context.Context, entity, id string) error {
	data, err := GetFields(a.reader, a.out)
	if err != nil {
		return a.fail(err)
	}
	if _, err := a.mutator.Update(ctx, models.Entity(entity), id, data); err != nil {
		return a.fail(err)
	}
	a.printf("Queued update of %s %s\n", entity, id)
	return nil
}

func (a *App) Delete(ctx context.Context, entity, id string) error {
	if _, err := a.mutator.Delete(ctx, models.Entity(entity), id); err != nil {
		return a.fail(err)
	}
	a.printf("Queued delete of %s %s\n", entity, id)
	return nil
}

func (a *App) SetOnline(ctx context.Context, online bool) error {
	a.conn.Set(online)
	return nil
}

func (a *App) SetAutoSync(ctx context.Context, enabled bool) error {
	if err := a.engine.SetAutoSync(ctx, enabled); err != nil {
		return a.fail(err)
	}
	if enabled {
		a.printf("Auto-sync enabled\n")
	} else {
		a.printf("Auto-sync disabled\n")
	}
	return nil
}

func (a *App) credentials() (string, string, error) {
	userName, err := GetSimpleText(a.reader, "-Enter user name", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return "", "", err
	}
	return userName, string(password), nil
}

func (a *App) Register(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return a.fail(err)
	}
	if err := a.auth.Register(ctx, userName, password); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			a.printf("User %s already exists\n", userName)
			return err
		}
		return a.fail(err)
	}
	a.printf("Registered %s, now log in\n", userName)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.credentials()
	if err != nil {
		return a.fail(err)
	}
	if err := a.auth.Login(ctx, userName, password); err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			a.printf("Server unavailable; changes stay queued until you log in\n")
			return err
		}
		return a.fail(err)
	}
	a.userName = userName
	a.printf("Login successful\n")
	return nil
}

func (a *App) fail(err error) error {
	a.printf("error: %v\n", err)
	return err
}
