package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it.
type execIface interface {
	Status(ctx context.Context) error
	ListPending(ctx context.Context) error
	ListFailed(ctx context.Context) error
	Sync(ctx context.Context) error
	Force(ctx context.Context) error
	Retry(ctx context.Context, id string) error
	RetryAll(ctx context.Context) error
	Clear(ctx context.Context) error
	Create(ctx context.Context, entity string) error
	Update(ctx context.Context, entity, id string) error
	Delete(ctx context.Context, entity, id string) error
	SetOnline(ctx context.Context, online bool) error
	SetAutoSync(ctx context.Context, enabled bool) error
	Register(ctx context.Context) error
	Login(ctx context.Context) error
}

const helpText = `Available commands:
  status                      sync status summary
  pending | failed            list queued or failed changes
  sync                        process pending changes now
  force                       retry failed changes and sync everything
  retry <id> | retryall       move failed changes back to the queue
  clear                       discard all failed changes (asks to confirm)
  create <entity>             queue a new record
  update <entity> <id>        queue a record update
  delete <entity> <id>        queue a record delete
  online | offline            set the connectivity flag until the next probe
  autosync on|off             toggle automatic syncing
  register | login            account commands
  exit | quit                 leave the program`

// runREPL reads a line, dispatches the first token as the command and
// repeats until EOF, exit or ctx cancellation. Handlers report their own
// errors, so the loop ignores them. Handlers read follow-up input from the
// same reader, so the loop must not buffer past the current line.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "fs %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		usage := func(u string) { fmt.Fprintln(out, "Usage:", u) }

		switch cmd {
		case "help":
			fmt.Fprintln(out, helpText)

		case "status":
			_ = a.Status(ctx)

		case "pending":
			_ = a.ListPending(ctx)

		case "failed":
			_ = a.ListFailed(ctx)

		case "sync":
			_ = a.Sync(ctx)

		case "force":
			_ = a.Force(ctx)

		case "retry":
			if len(args) != 1 {
				usage("retry <id>")
				continue
			}
			_ = a.Retry(ctx, args[0])

		case "retryall":
			_ = a.RetryAll(ctx)

		case "clear":
			_ = a.Clear(ctx)

		case "create":
			if len(args) != 1 {
				usage("create <entity>")
				continue
			}
			_ = a.Create(ctx, args[0])

		case "update":
			if len(args) != 2 {
				usage("update <entity> <id>")
				continue
			}
			_ = a.Update(ctx, args[0], args[1])

		case "delete":
			if len(args) != 2 {
				usage("delete <entity> <id>")
				continue
			}
			_ = a.Delete(ctx, args[0], args[1])

		case "online":
			_ = a.SetOnline(ctx, true)

		case "offline":
			_ = a.SetOnline(ctx, false)

		case "autosync":
			if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
				usage("autosync on|off")
				continue
			}
			_ = a.SetAutoSync(ctx, args[0] == "on")

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}
