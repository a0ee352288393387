// Package app wires the fieldsync client together: local database, remote
// collaborators, sync engine, HTTP API and REPL.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fieldsync/internal/client/cli"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/client/httpapi"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/remote"
	"github.com/dmitrijs2005/fieldsync/internal/client/remote/grpcremote"
	"github.com/dmitrijs2005/fieldsync/internal/client/remote/s3docs"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/changes"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/settings"
	syncer "github.com/dmitrijs2005/fieldsync/internal/client/sync"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/connectivity"
	"github.com/dmitrijs2005/fieldsync/internal/client/sync/queue"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	remote   *grpcremote.Client
	engine   *syncer.Engine
	settings *settings.Store
	entities []models.Entity

	in  io.Reader
	out io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stderr, c.LogLevel)

	db, err := repositories.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rc, err := grpcremote.New(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("grpc client init error: %w", err)
	}

	collaborators := rc.Collaborators(models.RecordEntities...)
	if c.S3.Bucket != "" {
		docs, err := s3docs.New(ctx, s3docs.Config{
			Region:    c.S3.Region,
			Endpoint:  c.S3.Endpoint,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Bucket:    c.S3.Bucket,
		})
		if err != nil {
			_ = rc.Close()
			_ = db.Close()
			return nil, err
		}
		collaborators[models.EntityDocuments] = docs
	} else {
		logger.Warn(ctx, "no S3 bucket configured, documents cannot sync")
	}
	registry := remote.NewRegistry(collaborators)

	st := settings.NewStore(metadata.NewSQLiteRepository(db), models.SyncSettings{
		AutoSync:     c.AutoSync,
		SyncInterval: c.SyncInterval,
	})

	tracker := connectivity.NewTracker(rc, false, logger)

	engine, err := syncer.New(ctx, changes.NewSQLiteRepository(db), st, registry, tracker, syncer.Config{
		ReconnectDelay:   c.ReconnectDelay,
		CallTimeout:      c.CallTimeout,
		DiscardOnFailure: c.DiscardOnFailure,
		Policy:           queue.Policy{HighPriorityEntities: c.HighPriorityEntities},
	}, logger)
	if err != nil {
		_ = rc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("sync engine init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		remote:   rc,
		engine:   engine,
		settings: st,
		entities: registry.Entities(),
		in:       os.Stdin,
		out:      os.Stdout,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run starts the connectivity watcher, the auto-sync scheduler and the HTTP
// API, then runs the REPL. Leaving the REPL or receiving a signal stops
// everything.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(ctx, cancelFunc)
	app.logger.Info(ctx, "starting fieldsync client", "server", app.config.ServerEndpointAddr)

	g, gctx := errgroup.WithContext(ctx)

	// The scheduler must be subscribed before the first probe so the
	// initial offline to online transition triggers a reconnect drain.
	app.engine.Start(gctx)

	g.Go(func() error {
		app.engine.Connectivity().Run(gctx, app.config.OnlineCheckInterval)
		return nil
	})

	if app.config.HTTPAddr != "" {
		api := httpapi.New(app.engine, app.engine.Optimistic(), app.settings, app.entities, app.logger)
		g.Go(func() error {
			return api.ListenAndServe(gctx, app.config.HTTPAddr)
		})
	}

	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		repl := cli.NewApp(app.engine, app.engine.Optimistic(), app.engine.Connectivity(), app.remote, app.in, app.out)
		repl.Run(gctx)
	}()

	select {
	case <-replDone:
	case <-gctx.Done():
	}
	cancelFunc()

	err := g.Wait()
	app.engine.Stop()
	app.close(ctx)
	return err
}

func (app *App) close(ctx context.Context) {
	if err := app.remote.Close(); err != nil {
		app.logger.Warn(ctx, "closing grpc client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "closing database", "error", err)
	}
}
