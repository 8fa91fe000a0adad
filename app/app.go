package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/trek/app/config"
	actx "go.hackfix.me/trek/app/context"
	aerrors "go.hackfix.me/trek/app/errors"
	"go.hackfix.me/trek/cli"
	"go.hackfix.me/trek/db"
)

// App is the application.
type App struct {
	name    string
	ctx     *actx.Context
	cli     *cli.CLI
	dataDir string
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application.
func New(name, configFilePath, dataDir string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx, dataDir: dataDir}

	for _, opt := range opts {
		opt(app)
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(ver, configFilePath)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := cfg.Load(); err != nil {
		return aerrors.NewWithCause("failed loading configuration", err,
			"path", app.cli.ConfigFile)
	}
	app.ctx.Config = cfg
	app.cli.ApplyConfig(cfg)

	app.ctx.MigrationsDir = app.cli.Dir
	if app.ctx.MigrationsDir == "" {
		app.ctx.MigrationsDir = "migrations"
	}

	if app.ctx.DB == nil {
		dbPath := app.cli.DB
		if dbPath == "" {
			dbPath = filepath.Join(app.dataDir, fmt.Sprintf("%s.db", app.name))
			if err := app.ctx.FS.MkdirAll(app.dataDir, 0o755); err != nil {
				return aerrors.NewWithCause("failed creating the data directory", err,
					"path", app.dataDir)
			}
		}
		d, err := db.Open(app.ctx.Ctx, dbPath, app.ctx.TimeNow)
		if err != nil {
			return aerrors.NewWithCause("failed opening the target database", err,
				"path", dbPath)
		}
		app.ctx.DB = d
	}

	if err := app.cli.Execute(app.ctx); err != nil {
		return err
	}

	return nil
}
