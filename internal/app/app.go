// Package app wires configuration, logging, the store and the engine together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/config"
	"github.com/dori/mindmap/internal/db"
	"github.com/dori/mindmap/internal/engine"
	"github.com/dori/mindmap/internal/focus"
	"github.com/dori/mindmap/internal/model"
	"github.com/dori/mindmap/internal/notify"
)

// App holds the application state and dependencies
type App struct {
	Config   *config.Config
	DB       *db.DB
	Engine   *engine.Engine
	Notifier *notify.Notifier
	Log      *logrus.Logger
	Project  *model.Project
	DataDir  string
	lockFile *flock.Flock
	logFile  io.Closer
}

// Options controls how much of the app is brought up
type Options struct {
	// Exclusive takes the single-instance lock. The TUI needs it; one-shot
	// CLI commands do not.
	Exclusive bool
}

// New creates a new application instance
func New(cfg *config.Config, opts Options) (*App, error) {
	dbPath := cfg.DatabasePath()
	if dbPath == "" {
		dbPath = db.DefaultPath()
	}
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logPath := cfg.GetString(config.KeyLogFile)
	if logPath == "" {
		logPath = filepath.Join(dataDir, "mindmap.log")
	}
	logger, logFile, err := NewLogger(cfg.GetString(config.KeyLogLevel), logPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Log:      logger,
		DataDir:  dataDir,
		Notifier: notify.New(),
		logFile:  logFile,
	}
	app.Notifier.Enable(cfg.GetBool(config.KeyNotify))

	if opts.Exclusive {
		if err := app.lock(); err != nil {
			app.Close()
			return nil, err
		}
	}

	database, err := db.Open(dbPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetDuration(config.KeyStoreTimeout))
	defer cancel()
	project, err := database.EnsureProject(ctx, cfg.ProjectID(), cfg.GetString(config.KeyProjectName))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	app.Project = project

	app.Engine = engine.New(engine.Config{
		Store:       database,
		ProjectID:   project.ID,
		Logger:      app.Logger("engine"),
		CallTimeout: cfg.GetDuration(config.KeyStoreTimeout),
	})

	app.Logger("app").WithFields(logrus.Fields{
		"db":      database.Path(),
		"project": project.ID,
	}).Info("started")
	return app, nil
}

// NewLogger returns a logger writing to path at the given level. Stdout
// belongs to the TUI, so nothing is ever written there.
func NewLogger(level, path string) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, f, nil
}

// Logger returns an entry tagged with a component name
func (a *App) Logger(component string) *logrus.Entry {
	return a.Log.WithField("component", component)
}

// FocusOptions builds the selection controller's options from configuration
func (a *App) FocusOptions() focus.Options {
	return focus.Options{
		TaskPlaceholder:  a.Config.GetString(config.KeyTaskTitle),
		GroupPlaceholder: a.Config.GetString(config.KeyGroupTitle),
		FocusDelay:       a.Config.GetDuration(config.KeyFocusDelay),
		FocusAttempts:    a.Config.FocusAttempts(),
		Logger:           a.Logger("focus"),
	}
}

// lock takes mindmap.lock next to the database. Only one TUI may edit an
// outline at a time; one-shot commands skip this.
func (a *App) lock() error {
	l := flock.New(filepath.Join(a.DataDir, "mindmap.lock"))
	ok, err := l.TryLock()
	switch {
	case err != nil:
		return fmt.Errorf("lock %s: %w", l.Path(), err)
	case !ok:
		return errors.New("another mindmap is already running on this outline")
	}
	a.lockFile = l
	return nil
}

// Close releases the store, the instance lock and the log file, in that
// order, and reports every failure.
func (a *App) Close() error {
	var err error
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	if a.lockFile != nil {
		err = multierr.Append(err, a.lockFile.Unlock())
	}
	if a.logFile != nil {
		err = multierr.Append(err, a.logFile.Close())
	}
	return err
}
