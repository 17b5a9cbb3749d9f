package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"oxray-share/internal/common"
	"oxray-share/internal/config"
	"oxray-share/internal/docstore"
	"oxray-share/internal/importer"
	"oxray-share/internal/kvstore"
	"oxray-share/internal/ledger"
	"oxray-share/internal/metrics"
	"oxray-share/internal/sweeper"
	"oxray-share/internal/template"
)

type Application struct {
	app      *fx.App
	logger   *zap.Logger
	pipeline *importer.Pipeline
	ledger   *ledger.Ledger
	sweeper  *sweeper.Sweeper
}

func NewApplication(opts ...common.Option) *Application {
	options := &common.ServiceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Ensure required options are set
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	app := &Application{
		logger: options.Logger,
	}

	// Build fx application
	app.app = fx.New(
		// Core modules
		config.Module,
		metrics.Module,
		template.Module,
		kvstore.Module,
		ledger.Module,
		docstore.Module,
		importer.Module,
		sweeper.Module,

		// Provide base dependencies
		fx.Provide(
			func() *zap.Logger { return options.Logger },
			func() string { return options.Env },
		),

		// Host collaborators, with library defaults
		fx.Provide(func(files *docstore.Files) importer.DocumentStore {
			if options.DocumentStore != nil {
				return options.DocumentStore
			}
			return files
		}),
		fx.Provide(func(logger *zap.Logger) importer.ProfileCreator {
			if options.ProfileCreator != nil {
				return options.ProfileCreator
			}
			return detachedProfiles{logger: logger}
		}),

		fx.Populate(&app.pipeline, &app.ledger, &app.sweeper),

		// Configure fx
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		// Set timeouts
		fx.StopTimeout(30*time.Second),
		fx.StartTimeout(30*time.Second),

		// Register lifecycle hooks
		fx.Invoke(app.registerHooks),
	)

	return app
}

func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// Pipeline returns the composed import pipeline for the host to drive.
func (a *Application) Pipeline() *importer.Pipeline {
	return a.pipeline
}

// Ledger exposes the trial ledger so the host can look up remaining time
// for display and drop config mappings when a profile is deleted.
func (a *Application) Ledger() *ledger.Ledger {
	return a.ledger
}

// Sweeper exposes the cleanup loop for hosts that disable the periodic
// interval and trigger sweeps themselves.
func (a *Application) Sweeper() *sweeper.Sweeper {
	return a.sweeper
}

func (a *Application) registerHooks(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			a.logger.Info("starting application")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			a.logger.Info("stopping application")
			return nil
		},
	})
}

// detachedProfiles is the default ProfileCreator for hosts that only want
// documents written to disk. It hands back a fresh id and leaves actual
// profile registration to the surrounding application.
type detachedProfiles struct {
	logger *zap.Logger
}

func (d detachedProfiles) CreateProfile(_ context.Context, displayName, path string) (string, error) {
	id := uuid.NewString()
	d.logger.Debug("created detached profile",
		zap.String("profile_id", id),
		zap.String("display_name", displayName),
		zap.String("path", path))
	return id, nil
}
