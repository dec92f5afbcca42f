package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"persona-engine/internal/catalog"
	"persona-engine/internal/config"
	"persona-engine/internal/detect"
	"persona-engine/internal/pipeline"
	"persona-engine/internal/publish"
	"persona-engine/internal/scheduler"
	"persona-engine/internal/service"
	"persona-engine/internal/storage"
	"persona-engine/internal/window"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(a.Config.Catalog.Path)
}

func (a *App) newDetectors() []detect.Detector {
	return detect.All(
		detect.SubscriptionOptions{
			MinRecurrences:       a.Config.Detect.Subscription.MinRecurrences,
			CadenceToleranceDays: a.Config.Detect.Subscription.CadenceToleranceDays,
		},
		detect.SavingsOptions{
			EssentialCategories: a.Config.Detect.EssentialCategories,
		},
	)
}

func (a *App) newEngine(store *storage.Store, cat *catalog.Catalog) *pipeline.Engine {
	resolver := window.NewResolver(store, window.ResolverOptions{}, a.Logger)
	return pipeline.New(resolver, a.newDetectors(), cat, pipeline.Options{}, a.Logger)
}

func (a *App) newPublisher() (publish.Publisher, error) {
	if !a.Config.Publish.Enabled {
		return nil, nil
	}
	return publish.NewKafkaPublisher(a.Config.Publish.Brokers, a.Config.Publish.Topic, a.Logger)
}

func (a *App) newService(store *storage.Store, cat *catalog.Catalog, publisher publish.Publisher, sched *scheduler.Scheduler) *service.Service {
	return service.New(
		a.newEngine(store, cat),
		store,
		store,
		publisher,
		store,
		sched,
		service.Options{
			Workers: a.Config.Batch.Workers,
			LockKey: a.Config.Batch.AdvisoryLockKey,
		},
		a.Logger,
	)
}

// Run executes the long-running scheduled re-evaluation loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to run the service")
	}
	defer closeStore()

	cat, err := a.loadCatalog()
	if err != nil {
		return err
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:        a.Config.Schedule.Interval,
		AlignToInterval: a.Config.Schedule.AlignToInterval,
		StartupDelay:    a.Config.Schedule.StartupDelay,
	}, a.Logger)
	if err != nil {
		return err
	}

	svc := a.newService(store, cat, publisher, sched)

	a.Logger.Info().Int("personas", cat.Len()).Msg("starting evaluation service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("evaluation service stopped")
	return nil
}

// EvaluateOptions configure a single-user evaluation.
type EvaluateOptions struct {
	UserID        string
	ReferenceDate time.Time
}

// BatchOptions configure a one-shot batch run.
type BatchOptions struct {
	ReferenceDate time.Time
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting assignment history.
type ExportOptions struct {
	From    *time.Time
	To      *time.Time
	CSVPath string
	PNGPath string
	MaxRows int
}
