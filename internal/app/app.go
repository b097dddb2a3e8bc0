package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"RequisiteGraph/internal/config"
	"RequisiteGraph/internal/infrastructure/catalog"
	"RequisiteGraph/internal/infrastructure/parser"
	"RequisiteGraph/internal/infrastructure/scheduler"
	"RequisiteGraph/internal/infrastructure/storage"
	"RequisiteGraph/internal/infrastructure/telegram"
	"RequisiteGraph/internal/logging"
	"RequisiteGraph/internal/ports"
	"RequisiteGraph/internal/requisite"
	"RequisiteGraph/internal/scanner"
	"RequisiteGraph/internal/usecase"
)

// Options adjust how the application is assembled.
type Options struct {
	// DryRun keeps records in memory instead of the configured database.
	DryRun bool
	// Fetcher replaces the HTTP catalog fetcher.
	Fetcher ports.CatalogFetcher
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     ports.CourseStore
	closer    io.Closer
	resolver  *usecase.Resolver
	cron      *scheduler.CronScheduler
	scheduler *usecase.Scheduler
}

// New builds the runnable application. The caller must Close it.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithConfig(cfg.Logging, nil)
	}

	layout, err := scanner.NewRegistry().Resolve(cfg.Catalog.Layout)
	if err != nil {
		return nil, fmt.Errorf("catalog layout: %w", err)
	}
	segmenter := parser.NewSegmenter(layout, cfg.Catalog.MaxCourseNumber, baseLogger.With("component", "segmenter"))
	classifier := requisite.NewClassifier(requisite.NewRuleSplitter())

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = catalog.NewHTTPFetcher(cfg.Catalog, baseLogger.With("component", "fetcher"))
	}
	if cfg.Catalog.CacheTTL > 0 {
		fetcher = catalog.NewCachingFetcher(fetcher, cfg.Catalog.CacheTTL)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if opts.DryRun {
		a.store = storage.NewMemoryRepository()
	} else {
		repo, err := storage.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open course store: %w", err)
		}
		a.store = repo
		a.closer = repo
	}

	a.resolver = usecase.NewResolver(usecase.ResolverDeps{
		Fetcher:              fetcher,
		Store:                a.store,
		Segmenter:            segmenter,
		Classifier:           classifier,
		Logger:               baseLogger.With("component", "resolver"),
		FollowSameDepartment: cfg.Resolver.FollowSameDepartment,
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	a.cron = scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
	a.scheduler = usecase.NewScheduler(a.cron, a.resolver, cfg.Departments, notifier, baseLogger.With("component", "scheduler"))

	return a, nil
}

// Store exposes the course store for read-only commands.
func (a *Application) Store() ports.CourseStore {
	return a.store
}

// Run resolves departments once; an empty list means the configured ones.
func (a *Application) Run(ctx context.Context, departments []string) usecase.Summary {
	if len(departments) == 0 {
		departments = a.cfg.Departments
	}
	return a.resolver.ResolveAll(ctx, departments)
}

// Schedule starts periodic refreshes and blocks until ctx is done.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.cron.Validate(); err != nil {
		return err
	}
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	if next, err := a.cron.Next(time.Now()); err == nil {
		a.logger.Info("refresh scheduled", "cron", a.cfg.Scheduler.CronExpression, "next", next, "departments", a.cfg.Departments)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
