// Package bootstrap assembles the accounting services from configuration.
// The API server and the operator CLI share it so both see the same storage,
// run-key store and change signals.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/cache"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/erp/acct/internal/infrastructure/event"
	"github.com/erp/acct/internal/infrastructure/logger"
	"github.com/erp/acct/internal/infrastructure/notify"
	"github.com/erp/acct/internal/infrastructure/persistence"
	"github.com/erp/acct/internal/infrastructure/scheduler"
	"github.com/erp/acct/internal/infrastructure/storage"
	"github.com/erp/acct/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// App holds the wired services and the resources they depend on
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Origin  string // Stamped on change signals raised by this process
	Redis   redis.UniversalClient
	Backend *persistence.Backend
	Bus     *event.InMemoryEventBus
	Feed    *event.ChangeFeed
	Relay   *event.RedisRelay // nil without Redis
	Repos   *persistence.Repositories
	Runs    shared.IdempotencyStore
	Archive *storage.Archive // nil unless archive.enabled
	Metrics *telemetry.BillingMetrics

	Recurring *acctapp.RecurringService
	Ledger    *acctapp.LedgerService
	Credits   *acctapp.CreditService
	Recon     *acctapp.ReconciliationService
	Reports   *acctapp.ReportService

	closers []func() error
}

// Option configures Build
type Option func(*buildOptions)

type buildOptions struct {
	meter      metric.Meter
	dispatcher accounting.DocumentDispatcher
	redis      redis.UniversalClient
	objects    storage.ObjectStorage
}

// WithMeter records billing metrics on meter
func WithMeter(m metric.Meter) Option {
	return func(o *buildOptions) { o.meter = m }
}

// WithDispatcher replaces the dispatcher selected from the mail config
func WithDispatcher(d accounting.DocumentDispatcher) Option {
	return func(o *buildOptions) { o.dispatcher = d }
}

// WithRedisClient uses an existing client instead of dialing cfg.Redis
func WithRedisClient(c redis.UniversalClient) Option {
	return func(o *buildOptions) { o.redis = c }
}

// WithObjectStorage archives into store instead of the configured archive driver
func WithObjectStorage(store storage.ObjectStorage) Option {
	return func(o *buildOptions) { o.objects = store }
}

// Build opens the configured backends and wires every accounting service.
// Close releases what Build opened.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (_ *App, err error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}

	app := &App{Config: cfg, Logger: log, Origin: uuid.NewString()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	loc, err := cfg.Billing.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid billing timezone: %w", err)
	}

	if err := app.openRedis(ctx, o.redis); err != nil {
		return nil, err
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	app.Backend, err = persistence.OpenBackend(cfg, app.Redis, persistence.WithGormLogger(gormLog))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	app.closers = append(app.closers, app.Backend.Close)
	if app.Backend.Database != nil && cfg.Telemetry.DBTracing {
		if err := telemetry.InstrumentDB(app.Backend.Database.DB, cfg.Storage.Driver, log); err != nil {
			return nil, fmt.Errorf("failed to instrument database: %w", err)
		}
	}

	if o.meter != nil {
		if app.Metrics, err = telemetry.NewBillingMetrics(o.meter); err != nil {
			return nil, err
		}
	}

	app.Bus = event.NewInMemoryEventBus(log.Named("events"))
	app.Feed = event.NewChangeFeed(log.Named("changes"))
	app.Bus.Subscribe(app.Feed)
	app.Bus.Subscribe(event.NewChangeCounter(app.Metrics))
	if app.Redis != nil {
		app.Relay = event.NewRedisRelay(app.Redis, app.Bus, app.Origin, "", log.Named("relay"))
		app.Bus.Subscribe(app.Relay)
	}

	app.Repos = persistence.NewRepositories(app.Backend.Store, companyDefaults(cfg.Company),
		persistence.WithPublisher(app.Bus),
		persistence.WithOrigin(app.Origin),
		persistence.WithLogger(log.Named("store")),
	)
	app.Runs = app.runStore(log)
	app.closers = append(app.closers, app.Runs.Close)

	dispatcher := o.dispatcher
	if dispatcher == nil {
		if dispatcher, err = notify.NewDispatcher(cfg.Mail, log.Named("notify")); err != nil {
			return nil, err
		}
	}

	if err := app.openArchive(ctx, o.objects); err != nil {
		return nil, err
	}
	recurringOpts := []acctapp.Option{acctapp.WithDispatcher(dispatcher), acctapp.WithRunTTL(cfg.Scheduler.IdempotencyTTL)}
	if app.Archive != nil {
		recurringOpts = append(recurringOpts, acctapp.WithArchiver(app.Archive))
	}

	common := []acctapp.Option{
		acctapp.WithLocation(loc),
		acctapp.WithLogger(log),
		acctapp.WithEventPublisher(app.Bus),
		acctapp.WithMetrics(app.Metrics),
	}
	app.Recurring = acctapp.NewRecurringService(app.Repos.Templates, app.Repos.Invoices, app.Repos.Settings, app.Runs,
		append(common, recurringOpts...)...)
	app.Ledger = acctapp.NewLedgerService(acctapp.LedgerRepositories{
		Invoices:   app.Repos.Invoices,
		Quotations: app.Repos.Quotations,
		Payments:   app.Repos.Payments,
		Sales:      app.Repos.Sales,
		Expenses:   app.Repos.Expenses,
		Settings:   app.Repos.Settings,
	}, common...)
	app.Credits = acctapp.NewCreditService(app.Repos.Credits, app.Repos.Invoices,
		append(common, acctapp.WithCreditLimit(cfg.Billing.EnforceCreditLimit))...)
	app.Recon = acctapp.NewReconciliationService(app.Repos.Invoices, app.Repos.Quotations, app.Repos.Payments, app.Repos.Credits, common...)
	app.Reports = acctapp.NewReportService(acctapp.ReportRepositories{
		Invoices:   app.Repos.Invoices,
		Quotations: app.Repos.Quotations,
		Sales:      app.Repos.Sales,
		Credits:    app.Repos.Credits,
		Expenses:   app.Repos.Expenses,
		Payments:   app.Repos.Payments,
		Settings:   app.Repos.Settings,
	}, common...)

	unobserve, err := app.Metrics.ObserveActiveTemplates(app.Recurring)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, unobserve)

	log.Info("Accounting services ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("redis", app.Redis != nil),
		zap.Bool("archive", app.Archive != nil),
		zap.String("timezone", loc.String()),
		zap.String("origin", app.Origin),
	)
	return app, nil
}

// openRedis connects when Redis is enabled or backs the store
func (a *App) openRedis(ctx context.Context, existing redis.UniversalClient) error {
	if existing != nil {
		a.Redis = existing
		return nil
	}
	if !a.Config.Redis.Enabled && a.Config.Storage.Driver != config.StorageRedis {
		return nil
	}
	client, err := cache.NewRedisClient(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	a.Redis = client
	a.closers = append(a.closers, client.Close)
	return nil
}

// openArchive selects the object store for generated documents
func (a *App) openArchive(ctx context.Context, existing storage.ObjectStorage) error {
	ac := a.Config.Archive
	store := existing
	switch {
	case store != nil:
	case !ac.Enabled:
		return nil
	case ac.Driver == config.ArchiveMemory:
		store = storage.NewMemoryObjectStorage()
	default:
		s3, err := storage.NewS3ObjectStorage(ctx, ac, storage.WithLogger(a.Logger.Named("archive")))
		if err != nil {
			return err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return err
		}
		store = s3
	}
	a.Archive = storage.NewArchive(store, ac.Prefix, storage.WithArchiveLogger(a.Logger.Named("archive")))
	return nil
}

// runStore prefers Redis, then the SQL run ledger, then memory
func (a *App) runStore(log *zap.Logger) shared.IdempotencyStore {
	var opts []cache.FactoryOption
	opts = append(opts, cache.WithLogger(log))
	if ledger := a.Backend.RunLedger(); ledger != nil {
		opts = append(opts, cache.WithFallback(ledger))
	}
	var client redis.UniversalClient
	if a.Config.Redis.Enabled {
		client = a.Redis
	}
	return cache.NewIdempotencyStoreFactory(client, opts...).CreateStore()
}

// NewScheduler builds the worker pool and the due-run trigger. Neither is started.
func (a *App) NewScheduler() (*scheduler.Scheduler, *scheduler.RecurringTrigger, error) {
	sc := a.Config.Scheduler
	pool, err := scheduler.NewScheduler(scheduler.SchedulerConfig{
		MaxConcurrentJobs: sc.MaxConcurrentJobs,
		JobTimeout:        sc.JobTimeout,
		RetryAttempts:     sc.RetryAttempts,
		RetryDelay:        sc.RetryDelay,
	}, a.Recurring, a.Logger.Named("scheduler"))
	if err != nil {
		return nil, nil, err
	}

	var triggerOpts []scheduler.TriggerOption
	if a.Redis != nil && a.Config.Redis.Enabled {
		triggerOpts = append(triggerOpts, scheduler.WithLocker(cache.NewRedisLocker(a.Redis, "")))
	}
	trigger := scheduler.NewRecurringTrigger(scheduler.TriggerConfig{
		CheckInterval: sc.CheckInterval,
		LockTTL:       sc.LockTTL,
		MaxRetries:    sc.RetryAttempts,
	}, a.Recurring, pool, a.Logger.Named("trigger"), triggerOpts...)
	return pool, trigger, nil
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func companyDefaults(c config.CompanyConfig) accounting.CompanySettings {
	s := accounting.DefaultCompanySettings()
	if c.Name != "" {
		s.Name = c.Name
	}
	s.Email = c.Email
	if c.CurrencySymbol != "" {
		s.CurrencySymbol = c.CurrencySymbol
	}
	s.TaxRate = decimal.NewFromFloat(c.TaxRate)
	return s
}
