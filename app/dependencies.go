package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/grocerlink/commerce-router/config"
	"github.com/grocerlink/commerce-router/repositories"
	"github.com/grocerlink/commerce-router/repositories/postgres"
	"github.com/grocerlink/commerce-router/services/bulkhead"
	"github.com/grocerlink/commerce-router/services/decisions"
	"github.com/grocerlink/commerce-router/services/events"
	"github.com/grocerlink/commerce-router/services/metrics"
	"github.com/grocerlink/commerce-router/services/orders"
	"github.com/grocerlink/commerce-router/services/providers"
	"github.com/grocerlink/commerce-router/services/providers/simulated"
	"github.com/grocerlink/commerce-router/services/quotes"
	"github.com/grocerlink/commerce-router/services/scoring"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Metrics   repositories.MetricsRepository
	Outcomes  repositories.OutcomeRepository
	TxManager repositories.TransactionManager

	// Domain services
	Registry       *providers.Registry
	EventService   *events.Service
	MetricsService *metrics.Service
	QuoteService   *quotes.Service
	Scorer         *scoring.Service
	DecisionStore  *decisions.Store
	TokenIssuer    *decisions.TokenIssuer
	OrderService   *orders.Service

	cleanupStop chan struct{}
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := deps.initEvents(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize events: %w", err)
	}

	catalog, err := deps.initProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initRouting(cfg, catalog); err != nil {
		return nil, fmt.Errorf("failed to initialize routing: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection pool and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() error {
	repos := d.RepoFactory.NewRepositories()

	d.Metrics = repos.Metrics
	d.Outcomes = repos.Outcomes
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initEvents starts the async event pipeline
func (d *Dependencies) initEvents(cfg *config.Config) error {
	d.EventService = events.NewService(d.Logger, events.Config{
		BufferSize:  cfg.Events.BufferSize,
		WorkerCount: cfg.Events.WorkerCount,
	})
	if err := d.EventService.Start(); err != nil {
		return err
	}

	d.Logger.Info("event pipeline started",
		zap.Int("buffer_size", cfg.Events.BufferSize),
		zap.Int("workers", cfg.Events.WorkerCount))
	return nil
}

// initProviders loads the provider catalog and registers an adapter per entry.
// All adapters are the deterministic simulated vendor; swapping in real HTTP
// integrations is a per-provider adapter change behind the same interface.
func (d *Dependencies) initProviders(cfg *config.Config) (*config.Catalog, error) {
	catalog, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry()
	for _, pc := range catalog.Providers {
		adapter := simulated.New(pc.ID, simulated.DefaultOptions())
		if err := registry.Register(pc, adapter); err != nil {
			return nil, fmt.Errorf("failed to register provider %q: %w", pc.ID, err)
		}
		d.Logger.Info("provider registered",
			zap.String("provider_id", pc.ID),
			zap.Bool("enabled", pc.Enabled),
			zap.Strings("regions", pc.Regions))
	}

	if catalog.EnabledCount() == 0 {
		d.Logger.Warn("no providers enabled in catalog; all route requests will fail")
	}

	d.Registry = registry
	return catalog, nil
}

// initRouting wires the quote, scoring, decision and order services
func (d *Dependencies) initRouting(cfg *config.Config, catalog *config.Catalog) error {
	d.MetricsService = metrics.NewService(d.TxManager, d.Metrics, d.Outcomes, d.EventService, d.Logger)

	limiter := bulkhead.NewLimiter(cfg.Routing.MaxInflightPerProvider, d.Logger)
	d.QuoteService = quotes.NewService(d.Registry, limiter, cfg.Routing.QuoteDeadline, d.Logger)

	scorer, err := scoring.NewService(catalog.Weights, cfg.Routing.SubstitutionPenalty, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to build scorer: %w", err)
	}
	d.Scorer = scorer

	d.DecisionStore = decisions.NewStore(cfg.Routing.DecisionStoreSize)
	d.cleanupStop = make(chan struct{})
	go d.DecisionStore.StartCleanupWorker(cfg.Routing.CleanupInterval, d.cleanupStop)

	secret := cfg.Routing.TokenSecret
	if secret == "" {
		// config.Validate rejects this in production
		secret = "insecure-local-development-secret"
		d.Logger.Warn("TOKEN_SECRET not set, using insecure development secret")
	}
	tokens, err := decisions.NewTokenIssuer(secret, cfg.Routing.DecisionTTL)
	if err != nil {
		return fmt.Errorf("failed to build token issuer: %w", err)
	}
	d.TokenIssuer = tokens

	d.OrderService = orders.NewService(
		d.Registry,
		d.QuoteService,
		d.Scorer,
		d.MetricsService,
		d.DecisionStore,
		d.TokenIssuer,
		d.EventService,
		cfg.Routing.MaxAlternatives,
		d.Logger,
	)

	d.Logger.Info("routing pipeline initialized",
		zap.Int("providers", d.Registry.Count()),
		zap.Duration("decision_ttl", cfg.Routing.DecisionTTL),
		zap.Int("max_alternatives", cfg.Routing.MaxAlternatives))
	return nil
}

// Close gracefully shuts down all dependencies in reverse dependency order
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Stop the event pipeline first so in-flight order events drain
	if d.EventService != nil {
		timeout := d.Config.Server.ShutdownTimeout
		if err := d.EventService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop event pipeline: %w", err))
		}
	}

	if d.cleanupStop != nil {
		close(d.cleanupStop)
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
