package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/bexio"
	"github.com/eta-consult/quote-api/internal/catalog"
	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/database"
	"github.com/eta-consult/quote-api/internal/distance"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/geodata"
	"github.com/eta-consult/quote-api/internal/http/handler"
	"github.com/eta-consult/quote-api/internal/http/middleware"
	"github.com/eta-consult/quote-api/internal/http/router"
	"github.com/eta-consult/quote-api/internal/jobs"
	"github.com/eta-consult/quote-api/internal/logger"
	"github.com/eta-consult/quote-api/internal/repository"
	"github.com/eta-consult/quote-api/internal/service"
	"github.com/eta-consult/quote-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title CECB Quote API
// @version 1.0
// @description Prices CECB energy certificates and submits quotes to accounting
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In staging/production secrets may come from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if cfg.Accounting.Token == "" {
		log.Warn("Accounting token is empty; quote submission will be rejected upstream")
	}

	// The submission trail is optional
	db, err := database.NewDatabase(&cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("Database disabled, submissions will not be recorded")
	case err != nil:
		return fmt.Errorf("failed to connect to database: %w", err)
	default:
		log.Info("Database connected", zap.String("host", cfg.Database.Host))
		if cfg.App.Environment == "development" {
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}
	}

	archive, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	tariffs, err := catalog.NewTariffStore(cfg.Catalog.TariffsPath, cfg.Catalog.Watch, log)
	if err != nil {
		return fmt.Errorf("failed to load tariffs: %w", err)
	}
	texts, err := catalog.NewTextStore(cfg.Catalog.TextsPath, cfg.Catalog.Watch, log)
	if err != nil {
		return fmt.Errorf("failed to load texts: %w", err)
	}

	// External clients
	accounting := bexio.NewClient(cfg.Accounting, log)
	buildingCache := geodata.NewCache(cfg.GeoData.CacheCapacity)
	buildings := geodata.NewCachedProvider(geodata.NewClient(cfg.GeoData, log), buildingCache, log)
	distances := distance.NewClient(cfg.Distance, log)

	// Services
	var submissionRepo *repository.SubmissionRepository
	if db != nil {
		submissionRepo = repository.NewSubmissionRepository(db)
	}
	submissions := service.NewSubmissionService(submissionRepo, log)

	quotes := service.NewQuoteService(service.QuoteServiceDeps{
		Validator:   service.NewFormValidator(log),
		Contacts:    service.NewContactResolver(accounting, contactDefaults(&cfg.Accounting), log),
		Buildings:   buildings,
		Distance:    distances,
		Quotes:      accounting,
		Tariffs:     tariffs,
		Texts:       texts,
		Submissions: submissions,
		Archive:     archive,
	}, quoteDefaults(cfg), log)

	scheduler := startScheduler(cfg, buildingCache, submissions, log)

	// HTTP
	var dbPinger handler.Pinger
	if db != nil {
		dbPinger = handler.PingFunc(func(ctx context.Context) error { return database.Ping(ctx, db) })
	}

	health := handler.NewHealthHandler(dbPinger, accounting, log)
	if scheduler != nil {
		health.WithJobs(scheduler)
	}

	rt := router.NewRouter(
		cfg,
		log,
		auth.NewMiddleware(&cfg.ApiKey, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		health,
		handler.NewQuoteHandler(quotes, log),
		handler.NewSubmissionHandler(submissions, log),
		handler.NewCatalogHandler(tariffs, texts, log),
		handler.NewBuildingHandler(buildings, buildingCache, log),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		closeDatabase(db, log)
		log.Info("Server stopped gracefully")
	}

	return nil
}

func contactDefaults(cfg *config.AccountingConfig) service.ContactDefaults {
	return service.ContactDefaults{
		IndividualTypeID: cfg.IndividualTypeID,
		CompanyTypeID:    cfg.CompanyTypeID,
		CountryID:        cfg.CountryID,
		LanguageID:       cfg.LanguageID,
		UserID:           cfg.UserID,
		OwnerID:          cfg.OwnerID,
		SalutationIDs: map[domain.Salutation]int{
			domain.SalutationMadame:   cfg.MadameSalutationID,
			domain.SalutationMonsieur: cfg.MonsieurSalutationID,
		},
		RelationDescription: cfg.RelationDescription,
	}
}

func quoteDefaults(cfg *config.Config) service.QuoteDefaults {
	return service.QuoteDefaults{
		UserID:        cfg.Accounting.UserID,
		MwstType:      cfg.Accounting.MwstType,
		CurrencyID:    cfg.Accounting.CurrencyID,
		LanguageID:    cfg.Accounting.LanguageID,
		FooterSource:  cfg.Accounting.FooterSource,
		OfficeAddress: cfg.Distance.OfficeAddress,
		Units: service.AccountingUnits{
			TaxID:      cfg.Accounting.TaxID,
			UnitID:     cfg.Accounting.UnitID,
			HourUnitID: cfg.Accounting.HourUnitID,
		},
	}
}

// startScheduler registers the maintenance jobs; it returns nil when jobs are disabled
func startScheduler(cfg *config.Config, cache *geodata.Cache, submissions *service.SubmissionService, log *zap.Logger) *jobs.Scheduler {
	if !cfg.Jobs.Enabled {
		log.Info("Background jobs disabled")
		return nil
	}

	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterCachePurgeJob(scheduler, cache, log, cfg.Jobs.CachePurgeCron); err != nil {
		log.Error("Failed to register cache purge job", zap.Error(err))
	}
	if submissions.Enabled() {
		if err := jobs.RegisterStaleSweepJob(scheduler, submissions, log, cfg.Jobs.StaleSweepCron, cfg.Jobs.StaleAfter()); err != nil {
			log.Error("Failed to register stale sweep job", zap.Error(err))
		}
	}
	scheduler.Start()
	log.Info("Scheduler started", zap.Strings("jobs", scheduler.GetJobNames()))
	return scheduler
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	if err := database.Close(db); err != nil {
		log.Warn("Error closing database connection", zap.Error(err))
	}
}
