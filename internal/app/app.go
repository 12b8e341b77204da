package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/chefscore/internal/config"
	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/preference"
	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/chefscore/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/chefscore/internal/infrastructure/source/cachedsource"
	"github.com/riskibarqy/chefscore/internal/infrastructure/source/filesource"
	"github.com/riskibarqy/chefscore/internal/infrastructure/source/httpsource"
	"github.com/riskibarqy/chefscore/internal/interfaces/httpapi"
	basecache "github.com/riskibarqy/chefscore/internal/platform/cache"
	idgen "github.com/riskibarqy/chefscore/internal/platform/id"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
	"github.com/riskibarqy/chefscore/internal/platform/resilience"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

// Services groups the analytics usecases shared by the HTTP server and the CLI.
type Services struct {
	Catalog     *usecase.CatalogService
	Weeks       *usecase.WeekService
	History     *usecase.HistoryService
	Preferences *usecase.PreferenceService
	Invalidator httpapi.SourceInvalidator
}

// NewServices wires the source, repositories and usecases described by cfg.
// The returned cleanup closes the database pool when one was opened.
func NewServices(cfg config.Config, logger *logging.Logger) (*Services, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}

	src, invalidator, err := NewSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	prefRepo, snapshotRepo, cleanup, err := newRepositories(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	catalog := usecase.NewCatalogService(src, cfg.ManifestPath, logger)
	weeks := usecase.NewWeekService(src, catalog, logger)
	hist := usecase.NewHistoryService(
		catalog,
		weeks,
		snapshotRepo,
		idgen.NewUUIDGenerator(),
		usecase.HistoryConfig{MaxWorkers: cfg.HistoryMaxWorkers},
		logger,
	)
	prefs := usecase.NewPreferenceService(prefRepo, cfg.DefaultLanguage)

	svc := &Services{
		Catalog:     catalog,
		Weeks:       weeks,
		History:     hist,
		Preferences: prefs,
	}
	if invalidator != nil {
		svc.Invalidator = invalidator
	}

	return svc, cleanup, nil
}

// NewSource picks the local or remote week source and optionally fronts it with a TTL cache.
// The invalidator is nil when caching is disabled.
func NewSource(cfg config.Config, logger *logging.Logger) (week.Source, *cachedsource.Source, error) {
	var (
		src week.Source
		err error
	)

	if cfg.RemoteSource() {
		src, err = httpsource.New(httpsource.Config{
			BaseURL:      cfg.DataSource,
			Timeout:      cfg.SourceTimeout,
			MaxRetries:   cfg.SourceMaxRetries,
			MaxBodyBytes: cfg.SourceMaxBodyBytes,
			Logger:       logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.SourceCircuitEnabled,
				FailureThreshold: cfg.SourceCircuitFailureCount,
				OpenTimeout:      cfg.SourceCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.SourceCircuitHalfOpenMaxReq,
			},
		})
	} else {
		src, err = filesource.New(cfg.DataSource, cfg.SourceMaxBodyBytes)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("build week source: %w", err)
	}

	if !cfg.CacheEnabled {
		return src, nil, nil
	}

	cached := cachedsource.New(src, basecache.NewStore[[]byte](cfg.CacheTTL))
	return cached, cached, nil
}

func newRepositories(cfg config.Config, logger *logging.Logger) (preference.Repository, history.SnapshotRepository, func(), error) {
	if cfg.StoreDriver != config.StorePostgres {
		return memory.NewPreferenceRepository(), memory.NewSnapshotRepository(), func() {}, nil
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("close database", "error", err)
		}
	}
	return postgres.NewPreferenceRepository(db), postgres.NewSnapshotRepository(db), cleanup, nil
}

// NewHTTPServer builds the API server on top of already wired services.
func NewHTTPServer(cfg config.Config, svc *Services, logger *logging.Logger) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	if svc == nil {
		return nil, fmt.Errorf("services cannot be nil")
	}

	handler := httpapi.NewHandler(
		svc.Catalog,
		svc.Weeks,
		svc.History,
		svc.Preferences,
		svc.Invalidator,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, cfg.SwaggerEnabled, cfg.CORSAllowedOrigins)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

// Warmup loads the catalog and the historical collection once. Failures are logged and
// leave the server serving empty data until the next reload.
func Warmup(ctx context.Context, svc *Services, logger *logging.Logger) {
	if logger == nil {
		logger = logging.Default()
	}

	if _, err := svc.Catalog.LoadCatalog(ctx); err != nil {
		logger.WarnContext(ctx, "initial catalog load failed", "error", err)
		return
	}

	result, err := svc.History.LoadHistorical(ctx)
	switch {
	case errors.Is(err, usecase.ErrNoData):
		logger.InfoContext(ctx, "no weeks available yet")
	case err != nil:
		logger.WarnContext(ctx, "initial history load failed", "error", err)
	default:
		logger.InfoContext(ctx, "initial history loaded",
			"run_id", result.RunID,
			"loaded", result.LoadedCount,
			"failed", result.FailedCount,
		)
	}
}
