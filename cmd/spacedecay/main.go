package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/spacedecay/internal/api"
	"github.com/star/spacedecay/internal/cache"
	"github.com/star/spacedecay/internal/catalog"
	"github.com/star/spacedecay/internal/config"
	"github.com/star/spacedecay/internal/metrics"
	"github.com/star/spacedecay/internal/pipeline"
	"github.com/star/spacedecay/internal/source"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logger.Info("config",
		"http_addr", cfg.HTTPAddr,
		"data_service_url", cfg.DataServiceURL,
		"decay_source", cfg.DecaySource,
		"fetch_timeout_seconds", cfg.FetchTimeout.Seconds(),
		"cache_backend", cfg.CacheBackend,
		"cache_dir", cfg.CacheDir,
		"refresh_interval_seconds", cfg.RefreshInterval.Seconds(),
		"locale", cfg.Locale,
	)

	cacheStore := cache.NewLazy(func() (cache.Backend, error) {
		return cache.Open(cfg.CacheOptions())
	}, logger.With("component", "cache"))
	defer func() {
		if err := cacheStore.Close(); err != nil {
			logger.Warn("closing cache store", "error", err)
		}
	}()

	loader := pipeline.NewLoader(
		cacheStore,
		source.NewRemoteReader(cfg.DataServiceURL, cfg.FetchTimeout, logger.With("component", "source", "source", catalog.SourceCatalogA)),
		source.NewTabularReader(cfg.DecaySource, cfg.FetchTimeout, logger.With("component", "source", "source", catalog.SourceCatalogB)),
		catalog.NewNormalizer(cfg.LocaleTag()),
		pipeline.Config{FetchTimeout: cfg.FetchTimeout},
		logger.With("component", "pipeline"),
	)
	datasets := catalog.NewStore()

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load once before serving; a hard failure leaves /readyz at 503 until a
	// later refresh succeeds.
	if ds, err := loader.LoadCanonicalDataset(ctx); err != nil {
		logger.Error("initial dataset load failed", "error", err)
	} else {
		datasets.Set(ds)
		logger.Info("initial dataset loaded", "objects", len(ds.Objects), "degraded", ds.Degraded)
	}

	if cfg.RefreshInterval > 0 {
		go refreshLoop(ctx, loader, datasets, cfg.RefreshInterval, logger)
	}

	// Background goroutine to update dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := datasets.AgeSeconds()
				if age >= 0 {
					metrics.SetDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := api.NewServer(cfg.HTTPAddr, logger, datasets, loader)

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// refreshLoop periodically reloads both sources, bypassing raw cache reads.
// A failed reload keeps the dataset already being served.
func refreshLoop(ctx context.Context, loader *pipeline.Loader, datasets *catalog.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ds, err := loader.Refresh(ctx)
			if err != nil {
				logger.Warn("scheduled refresh failed", "error", err)
				continue
			}
			datasets.Set(ds)
			logger.Info("scheduled refresh complete", "objects", len(ds.Objects), "degraded", ds.Degraded)
		case <-ctx.Done():
			return
		}
	}
}
