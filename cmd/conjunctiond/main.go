package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/signalsfoundry/conjunction-engine/catalog"
	"github.com/signalsfoundry/conjunction-engine/config"
	"github.com/signalsfoundry/conjunction-engine/core"
	"github.com/signalsfoundry/conjunction-engine/internal/logging"
	"github.com/signalsfoundry/conjunction-engine/internal/observability"
	"github.com/signalsfoundry/conjunction-engine/kb"
	"github.com/signalsfoundry/conjunction-engine/model"
)

// daemon runs the prediction pipeline on a fixed interval, refreshing
// the catalog before each run and serving metrics, health, and the
// latest results over HTTP.

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file (default: search standard locations)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP listen address (overrides configuration)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, loadedFrom, err := loadConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if loadedFrom != "" {
		log.Info(ctx, "configuration loaded", logging.String("path", loadedFrom))
	}
	if *metricsAddr != "" {
		cfg.Observability.MetricsAddr = *metricsAddr
	}

	runCfg, err := cfg.ToRunConfig()
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	cache, err := catalog.OpenCache(cfg.Catalog.CachePath, cfg.Catalog.CacheKeep)
	if err != nil {
		log.Warn(ctx, "catalog cache unavailable", logging.String("error", err.Error()))
		cache = nil
	} else {
		defer cache.Close()
	}

	provider := catalog.NewProvider(catalog.NewFetcher(cfg.Catalog.SourceURL, log), cache, log)
	store := kb.NewStore(nil)
	engine := core.NewEngine(log, collector)

	var latest atomic.Pointer[core.Result]
	srv := serveHTTP(cfg.Observability.MetricsAddr, collector, store, &latest, log)

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.Daemon.Interval)
	log.Info(ctx, "daemon started",
		logging.Duration("interval", interval),
		logging.String("metrics_addr", cfg.Observability.MetricsAddr),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(stopCtx, engine, provider, store, runCfg, &latest, log)
	for {
		select {
		case <-ticker.C:
			runOnce(stopCtx, engine, provider, store, runCfg, &latest, log)
		case <-stopCtx.Done():
			log.Info(ctx, "shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			observability.ShutdownWithTimeout(shutdownCtx, shutdownTracing, log)
			return
		}
	}
}

func runOnce(
	ctx context.Context,
	engine *core.Engine,
	provider *catalog.Provider,
	store *kb.Store,
	runCfg core.RunConfig,
	latest *atomic.Pointer[core.Result],
	log logging.Logger,
) {
	if ctx.Err() != nil {
		return
	}

	snap, err := provider.Snapshot(ctx)
	if err != nil {
		// Keep serving the previous results; the next tick retries.
		log.Error(ctx, "catalog refresh failed", logging.String("error", err.Error()))
		return
	}
	store.Replace(snap)

	result, err := engine.Run(ctx, snap.Sets(), time.Now().UTC(), runCfg)
	if err != nil {
		log.Error(ctx, "run failed", logging.String("error", err.Error()))
		if result == nil {
			return
		}
	}
	latest.Store(result)

	for _, ev := range result.Events {
		if ev.Risk >= model.RiskHigh {
			log.Warn(ctx, "high-risk conjunction predicted",
				logging.String("object_a", ev.CatalogA),
				logging.String("object_b", ev.CatalogB),
				logging.String("tca", ev.TCA.UTC().Format(time.RFC3339)),
				logging.Any("miss_km", ev.MissDistanceKm),
				logging.String("risk", ev.Risk.String()),
			)
		}
	}
}

func serveHTTP(
	addr string,
	collector *observability.PipelineCollector,
	store *kb.Store,
	latest *atomic.Pointer[core.Result],
	log logging.Logger,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// Ready once a catalog snapshot has been assembled.
		if store.Current() == nil {
			http.Error(w, "no catalog snapshot yet", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		result := latest.Load()
		if result == nil {
			http.Error(w, "no completed run yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result.Events); err != nil {
			log.Warn(r.Context(), "failed to encode events", logging.String("error", err.Error()))
		}
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(context.Background(), "http server exited", logging.String("error", err.Error()))
		}
	}()
	return srv
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
