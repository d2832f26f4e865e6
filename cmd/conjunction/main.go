package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/signalsfoundry/conjunction-engine/catalog"
	"github.com/signalsfoundry/conjunction-engine/config"
	"github.com/signalsfoundry/conjunction-engine/core"
	"github.com/signalsfoundry/conjunction-engine/internal/logging"
	"github.com/signalsfoundry/conjunction-engine/internal/report"
	"github.com/signalsfoundry/conjunction-engine/kb"
	"github.com/signalsfoundry/conjunction-engine/model"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file (default: search standard locations)")
	catalogFile := flag.String("catalog-file", "", "read the catalog from a local TLE file instead of fetching")
	sourceURL := flag.String("source-url", "", "catalog source URL (overrides configuration)")
	horizon := flag.Duration("horizon", 0, "search horizon (overrides configuration)")
	cadence := flag.Duration("cadence", 0, "coarse sample cadence (overrides configuration)")
	startAt := flag.String("start", "", "run start time, RFC 3339 (default: now)")
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

	if *sourceURL != "" {
		cfg.Catalog.SourceURL = *sourceURL
	}
	if *catalogFile != "" {
		cfg.Catalog.File = *catalogFile
	}
	if *horizon > 0 {
		cfg.Engine.Horizon = config.Duration(*horizon)
	}
	if *cadence > 0 {
		cfg.Engine.Cadence = config.Duration(*cadence)
	}

	runCfg, err := cfg.ToRunConfig()
	if err != nil {
		log.Error(ctx, "invalid configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}

	start := time.Now().UTC()
	if *startAt != "" {
		start, err = time.Parse(time.RFC3339, *startAt)
		if err != nil {
			log.Error(ctx, "invalid -start time", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	snap, err := loadSnapshot(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to load catalog", logging.String("error", err.Error()))
		os.Exit(1)
	}

	engine := core.NewEngine(log, nil)
	result, err := engine.Run(ctx, snap.Sets(), start, runCfg)
	if err != nil {
		log.Error(ctx, "run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if err := report.Write(os.Stdout, result, snap, runCfg); err != nil {
		fmt.Fprintf(os.Stderr, "writing report: %v\n", err)
		os.Exit(1)
	}

	// Non-zero exit when anything classified High or worse survived, so
	// the tool composes with alerting scripts.
	for _, ev := range result.Events {
		if ev.Risk >= model.RiskHigh {
			os.Exit(3)
		}
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func loadSnapshot(ctx context.Context, cfg *config.Config, log logging.Logger) (*kb.Snapshot, error) {
	if cfg.Catalog.File != "" {
		provider := catalog.NewProvider(catalog.NewFetcher(cfg.Catalog.SourceURL, log), nil, log)
		return provider.FromFile(ctx, cfg.Catalog.File)
	}

	cache, err := catalog.OpenCache(cfg.Catalog.CachePath, cfg.Catalog.CacheKeep)
	if err != nil {
		// A broken cache only removes the fallback.
		log.Warn(ctx, "catalog cache unavailable", logging.String("error", err.Error()))
		cache = nil
	} else {
		defer cache.Close()
	}

	provider := catalog.NewProvider(catalog.NewFetcher(cfg.Catalog.SourceURL, log), cache, log)
	return provider.Snapshot(ctx)
}
