// Package config loads the engine's YAML configuration file.
//
// File locations (priority order):
//  1. $CONJUNCTION_CONFIG
//  2. ./conjunction.yaml
//  3. /etc/conjunction/config.yaml
//
// Every field has a default; an absent file is not an error, so the
// CLIs run with no configuration at all.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/conjunction-engine/core"
	"github.com/signalsfoundry/conjunction-engine/model"
)

// Duration wraps time.Duration so YAML values can be written as "48h" or
// "60s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the full configuration file surface.
type Config struct {
	Engine        EngineConfig        `yaml:"engine"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Observability ObservabilityConfig `yaml:"observability"`
	Daemon        DaemonConfig        `yaml:"daemon"`
}

// EngineConfig drives one pipeline run.
type EngineConfig struct {
	Horizon           Duration `yaml:"horizon"`
	Cadence           Duration `yaml:"cadence"`
	CoarseThresholdKm float64  `yaml:"coarse_threshold_km"`
	WatchThresholdKm  float64  `yaml:"watch_threshold_km"`
	RefineTolerance   Duration `yaml:"refine_tolerance"`
	RefineMaxIter     int      `yaml:"refine_max_iter"`
	MaxEpochOffset    Duration `yaml:"max_epoch_offset"`
	Workers           int      `yaml:"workers"`

	Risk RiskConfig `yaml:"risk"`
}

// RiskConfig overrides the classification table. An empty ladder keeps
// the built-in one.
type RiskConfig struct {
	Ladder          []RiskStepConfig `yaml:"ladder"`
	VelocityBumpKmS *float64         `yaml:"velocity_bump_km_s"`
	SizeBumpM       *float64         `yaml:"size_bump_m"`
}

// RiskStepConfig is one ladder rung in the file.
type RiskStepConfig struct {
	MaxDistanceKm float64 `yaml:"max_distance_km"`
	Category      string  `yaml:"category"`
}

// CatalogConfig drives catalog ingestion.
type CatalogConfig struct {
	SourceURL string `yaml:"source_url"`
	File      string `yaml:"file"`
	CachePath string `yaml:"cache_path"`
	CacheKeep int    `yaml:"cache_keep"`
}

// ObservabilityConfig drives logging and metrics.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// DaemonConfig drives the periodic daemon.
type DaemonConfig struct {
	Interval Duration `yaml:"interval"`
}

// Load finds and loads the config file, or returns defaults if none is
// found.
func Load() (*Config, string, error) {
	path := findConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, path, nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func findConfigPath() string {
	if path := os.Getenv("CONJUNCTION_CONFIG"); path != "" {
		return path
	}
	for _, candidate := range []string{
		"./conjunction.yaml",
		"/etc/conjunction/config.yaml",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	run := core.DefaultRunConfig()

	if c.Engine.Horizon == 0 {
		c.Engine.Horizon = Duration(run.Horizon)
	}
	if c.Engine.Cadence == 0 {
		c.Engine.Cadence = Duration(run.Cadence)
	}
	if c.Engine.CoarseThresholdKm == 0 {
		c.Engine.CoarseThresholdKm = run.CoarseThresholdKm
	}
	if c.Engine.WatchThresholdKm == 0 {
		c.Engine.WatchThresholdKm = run.WatchThresholdKm
	}
	if c.Engine.RefineTolerance == 0 {
		c.Engine.RefineTolerance = Duration(run.RefineTolerance)
	}
	if c.Engine.RefineMaxIter == 0 {
		c.Engine.RefineMaxIter = run.RefineMaxIter
	}
	if c.Engine.MaxEpochOffset == 0 {
		c.Engine.MaxEpochOffset = Duration(run.MaxEpochOffset)
	}

	if c.Catalog.CachePath == "" {
		c.Catalog.CachePath = "./conjunction-catalog.db"
	}
	if c.Catalog.CacheKeep == 0 {
		c.Catalog.CacheKeep = 5
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
	if c.Observability.MetricsAddr == "" {
		c.Observability.MetricsAddr = ":9464"
	}

	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = Duration(6 * time.Hour)
	}
}

// ToRunConfig converts the engine section into the core run
// configuration, applying any risk-table overrides.
func (c *Config) ToRunConfig() (core.RunConfig, error) {
	run := core.DefaultRunConfig()
	run.Horizon = time.Duration(c.Engine.Horizon)
	run.Cadence = time.Duration(c.Engine.Cadence)
	run.CoarseThresholdKm = c.Engine.CoarseThresholdKm
	run.WatchThresholdKm = c.Engine.WatchThresholdKm
	run.RefineTolerance = time.Duration(c.Engine.RefineTolerance)
	run.RefineMaxIter = c.Engine.RefineMaxIter
	run.MaxEpochOffset = time.Duration(c.Engine.MaxEpochOffset)
	run.Workers = c.Engine.Workers

	if len(c.Engine.Risk.Ladder) > 0 {
		ladder := make([]core.RiskStep, 0, len(c.Engine.Risk.Ladder))
		for _, step := range c.Engine.Risk.Ladder {
			category, err := parseCategory(step.Category)
			if err != nil {
				return core.RunConfig{}, err
			}
			ladder = append(ladder, core.RiskStep{
				MaxDistanceKm: step.MaxDistanceKm,
				Category:      category,
			})
		}
		run.Risk.Ladder = ladder
	}
	if c.Engine.Risk.VelocityBumpKmS != nil {
		run.Risk.VelocityBumpKmS = *c.Engine.Risk.VelocityBumpKmS
	}
	if c.Engine.Risk.SizeBumpM != nil {
		run.Risk.SizeBumpM = *c.Engine.Risk.SizeBumpM
	}

	if err := run.Validate(); err != nil {
		return core.RunConfig{}, err
	}
	return run, nil
}

func parseCategory(s string) (model.RiskCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return model.RiskMinimal, nil
	case "low":
		return model.RiskLow, nil
	case "moderate":
		return model.RiskModerate, nil
	case "elevated":
		return model.RiskElevated, nil
	case "high":
		return model.RiskHigh, nil
	case "critical":
		return model.RiskCritical, nil
	default:
		return 0, fmt.Errorf("unknown risk category %q", s)
	}
}
