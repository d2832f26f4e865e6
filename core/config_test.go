package core

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultRunConfig_Valid(t *testing.T) {
	if err := DefaultRunConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestRunConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RunConfig)
		field  string
	}{
		{"zero horizon", func(c *RunConfig) { c.Horizon = 0 }, "horizon"},
		{"zero cadence", func(c *RunConfig) { c.Cadence = 0 }, "cadence"},
		{"cadence beyond horizon", func(c *RunConfig) { c.Horizon = time.Minute; c.Cadence = time.Hour }, "cadence"},
		{"zero coarse threshold", func(c *RunConfig) { c.CoarseThresholdKm = 0 }, "coarse_threshold_km"},
		{"watch below coarse", func(c *RunConfig) { c.WatchThresholdKm = 50 }, "watch_threshold_km"},
		{"zero refine tolerance", func(c *RunConfig) { c.RefineTolerance = 0 }, "refine_tolerance"},
		{"negative refine budget", func(c *RunConfig) { c.RefineMaxIter = -1 }, "refine_max_iter"},
		{"zero epoch offset", func(c *RunConfig) { c.MaxEpochOffset = 0 }, "max_epoch_offset"},
		{"negative workers", func(c *RunConfig) { c.Workers = -4 }, "workers"},
	}

	for _, tc := range cases {
		cfg := DefaultRunConfig()
		tc.mutate(&cfg)

		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: Validate accepted the config", tc.name)
			continue
		}
		var cerr *ConfigurationError
		if !errors.As(err, &cerr) {
			t.Errorf("%s: err = %v, want *ConfigurationError", tc.name, err)
			continue
		}
		if cerr.Field != tc.field {
			t.Errorf("%s: Field = %q, want %q", tc.name, cerr.Field, tc.field)
		}
	}
}

func TestRunConfig_ValidateRejectsBadRiskTable(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Risk.Ladder = nil
	if err := cfg.Validate(); err == nil {
		t.Errorf("config with an empty risk ladder accepted")
	}
}

func TestRunConfig_SampleCount(t *testing.T) {
	cases := []struct {
		horizon time.Duration
		cadence time.Duration
		want    int
	}{
		{48 * time.Hour, time.Minute, 2881},
		{time.Hour, time.Minute, 61},
		{130 * time.Second, time.Minute, 4}, // partial final step rounds up
		{time.Minute, time.Minute, 2},
	}
	for _, tc := range cases {
		cfg := DefaultRunConfig()
		cfg.Horizon = tc.horizon
		cfg.Cadence = tc.cadence
		if got := cfg.SampleCount(); got != tc.want {
			t.Errorf("SampleCount(horizon=%v, cadence=%v) = %d, want %d", tc.horizon, tc.cadence, got, tc.want)
		}
	}
}

func TestRunConfig_WorkerCount(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Workers = 3
	if got := cfg.workerCount(); got != 3 {
		t.Errorf("workerCount() = %d, want 3", got)
	}
	cfg.Workers = 0
	if got := cfg.workerCount(); got < 1 {
		t.Errorf("workerCount() = %d, want at least 1", got)
	}
}
