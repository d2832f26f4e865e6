package core

import (
	"fmt"
	"runtime"
	"time"
)

// RunConfig is the full configuration surface of one pipeline run. It is
// loaded once, validated before any computation, and immutable during the
// run.
type RunConfig struct {
	// Horizon is the forward search window from the run start.
	Horizon time.Duration
	// Cadence is the fixed base sample interval of the coarse grid.
	// Precision beyond it is the refinement step's job, never the grid's.
	Cadence time.Duration

	// CoarseThresholdKm opens a candidate window whenever a sampled
	// separation drops below it.
	CoarseThresholdKm float64
	// WatchThresholdKm opens a candidate window at a sampled local minimum
	// even above the coarse threshold, and is the cut above which refined
	// events are dropped.
	WatchThresholdKm float64

	// RefineTolerance is the bracket width at which refinement stops.
	RefineTolerance time.Duration
	// RefineMaxIter bounds refinement iterations per candidate; exceeding
	// it yields a low-confidence event instead of a refined one.
	RefineMaxIter int

	// MaxEpochOffset bounds how far from its epoch an element set may be
	// propagated.
	MaxEpochOffset time.Duration

	// Workers bounds the worker pools for sampling, the coarse pair pass,
	// and refinement. Zero means one worker per CPU.
	Workers int

	// Risk is the classification threshold table.
	Risk RiskTable
}

// DefaultRunConfig returns the standard configuration: 48 h horizon at a
// 60 s cadence, 100/500 km thresholds, 1 s refinement tolerance, 30 day
// propagation validity window.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Horizon:           48 * time.Hour,
		Cadence:           60 * time.Second,
		CoarseThresholdKm: 100,
		WatchThresholdKm:  500,
		RefineTolerance:   time.Second,
		RefineMaxIter:     60,
		MaxEpochOffset:    30 * 24 * time.Hour,
		Workers:           0,
		Risk:              DefaultRiskTable(),
	}
}

// Validate rejects configurations the pipeline cannot run with. All
// failures are *ConfigurationError and fatal before run start.
func (c RunConfig) Validate() error {
	if c.Horizon <= 0 {
		return &ConfigurationError{Field: "horizon", Reason: "must be positive"}
	}
	if c.Cadence <= 0 {
		return &ConfigurationError{Field: "cadence", Reason: "must be positive"}
	}
	if c.Cadence > c.Horizon {
		return &ConfigurationError{Field: "cadence", Reason: "must not exceed the horizon"}
	}
	if c.CoarseThresholdKm <= 0 {
		return &ConfigurationError{Field: "coarse_threshold_km", Reason: "must be positive"}
	}
	if c.WatchThresholdKm < c.CoarseThresholdKm {
		return &ConfigurationError{
			Field:  "watch_threshold_km",
			Reason: fmt.Sprintf("%v is smaller than the coarse threshold %v", c.WatchThresholdKm, c.CoarseThresholdKm),
		}
	}
	if c.RefineTolerance <= 0 {
		return &ConfigurationError{Field: "refine_tolerance", Reason: "must be positive"}
	}
	if c.RefineMaxIter < 0 {
		return &ConfigurationError{Field: "refine_max_iter", Reason: "must not be negative"}
	}
	if c.MaxEpochOffset <= 0 {
		return &ConfigurationError{Field: "max_epoch_offset", Reason: "must be positive"}
	}
	if c.Workers < 0 {
		return &ConfigurationError{Field: "workers", Reason: "must not be negative"}
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	return nil
}

// workerCount resolves the configured worker bound to a concrete pool size.
func (c RunConfig) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// SampleCount returns the number of grid samples: one at the start, then
// one per cadence step, rounding the last step up so the horizon is always
// covered.
func (c RunConfig) SampleCount() int {
	steps := int(c.Horizon / c.Cadence)
	if c.Horizon%c.Cadence != 0 {
		steps++
	}
	return steps + 1
}
