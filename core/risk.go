package core

import (
	"fmt"

	"github.com/signalsfoundry/conjunction-engine/model"
)

// RiskStep is one rung of the distance ladder: miss distances strictly
// below MaxDistanceKm classify as Category (before adjustments).
type RiskStep struct {
	MaxDistanceKm float64
	Category      model.RiskCategory
}

// RiskTable is the classification policy as data. Re-tuning a boundary is
// a table edit, not a code change. The ladder maps miss distance to a base
// category; the bump thresholds raise the category by one step each when
// the relative velocity or the combined object size is large.
type RiskTable struct {
	Ladder []RiskStep

	// VelocityBumpKmS raises the category one step when the relative
	// velocity at TCA is at or above it. Zero disables the bump.
	VelocityBumpKmS float64
	// SizeBumpM raises the category one step when the combined
	// characteristic size is at or above it. Zero disables the bump.
	SizeBumpM float64
}

// DefaultRiskTable mirrors the operational ladder: <1 km Critical, <5 km
// High, <10 km Elevated, <25 km Moderate, <50 km Low, Minimal beyond.
// Hypervelocity geometry (>= 10 km/s) or large combined hardware
// (>= 30 m) each raise the category one step.
func DefaultRiskTable() RiskTable {
	return RiskTable{
		Ladder: []RiskStep{
			{MaxDistanceKm: 1, Category: model.RiskCritical},
			{MaxDistanceKm: 5, Category: model.RiskHigh},
			{MaxDistanceKm: 10, Category: model.RiskElevated},
			{MaxDistanceKm: 25, Category: model.RiskModerate},
			{MaxDistanceKm: 50, Category: model.RiskLow},
		},
		VelocityBumpKmS: 10,
		SizeBumpM:       30,
	}
}

// Validate checks that the ladder is usable: distances strictly ascending,
// categories strictly descending in severity, bumps non-negative. A valid
// ladder makes Classify monotonic by construction.
func (t RiskTable) Validate() error {
	if len(t.Ladder) == 0 {
		return &ConfigurationError{Field: "risk.ladder", Reason: "must have at least one step"}
	}
	for i, step := range t.Ladder {
		if step.MaxDistanceKm <= 0 {
			return &ConfigurationError{
				Field:  "risk.ladder",
				Reason: fmt.Sprintf("step %d distance %v must be positive", i, step.MaxDistanceKm),
			}
		}
		if step.Category < model.RiskMinimal || step.Category > model.RiskCritical {
			return &ConfigurationError{
				Field:  "risk.ladder",
				Reason: fmt.Sprintf("step %d has unknown category %d", i, step.Category),
			}
		}
		if i > 0 {
			if step.MaxDistanceKm <= t.Ladder[i-1].MaxDistanceKm {
				return &ConfigurationError{
					Field:  "risk.ladder",
					Reason: fmt.Sprintf("step %d distance %v not above previous %v", i, step.MaxDistanceKm, t.Ladder[i-1].MaxDistanceKm),
				}
			}
			if step.Category >= t.Ladder[i-1].Category {
				return &ConfigurationError{
					Field:  "risk.ladder",
					Reason: fmt.Sprintf("step %d category %s not below previous %s", i, step.Category, t.Ladder[i-1].Category),
				}
			}
		}
	}
	if t.VelocityBumpKmS < 0 {
		return &ConfigurationError{Field: "risk.velocity_bump_km_s", Reason: "must not be negative"}
	}
	if t.SizeBumpM < 0 {
		return &ConfigurationError{Field: "risk.size_bump_m", Reason: "must not be negative"}
	}
	return nil
}

// Classify maps (miss distance, relative velocity, combined characteristic
// size) to a risk category. Pure function; monotonic in all three inputs:
// shrinking the distance, or growing the velocity or size, never lowers
// the category. Zero inputs are valid (a direct hit classifies at the top
// of the ladder).
func (t RiskTable) Classify(missKm, relVelKmS, combinedSizeM float64) model.RiskCategory {
	category := model.RiskMinimal
	for _, step := range t.Ladder {
		if missKm < step.MaxDistanceKm {
			category = step.Category
			break
		}
	}

	if t.VelocityBumpKmS > 0 && relVelKmS >= t.VelocityBumpKmS {
		category = bump(category)
	}
	if t.SizeBumpM > 0 && combinedSizeM >= t.SizeBumpM {
		category = bump(category)
	}
	return category
}

func bump(c model.RiskCategory) model.RiskCategory {
	if c >= model.RiskCritical {
		return model.RiskCritical
	}
	return c + 1
}
