// Package density models the statistical collision risk from untracked
// small debris as a function of orbital altitude. It is environment
// context around individual objects, independent of any particular
// conjunction pair.
package density

import (
	"math"
	"sort"
)

// Zone is one altitude band of the debris environment with its relative
// density and small-debris flux (impacts per m² per year).
type Zone struct {
	Key         string
	Name        string
	AltMinKm    float64
	AltMaxKm    float64
	Density     float64
	FluxPerM2Yr float64
	Description string
}

// Cluster is a known fragmentation event and the debris field it left.
type Cluster struct {
	Name           string
	Year           int
	AltitudeKm     float64
	InclinationDeg float64
	TrackedFrags   int
	EstimatedSmall int
	Description    string
}

// zones in ascending altitude order; lookup relies on it.
var zones = []Zone{
	{
		Key: "LEO_LOW", Name: "Low LEO (200-600 km)",
		AltMinKm: 200, AltMaxKm: 600,
		Density: 0.6, FluxPerM2Yr: 3e-5,
		Description: "Moderate debris density, atmospheric drag clears smaller pieces",
	},
	{
		Key: "LEO_CRITICAL", Name: "Critical LEO (700-1000 km)",
		AltMinKm: 700, AltMaxKm: 1000,
		Density: 1.0, FluxPerM2Yr: 1.2e-4,
		Description: "Highest debris concentration, the Cosmos/Iridium collision band",
	},
	{
		Key: "LEO_HIGH", Name: "High LEO (1000-2000 km)",
		AltMinKm: 1000, AltMaxKm: 2000,
		Density: 0.7, FluxPerM2Yr: 8e-5,
		Description: "Significant debris, includes sun-synchronous orbits",
	},
	{
		Key: "MEO", Name: "MEO (2000-35786 km)",
		AltMinKm: 2000, AltMaxKm: 35786,
		Density: 0.1, FluxPerM2Yr: 5e-6,
		Description: "Low debris density, GPS constellation band",
	},
	{
		Key: "GEO", Name: "GEO (35786+ km)",
		AltMinKm: 35786, AltMaxKm: 50000,
		Density: 0.05, FluxPerM2Yr: 1e-6,
		Description: "Very low debris, but congested with active satellites",
	},
}

// unknownZone covers gaps between bands (for example the 600-700 km
// seam) and anything outside the table.
var unknownZone = Zone{
	Key: "UNKNOWN", Name: "Unknown",
	Density: 0.1, FluxPerM2Yr: 1e-5,
}

var clusters = []Cluster{
	{
		Name: "Cosmos 2251 / Iridium 33 Collision", Year: 2009,
		AltitudeKm: 790, InclinationDeg: 74,
		TrackedFrags: 2296, EstimatedSmall: 100000,
		Description: "First accidental hypervelocity collision between satellites",
	},
	{
		Name: "Fengyun-1C ASAT Test", Year: 2007,
		AltitudeKm: 865, InclinationDeg: 98.7,
		TrackedFrags: 3527, EstimatedSmall: 150000,
		Description: "Anti-satellite weapon test",
	},
	{
		Name: "Kosmos 1408 ASAT Test", Year: 2021,
		AltitudeKm: 480, InclinationDeg: 82.6,
		TrackedFrags: 1500, EstimatedSmall: 50000,
		Description: "Anti-satellite weapon test",
	},
	{
		Name: "Upper Stage Explosions (Various)", Year: 2000,
		AltitudeKm: 850, InclinationDeg: 70,
		TrackedFrags: 5000, EstimatedSmall: 200000,
		Description: "Accumulated debris from rocket body breakups",
	},
}

// RiskLevel orders the small-debris risk bands.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskElevated
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskModerate:
		return "Moderate"
	case RiskElevated:
		return "Elevated"
	case RiskHigh:
		return "High"
	case RiskCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Score maps the level onto the 0-100 reporting scale.
func (r RiskLevel) Score() int {
	switch r {
	case RiskCritical:
		return 90
	case RiskHigh:
		return 70
	case RiskElevated:
		return 50
	case RiskModerate:
		return 30
	default:
		return 10
	}
}

// ZoneFor returns the debris zone an altitude falls into. Bands are
// half-open [min, max); altitudes outside every band map to the unknown
// zone.
func ZoneFor(altKm float64) Zone {
	for _, z := range zones {
		if altKm >= z.AltMinKm && altKm < z.AltMaxKm {
			return z
		}
	}
	return unknownZone
}

// Zones returns the band table in ascending altitude order.
func Zones() []Zone {
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

// Risk is one small-debris risk assessment.
type Risk struct {
	AltitudeKm  float64
	Zone        Zone
	Probability float64
	Level       RiskLevel

	// NearbyClusters lists fragmentation events within 150 km of the
	// assessed altitude, nearest first.
	NearbyClusters []Cluster
}

// SmallDebrisRisk estimates the probability of a collision with
// untracked small debris over the exposure period. Known fragmentation
// clusters within 100 km boost the base zone flux proportionally to
// their proximity.
func SmallDebrisRisk(altKm, crossSectionM2, exposureYears float64) Risk {
	zone := ZoneFor(altKm)

	boost := 1.0
	for _, c := range clusters {
		if d := math.Abs(altKm - c.AltitudeKm); d < 100 {
			boost += (100 - d) / 100 * 0.5
		}
	}

	probability := zone.FluxPerM2Yr * crossSectionM2 * exposureYears * boost

	var level RiskLevel
	switch {
	case probability > 0.01:
		level = RiskCritical
	case probability > 0.001:
		level = RiskHigh
	case probability > 0.0001:
		level = RiskElevated
	case probability > 0.00001:
		level = RiskModerate
	default:
		level = RiskLow
	}

	var nearby []Cluster
	for _, c := range clusters {
		if math.Abs(altKm-c.AltitudeKm) < 150 {
			nearby = append(nearby, c)
		}
	}
	sort.Slice(nearby, func(i, j int) bool {
		return math.Abs(altKm-nearby[i].AltitudeKm) < math.Abs(altKm-nearby[j].AltitudeKm)
	})

	return Risk{
		AltitudeKm:     altKm,
		Zone:           zone,
		Probability:    probability,
		Level:          level,
		NearbyClusters: nearby,
	}
}

// EnvironmentSummary aggregates the known debris environment.
type EnvironmentSummary struct {
	TotalTracked      int
	EstimatedSmall    int
	EstimatedSubCm    int
	MostDangerousZone string
	MajorEvents       []Cluster
	Zones             []Zone
}

// Summary returns the aggregate debris environment view.
func Summary() EnvironmentSummary {
	var tracked, small int
	for _, c := range clusters {
		tracked += c.TrackedFrags
		small += c.EstimatedSmall
	}
	events := make([]Cluster, len(clusters))
	copy(events, clusters)

	return EnvironmentSummary{
		TotalTracked:      tracked,
		EstimatedSmall:    small,
		EstimatedSubCm:    small * 10,
		MostDangerousZone: "Critical LEO (700-1000 km)",
		MajorEvents:       events,
		Zones:             Zones(),
	}
}
