package model

import "time"

// RiskCategory is an ordered severity scale for conjunction events.
// Larger values are more severe.
type RiskCategory int

const (
	RiskMinimal RiskCategory = iota
	RiskLow
	RiskModerate
	RiskElevated
	RiskHigh
	RiskCritical
)

func (r RiskCategory) String() string {
	switch r {
	case RiskCritical:
		return "CRITICAL"
	case RiskHigh:
		return "HIGH"
	case RiskElevated:
		return "ELEVATED"
	case RiskModerate:
		return "MODERATE"
	case RiskLow:
		return "LOW"
	case RiskMinimal:
		return "MINIMAL"
	default:
		return "UNKNOWN"
	}
}

// ConjunctionCandidate is a coarse time window around a suspected local
// separation minimum for one object pair. Candidates are transient: the
// refinement step consumes them and they are discarded.
type ConjunctionCandidate struct {
	CatalogA, CatalogB string
	T0, T1             time.Time
}

// ConjunctionEvent is a refined close approach between two objects.
// Immutable once produced.
type ConjunctionEvent struct {
	CatalogA, CatalogB string
	NameA, NameB       string

	TCA                 time.Time
	MissDistanceKm      float64
	RelativeVelocityKmS float64

	Risk RiskCategory

	// LowConfidence marks events whose refinement did not converge within
	// the iteration budget; TCA and miss distance then come from the coarse
	// window midpoint rather than the minimiser.
	LowConfidence bool
}
