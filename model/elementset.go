package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ObjectClass categorises a tracked object for risk purposes.
type ObjectClass int

const (
	ClassUnknown ObjectClass = iota
	ClassStationOrManned
	ClassSatellite
	ClassDebris
)

func (c ObjectClass) String() string {
	switch c {
	case ClassStationOrManned:
		return "STATION_OR_MANNED"
	case ClassSatellite:
		return "SATELLITE"
	case ClassDebris:
		return "DEBRIS"
	default:
		return "UNKNOWN"
	}
}

// CharacteristicSizeM is the assumed characteristic size (metres) for an
// object of this class. It feeds only the risk classifier; the propagation
// and search stages never look at it.
func (c ObjectClass) CharacteristicSizeM() float64 {
	switch c {
	case ClassStationOrManned:
		return 25.0
	case ClassSatellite:
		return 8.0
	case ClassDebris:
		return 0.3
	default:
		return 1.0
	}
}

// ErrInvalidElements tags element-set validation failures so callers can
// test for the whole family with errors.Is.
var ErrInvalidElements = errors.New("invalid orbital elements")

// ValidationError reports a malformed or out-of-range orbital element set.
// The object is rejected before propagation and excluded from the run.
type ValidationError struct {
	CatalogNumber string
	Reason        string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid orbital elements for %s: %s", e.CatalogNumber, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidElements }

// OrbitalElementSet is a validated set of mean orbital elements for one
// object at a reference epoch. Instances are created at catalog ingestion
// time and are immutable thereafter.
type OrbitalElementSet struct {
	CatalogNumber string
	Name          string
	Class         ObjectClass

	Epoch time.Time

	InclinationDeg   float64 // [0, 180]
	RAANDeg          float64 // [0, 360)
	Eccentricity     float64 // [0, 1)
	ArgPerigeeDeg    float64 // [0, 360)
	MeanAnomalyDeg   float64 // [0, 360)
	MeanMotionRevDay float64 // > 0
	BStar            float64 // drag term, 1/earth radii

	// Raw TLE lines feed the propagation model directly.
	Line1, Line2 string

	// CharacteristicSizeM is derived from Class at construction and used
	// only by the risk classifier.
	CharacteristicSizeM float64
}

// Validate checks the element-range invariants. Angular elements are
// expected pre-normalised (see NormalizeAngles); out-of-range values are
// rejected rather than silently wrapped.
func (e OrbitalElementSet) Validate() error {
	if e.CatalogNumber == "" {
		return &ValidationError{CatalogNumber: e.CatalogNumber, Reason: "catalog number is required"}
	}
	if e.Epoch.IsZero() {
		return &ValidationError{CatalogNumber: e.CatalogNumber, Reason: "epoch is required"}
	}
	if math.IsNaN(e.Eccentricity) || e.Eccentricity < 0 || e.Eccentricity >= 1 {
		return &ValidationError{
			CatalogNumber: e.CatalogNumber,
			Reason:        fmt.Sprintf("eccentricity %v outside [0, 1)", e.Eccentricity),
		}
	}
	if math.IsNaN(e.MeanMotionRevDay) || e.MeanMotionRevDay <= 0 {
		return &ValidationError{
			CatalogNumber: e.CatalogNumber,
			Reason:        fmt.Sprintf("mean motion %v must be positive", e.MeanMotionRevDay),
		}
	}
	if e.InclinationDeg < 0 || e.InclinationDeg > 180 {
		return &ValidationError{
			CatalogNumber: e.CatalogNumber,
			Reason:        fmt.Sprintf("inclination %v outside [0, 180]", e.InclinationDeg),
		}
	}
	for _, angle := range []struct {
		name string
		deg  float64
	}{
		{"raan", e.RAANDeg},
		{"argument of perigee", e.ArgPerigeeDeg},
		{"mean anomaly", e.MeanAnomalyDeg},
	} {
		if angle.deg < 0 || angle.deg >= 360 {
			return &ValidationError{
				CatalogNumber: e.CatalogNumber,
				Reason:        fmt.Sprintf("%s %v outside [0, 360)", angle.name, angle.deg),
			}
		}
	}
	return nil
}

// NormalizeAngles returns a copy with RAAN, argument of perigee, and mean
// anomaly wrapped into [0, 360). Inclination is left alone: values outside
// [0, 180] indicate bad data, not an unwrapped angle.
func (e OrbitalElementSet) NormalizeAngles() OrbitalElementSet {
	e.RAANDeg = wrapDeg(e.RAANDeg)
	e.ArgPerigeeDeg = wrapDeg(e.ArgPerigeeDeg)
	e.MeanAnomalyDeg = wrapDeg(e.MeanAnomalyDeg)
	return e
}

func wrapDeg(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}

// PeriodMinutes returns the orbital period implied by the mean motion, or 0
// when the mean motion is non-positive.
func (e OrbitalElementSet) PeriodMinutes() float64 {
	if e.MeanMotionRevDay <= 0 {
		return 0
	}
	return 24 * 60 / e.MeanMotionRevDay
}
