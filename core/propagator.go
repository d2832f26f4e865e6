package core

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/conjunction-engine/model"
)

// Plausible geocentric distance band for anything the catalog tracks:
// just above the dense atmosphere out to a little beyond GEO. SGP4 output
// outside this band means the model has left its validity regime.
const (
	minPlausibleRadiusKm = 6200.0
	maxPlausibleRadiusKm = 50000.0
)

// StatePropagator converts an element set plus a target time into an
// inertial position/velocity state. Implementations must be pure functions
// of (elements, t): repeated calls with the same time yield identical
// output, with no shared mutable state, so concurrent callers are safe.
//
// The perturbation theory behind it is a replaceable strategy; the engine
// only relies on this contract.
type StatePropagator interface {
	CatalogNumber() string
	PropagateAt(t time.Time) (model.StateVector, error)
}

// SGP4Propagator propagates one object with the SGP4/SDP4 analytic model,
// which applies first-order secular and periodic corrections for drag and
// gravitational oblateness internally.
type SGP4Propagator struct {
	set model.OrbitalElementSet
	sat satellite.Satellite

	// maxEpochOffset bounds |t - epoch|; mean elements decay in accuracy
	// away from their epoch and SGP4 answers become fiction well before
	// they become NaN.
	maxEpochOffset time.Duration
}

// NewSGP4Propagator validates the element set and initialises the SGP4
// model from its TLE lines. A *model.ValidationError is returned for
// malformed elements, before the model is ever touched: go-satellite
// aborts the process on garbage input, so nothing unvalidated reaches it.
func NewSGP4Propagator(set model.OrbitalElementSet, maxEpochOffset time.Duration) (*SGP4Propagator, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if err := validateTLELines(set.Line1, set.Line2); err != nil {
		return nil, &model.ValidationError{CatalogNumber: set.CatalogNumber, Reason: err.Error()}
	}

	sat := satellite.TLEToSat(set.Line1, set.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, &model.ValidationError{
			CatalogNumber: set.CatalogNumber,
			Reason:        fmt.Sprintf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr),
		}
	}

	return &SGP4Propagator{set: set, sat: sat, maxEpochOffset: maxEpochOffset}, nil
}

// CatalogNumber identifies the propagated object.
func (p *SGP4Propagator) CatalogNumber() string { return p.set.CatalogNumber }

// ElementSet returns the element set this propagator was built from.
func (p *SGP4Propagator) ElementSet() model.OrbitalElementSet { return p.set }

// PropagateAt returns the TEME state at t, or a *PropagationError when t is
// outside the validity window or the model output fails sanity checks.
//
// go-satellite propagates on whole seconds; t is rounded to the nearest
// second, which bounds the engine's time resolution at one second.
func (p *SGP4Propagator) PropagateAt(t time.Time) (model.StateVector, error) {
	if p.maxEpochOffset > 0 {
		offset := t.Sub(p.set.Epoch)
		if offset < 0 {
			offset = -offset
		}
		if offset > p.maxEpochOffset {
			return model.StateVector{}, &PropagationError{
				CatalogNumber: p.set.CatalogNumber,
				Time:          t,
				Reason:        fmt.Sprintf("query %s from epoch exceeds limit %s", offset, p.maxEpochOffset),
				regime:        true,
			}
		}
	}

	utc := t.Round(time.Second).UTC()
	year, month, day := utc.Date()
	hour, min, sec := utc.Clock()

	posECI, velECI := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)

	pos := model.Vec3{X: posECI.X, Y: posECI.Y, Z: posECI.Z}
	vel := model.Vec3{X: velECI.X, Y: velECI.Y, Z: velECI.Z}

	// Propagate() takes the Satellite by value, so SGP4 error codes are not
	// visible here; failures are detected from the output instead.
	if !pos.IsFinite() || !vel.IsFinite() {
		return model.StateVector{}, &PropagationError{
			CatalogNumber: p.set.CatalogNumber,
			Time:          t,
			Reason:        "model output is NaN/Inf",
			regime:        true,
		}
	}
	if mag := pos.Norm(); mag < minPlausibleRadiusKm || mag > maxPlausibleRadiusKm {
		return model.StateVector{}, &PropagationError{
			CatalogNumber: p.set.CatalogNumber,
			Time:          t,
			Reason:        fmt.Sprintf("implausible position magnitude %.1f km", mag),
			regime:        true,
		}
	}

	return model.StateVector{
		CatalogNumber: p.set.CatalogNumber,
		Time:          utc,
		Position:      pos,
		Velocity:      vel,
		Frame:         model.FrameTEME,
	}, nil
}

// validateTLELines checks the fixed-format shape of a two-line element set.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimRight(line1, " ")
	line2 = strings.TrimRight(line2, " ")

	if len(line1) < 62 || len(line1) > 69 {
		return fmt.Errorf("tle line1 length %d outside expected range", len(line1))
	}
	if len(line2) < 62 || len(line2) > 69 {
		return fmt.Errorf("tle line2 length %d outside expected range", len(line2))
	}
	if !strings.HasPrefix(line1, "1 ") {
		return fmt.Errorf("tle line1 must start with %q", "1 ")
	}
	if !strings.HasPrefix(line2, "2 ") {
		return fmt.Errorf("tle line2 must start with %q", "2 ")
	}
	return nil
}

// AltitudeKm returns the height of a position above the mean Earth sphere.
func AltitudeKm(pos model.Vec3) float64 {
	return pos.Norm() - EarthRadiusKm
}

// EarthRadiusKm is the mean Earth radius (kilometres).
const EarthRadiusKm = 6371.0
