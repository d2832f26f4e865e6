package model

import "time"

// Frame tags the reference frame of a state vector.
type Frame int

const (
	// FrameTEME is the true-equator mean-equinox inertial frame produced
	// by the SGP4 family of propagators.
	FrameTEME Frame = iota
)

func (f Frame) String() string {
	switch f {
	case FrameTEME:
		return "TEME"
	default:
		return "UNKNOWN"
	}
}

// StateVector is one object's position and velocity at one instant.
type StateVector struct {
	CatalogNumber string
	Time          time.Time
	Position      Vec3 // km
	Velocity      Vec3 // km/s
	Frame         Frame
}

// Trajectory is an ordered sequence of state vectors for one object,
// sampled at strictly increasing timestamps over the run horizon. It is
// built once by the sampler and read-only afterwards.
type Trajectory struct {
	CatalogNumber string
	States        []StateVector
}

// Len returns the number of samples.
func (t Trajectory) Len() int { return len(t.States) }

// At returns the i-th sample.
func (t Trajectory) At(i int) StateVector { return t.States[i] }
