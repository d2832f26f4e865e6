package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutsideValidityRegime tags propagation failures caused by querying the
// model outside the regime it is trusted in (e.g. too far from epoch).
var ErrOutsideValidityRegime = errors.New("outside propagation validity regime")

// ErrRefinementNonConvergence tags refinements that exhausted their
// iteration budget. The candidate is still reported, flagged low-confidence.
var ErrRefinementNonConvergence = errors.New("refinement did not converge")

// PropagationError reports that the propagation model could not produce a
// trustworthy state for one object at one query time. The object (or the
// single sample) is excluded; the run continues.
type PropagationError struct {
	CatalogNumber string
	Time          time.Time
	Reason        string
	regime        bool
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation failed for %s at %s: %s",
		e.CatalogNumber, e.Time.UTC().Format(time.RFC3339), e.Reason)
}

func (e *PropagationError) Unwrap() error {
	if e.regime {
		return ErrOutsideValidityRegime
	}
	return nil
}

// ConfigurationError reports an invalid run configuration. Configuration
// errors are fatal and rejected before any computation begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Diagnostic records a per-object failure surfaced alongside the
// best-effort result set. The run never silently drops failures.
type Diagnostic struct {
	CatalogNumber string
	Name          string
	Err           error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v", d.CatalogNumber, d.Err)
}
