package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/conjunction-engine/internal/logging"
	"github.com/signalsfoundry/conjunction-engine/model"
)

// Sampler drives propagators across the run horizon at the fixed base
// cadence, producing one trajectory per object. Propagation cost stays at
// O(objects x horizon/cadence): fast events are not chased by shrinking
// the grid, they are caught later by refinement of coarse candidates.
type Sampler struct {
	log logging.Logger
}

// NewSampler constructs a sampler. A nil logger is replaced with a no-op.
func NewSampler(log logging.Logger) *Sampler {
	if log == nil {
		log = logging.Noop()
	}
	return &Sampler{log: log}
}

// sampleJob carries one object's propagator through the worker pool.
type sampleJob struct {
	prop StatePropagator
}

// sampleResult is one object's trajectory or its failure.
type sampleResult struct {
	catalogNumber string
	traj          model.Trajectory
	err           error
}

// Timeline returns the shared sample instants: the run start, then one per
// cadence step, with the final step rounded up so [start, start+horizon]
// is always covered. Every trajectory is sampled on exactly this grid, so
// the pairwise pass can walk trajectories index-aligned.
func Timeline(start time.Time, cfg RunConfig) []time.Time {
	n := cfg.SampleCount()
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * cfg.Cadence)
	}
	return times
}

// Sample produces one trajectory per propagator over [start, start+horizon].
// A propagation failure anywhere in an object's trajectory excludes that
// object from the run and surfaces as a diagnostic; it never aborts the
// batch. Trajectories come back ordered by catalog number.
func (s *Sampler) Sample(ctx context.Context, props []StatePropagator, start time.Time, cfg RunConfig) ([]model.Trajectory, []Diagnostic) {
	if len(props) == 0 {
		return nil, nil
	}

	times := Timeline(start, cfg)
	workers := cfg.workerCount()
	if workers > len(props) {
		workers = len(props)
	}

	jobs := make(chan sampleJob, workers*2)
	results := make(chan sampleResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res := sampleOne(job.prop, times)
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range props {
			select {
			case jobs <- sampleJob{prop: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	trajectories := make([]model.Trajectory, 0, len(props))
	var diagnostics []Diagnostic

	for res := range results {
		if res.err != nil {
			s.log.Warn(ctx, "object excluded from run",
				logging.String("catalog_number", res.catalogNumber),
				logging.String("error", res.err.Error()),
			)
			diagnostics = append(diagnostics, Diagnostic{CatalogNumber: res.catalogNumber, Err: res.err})
			continue
		}
		trajectories = append(trajectories, res.traj)
	}

	// Pool completion order is nondeterministic; restore a stable order so
	// pair enumeration downstream is reproducible.
	sort.Slice(trajectories, func(i, j int) bool {
		return trajectories[i].CatalogNumber < trajectories[j].CatalogNumber
	})
	sort.Slice(diagnostics, func(i, j int) bool {
		return diagnostics[i].CatalogNumber < diagnostics[j].CatalogNumber
	})

	return trajectories, diagnostics
}

// sampleOne propagates a single object across the whole grid.
func sampleOne(prop StatePropagator, times []time.Time) sampleResult {
	states := make([]model.StateVector, 0, len(times))
	for _, t := range times {
		sv, err := prop.PropagateAt(t)
		if err != nil {
			return sampleResult{catalogNumber: prop.CatalogNumber(), err: err}
		}
		states = append(states, sv)
	}
	return sampleResult{
		catalogNumber: prop.CatalogNumber(),
		traj:          model.Trajectory{CatalogNumber: prop.CatalogNumber(), States: states},
	}
}
