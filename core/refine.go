package core

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/conjunction-engine/model"
)

// invPhi is the golden-section ratio used to shrink the search bracket.
var invPhi = (math.Sqrt(5) - 1) / 2

// RefineStats summarises a refinement pass for observability.
type RefineStats struct {
	Candidates   int
	NonConverged int
	Iterations   int
}

// Refine minimises the separation function over each candidate window,
// re-invoking the propagators at sub-sample resolution, and constructs
// conjunction events. Refinements are independent and run across a worker
// pool; the context is checked between tasks.
//
// Events are returned ordered by TCA, ties broken by ascending miss
// distance, with anything whose refined miss distance exceeds the watch
// threshold dropped. Risk is left unclassified; the caller owns that step.
func (s *ConjunctionSearch) Refine(ctx context.Context, candidates []candidate, cfg RunConfig) ([]model.ConjunctionEvent, RefineStats) {
	stats := RefineStats{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return nil, stats
	}

	workers := cfg.workerCount()
	if workers > len(candidates) {
		workers = len(candidates)
	}

	type refineOut struct {
		event        model.ConjunctionEvent
		keep         bool
		nonConverged bool
		iterations   int
	}

	jobs := make(chan candidate, workers*2)
	results := make(chan refineOut, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				ev, keep, nonConv, iters := s.refineOne(cand, cfg)
				select {
				case results <- refineOut{event: ev, keep: keep, nonConverged: nonConv, iterations: iters}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, cand := range candidates {
			select {
			case jobs <- cand:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var events []model.ConjunctionEvent
	for res := range results {
		stats.Iterations += res.iterations
		if res.nonConverged {
			stats.NonConverged++
		}
		if res.keep {
			events = append(events, res.event)
		}
	}

	events = mergeDuplicates(events, cfg)
	sort.Slice(events, func(i, j int) bool {
		if !events[i].TCA.Equal(events[j].TCA) {
			return events[i].TCA.Before(events[j].TCA)
		}
		return events[i].MissDistanceKm < events[j].MissDistanceKm
	})

	return events, stats
}

// refineOne minimises one candidate's separation. On non-convergence, or
// when the propagators fail inside the window, the coarse minimum sample
// stands in for the refined one and the event is flagged low-confidence.
func (s *ConjunctionSearch) refineOne(cand candidate, cfg RunConfig) (ev model.ConjunctionEvent, keep, nonConverged bool, iterations int) {
	propA := s.props[cand.window.CatalogA]
	propB := s.props[cand.window.CatalogB]

	fallback := func() model.ConjunctionEvent {
		return model.ConjunctionEvent{
			CatalogA:            cand.window.CatalogA,
			CatalogB:            cand.window.CatalogB,
			TCA:                 cand.atA.Time,
			MissDistanceKm:      cand.minSepKm,
			RelativeVelocityKmS: cand.atA.Velocity.Sub(cand.atB.Velocity).Norm(),
			LowConfidence:       true,
		}
	}

	if propA == nil || propB == nil {
		// The sampler only hands over trajectories it propagated itself,
		// so a missing propagator would be a wiring mistake; degrade to
		// the coarse sample rather than dropping the pair.
		ev = fallback()
		return ev, ev.MissDistanceKm <= cfg.WatchThresholdKm, true, 0
	}

	separation := func(t time.Time) (float64, error) {
		sa, err := propA.PropagateAt(t)
		if err != nil {
			return 0, err
		}
		sb, err := propB.PropagateAt(t)
		if err != nil {
			return 0, err
		}
		return sa.Position.DistanceTo(sb.Position), nil
	}

	tca, missKm, iterations, err := goldenSection(separation, cand.window.T0, cand.window.T1, cfg.RefineTolerance, cfg.RefineMaxIter)
	if err != nil {
		ev = fallback()
		return ev, ev.MissDistanceKm <= cfg.WatchThresholdKm, true, iterations
	}

	// Relative velocity at TCA from the raw velocity difference; no
	// normalised direction is involved, so near-zero relative motion is
	// exact rather than a division hazard.
	sa, errA := propA.PropagateAt(tca)
	sb, errB := propB.PropagateAt(tca)
	if errA != nil || errB != nil {
		ev = fallback()
		return ev, ev.MissDistanceKm <= cfg.WatchThresholdKm, true, iterations
	}

	ev = model.ConjunctionEvent{
		CatalogA:            cand.window.CatalogA,
		CatalogB:            cand.window.CatalogB,
		TCA:                 sa.Time,
		MissDistanceKm:      missKm,
		RelativeVelocityKmS: sa.Velocity.Sub(sb.Velocity).Norm(),
	}
	return ev, ev.MissDistanceKm <= cfg.WatchThresholdKm, false, iterations
}

// goldenSection performs a derivative-free bracketing minimisation of f
// over [t0, t1]. The separation function is smooth but its derivative is
// not available from the propagator contract, so interval shrinking is the
// whole strategy. Returns the best probed time and value, the number of
// iterations spent, and ErrRefinementNonConvergence when the bracket is
// still wider than tol after maxIter iterations.
func goldenSection(f func(time.Time) (float64, error), t0, t1 time.Time, tol time.Duration, maxIter int) (time.Time, float64, int, error) {
	lo := 0.0
	hi := t1.Sub(t0).Seconds()
	at := func(x float64) time.Time {
		return t0.Add(time.Duration(x * float64(time.Second)))
	}

	if hi <= tol.Seconds() {
		mid := (lo + hi) / 2
		v, err := f(at(mid))
		if err != nil {
			return time.Time{}, 0, 1, err
		}
		return at(mid), v, 1, nil
	}

	x1 := hi - invPhi*(hi-lo)
	x2 := lo + invPhi*(hi-lo)
	f1, err := f(at(x1))
	if err != nil {
		return time.Time{}, 0, 1, err
	}
	f2, err := f(at(x2))
	if err != nil {
		return time.Time{}, 0, 2, err
	}

	iterations := 2
	for hi-lo > tol.Seconds() {
		if iterations >= maxIter {
			return time.Time{}, 0, iterations, ErrRefinementNonConvergence
		}
		if f1 < f2 {
			hi = x2
			x2, f2 = x1, f1
			x1 = hi - invPhi*(hi-lo)
			f1, err = f(at(x1))
		} else {
			lo = x1
			x1, f1 = x2, f2
			x2 = lo + invPhi*(hi-lo)
			f2, err = f(at(x2))
		}
		if err != nil {
			return time.Time{}, 0, iterations, err
		}
		iterations++
	}

	if f1 < f2 {
		return at(x1), f1, iterations, nil
	}
	return at(x2), f2, iterations, nil
}

// mergeDuplicates collapses events for the same pair whose TCAs landed
// within one cadence step of each other: adjacent coarse windows can both
// refine onto the same true minimum. The smaller miss distance wins.
func mergeDuplicates(events []model.ConjunctionEvent, cfg RunConfig) []model.ConjunctionEvent {
	if len(events) < 2 {
		return events
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.CatalogA != b.CatalogA {
			return a.CatalogA < b.CatalogA
		}
		if a.CatalogB != b.CatalogB {
			return a.CatalogB < b.CatalogB
		}
		return a.TCA.Before(b.TCA)
	})

	out := events[:1]
	for _, ev := range events[1:] {
		last := &out[len(out)-1]
		samePair := ev.CatalogA == last.CatalogA && ev.CatalogB == last.CatalogB
		if samePair && ev.TCA.Sub(last.TCA) <= cfg.Cadence {
			if ev.MissDistanceKm < last.MissDistanceKm {
				*last = ev
			}
			continue
		}
		out = append(out, ev)
	}
	return out
}
