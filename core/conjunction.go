package core

import (
	"context"
	"sort"
	"sync"

	"github.com/signalsfoundry/conjunction-engine/internal/logging"
	"github.com/signalsfoundry/conjunction-engine/model"
)

// ConjunctionSearch scans trajectories pairwise for candidate close
// approaches and refines each to a precise time of closest approach. It
// holds the per-object propagators so refinement can query state between
// grid samples; the trajectories themselves are read-only inputs.
type ConjunctionSearch struct {
	log   logging.Logger
	props map[string]StatePropagator
}

// NewConjunctionSearch constructs a search over the given propagators,
// keyed by catalog number.
func NewConjunctionSearch(log logging.Logger, props map[string]StatePropagator) *ConjunctionSearch {
	if log == nil {
		log = logging.Noop()
	}
	return &ConjunctionSearch{log: log, props: props}
}

// candidate is a coarse window plus the grid sample it was opened around.
// The sampled states back the low-confidence fallback when refinement does
// not converge.
type candidate struct {
	window model.ConjunctionCandidate

	kMin     int
	minSepKm float64
	atA, atB model.StateVector
}

// CoarseCandidates runs the coarse pairwise pass over all trajectories.
// Every unordered pair is scanned at every shared grid sample; a window
// opens around each sampled local separation minimum that is below the
// watch threshold (which subsumes every below-coarse passage, since the
// coarse threshold is the tighter of the two). Pair scans are sharded
// across workers by first-trajectory index; shard outputs are concatenated
// order-independently and re-sorted. The pass reuses trajectory samples
// only, it never re-propagates.
//
// The context is checked between pair scans; cancellation returns the
// candidates found so far along with ctx.Err().
func (s *ConjunctionSearch) CoarseCandidates(ctx context.Context, trajectories []model.Trajectory, cfg RunConfig) ([]candidate, error) {
	n := len(trajectories)
	if n < 2 {
		return nil, nil
	}

	workers := cfg.workerCount()
	if workers > n-1 {
		workers = n - 1
	}

	firstIdx := make(chan int, workers)
	shardOut := make(chan []candidate, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var shard []candidate
			for i := range firstIdx {
				a := trajectories[i]
				for j := i + 1; j < n; j++ {
					if ctx.Err() != nil {
						break
					}
					shard = append(shard, coarsePair(a, trajectories[j], cfg)...)
				}
			}
			shardOut <- shard
		}()
	}

	go func() {
		defer close(firstIdx)
		for i := 0; i < n-1; i++ {
			select {
			case firstIdx <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(shardOut)
	}()

	var candidates []candidate
	for shard := range shardOut {
		candidates = append(candidates, shard...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.window.CatalogA != cj.window.CatalogA {
			return ci.window.CatalogA < cj.window.CatalogA
		}
		if ci.window.CatalogB != cj.window.CatalogB {
			return ci.window.CatalogB < cj.window.CatalogB
		}
		return ci.window.T0.Before(cj.window.T0)
	})

	return candidates, ctx.Err()
}

// coarsePair scans one pair's shared timeline for sampled separation
// minima. A sample k is a window centre when the separation is no larger
// than its left neighbour and strictly smaller than its right one (plateaus
// therefore yield a single centre, at their trailing edge), and below the
// watch threshold. The window spans one cadence step either side, clamped
// to the horizon.
func coarsePair(a, b model.Trajectory, cfg RunConfig) []candidate {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}
	if n < 2 {
		return nil
	}

	var out []candidate

	prev := a.At(0).Position.DistanceTo(b.At(0).Position)
	cur := a.At(1).Position.DistanceTo(b.At(1).Position)
	// d[k-1]=prev, d[k]=cur as k walks the grid; next is computed once per
	// step so the pass stays a single O(samples) sweep.
	for k := 1; k < n; k++ {
		var next float64
		hasNext := k+1 < n
		if hasNext {
			next = a.At(k + 1).Position.DistanceTo(b.At(k + 1).Position)
		}

		if k == 1 && prev < cur && prev < cfg.WatchThresholdKm {
			// Leading-edge minimum: the pair is already separating at the
			// start of the horizon.
			out = append(out, newCandidate(a, b, 0, prev, n))
		}

		isMin := cur <= prev && (!hasNext || cur < next)
		if isMin && cur < cfg.WatchThresholdKm {
			out = append(out, newCandidate(a, b, k, cur, n))
		}

		prev = cur
		cur = next
	}

	return out
}

func newCandidate(a, b model.Trajectory, k int, sepKm float64, n int) candidate {
	k0, k1 := k-1, k+1
	if k0 < 0 {
		k0 = 0
	}
	if k1 > n-1 {
		k1 = n - 1
	}
	return candidate{
		window: model.ConjunctionCandidate{
			CatalogA: a.CatalogNumber,
			CatalogB: b.CatalogNumber,
			T0:       a.At(k0).Time,
			T1:       a.At(k1).Time,
		},
		kMin:     k,
		minSepKm: sepKm,
		atA:      a.At(k),
		atB:      b.At(k),
	}
}
