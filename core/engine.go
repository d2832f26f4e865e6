package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/conjunction-engine/internal/logging"
	"github.com/signalsfoundry/conjunction-engine/internal/observability"
	"github.com/signalsfoundry/conjunction-engine/model"
)

const tracerName = "github.com/signalsfoundry/conjunction-engine/core"

// Engine runs the full prediction pipeline for one catalog snapshot:
// propagator construction, trajectory sampling, the coarse pairwise pass,
// candidate refinement, and risk classification. The engine holds no state
// between runs; every run is a pure function of (snapshot, start, config)
// plus the model's floating-point determinism.
type Engine struct {
	log     logging.Logger
	metrics *observability.PipelineCollector
	tracer  trace.Tracer
}

// NewEngine constructs an engine. Logger and collector may be nil.
func NewEngine(log logging.Logger, metrics *observability.PipelineCollector) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine{
		log:     log,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

// Result is the output of one run: the classified events plus the
// per-object diagnostics for everything that was excluded along the way.
// Failures are always surfaced here, never silently dropped.
type Result struct {
	Start  time.Time
	Events []model.ConjunctionEvent

	// Diagnostics lists objects excluded by validation or propagation
	// failures, one entry per object.
	Diagnostics []Diagnostic

	Stats RunStats
}

// RunStats summarises the work a run performed.
type RunStats struct {
	Objects      int
	Excluded     int
	Trajectories int
	Candidates   int
	NonConverged int

	SampleDuration time.Duration
	CoarseDuration time.Duration
	RefineDuration time.Duration
}

// Run executes the pipeline over the given element sets. The configuration
// is validated first; a *ConfigurationError is fatal and returned before
// any computation. Per-object failures never abort the run: the result is
// always best-effort, with exclusions listed in Result.Diagnostics.
//
// Cancellation is honoured between pair shards and refinement tasks; a
// cancelled run returns the partial result alongside ctx.Err().
func (e *Engine) Run(ctx context.Context, sets []model.OrbitalElementSet, start time.Time, cfg RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runStart := time.Now()
	ctx, log := logging.WithRunLogger(ctx, e.log)

	ctx, span := e.tracer.Start(ctx, "conjunction.run",
		trace.WithAttributes(
			attribute.Int("catalog.objects", len(sets)),
			attribute.String("run.start", start.UTC().Format(time.RFC3339)),
			attribute.String("run.horizon", cfg.Horizon.String()),
		),
	)
	defer span.End()

	result := &Result{Start: start}
	result.Stats.Objects = len(sets)
	e.metrics.SetCatalogObjects(len(sets))

	// Propagator construction doubles as element validation: malformed
	// sets are rejected here, before any propagation happens.
	props := make(map[string]StatePropagator, len(sets))
	names := make(map[string]model.OrbitalElementSet, len(sets))
	ordered := make([]StatePropagator, 0, len(sets))
	for _, set := range sets {
		prop, err := NewSGP4Propagator(set, cfg.MaxEpochOffset)
		if err != nil {
			log.Warn(ctx, "element set rejected",
				logging.String("catalog_number", set.CatalogNumber),
				logging.String("error", err.Error()),
			)
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				CatalogNumber: set.CatalogNumber,
				Name:          set.Name,
				Err:           err,
			})
			continue
		}
		props[set.CatalogNumber] = prop
		names[set.CatalogNumber] = set
		ordered = append(ordered, prop)
	}

	// Sampling: one trajectory per object on the shared grid.
	sampleStart := time.Now()
	sampleCtx, sampleSpan := e.tracer.Start(ctx, "conjunction.sample")
	trajectories, sampleDiags := NewSampler(log).Sample(sampleCtx, ordered, start, cfg)
	sampleSpan.SetAttributes(
		attribute.Int("trajectories", len(trajectories)),
		attribute.Int("excluded", len(sampleDiags)),
	)
	sampleSpan.End()
	result.Stats.SampleDuration = time.Since(sampleStart)
	e.metrics.ObserveStage("sample", result.Stats.SampleDuration)

	for _, d := range sampleDiags {
		if set, ok := names[d.CatalogNumber]; ok {
			d.Name = set.Name
		}
		result.Diagnostics = append(result.Diagnostics, d)
	}
	result.Stats.Excluded = len(result.Diagnostics)
	result.Stats.Trajectories = len(trajectories)
	e.metrics.AddExcluded(result.Stats.Excluded)

	// Coarse pairwise pass.
	search := NewConjunctionSearch(log, props)
	coarseStart := time.Now()
	coarseCtx, coarseSpan := e.tracer.Start(ctx, "conjunction.coarse")
	candidates, coarseErr := search.CoarseCandidates(coarseCtx, trajectories, cfg)
	coarseSpan.SetAttributes(attribute.Int("candidates", len(candidates)))
	coarseSpan.End()
	result.Stats.CoarseDuration = time.Since(coarseStart)
	result.Stats.Candidates = len(candidates)
	e.metrics.ObserveStage("coarse", result.Stats.CoarseDuration)
	e.metrics.AddCandidates(len(candidates))

	// Refinement and event construction.
	refineStart := time.Now()
	refineCtx, refineSpan := e.tracer.Start(ctx, "conjunction.refine")
	events, refineStats := search.Refine(refineCtx, candidates, cfg)
	refineSpan.SetAttributes(
		attribute.Int("events", len(events)),
		attribute.Int("non_converged", refineStats.NonConverged),
	)
	refineSpan.End()
	result.Stats.RefineDuration = time.Since(refineStart)
	result.Stats.NonConverged = refineStats.NonConverged
	e.metrics.ObserveStage("refine", result.Stats.RefineDuration)
	e.metrics.ObserveRefinement(refineStats.Iterations, refineStats.NonConverged)

	// Risk classification over the refined events.
	for i := range events {
		ev := &events[i]
		setA, setB := names[ev.CatalogA], names[ev.CatalogB]
		ev.NameA, ev.NameB = setA.Name, setB.Name
		ev.Risk = cfg.Risk.Classify(
			ev.MissDistanceKm,
			ev.RelativeVelocityKmS,
			characteristicSize(setA)+characteristicSize(setB),
		)
		e.metrics.CountEvent(ev.Risk.String())
	}
	result.Events = events

	outcome := "ok"
	if len(result.Diagnostics) > 0 {
		outcome = "partial"
	}
	if err := coarseErr; err != nil || ctx.Err() != nil {
		outcome = "error"
		e.metrics.ObserveRun(outcome, time.Since(runStart))
		log.Warn(ctx, "run cancelled",
			logging.Int("events", len(result.Events)),
			logging.Int("diagnostics", len(result.Diagnostics)),
		)
		if err == nil {
			err = ctx.Err()
		}
		return result, err
	}

	e.metrics.ObserveRun(outcome, time.Since(runStart))
	log.Info(ctx, "run complete",
		logging.String("outcome", outcome),
		logging.Int("objects", result.Stats.Objects),
		logging.Int("trajectories", result.Stats.Trajectories),
		logging.Int("candidates", result.Stats.Candidates),
		logging.Int("events", len(result.Events)),
		logging.Int("excluded", result.Stats.Excluded),
	)
	return result, nil
}

// characteristicSize resolves the risk-relevant size of an object,
// deriving it from the object class when ingestion left it unset.
func characteristicSize(set model.OrbitalElementSet) float64 {
	if set.CharacteristicSizeM > 0 {
		return set.CharacteristicSizeM
	}
	return set.Class.CharacteristicSizeM()
}
