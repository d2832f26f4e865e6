package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector bundles Prometheus metrics for the conjunction
// pipeline. All recording methods are nil-safe so the engine can run
// without metrics wired up.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	StageSeconds *prometheus.HistogramVec

	CatalogObjects  prometheus.Gauge
	ObjectsExcluded prometheus.Counter

	CandidatesTotal      prometheus.Counter
	EventsTotal          *prometheus.CounterVec
	RefineIterations     prometheus.Histogram
	RefineNonConvergence prometheus.Counter
}

// NewPipelineCollector registers pipeline Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil. Re-registration returns the existing collectors, so repeated
// construction against the same registry is safe.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conjunction_runs_total",
		Help: "Total pipeline runs, labeled by outcome (ok, partial, error).",
	}, []string{"outcome"}), "conjunction_runs_total")
	if err != nil {
		return nil, err
	}

	runDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "conjunction_run_duration_seconds",
		Help:    "End-to-end pipeline run duration in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}), "conjunction_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	stages, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conjunction_stage_duration_seconds",
		Help:    "Per-stage pipeline duration in seconds, labeled by stage (sample, coarse, refine).",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"stage"}), "conjunction_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	catalogObjects, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "conjunction_catalog_objects",
		Help: "Number of objects in the catalog snapshot of the latest run.",
	}), "conjunction_catalog_objects")
	if err != nil {
		return nil, err
	}

	excluded, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conjunction_objects_excluded_total",
		Help: "Objects excluded from runs by validation or propagation failures.",
	}), "conjunction_objects_excluded_total")
	if err != nil {
		return nil, err
	}

	candidates, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conjunction_candidates_total",
		Help: "Coarse-pass candidate windows produced across all runs.",
	}), "conjunction_candidates_total")
	if err != nil {
		return nil, err
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conjunction_events_total",
		Help: "Conjunction events produced, labeled by risk category.",
	}, []string{"risk"}), "conjunction_events_total")
	if err != nil {
		return nil, err
	}

	refineIters, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "conjunction_refine_iterations",
		Help:    "Golden-section iterations spent per refinement pass.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}), "conjunction_refine_iterations")
	if err != nil {
		return nil, err
	}

	nonConvergence, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "conjunction_refine_nonconvergence_total",
		Help: "Candidate refinements that exhausted the iteration budget.",
	}), "conjunction_refine_nonconvergence_total")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:             gatherer,
		RunsTotal:            runs,
		RunDuration:          runDuration,
		StageSeconds:         stages,
		CatalogObjects:       catalogObjects,
		ObjectsExcluded:      excluded,
		CandidatesTotal:      candidates,
		EventsTotal:          events,
		RefineIterations:     refineIters,
		RefineNonConvergence: nonConvergence,
	}, nil
}

// ObserveRun records the end-to-end outcome and duration of one run.
func (c *PipelineCollector) ObserveRun(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.RunsTotal != nil {
		c.RunsTotal.WithLabelValues(outcome).Inc()
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(d.Seconds())
	}
}

// ObserveStage records the duration of one pipeline stage.
func (c *PipelineCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageSeconds == nil {
		return
	}
	c.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// SetCatalogObjects records the snapshot size of the latest run.
func (c *PipelineCollector) SetCatalogObjects(n int) {
	if c == nil || c.CatalogObjects == nil {
		return
	}
	c.CatalogObjects.Set(float64(n))
}

// AddExcluded counts objects dropped by validation or propagation failure.
func (c *PipelineCollector) AddExcluded(n int) {
	if c == nil || c.ObjectsExcluded == nil {
		return
	}
	c.ObjectsExcluded.Add(float64(n))
}

// AddCandidates counts coarse-pass candidate windows.
func (c *PipelineCollector) AddCandidates(n int) {
	if c == nil || c.CandidatesTotal == nil {
		return
	}
	c.CandidatesTotal.Add(float64(n))
}

// CountEvent counts one produced event under its risk category.
func (c *PipelineCollector) CountEvent(risk string) {
	if c == nil || c.EventsTotal == nil {
		return
	}
	c.EventsTotal.WithLabelValues(risk).Inc()
}

// ObserveRefinement records the aggregate iteration cost of a refinement
// pass and how many candidates failed to converge.
func (c *PipelineCollector) ObserveRefinement(iterations, nonConverged int) {
	if c == nil {
		return
	}
	if c.RefineIterations != nil {
		c.RefineIterations.Observe(float64(iterations))
	}
	if nonConverged > 0 && c.RefineNonConvergence != nil {
		c.RefineNonConvergence.Add(float64(nonConverged))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
