package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveRunRecordsOutcomeAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	collector.ObserveRun("ok", 250*time.Millisecond)
	collector.ObserveRun("ok", 2*time.Second)
	collector.ObserveRun("error", time.Second)

	if got := testutil.ToFloat64(collector.RunsTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("conjunction_runs_total{outcome=ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.RunsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("conjunction_runs_total{outcome=error} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "conjunction_run_duration_seconds", nil); count != 3 {
		t.Fatalf("conjunction_run_duration_seconds sample_count = %d, want 3", count)
	}
}

func TestObserveStageLabelsByStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	collector.ObserveStage("sample", 50*time.Millisecond)
	collector.ObserveStage("coarse", 120*time.Millisecond)
	collector.ObserveStage("coarse", 80*time.Millisecond)

	if count := histogramSampleCount(t, reg, "conjunction_stage_duration_seconds", map[string]string{
		"stage": "coarse",
	}); count != 2 {
		t.Fatalf("conjunction_stage_duration_seconds{stage=coarse} sample_count = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "conjunction_stage_duration_seconds", map[string]string{
		"stage": "sample",
	}); count != 1 {
		t.Fatalf("conjunction_stage_duration_seconds{stage=sample} sample_count = %d, want 1", count)
	}
}

func TestPipelineCountersAccumulate(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	collector.SetCatalogObjects(42)
	collector.AddExcluded(3)
	collector.AddCandidates(7)
	collector.CountEvent("High")
	collector.CountEvent("High")
	collector.CountEvent("Minimal")
	collector.ObserveRefinement(18, 0)
	collector.ObserveRefinement(60, 1)

	if got := testutil.ToFloat64(collector.CatalogObjects); got != 42 {
		t.Fatalf("conjunction_catalog_objects = %v, want 42", got)
	}
	if got := testutil.ToFloat64(collector.ObjectsExcluded); got != 3 {
		t.Fatalf("conjunction_objects_excluded_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.CandidatesTotal); got != 7 {
		t.Fatalf("conjunction_candidates_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.EventsTotal.WithLabelValues("High")); got != 2 {
		t.Fatalf("conjunction_events_total{risk=High} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.RefineNonConvergence); got != 1 {
		t.Fatalf("conjunction_refine_nonconvergence_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "conjunction_refine_iterations", nil); count != 2 {
		t.Fatalf("conjunction_refine_iterations sample_count = %d, want 2", count)
	}
}

func TestRepeatedConstructionAgainstSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}
	second, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector (again): %v", err)
	}

	first.AddCandidates(1)
	second.AddCandidates(1)

	if got := testutil.ToFloat64(second.CandidatesTotal); got != 2 {
		t.Fatalf("conjunction_candidates_total = %v, want 2 (shared collector)", got)
	}
}

func TestMetricsHandlerExposesPipelineSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}
	collector.ObserveRun("ok", 100*time.Millisecond)
	collector.SetCatalogObjects(5)
	collector.CountEvent("Critical")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"conjunction_runs_total",
		"conjunction_run_duration_seconds",
		"conjunction_catalog_objects",
		"conjunction_events_total",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *PipelineCollector

	collector.ObserveRun("ok", time.Second)
	collector.ObserveStage("sample", time.Second)
	collector.SetCatalogObjects(1)
	collector.AddExcluded(1)
	collector.AddCandidates(1)
	collector.CountEvent("High")
	collector.ObserveRefinement(10, 1)
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
