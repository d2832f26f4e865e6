// Package report renders run results for the command-line tools.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/signalsfoundry/conjunction-engine/core"
	"github.com/signalsfoundry/conjunction-engine/density"
	"github.com/signalsfoundry/conjunction-engine/kb"
	"github.com/signalsfoundry/conjunction-engine/model"
)

const muEarthKm3S2 = 398600.4418

// Write renders the full run report: summary line, the event table,
// exclusions, and small-debris environment context for the riskiest
// events.
func Write(w io.Writer, result *core.Result, snap *kb.Snapshot, cfg core.RunConfig) error {
	fmt.Fprintf(w, "Conjunction run %s over %s horizon (%d objects, %d candidates)\n",
		result.Start.UTC().Format(time.RFC3339), cfg.Horizon, result.Stats.Objects, result.Stats.Candidates)
	if snap != nil {
		fmt.Fprintf(w, "Catalog: %d objects from %s as of %s\n",
			snap.Len(), snap.Source(), snap.AsOf().UTC().Format(time.RFC3339))
	}
	fmt.Fprintln(w)

	if err := writeEvents(w, result); err != nil {
		return err
	}
	if err := writeDiagnostics(w, result.Diagnostics); err != nil {
		return err
	}
	return writeEnvironment(w, result, snap)
}

func writeEvents(w io.Writer, result *core.Result) error {
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No conjunctions inside the watch threshold.")
		fmt.Fprintln(w)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TCA (UTC)\tOBJECT A\tOBJECT B\tMISS KM\tREL KM/S\tRISK\tNOTE")
	for _, ev := range result.Events {
		note := ""
		if ev.LowConfidence {
			note = "low confidence"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.2f\t%s\t%s\n",
			ev.TCA.UTC().Format("2006-01-02 15:04:05"),
			objectLabel(ev.CatalogA, ev.NameA),
			objectLabel(ev.CatalogB, ev.NameB),
			ev.MissDistanceKm,
			ev.RelativeVelocityKmS,
			ev.Risk,
			note,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func writeDiagnostics(w io.Writer, diagnostics []core.Diagnostic) error {
	if len(diagnostics) == 0 {
		return nil
	}

	fmt.Fprintf(w, "Excluded objects (%d):\n", len(diagnostics))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range diagnostics {
		fmt.Fprintf(tw, "  %s\t%s\n", objectLabel(d.CatalogNumber, d.Name), d.Err)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// writeEnvironment adds small-debris context for the objects involved in
// the most severe events. It is advisory output and skipped entirely
// when there are no events or no snapshot to resolve elements from.
func writeEnvironment(w io.Writer, result *core.Result, snap *kb.Snapshot) error {
	if snap == nil || len(result.Events) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	fmt.Fprintln(w, "Debris environment context:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ev := range result.Events {
		for _, num := range []string{ev.CatalogA, ev.CatalogB} {
			if seen[num] {
				continue
			}
			seen[num] = true

			set, ok := snap.Get(num)
			if !ok {
				continue
			}
			alt := MeanAltitudeKm(set)
			risk := density.SmallDebrisRisk(alt, 10, 1)
			fmt.Fprintf(tw, "  %s\t%.0f km\t%s\t%s small-debris risk\n",
				objectLabel(num, set.Name), alt, risk.Zone.Name, risk.Level)
		}
	}
	return tw.Flush()
}

// MeanAltitudeKm derives a circular-equivalent altitude from the mean
// motion. Good enough for zone lookup; eccentric orbits cross zones and
// get their semi-major-axis band.
func MeanAltitudeKm(set model.OrbitalElementSet) float64 {
	periodS := set.PeriodMinutes() * 60
	if periodS <= 0 {
		return 0
	}
	n := 2 * math.Pi / periodS
	a := math.Cbrt(muEarthKm3S2 / (n * n))
	return a - core.EarthRadiusKm
}

func objectLabel(catalogNumber, name string) string {
	if name == "" {
		return catalogNumber
	}
	return fmt.Sprintf("%s (%s)", catalogNumber, name)
}
