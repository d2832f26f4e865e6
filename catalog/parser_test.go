package catalog

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/conjunction-engine/model"
)

const sampleCatalog = `ISS (ZARYA)
1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990
2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760
NOAA 19
1 33591U 09005A   21275.51782528  .00000082  00000-0  69148-4 0  9991
2 33591  99.1936 315.9969 0013429 199.7161 160.3472 14.12503496651616
`

func TestParse_Catalog(t *testing.T) {
	sets, rejections, err := Parse(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("rejections = %v, want none", rejections)
	}
	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}

	iss := sets[0]
	if iss.CatalogNumber != "25544" {
		t.Errorf("CatalogNumber = %q, want 25544", iss.CatalogNumber)
	}
	if iss.Name != "ISS (ZARYA)" {
		t.Errorf("Name = %q", iss.Name)
	}
	if iss.Class != model.ClassStationOrManned {
		t.Errorf("Class = %v, want station", iss.Class)
	}
	if math.Abs(iss.InclinationDeg-51.6459) > 1e-9 {
		t.Errorf("InclinationDeg = %v, want 51.6459", iss.InclinationDeg)
	}
	if math.Abs(iss.RAANDeg-115.9059) > 1e-9 {
		t.Errorf("RAANDeg = %v, want 115.9059", iss.RAANDeg)
	}
	if math.Abs(iss.Eccentricity-0.0001817) > 1e-12 {
		t.Errorf("Eccentricity = %v, want 0.0001817", iss.Eccentricity)
	}
	if math.Abs(iss.ArgPerigeeDeg-61.3028) > 1e-9 {
		t.Errorf("ArgPerigeeDeg = %v, want 61.3028", iss.ArgPerigeeDeg)
	}
	if math.Abs(iss.MeanAnomalyDeg-35.9198) > 1e-9 {
		t.Errorf("MeanAnomalyDeg = %v, want 35.9198", iss.MeanAnomalyDeg)
	}
	if math.Abs(iss.MeanMotionRevDay-15.49370953) > 1e-8 {
		t.Errorf("MeanMotionRevDay = %v, want 15.49370953", iss.MeanMotionRevDay)
	}
	if math.Abs(iss.BStar-1.0270e-5) > 1e-12 {
		t.Errorf("BStar = %v, want 1.0270e-5", iss.BStar)
	}

	// Epoch 21275.59097222: day 275 of 2021 is October 2nd.
	wantEpoch := time.Date(2021, 10, 2, 14, 10, 59, 0, time.UTC)
	if d := iss.Epoch.Sub(wantEpoch); d < -2*time.Second || d > 2*time.Second {
		t.Errorf("Epoch = %v, want about %v", iss.Epoch, wantEpoch)
	}

	if err := iss.Validate(); err != nil {
		t.Errorf("parsed set does not validate: %v", err)
	}

	noaa := sets[1]
	if noaa.CatalogNumber != "33591" || noaa.Class != model.ClassSatellite {
		t.Errorf("second set = %q class %v, want 33591 satellite", noaa.CatalogNumber, noaa.Class)
	}
	if noaa.Line1 == "" || noaa.Line2 == "" {
		t.Errorf("raw TLE lines not retained")
	}
}

func TestParse_MalformedEntrySkipped(t *testing.T) {
	corrupt := "GARBAGE OBJECT\nthis is not a TLE line\nneither is this\n" + sampleCatalog

	sets, rejections, err := Parse(strings.NewReader(corrupt))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sets) != 2 {
		t.Errorf("len(sets) = %d, want the 2 valid entries", len(sets))
	}
	if len(rejections) == 0 {
		t.Errorf("corrupt entry produced no rejection")
	}
}

func TestParse_Empty(t *testing.T) {
	sets, rejections, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sets) != 0 || len(rejections) != 0 {
		t.Errorf("Parse(\"\") = %v, %v; want empty", sets, rejections)
	}
}

func TestParseEpoch_CenturyWindow(t *testing.T) {
	// 57-99 belong to the 1900s, everything below to the 2000s.
	old, err := parseEpoch("98001.00000000")
	if err != nil {
		t.Fatalf("parseEpoch: %v", err)
	}
	if old.Year() != 1998 {
		t.Errorf("year = %d, want 1998", old.Year())
	}

	recent, err := parseEpoch("26032.50000000")
	if err != nil {
		t.Fatalf("parseEpoch: %v", err)
	}
	if recent.Year() != 2026 || recent.YearDay() != 32 || recent.Hour() != 12 {
		t.Errorf("parseEpoch(26032.5) = %v, want 2026 day 32 noon", recent)
	}

	if _, err := parseEpoch("26400.0"); err == nil {
		t.Errorf("day-of-year 400 accepted")
	}
}

func TestTLEExponent(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{" 10270-4", 1.0270e-5},
		{" 00000-0", 0},
		{"-11606-4", -1.1606e-5},
		{" 69148-4", 6.9148e-5},
		{"", 0},
	}
	for _, tc := range cases {
		got, err := tleExponent(tc.in)
		if err != nil {
			t.Errorf("tleExponent(%q): %v", tc.in, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-15 {
			t.Errorf("tleExponent(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := tleExponent("notanumber"); err == nil {
		t.Errorf("garbage exponent field accepted")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want model.ObjectClass
	}{
		{"ISS (ZARYA)", model.ClassStationOrManned},
		{"CSS (TIANHE)", model.ClassStationOrManned},
		{"STARLINK-3042", model.ClassSatellite},
		{"COSMOS 2251 DEB", model.ClassDebris},
		{"SL-16 R/B", model.ClassDebris},
	}
	for _, tc := range cases {
		if got := classify(tc.name); got != tc.want {
			t.Errorf("classify(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
