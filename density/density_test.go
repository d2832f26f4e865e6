package density

import (
	"math"
	"testing"
)

func TestZoneFor(t *testing.T) {
	cases := []struct {
		altKm float64
		want  string
	}{
		{250, "LEO_LOW"},
		{420, "LEO_LOW"},
		{650, "UNKNOWN"}, // seam between bands
		{790, "LEO_CRITICAL"},
		{1500, "LEO_HIGH"},
		{20200, "MEO"},
		{35786, "GEO"},
		{60000, "UNKNOWN"},
		{100, "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := ZoneFor(tc.altKm); got.Key != tc.want {
			t.Errorf("ZoneFor(%v) = %s, want %s", tc.altKm, got.Key, tc.want)
		}
	}
}

func TestSmallDebrisRisk_CriticalBandOutranksQuietBand(t *testing.T) {
	critical := SmallDebrisRisk(790, 10, 1)
	quiet := SmallDebrisRisk(20200, 10, 1)

	if critical.Probability <= quiet.Probability {
		t.Errorf("critical LEO probability %v not above MEO %v", critical.Probability, quiet.Probability)
	}
	if critical.Level <= quiet.Level {
		t.Errorf("critical LEO level %s not above MEO %s", critical.Level, quiet.Level)
	}
}

func TestSmallDebrisRisk_ClusterProximityBoost(t *testing.T) {
	// 790 km sits on the Cosmos/Iridium field; 950 km shares the zone but
	// sits away from every cluster.
	near := SmallDebrisRisk(790, 10, 1)
	far := SmallDebrisRisk(950, 10, 1)

	if near.Probability <= far.Probability {
		t.Errorf("on-cluster probability %v not above off-cluster %v", near.Probability, far.Probability)
	}
	if len(near.NearbyClusters) == 0 {
		t.Fatalf("no nearby clusters reported at 790 km")
	}
	if name := near.NearbyClusters[0].Name; name != "Cosmos 2251 / Iridium 33 Collision" {
		t.Errorf("nearest cluster = %q, want the Cosmos/Iridium field", name)
	}
}

func TestSmallDebrisRisk_ScalesWithExposure(t *testing.T) {
	one := SmallDebrisRisk(790, 10, 1)
	ten := SmallDebrisRisk(790, 10, 10)

	if math.Abs(ten.Probability-10*one.Probability) > 1e-12 {
		t.Errorf("probability did not scale linearly with exposure: %v vs %v", one.Probability, ten.Probability)
	}
	if ten.Level < one.Level {
		t.Errorf("longer exposure lowered the level: %s vs %s", one.Level, ten.Level)
	}
}

func TestRiskLevel_Bands(t *testing.T) {
	// GEO flux with a tiny cross-section is as quiet as it gets.
	if got := SmallDebrisRisk(40000, 0.1, 1).Level; got != RiskLow {
		t.Errorf("quiet case level = %s, want Low", got)
	}
	// A large structure parked on the critical band for a decade.
	if got := SmallDebrisRisk(790, 100, 10).Level; got < RiskHigh {
		t.Errorf("exposed case level = %s, want at least High", got)
	}
}

func TestSummary(t *testing.T) {
	s := Summary()

	if s.TotalTracked != 2296+3527+1500+5000 {
		t.Errorf("TotalTracked = %d", s.TotalTracked)
	}
	if s.EstimatedSubCm != s.EstimatedSmall*10 {
		t.Errorf("EstimatedSubCm = %d, want ten times EstimatedSmall", s.EstimatedSubCm)
	}
	if len(s.MajorEvents) != 4 || len(s.Zones) != 5 {
		t.Errorf("events/zones = %d/%d, want 4/5", len(s.MajorEvents), len(s.Zones))
	}
}
