// Package catalog ingests orbital element catalogs: parsing the 3-line
// TLE interchange format, fetching it over HTTP, caching snapshots in
// sqlite, and assembling validated kb snapshots with cache fallback.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/conjunction-engine/model"
)

// Parse reads 3-line NORAD TLE format from r. Malformed entries are
// collected as rejections, one per entry, and never fail the batch; a
// catalog file with one bad object still yields everything else.
func Parse(r io.Reader) ([]model.OrbitalElementSet, []model.ValidationError, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading catalog data: %w", err)
	}

	var (
		sets       []model.OrbitalElementSet
		rejections []model.ValidationError
	)
	for i := 0; i+2 < len(lines); {
		name := strings.TrimSpace(lines[i])
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resynchronise on the next line that looks like a name.
			rejections = append(rejections, model.ValidationError{
				CatalogNumber: name,
				Reason:        "entry is not a name/line1/line2 triplet",
			})
			i++
			continue
		}

		set, err := parseEntry(name, line1, line2)
		if err != nil {
			rejections = append(rejections, model.ValidationError{
				CatalogNumber: name,
				Reason:        err.Error(),
			})
			i += 3
			continue
		}
		sets = append(sets, set)
		i += 3
	}

	return sets, rejections, nil
}

// parseEntry extracts the element fields from a TLE triplet. Column
// offsets follow the fixed NORAD layout; line lengths are checked once
// up front.
func parseEntry(name, line1, line2 string) (model.OrbitalElementSet, error) {
	if len(line1) < 64 || len(line2) < 63 {
		return model.OrbitalElementSet{}, fmt.Errorf("TLE lines too short (%d/%d chars)", len(line1), len(line2))
	}

	catalogNumber := strings.TrimSpace(line1[2:7])
	if catalogNumber == "" {
		return model.OrbitalElementSet{}, fmt.Errorf("missing catalog number")
	}

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("epoch: %w", err)
	}

	inclination, err := tleFloat(line2[8:16])
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("inclination: %w", err)
	}
	raan, err := tleFloat(line2[17:25])
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("raan: %w", err)
	}
	// Eccentricity carries an implied leading decimal point.
	ecc, err := tleFloat("0." + strings.TrimSpace(line2[26:33]))
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("eccentricity: %w", err)
	}
	argPerigee, err := tleFloat(line2[34:42])
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("argument of perigee: %w", err)
	}
	meanAnomaly, err := tleFloat(line2[43:51])
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("mean anomaly: %w", err)
	}
	meanMotion, err := tleFloat(line2[52:63])
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("mean motion: %w", err)
	}

	bstar, err := tleExponent(line1[53:61])
	if err != nil {
		return model.OrbitalElementSet{}, fmt.Errorf("bstar: %w", err)
	}

	class := classify(name)
	set := model.OrbitalElementSet{
		CatalogNumber:       catalogNumber,
		Name:                name,
		Class:               class,
		Epoch:               epoch,
		InclinationDeg:      inclination,
		RAANDeg:             raan,
		Eccentricity:        ecc,
		ArgPerigeeDeg:       argPerigee,
		MeanAnomalyDeg:      meanAnomaly,
		MeanMotionRevDay:    meanMotion,
		BStar:               bstar,
		Line1:               line1,
		Line2:               line2,
		CharacteristicSizeM: class.CharacteristicSizeM(),
	}
	return set.NormalizeAngles(), nil
}

// parseEpoch converts a TLE epoch in YYDDD.DDDDDDDD form to UTC time.
// Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("day of year %v out of range", dayOfYear)
	}

	// Day 1 is January 1st.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}

func tleFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// tleExponent parses the packed decimal-exponent fields (" 10270-4"
// means 0.10270e-4). An all-zero field is common and valid.
func tleExponent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	mantissaSign := 1.0
	switch s[0] {
	case '-':
		mantissaSign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	expIdx := strings.LastIndexAny(s, "+-")
	if expIdx <= 0 {
		return 0, fmt.Errorf("malformed exponent field %q", s)
	}

	mantissa, err := strconv.ParseFloat("0."+s[:expIdx], 64)
	if err != nil {
		return 0, fmt.Errorf("mantissa in %q: %w", s, err)
	}
	exp, err := strconv.Atoi(s[expIdx:])
	if err != nil {
		return 0, fmt.Errorf("exponent in %q: %w", s, err)
	}

	value := mantissaSign * mantissa
	for ; exp > 0; exp-- {
		value *= 10
	}
	for ; exp < 0; exp++ {
		value /= 10
	}
	return value, nil
}

// classify derives the object class from catalog naming conventions:
// debris and spent rocket bodies are marked in the name, crewed
// stations are a short known list, everything else is a satellite.
func classify(name string) model.ObjectClass {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, " DEB"), strings.Contains(upper, "R/B"):
		return model.ClassDebris
	case strings.Contains(upper, "ISS"), strings.Contains(upper, "ZARYA"),
		strings.Contains(upper, "TIANGONG"), strings.Contains(upper, "CSS ("):
		return model.ClassStationOrManned
	default:
		return model.ClassSatellite
	}
}
