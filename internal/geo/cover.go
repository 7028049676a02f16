package geo

import "math"

// coverSlack widens the radius used to size cells so rounding at cell edges cannot drop a point.
const coverSlack = 1.05

// CoverPrefixes returns geohash prefixes whose cells together contain every point within
// radiusMeters of (lat, lng). It is the candidate pre-filter of the nearby search and never
// produces false negatives: it picks the finest precision (at most maxPrecision) whose cell
// is at least the radius tall and wide, then returns that cell and its neighbours.
//
// A single empty prefix means "no restriction": returned when the circle reaches a pole or
// no precision has cells large enough.
func CoverPrefixes(lat, lng, radiusMeters float64, maxPrecision int) []string {
	lat, lng = normalize(lat, lng)
	if radiusMeters < 0 || math.IsNaN(radiusMeters) {
		radiusMeters = 0
	}
	r := radiusMeters * coverSlack
	edge := math.Abs(lat) + r/metersPerDegree
	if edge >= 90 || math.IsNaN(edge) {
		return []string{""}
	}
	cosEdge := math.Cos(edge * math.Pi / 180)
	for p := maxPrecision; p >= 1; p-- {
		hDeg, wDeg := cellSize(p)
		if hDeg*metersPerDegree < r || wDeg*metersPerDegree*cosEdge < r {
			continue
		}
		center := Encode(lat, lng, p)
		return append([]string{center}, Neighbors(center)...)
	}
	return []string{""}
}
