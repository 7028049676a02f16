package geo

import "math"

// EarthRadiusMeters is the mean earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

const metersPerDegree = EarthRadiusMeters * math.Pi / 180

// Distance returns the haversine great-circle distance in metres.
// Symmetric, zero for identical points, never NaN for finite input.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push a slightly outside [0,1] for antipodal points
	a = math.Max(0, math.Min(1, a))
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bounds is a lat/lng rectangle, as sent by map clients ("north,south,east,west").
type Bounds struct {
	North, South, East, West float64
}

// Contains reports whether the point lies inside b; East < West means the box crosses the antimeridian.
func (b Bounds) Contains(lat, lng float64) bool {
	if lat > b.North || lat < b.South {
		return false
	}
	if b.West <= b.East {
		return lng >= b.West && lng <= b.East
	}
	return lng >= b.West || lng <= b.East
}
