// Package geo: geohash cells and great-circle distance used by the nearby search
package geo

import (
	"math"
	"strings"
)

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// IndexPrecision is the geohash length stored with every report (cells of roughly 150m x 150m).
const IndexPrecision = 7

// Cell is the bounding box of a geohash.
type Cell struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (c Cell) Center() (lat, lng float64) {
	return (c.MinLat + c.MaxLat) / 2, (c.MinLng + c.MaxLng) / 2
}

func (c Cell) Height() float64 { return c.MaxLat - c.MinLat }
func (c Cell) Width() float64  { return c.MaxLng - c.MinLng }

// Encode returns the base32 geohash of a point, longitude bit first.
// Latitude is clamped to [-90, 90] and longitude wrapped into [-180, 180); NaN input still
// yields a hash of the requested length.
func Encode(lat, lng float64, precision int) string {
	if precision <= 0 {
		return ""
	}
	lat, lng = normalize(lat, lng)
	latLo, latHi := -90.0, 90.0
	lngLo, lngHi := -180.0, 180.0
	var sb strings.Builder
	sb.Grow(precision)
	bit, ch := 0, 0
	even := true
	for sb.Len() < precision {
		if even {
			mid := (lngLo + lngHi) / 2
			if lng >= mid {
				ch |= 16 >> bit
				lngLo = mid
			} else {
				lngHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat >= mid {
				ch |= 16 >> bit
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
			continue
		}
		sb.WriteByte(base32[ch])
		bit, ch = 0, 0
	}
	return sb.String()
}

// Decode returns the cell covered by hash; false on characters outside the alphabet.
func Decode(hash string) (Cell, bool) {
	c := Cell{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}
	even := true
	for i := 0; i < len(hash); i++ {
		idx := strings.IndexByte(base32, hash[i])
		if idx < 0 {
			return Cell{}, false
		}
		for mask := 16; mask > 0; mask >>= 1 {
			if even {
				mid := (c.MinLng + c.MaxLng) / 2
				if idx&mask != 0 {
					c.MinLng = mid
				} else {
					c.MaxLng = mid
				}
			} else {
				mid := (c.MinLat + c.MaxLat) / 2
				if idx&mask != 0 {
					c.MinLat = mid
				} else {
					c.MaxLat = mid
				}
			}
			even = !even
		}
	}
	return c, true
}

// Neighbors returns the up to 8 cells surrounding hash at the same precision.
// Longitude wraps across the antimeridian; rows past a pole do not exist and are skipped.
func Neighbors(hash string) []string {
	c, ok := Decode(hash)
	if !ok || hash == "" {
		return nil
	}
	lat, lng := c.Center()
	h, w := c.Height(), c.Width()
	seen := map[string]struct{}{hash: {}}
	out := make([]string, 0, 8)
	for _, dLat := range []float64{-1, 0, 1} {
		for _, dLng := range []float64{-1, 0, 1} {
			if dLat == 0 && dLng == 0 {
				continue
			}
			nLat := lat + dLat*h
			if nLat > 90 || nLat < -90 {
				continue
			}
			n := Encode(nLat, wrapLng(lng+dLng*w), len(hash))
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// cellSize returns the height and width in degrees of a cell at the given precision.
func cellSize(precision int) (latDeg, lngDeg float64) {
	bits := 5 * precision
	lngBits := (bits + 1) / 2
	latBits := bits / 2
	return 180 / math.Pow(2, float64(latBits)), 360 / math.Pow(2, float64(lngBits))
}

func normalize(lat, lng float64) (float64, float64) {
	if lat > 90 {
		lat = 90
	} else if lat < -90 {
		lat = -90
	}
	return lat, wrapLng(lng)
}

func wrapLng(lng float64) float64 {
	if (lng >= -180 && lng < 180) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}
