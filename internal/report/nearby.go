package report

import (
	"context"
	"sort"

	"infrabeacon/internal/geo"
	"infrabeacon/internal/metrics"
)

// Nearby is a report with its distance from the query point.
type Nearby struct {
	Report         *Report `json:"report"`
	DistanceMeters float64 `json:"distance_m"`
}

// CandidateSource fetches reports whose geohash starts with any of the prefixes.
// An empty prefix matches every report.
type CandidateSource interface {
	Candidates(ctx context.Context, prefixes []string) ([]*Report, error)
}

// FindNearby runs the two-phase proximity query: a geohash pre-filter served by the
// store, then the exact distance filter.
func FindNearby(ctx context.Context, src CandidateSource, lat, lng, radiusMeters float64) ([]Nearby, error) {
	prefixes := geo.CoverPrefixes(lat, lng, radiusMeters, geo.IndexPrecision)
	cands, err := src.Candidates(ctx, prefixes)
	if err != nil {
		return nil, err
	}
	metrics.NearbyCandidates.Observe(float64(len(cands)))
	return FilterNearby(lat, lng, radiusMeters, cands), nil
}

// FilterNearby keeps candidates within radiusMeters (inclusive), ordered by distance
// and, on equal distance, by most recent creation.
func FilterNearby(lat, lng, radiusMeters float64, cands []*Report) []Nearby {
	out := make([]Nearby, 0, len(cands))
	for _, r := range cands {
		d := geo.Distance(lat, lng, r.Latitude, r.Longitude)
		if d <= radiusMeters {
			out = append(out, Nearby{Report: r, DistanceMeters: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Report.CreatedAt.After(out[j].Report.CreatedAt)
	})
	return out
}
