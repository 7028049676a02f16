// Package mapview: read-only projections of reports for the public map
package mapview

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"infrabeacon/internal/geo"
	"infrabeacon/internal/report"
)

var severityColor = map[report.Severity]string{
	report.High:   "#dc3545",
	report.Medium: "#ffc107",
	report.Low:    "#28a745",
}

var heatWeight = map[report.Severity]float64{
	report.High:   1.0,
	report.Medium: 0.6,
	report.Low:    0.3,
}

var clusterWeight = map[report.Severity]int{
	report.High:   3,
	report.Medium: 2,
	report.Low:    1,
}

const maxClusterIDs = 10

type Marker struct {
	ID          string           `json:"id"`
	Lat         float64          `json:"lat"`
	Lng         float64          `json:"lng"`
	IssueType   report.IssueType `json:"issue_type"`
	Severity    report.Severity  `json:"severity"`
	Status      report.Status    `json:"status"`
	Description string           `json:"description"`
	ImageURL    string           `json:"image_url"`
	Color       string           `json:"color"`
	CreatedAt   time.Time        `json:"created_at"`
}

func Markers(rs []*report.Report) []Marker {
	out := make([]Marker, 0, len(rs))
	for _, r := range rs {
		color, ok := severityColor[r.Severity]
		if !ok {
			color = severityColor[report.Medium]
		}
		out = append(out, Marker{
			ID: r.ID, Lat: r.Latitude, Lng: r.Longitude,
			IssueType: r.IssueType, Severity: r.Severity, Status: r.Status,
			Description: r.Description, ImageURL: r.ImageURL,
			Color: color, CreatedAt: r.CreatedAt,
		})
	}
	return out
}

type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight float64 `json:"weight"`
}

// Heatmap weights points by severity; unresolved reports count half again as much.
// A nil bounds keeps every point.
func Heatmap(rs []*report.Report, bounds *geo.Bounds) []HeatPoint {
	out := make([]HeatPoint, 0, len(rs))
	for _, r := range rs {
		if bounds != nil && !bounds.Contains(r.Latitude, r.Longitude) {
			continue
		}
		w, ok := heatWeight[r.Severity]
		if !ok {
			w = heatWeight[report.Medium]
		}
		if r.Status.Active() {
			w *= 1.5
		}
		out = append(out, HeatPoint{Lat: r.Latitude, Lng: r.Longitude, Weight: w})
	}
	return out
}

// ParseBounds reads "north,south,east,west". Malformed input yields nil, not an error.
func ParseBounds(s string) *geo.Bounds {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	return &geo.Bounds{North: v[0], South: v[1], East: v[2], West: v[3]}
}

type Stats struct {
	Total      int                      `json:"total"`
	ByStatus   map[report.Status]int    `json:"by_status"`
	ByType     map[report.IssueType]int `json:"by_type"`
	BySeverity map[report.Severity]int  `json:"by_severity"`
}

// ComputeStats always reports every known enum value, zero counts included.
func ComputeStats(rs []*report.Report) Stats {
	s := Stats{
		Total:      len(rs),
		ByStatus:   map[report.Status]int{report.StatusNew: 0, report.StatusVerified: 0, report.StatusResolved: 0},
		ByType:     make(map[report.IssueType]int, len(report.IssueTypes)),
		BySeverity: map[report.Severity]int{report.High: 0, report.Medium: 0, report.Low: 0},
	}
	for _, t := range report.IssueTypes {
		s.ByType[t] = 0
	}
	for _, r := range rs {
		if _, ok := s.ByStatus[r.Status]; ok {
			s.ByStatus[r.Status]++
		}
		if _, ok := s.ByType[r.IssueType]; ok {
			s.ByType[r.IssueType]++
		}
		if _, ok := s.BySeverity[r.Severity]; ok {
			s.BySeverity[r.Severity]++
		}
	}
	return s
}

type Cluster struct {
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Count       int      `json:"count"`
	AvgSeverity float64  `json:"avg_severity"`
	ReportIDs   []string `json:"report_ids"`
}

// GridSize is the cluster cell edge in degrees for a map zoom level.
func GridSize(zoom int) float64 {
	switch {
	case zoom < 5:
		return 5.0
	case zoom < 8:
		return 1.0
	case zoom < 11:
		return 0.1
	case zoom < 14:
		return 0.01
	default:
		return 0.001
	}
}

// Clusters snaps reports to the nearest grid node and groups them.
// Output is ordered by count, largest first.
func Clusters(rs []*report.Report, zoom int) []Cluster {
	g := GridSize(zoom)
	type acc struct {
		c   Cluster
		sum int
	}
	type key struct{ i, j int64 }
	cells := make(map[key]*acc)
	order := make([]key, 0)
	for _, r := range rs {
		k := key{int64(math.Round(r.Latitude / g)), int64(math.Round(r.Longitude / g))}
		a, ok := cells[k]
		if !ok {
			a = &acc{c: Cluster{Lat: float64(k.i) * g, Lng: float64(k.j) * g}}
			cells[k] = a
			order = append(order, k)
		}
		a.c.Count++
		w, ok := clusterWeight[r.Severity]
		if !ok {
			w = clusterWeight[report.Medium]
		}
		a.sum += w
		if len(a.c.ReportIDs) < maxClusterIDs {
			a.c.ReportIDs = append(a.c.ReportIDs, r.ID)
		}
	}
	out := make([]Cluster, 0, len(order))
	for _, k := range order {
		a := cells[k]
		a.c.AvgSeverity = float64(a.sum) / float64(a.c.Count)
		out = append(out, a.c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
