package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/middleware"
	"infrabeacon/internal/report"
)

const (
	defaultNearbyRadius = 50.0
	maxNearbyRadius     = 5000.0
)

func (h *handlers) listReports(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := h.Reports.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": rs, "count": len(rs)})
}

func (h *handlers) submitReport(w http.ResponseWriter, r *http.Request) {
	in, err := parseSubmission(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Submitter.Submit(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out.Duplicate != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":         false,
			"duplicate":       true,
			"message":         "This issue has already been reported nearby",
			"existing_report": out.Duplicate.Existing,
			"distance_m":      out.Duplicate.DistanceMeters,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "report": out.Report, "analysis": out.Analysis})
}

func (h *handlers) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Reports.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}

func (h *handlers) nearbyReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := queryFloat(q.Get("lat"), "lat")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lng, err := queryFloat(q.Get("lng"), "lng")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		writeError(w, r, apperr.Validation("coordinates out of range"))
		return
	}
	radius := defaultNearbyRadius
	if s := q.Get("radius"); s != "" {
		if radius, err = queryFloat(s, "radius"); err != nil {
			writeError(w, r, err)
			return
		}
		if radius <= 0 || radius > maxNearbyRadius {
			writeError(w, r, apperr.Validation("radius must be in (0, %.0f]", maxNearbyRadius))
			return
		}
	}
	ns, err := h.Reports.FindNearby(r.Context(), lat, lng, radius)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": ns, "count": len(ns), "radius_m": radius})
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	up, err := parseImageOnly(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Submitter.Analyze(r.Context(), up.data, up.filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "analysis": res})
}

func (h *handlers) locate(w http.ResponseWriter, r *http.Request) {
	ip := middleware.VisitorIP(r)
	if h.Locator != nil {
		if loc, ok := h.Locator.Locate(ip); ok {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "location": loc})
			return
		}
	}
	writeError(w, r, apperr.NotFound("location"))
}

// parseFilter reads status, issue_type, severity and limit; unknown enum values are rejected.
func parseFilter(r *http.Request) (report.Filter, error) {
	q := r.URL.Query()
	var f report.Filter
	if s := q.Get("status"); s != "" {
		st, ok := report.ParseStatus(s)
		if !ok {
			return f, apperr.Validation("invalid status %q", s)
		}
		f.Status = st
	}
	if s := q.Get("issue_type"); s != "" {
		it, ok := report.ParseIssueType(s)
		if !ok {
			return f, apperr.Validation("invalid issue_type %q", s)
		}
		f.IssueType = it
	}
	if s := q.Get("severity"); s != "" {
		sv, ok := report.ParseSeverity(s)
		if !ok {
			return f, apperr.Validation("invalid severity %q", s)
		}
		f.Severity = sv
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, apperr.Validation("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func queryFloat(s, name string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperr.Validation("%s is required", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperr.Validation("%s must be a number", name)
	}
	return v, nil
}
