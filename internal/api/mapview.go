package api

import (
	"net/http"
	"strconv"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/mapview"
)

const defaultZoom = 10

func (h *handlers) markers(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ms, err := h.Map.Markers(r.Context(), f.Status, f.IssueType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "markers": ms, "count": len(ms)})
}

func (h *handlers) heatmap(w http.ResponseWriter, r *http.Request) {
	pts, err := h.Map.Heatmap(r.Context(), mapview.ParseBounds(r.URL.Query().Get("bounds")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": pts, "count": len(pts)})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Map.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": st})
}

func (h *handlers) clusters(w http.ResponseWriter, r *http.Request) {
	zoom := defaultZoom
	if s := r.URL.Query().Get("zoom"); s != "" {
		z, err := strconv.Atoi(s)
		if err != nil || z < 0 {
			writeError(w, r, apperr.Validation("zoom must be a non-negative integer"))
			return
		}
		zoom = z
	}
	cs, err := h.Map.Clusters(r.Context(), zoom)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"clusters":  cs,
		"count":     len(cs),
		"zoom":      zoom,
		"grid_size": mapview.GridSize(zoom),
	})
}

