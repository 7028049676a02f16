package api

import (
	"encoding/json"
	"net/http"
)

func (h *handlers) configJS(w http.ResponseWriter, _ *http.Request) {
	cfg, _ := json.Marshal(map[string]string{
		"googleMapsApiKey":   h.Frontend.GoogleMapsAPIKey,
		"firebaseApiKey":     h.Frontend.FirebaseAPIKey,
		"firebaseAuthDomain": h.Frontend.FirebaseAuthDomain,
		"firebaseProjectId":  h.Frontend.FirebaseProjectID,
	})
	w.Header().Set("content-type", "application/javascript; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write([]byte("window.__CONFIG__=" + string(cfg) + ";\n"))
}

// healthz answers 503 while any registered dependency is failing its heartbeat.
func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	if h.Health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"healthy": true})
		return
	}
	st, ok := h.Health.Snapshot()
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"healthy": ok, "components": st})
}
