package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the error body. Server faults are logged and their detail hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	msg := err.Error()
	if status >= 500 {
		logger.L().WithError(err).WithField("path", r.URL.Path).WithField("kind", kind).Error("request_failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]any{"success": false, "error": msg, "kind": kind})
}

// decodeJSON reads a JSON body, rejecting unknown fields. An empty body is allowed when optional.
func decodeJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}
