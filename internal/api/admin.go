package api

import (
	"net/http"

	"infrabeacon/internal/apperr"
	"infrabeacon/internal/auth"
	"infrabeacon/internal/report"
	"infrabeacon/internal/workflow"
)

// requireAdmin resolves the session cookie into a Principal and stores it in the request context.
func (h *handlers) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			writeError(w, r, apperr.Unauthorized("admin session required"))
			return
		}
		p, err := h.Gate.Authenticate(r.Context(), c.Value)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

func (h *handlers) adminList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := h.Admin.List(r.Context(), auth.PrincipalFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": rs, "count": len(rs)})
}

func (h *handlers) adminGet(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Admin.Get(r.Context(), auth.PrincipalFrom(r.Context()), r.PathValue("id"))
	h.reportResult(w, r, rep, err)
}

func (h *handlers) adminUpdate(w http.ResponseWriter, r *http.Request) {
	var p report.Patch
	if err := decodeJSON(r, &p, false); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.Admin.UpdateFields(r.Context(), auth.PrincipalFrom(r.Context()), r.PathValue("id"), p)
	h.reportResult(w, r, rep, err)
}

func (h *handlers) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Admin.Delete(r.Context(), auth.PrincipalFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *handlers) adminVerify(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Admin.Verify(r.Context(), auth.PrincipalFrom(r.Context()), r.PathValue("id"))
	h.reportResult(w, r, rep, err)
}

func (h *handlers) adminResolve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &body, true); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.Admin.Resolve(r.Context(), auth.PrincipalFrom(r.Context()), r.PathValue("id"), body.Notes)
	h.reportResult(w, r, rep, err)
}

func (h *handlers) adminBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs      []string `json:"report_ids"`
		Status   string   `json:"status"`
		Severity string   `json:"severity"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Admin.BulkUpdate(r.Context(), auth.PrincipalFrom(r.Context()), workflow.BulkInput{
		IDs:      body.IDs,
		Status:   report.Status(body.Status),
		Severity: report.Severity(body.Severity),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated_count": res.Updated, "failed_ids": res.Failed})
}

func (h *handlers) reportResult(w http.ResponseWriter, r *http.Request, rep *report.Report, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}
