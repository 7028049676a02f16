package api

import (
	"net/http"
	"time"

	"infrabeacon/internal/logger"
)

const sessionCookie = "ib_session"

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := decodeJSON(r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Gate.Login(r.Context(), body.IDToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, h.cookie(s.ID, s.ExpiresAt))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"redirect_url": "/admin/",
		"user":         map[string]string{"email": s.Email, "name": s.Name},
		"expires_at":   s.ExpiresAt,
	})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := h.Gate.Logout(r.Context(), c.Value); err != nil {
			logger.L().WithError(err).Warn("auth_logout_error")
		}
	}
	http.SetCookie(w, h.cookie("", time.Unix(0, 0)))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err == nil {
		if p, err := h.Gate.Authenticate(r.Context(), c.Value); err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"logged_in":  true,
				"user":       map[string]string{"email": p.Email, "name": p.Name},
				"expires_at": p.ExpiresAt,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logged_in": false})
}

func (h *handlers) cookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}
