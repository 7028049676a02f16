package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP is the address used for access decisions: the first IP of the trusted header
// when one is configured and present, otherwise RemoteAddr.
func ClientIP(r *http.Request, trustedHeader string) string {
	if trustedHeader != "" {
		if raw := r.Header.Get(trustedHeader); raw != "" {
			first := strings.TrimSpace(strings.Split(raw, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}
	return remoteHost(r.RemoteAddr)
}

// VisitorIP trusts the usual proxy headers in order. Only for hints such as map centring,
// never for access control.
func VisitorIP(r *http.Request) string {
	h := r.Header
	for _, k := range []string{"X-Forwarded-For", "CF-Connecting-IP", "X-Real-IP", "X-Client-IP"} {
		if x := h.Get(k); x != "" {
			return strings.TrimSpace(strings.Split(x, ",")[0])
		}
	}
	if x := h.Get("Forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := strings.Trim(x[i+4:], "\" ")
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			return strings.Trim(y, "\"[]")
		}
	}
	return remoteHost(r.RemoteAddr)
}

func remoteHost(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}
