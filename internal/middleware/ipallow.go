// Package middleware: HTTP guards shared by every route group
package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"infrabeacon/internal/logger"
)

// IPAllow restricts a route group to listed addresses and networks (IPv4 or IPv6).
// The source address is RemoteAddr unless a trusted real-IP header is configured.
type IPAllow struct {
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
}

// NewIPAllow accepts single IPs or CIDRs. "local" expands to the loopback addresses.
func NewIPAllow(entries []string, realIPHeader string) (*IPAllow, error) {
	m := &IPAllow{allowIPs: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		switch {
		case e == "":
		case strings.EqualFold(e, "local"):
			m.allowIPs["127.0.0.1"] = struct{}{}
			m.allowIPs["::1"] = struct{}{}
		case strings.Contains(e, "/"):
			_, n, err := net.ParseCIDR(e)
			if err != nil {
				return nil, fmt.Errorf("allow list: bad CIDR %q: %w", e, err)
			}
			m.allowCIDRs = append(m.allowCIDRs, n)
		default:
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("allow list: bad IP %q", e)
			}
			m.allowIPs[ip.String()] = struct{}{}
		}
	}
	return m, nil
}

// Empty means no restriction is configured.
func (m *IPAllow) Empty() bool { return len(m.allowIPs) == 0 && len(m.allowCIDRs) == 0 }

func (m *IPAllow) Wrap(next http.Handler) http.Handler {
	if m.Empty() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := net.ParseIP(ClientIP(r, m.realIPHeader))
		if ip != nil && m.allowed(ip) {
			next.ServeHTTP(w, r)
			return
		}
		logger.L().WithField("ip", ClientIP(r, m.realIPHeader)).WithField("path", r.URL.Path).Debug("ip_allow_block")
		writeError(w, http.StatusForbidden, "address not allowed", "forbidden")
	})
}

func (m *IPAllow) allowed(ip net.IP) bool {
	if _, ok := m.allowIPs[ip.String()]; ok {
		return true
	}
	for _, n := range m.allowCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg, "kind": kind})
}
