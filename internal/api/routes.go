// Package api: HTTP routes for the public report API, the map views, admin moderation and login
package api

import (
	"net/http"

	"infrabeacon/internal/auth"
	"infrabeacon/internal/health"
	"infrabeacon/internal/ipgeo"
	"infrabeacon/internal/mapview"
	"infrabeacon/internal/middleware"
	"infrabeacon/internal/report"
	"infrabeacon/internal/workflow"
)

// Locator guesses a client's position from its address.
type Locator interface {
	Locate(ip string) (*ipgeo.Location, bool)
}

// Frontend is the browser-side configuration served as /config.js.
type Frontend struct {
	GoogleMapsAPIKey   string
	FirebaseAPIKey     string
	FirebaseAuthDomain string
	FirebaseProjectID  string
}

// Deps are the services the routes delegate to. Locator, Health and AdminAllow are optional.
type Deps struct {
	Reports      report.Repository
	Submitter    *workflow.Submitter
	Admin        *workflow.AdminService
	Gate         *auth.Gate
	Map          *mapview.Service
	Locator      Locator
	Health       *health.Registry
	AdminAllow   *middleware.IPAllow
	Frontend     Frontend
	CookieSecure bool
}

type handlers struct {
	Deps
}

// BuildRoutes registers every route on one mux; the caller mounts static files and /metrics.
func BuildRoutes(d Deps) *http.ServeMux {
	h := &handlers{Deps: d}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/reports", h.listReports)
	mux.HandleFunc("POST /api/reports", h.submitReport)
	mux.HandleFunc("GET /api/reports/nearby", h.nearbyReports)
	mux.HandleFunc("GET /api/reports/{id}", h.getReport)
	mux.HandleFunc("POST /api/analyze", h.analyze)
	mux.HandleFunc("GET /api/locate", h.locate)

	mux.HandleFunc("GET /map/api/markers", h.markers)
	mux.HandleFunc("GET /map/api/heatmap", h.heatmap)
	mux.HandleFunc("GET /map/api/stats", h.stats)
	mux.HandleFunc("GET /map/api/clusters", h.clusters)

	mux.HandleFunc("POST /auth/api/verify-token", h.login)
	mux.HandleFunc("GET /auth/logout", h.logout)
	mux.HandleFunc("GET /auth/api/session", h.session)

	admin := http.NewServeMux()
	admin.HandleFunc("GET /admin/api/reports", h.adminList)
	admin.HandleFunc("GET /admin/api/reports/{id}", h.adminGet)
	admin.HandleFunc("PATCH /admin/api/reports/{id}", h.adminUpdate)
	admin.HandleFunc("DELETE /admin/api/reports/{id}", h.adminDelete)
	admin.HandleFunc("POST /admin/api/reports/{id}/verify", h.adminVerify)
	admin.HandleFunc("POST /admin/api/reports/{id}/resolve", h.adminResolve)
	admin.HandleFunc("POST /admin/api/bulk/update", h.adminBulkUpdate)
	var guarded http.Handler = h.requireAdmin(admin)
	if d.AdminAllow != nil {
		guarded = d.AdminAllow.Wrap(guarded)
	}
	mux.Handle("/admin/api/", guarded)

	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /config.js", h.configJS)
	return mux
}
