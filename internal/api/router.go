package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"vibelymap/internal/auth"
	"vibelymap/internal/batch"
	"vibelymap/internal/search"
	"vibelymap/internal/tagcache"
	"vibelymap/internal/vision"
	"vibelymap/pkg/events"
	"vibelymap/pkg/logging"
)

// Deps bundles everything the router needs. Events may be nil when no
// DATABASE_URL is configured; the history endpoint degrades to 503.
type Deps struct {
	Search    *search.Service
	Scheduler *batch.Scheduler
	Orch      *vision.Orchestrator
	Cache     tagcache.Store
	Places    VenueDetailer
	Events    *events.SQLEventStore
	Log       *logging.Logger
}

// NewRouter builds the service router. Read paths used by the map UI
// are public; mutating and operational paths sit behind admin tokens.
func NewRouter(d Deps, adminMW *auth.AdminAuthMiddleware) *mux.Router {
	r := mux.NewRouter()

	// Public surface
	r.Handle("/search", SearchHandler(d.Search, d.Log)).Methods(http.MethodPost)
	r.Handle("/places/{id}/tags", TagsHandler(d.Cache)).Methods(http.MethodGet)
	r.Handle("/places/{id}", PlaceDetailsHandler(d.Places)).Methods(http.MethodGet)

	// Admin surface
	admin := func(h http.Handler) http.Handler { return adminMW.Handler(h) }
	r.Handle("/places/{id}/analyze", admin(AnalyzeVenueHandler(d.Orch, d.Log))).Methods(http.MethodPost)
	r.Handle("/analyze/batch", admin(BatchAnalyzeHandler(d.Scheduler, d.Log))).Methods(http.MethodPost)
	r.Handle("/cache/{id}", admin(InvalidateHandler(d.Cache, d.Log))).Methods(http.MethodDelete)
	r.Handle("/cache", admin(ClearCacheHandler(d.Cache, d.Log))).Methods(http.MethodDelete)
	r.Handle("/api/stats", admin(StatsHandler(d.Scheduler, d.Orch, d.Cache))).Methods(http.MethodGet)
	r.Handle("/analysis/history", admin(HistoryHandler(d.Events))).Methods(http.MethodGet)

	return r
}

// RenderUnauthorized writes the JSON 401 used by the admin middleware.
func RenderUnauthorized(w http.ResponseWriter, ip string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":     "admin token required",
		"client_ip": ip,
	})
}
