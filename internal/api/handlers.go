// Package api exposes the HTTP surface: venue search for the map UI
// plus admin operations for batch analysis, cache control and stats.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"vibelymap/internal/batch"
	"vibelymap/internal/models"
	"vibelymap/internal/search"
	"vibelymap/internal/tagcache"
	"vibelymap/internal/vision"
	"vibelymap/pkg/events"
	"vibelymap/pkg/logging"
	"vibelymap/pkg/metrics"
)

// Event sink for admin actions. Set from main.
var eventSink events.EventStore

func SetEventStore(es events.EventStore) { eventSink = es }

// metrics
var (
	mSearchRequests  = metrics.Default.Counter("http_search_requests_total", "Search endpoint requests")
	mAnalyzeRequests = metrics.Default.Counter("http_analyze_requests_total", "Single venue analysis requests")
	mBatchRequests   = metrics.Default.Counter("http_batch_requests_total", "Batch analysis requests")
	mCacheClears     = metrics.Default.Counter("http_cache_clears_total", "Admin cache invalidations")
	mBadRequests     = metrics.Default.Counter("http_bad_requests_total", "Requests rejected with 400")
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SearchHandler handles POST /search.
func SearchHandler(svc *search.Service, log *logging.Logger) http.HandlerFunc {
	l := log.WithComponent("api")
	return func(w http.ResponseWriter, r *http.Request) {
		mSearchRequests.Inc(1)

		var req search.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mBadRequests.Inc(1)
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" && req.Lat == 0 && req.Lng == 0 {
			mBadRequests.Inc(1)
			writeError(w, http.StatusBadRequest, "either query or lat/lng is required")
			return
		}

		resp, err := svc.Search(r.Context(), req)
		if err != nil {
			l.Error("search failed", err)
			writeError(w, http.StatusBadGateway, "venue search failed")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// AnalyzeVenueHandler handles POST /places/{id}/analyze. The body
// carries the venue payload (name, category, photo URLs); the path
// carries the place ID. A venue without photos yields zero tags.
func AnalyzeVenueHandler(orch *vision.Orchestrator, log *logging.Logger) http.HandlerFunc {
	l := log.WithComponent("api")
	return func(w http.ResponseWriter, r *http.Request) {
		mAnalyzeRequests.Inc(1)

		placeID := mux.Vars(r)["id"]
		if placeID == "" {
			mBadRequests.Inc(1)
			writeError(w, http.StatusBadRequest, "place id is required")
			return
		}

		var venue models.Venue
		if err := json.NewDecoder(r.Body).Decode(&venue); err != nil {
			mBadRequests.Inc(1)
			writeError(w, http.StatusBadRequest, "invalid venue body")
			return
		}
		venue.ID = placeID

		tags := orch.AnalyzeWithFallback(r.Context(), venue)
		l.Info("venue analyzed",
			logging.String("place_id", placeID),
			logging.Int("tags", len(tags)))

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"place_id": placeID,
			"tags":     tags,
		})
	}
}

// BatchAnalyzeHandler handles POST /analyze/batch with a venues array.
func BatchAnalyzeHandler(scheduler *batch.Scheduler, log *logging.Logger) http.HandlerFunc {
	l := log.WithComponent("api")
	return func(w http.ResponseWriter, r *http.Request) {
		mBatchRequests.Inc(1)

		var body struct {
			Venues []models.Venue `json:"venues"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			mBadRequests.Inc(1)
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Venues) == 0 {
			mBadRequests.Inc(1)
			writeError(w, http.StatusBadRequest, "venues array is required")
			return
		}

		results, err := scheduler.AnalyzeBatch(r.Context(), body.Venues)
		if err != nil {
			l.Warn("batch finished with failures", logging.Error(err))
		}

		failed := make([]string, 0)
		seen := make(map[string]struct{}, len(results))
		for _, v := range body.Venues {
			if _, dup := seen[v.ID]; dup {
				continue
			}
			seen[v.ID] = struct{}{}
			if _, ok := results[v.ID]; !ok {
				failed = append(failed, v.ID)
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"results": results,
			"failed":  failed,
		})
	}
}

// VenueDetailer fetches extended place fields (address, phone, website,
// opening hours) for one venue.
type VenueDetailer interface {
	Details(ctx context.Context, venue models.Venue) models.Venue
}

// PlaceDetailsHandler handles GET /places/{id}. Detail lookups degrade
// inside the source, so the response is always 200 with whatever fields
// could be resolved.
func PlaceDetailsHandler(src VenueDetailer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := mux.Vars(r)["id"]
		seed := models.Venue{
			ID:   placeID,
			Name: r.URL.Query().Get("name"),
		}
		writeJSON(w, http.StatusOK, src.Details(r.Context(), seed))
	}
}

// TagsHandler handles GET /places/{id}/tags from cache only.
func TagsHandler(cache tagcache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := mux.Vars(r)["id"]
		tags, ok := cache.Get(r.Context(), placeID)
		if !ok {
			writeError(w, http.StatusNotFound, "no cached tags for place")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"place_id": placeID,
			"tags":     tags,
			"cached":   true,
		})
	}
}

// InvalidateHandler handles DELETE /cache/{id}.
func InvalidateHandler(cache tagcache.Store, log *logging.Logger) http.HandlerFunc {
	l := log.WithComponent("api")
	return func(w http.ResponseWriter, r *http.Request) {
		placeID := mux.Vars(r)["id"]
		if err := cache.Delete(r.Context(), placeID); err != nil {
			l.Error("cache invalidation failed", err, logging.String("place_id", placeID))
			writeError(w, http.StatusInternalServerError, "cache invalidation failed")
			return
		}
		mCacheClears.Inc(1)
		emitCacheCleared(r, placeID, 1)
		writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "place_id": placeID})
	}
}

// ClearCacheHandler handles DELETE /cache.
func ClearCacheHandler(cache tagcache.Store, log *logging.Logger) http.HandlerFunc {
	l := log.WithComponent("api")
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := cache.ClearAll(r.Context())
		if err != nil {
			l.Error("cache clear failed", err)
			writeError(w, http.StatusInternalServerError, "cache clear failed")
			return
		}
		mCacheClears.Inc(1)
		emitCacheCleared(r, "", n)
		l.Info("tag cache cleared", logging.Int("keys", n))
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "cleared", "keys": n})
	}
}

func emitCacheCleared(r *http.Request, placeID string, keys int) {
	if eventSink == nil {
		return
	}
	_ = eventSink.Append(r.Context(), events.PlaceCacheCleared{
		Base: events.Base{Ts: time.Now(), PID: placeID},
		Keys: keys,
	})
}

// StatsHandler handles GET /api/stats with batch, provider and cache numbers.
func StatsHandler(scheduler *batch.Scheduler, orch *vision.Orchestrator, cache tagcache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerStats := make([]map[string]interface{}, 0, orch.ProviderCount())
		for _, p := range orch.Providers() {
			tokens, requests, cost, dur := p.Usage().GetStats()
			providerStats = append(providerStats, map[string]interface{}{
				"name":               p.Name(),
				"configured":         p.Configured(),
				"total_tokens":       tokens,
				"total_requests":     requests,
				"estimated_cost_usd": cost,
				"window":             dur.String(),
			})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"batch":           scheduler.GetStats(),
			"providers":       providerStats,
			"cache_available": cache.Available(),
		})
	}
}

// HistoryHandler handles GET /analysis/history. With place_id it returns
// that place's event stream plus a replayed summary; without it the most
// recent events across all places.
func HistoryHandler(store *events.SQLEventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeError(w, http.StatusServiceUnavailable, "analysis history is not configured")
			return
		}

		placeID := r.URL.Query().Get("place_id")
		if placeID != "" {
			evs, err := store.ListByPlace(r.Context(), placeID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "history query failed")
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"place_id": placeID,
				"events":   evs,
				"summary":  events.Replay(evs),
			})
			return
		}

		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		evs, err := store.ListRecent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "history query failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"events": evs})
	}
}
