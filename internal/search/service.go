// Package search glues venue sourcing, ambiance analysis and filter
// matching into the one operation the map UI actually calls.
package search

import (
	"context"
	"time"

	"vibelymap/internal/batch"
	"vibelymap/internal/filter"
	"vibelymap/internal/models"
	"vibelymap/internal/places"
	"vibelymap/pkg/geography"
	"vibelymap/pkg/logging"
	"vibelymap/pkg/metrics"
)

var (
	mSearches       = metrics.Default.Counter("search_requests_total", "Total venue search requests")
	mSearchVenues   = metrics.Default.Counter("search_venues_total", "Total venues returned by the venue source")
	mSearchMatched  = metrics.Default.Counter("search_matched_total", "Total venues that passed filter matching")
	mSearchFiltered = metrics.Default.Counter("search_filtered_out_total", "Total venues rejected by filters")
)

// Request is one search call: where to look plus what to filter on.
type Request struct {
	places.SearchRequest
	Filters models.FilterSelection `json:"filters"`
}

// Response carries matched venues with their ambiance tags merged in.
type Response struct {
	Venues []models.Venue `json:"venues"`
	Total  int            `json:"total"`   // venues found before filtering
	Tagged int            `json:"tagged"`  // venues with at least one ambiance tag
	Stats  interface{}    `json:"stats,omitempty"`
}

// VenueSource abstracts the venue provider for tests.
type VenueSource interface {
	Search(ctx context.Context, req places.SearchRequest) ([]models.Venue, error)
}

// BatchAnalyzer abstracts the batch scheduler for tests.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, venues []models.Venue) (map[string][]string, error)
}

type Service struct {
	source  VenueSource
	batch   BatchAnalyzer
	matcher *filter.Matcher
	log     *logging.ComponentLogger
}

func NewService(source VenueSource, batchAnalyzer BatchAnalyzer, matcher *filter.Matcher, log *logging.Logger) *Service {
	return &Service{
		source:  source,
		batch:   batchAnalyzer,
		matcher: matcher,
		log:     log.WithComponent("search"),
	}
}

// Search finds venues, runs batch ambiance analysis on them, merges the
// resulting tags and applies the caller's filters. Venues whose analysis
// failed participate in filtering without AI tags; missing data never
// excludes a venue on its own.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	mSearches.Inc(1)

	venues, err := s.source.Search(ctx, req.SearchRequest)
	if err != nil {
		return nil, err
	}
	mSearchVenues.Inc(int64(len(venues)))

	tagsByID, err := s.batch.AnalyzeBatch(ctx, venues)
	if err != nil {
		// Partial failure is normal; the map still renders untagged pins.
		s.log.Warn("batch analysis incomplete", logging.Error(err), logging.Int("venues", len(venues)))
	}

	tagged := 0
	analyzedAt := time.Now()
	for i := range venues {
		if tags, ok := tagsByID[venues[i].ID]; ok {
			venues[i].MergeTags(tags)
			venues[i].AnalyzedAt = &analyzedAt
			if len(tags) > 0 {
				tagged++
			}
		}
	}

	matched := s.matcher.MatchAll(venues, req.Filters)
	if req.Lat != 0 || req.Lng != 0 {
		origin := geography.Point{Lat: req.Lat, Lng: req.Lng}
		geography.SortByProximity(matched, origin, func(v models.Venue) geography.Point {
			return geography.Point{Lat: v.Lat, Lng: v.Lng}
		})
	}
	mSearchMatched.Inc(int64(len(matched)))
	mSearchFiltered.Inc(int64(len(venues) - len(matched)))

	s.log.Info("search completed",
		logging.Int("found", len(venues)),
		logging.Int("tagged", tagged),
		logging.Int("matched", len(matched)))

	resp := &Response{
		Venues: matched,
		Total:  len(venues),
		Tagged: tagged,
	}
	if sp, ok := s.batch.(interface{ GetStats() batch.StatsSnapshot }); ok {
		resp.Stats = sp.GetStats()
	}
	return resp, nil
}
