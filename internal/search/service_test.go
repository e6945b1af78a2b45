package search

import (
	"context"
	"errors"
	"testing"

	"vibelymap/internal/batch"
	"vibelymap/internal/filter"
	"vibelymap/internal/models"
	"vibelymap/internal/places"
	testutil "vibelymap/internal/testing"
	"vibelymap/pkg/logging"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	cfg := logging.DefaultLogConfig()
	cfg.EnableAsync = false
	cfg.Level = logging.LevelError
	lg, err := logging.NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { lg.Close() })
	return lg
}

// stubBatch returns a fixed tag map, optionally alongside an error.
type stubBatch struct {
	tags map[string][]string
	err  error
}

func (s stubBatch) AnalyzeBatch(context.Context, []models.Venue) (map[string][]string, error) {
	return s.tags, s.err
}

func intp(n int) *int { return &n }

func newTestService(t *testing.T, src VenueSource, ba BatchAnalyzer) *Service {
	t.Helper()
	return NewService(src, ba, filter.NewMatcher(), newTestLogger(t))
}

func TestSearchMergesTagsAndCounts(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "a", Name: "Cafe A", Category: "Cafe"},
		{ID: "b", Name: "Bar B", Category: "Bar"},
	}}
	ba := stubBatch{tags: map[string][]string{
		"a": {"Lighting 4", "Retro"},
		"b": {}, // analyzed, nothing found
	}}
	svc := newTestService(t, src, ba)

	resp, err := svc.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 2 || resp.Tagged != 1 {
		t.Fatalf("Total=%d Tagged=%d", resp.Total, resp.Tagged)
	}
	if len(resp.Venues) != 2 {
		t.Fatalf("venues = %v", resp.Venues)
	}
	var a models.Venue
	for _, v := range resp.Venues {
		if v.ID == "a" {
			a = v
		}
	}
	if len(a.Tags) != 2 {
		t.Fatalf("venue a tags = %v", a.Tags)
	}
}

func TestSearchStampsAnalyzedAt(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "tagged", Name: "Cafe A"},
		{ID: "untagged", Name: "Bar B"},
	}}
	ba := stubBatch{tags: map[string][]string{
		"tagged": {"Retro"},
	}}
	svc := newTestService(t, src, ba)

	resp, err := svc.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, v := range resp.Venues {
		switch v.ID {
		case "tagged":
			if v.AnalyzedAt == nil {
				t.Error("analyzed venue missing AnalyzedAt")
			}
		case "untagged":
			if v.AnalyzedAt != nil {
				t.Errorf("unanalyzed venue has AnalyzedAt %v", v.AnalyzedAt)
			}
		}
	}
}

// statsBatch exposes scheduler-style counters alongside the batch result.
type statsBatch struct {
	stubBatch
	stats batch.StatsSnapshot
}

func (s statsBatch) GetStats() batch.StatsSnapshot { return s.stats }

func TestSearchPopulatesStats(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "a", Name: "Cafe A"},
	}}
	ba := statsBatch{
		stubBatch: stubBatch{tags: map[string][]string{"a": {"Retro"}}},
		stats:     batch.StatsSnapshot{VenuesRequested: 7, Analyzed: 5, CacheHits: 2},
	}
	svc := newTestService(t, src, ba)

	resp, err := svc.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	snap, ok := resp.Stats.(batch.StatsSnapshot)
	if !ok {
		t.Fatalf("stats = %#v", resp.Stats)
	}
	if snap.VenuesRequested != 7 || snap.Analyzed != 5 || snap.CacheHits != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSearchStatsOmittedWithoutCounters(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{{ID: "a"}}}
	svc := newTestService(t, src, stubBatch{})

	resp, err := svc.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Stats != nil {
		t.Fatalf("expected nil stats, got %#v", resp.Stats)
	}
}

func TestSearchSourceErrorIsFatal(t *testing.T) {
	src := &testutil.MockVenueSource{Err: errors.New("places quota exceeded")}
	svc := newTestService(t, src, stubBatch{})

	if _, err := svc.Search(context.Background(), Request{}); err == nil {
		t.Fatal("expected the source error to propagate")
	}
}

func TestSearchBatchErrorIsNotFatal(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "a", Name: "Cafe A"},
	}}
	ba := stubBatch{err: errors.New("context deadline exceeded")}
	svc := newTestService(t, src, ba)

	resp, err := svc.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("analysis failure must not fail the search: %v", err)
	}
	if len(resp.Venues) != 1 {
		t.Fatalf("venues = %v", resp.Venues)
	}
}

func TestSearchAppliesFilters(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "bright", Name: "Bright Cafe"},
		{ID: "dim", Name: "Dim Bar"},
		{ID: "unknown", Name: "Untagged Spot"},
	}}
	ba := stubBatch{tags: map[string][]string{
		"bright": {"Lighting 5"},
		"dim":    {"Lighting 1"},
	}}
	svc := newTestService(t, src, ba)

	resp, err := svc.Search(context.Background(), Request{
		Filters: models.FilterSelection{Ranges: models.FilterRanges{Lighting: intp(3)}},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	got := map[string]bool{}
	for _, v := range resp.Venues {
		got[v.ID] = true
	}
	if !got["bright"] {
		t.Error("bright venue should pass the lighting threshold")
	}
	if got["dim"] {
		t.Error("dim venue should be filtered out")
	}
	// A venue with no lighting data passes range filters.
	if !got["unknown"] {
		t.Error("untagged venue should pass by default")
	}
}

func TestSearchSortsByProximity(t *testing.T) {
	// Origin sits next to "near"; "far" is roughly 350km away.
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "far", Name: "Far", Lat: 39.93, Lng: 32.85},
		{ID: "near", Name: "Near", Lat: 41.01, Lng: 28.98},
	}}
	svc := newTestService(t, src, stubBatch{})

	resp, err := svc.Search(context.Background(), Request{
		SearchRequest: places.SearchRequest{Lat: 41.0, Lng: 28.97},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Venues) != 2 || resp.Venues[0].ID != "near" {
		t.Fatalf("venue order = %v", resp.Venues)
	}
}

func TestSearchWithoutOriginKeepsSourceOrder(t *testing.T) {
	src := &testutil.MockVenueSource{Venues: []models.Venue{
		{ID: "second", Lat: 41.01, Lng: 28.98},
		{ID: "first", Lat: 39.93, Lng: 32.85},
	}}
	svc := newTestService(t, src, stubBatch{})

	resp, err := svc.Search(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Venues[0].ID != "second" || resp.Venues[1].ID != "first" {
		t.Fatalf("venue order = %v", resp.Venues)
	}
}
