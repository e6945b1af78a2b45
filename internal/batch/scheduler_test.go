package batch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"vibelymap/internal/models"
	testutil "vibelymap/internal/testing"
	"vibelymap/pkg/events"
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

func newTestScheduler(t *testing.T, ta *testutil.MockTrackAnalyzer, store *testutil.MockStore) *Scheduler {
	t.Helper()
	s := NewScheduler(ta, store, newTestLogger(t))
	// Tight pacing so tests finish quickly.
	s.ApplyConfig(3, 10*time.Millisecond)
	return s
}

func venuesNamed(ids ...string) []models.Venue {
	out := make([]models.Venue, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Venue{ID: id, Name: "venue " + id})
	}
	return out
}

// startsByID reduces the recorded calls to a place id -> starting provider
// index map.
func startsByID(ta *testutil.MockTrackAnalyzer) map[string]int {
	ta.Mu.Lock()
	defer ta.Mu.Unlock()
	out := make(map[string]int, len(ta.Calls))
	for _, c := range ta.Calls {
		out[c.PlaceID] = c.Start
	}
	return out
}

func TestAnalyzeBatchEmptyInput(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	result, err := s.AnalyzeBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("result = %v", result)
	}
	if len(ta.Calls) != 0 {
		t.Fatalf("analyzer called for an empty batch: %v", ta.Calls)
	}
}

func TestAnalyzeBatchCacheShortCircuit(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	store := testutil.NewMockStore()
	store.Data["a"] = []string{"Retro"}
	store.Data["b"] = []string{"Lighting 2"}
	s := newTestScheduler(t, ta, store)

	result, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result["a"], []string{"Retro"}) || !reflect.DeepEqual(result["b"], []string{"Lighting 2"}) {
		t.Fatalf("result = %v", result)
	}
	if len(ta.Calls) != 0 {
		t.Fatalf("fully cached batch should not reach the analyzer: %v", ta.Calls)
	}
	if len(store.BatchCalls) != 1 {
		t.Fatalf("expected one batched cache lookup, got %v", store.BatchCalls)
	}
}

func TestAnalyzeBatchSplitsAcrossProviders(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer() // two providers
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	_, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"a": 0, "b": 0, "c": 1, "d": 1}
	if got := startsByID(ta); !reflect.DeepEqual(got, want) {
		t.Fatalf("starting providers = %v, want %v", got, want)
	}
}

func TestAnalyzeBatchOddSplitFavorsFirstTrack(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	if _, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b", "c")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{"a": 0, "b": 0, "c": 1}
	if got := startsByID(ta); !reflect.DeepEqual(got, want) {
		t.Fatalf("starting providers = %v, want %v", got, want)
	}
}

func TestAnalyzeBatchSingleProviderPinsBothTracks(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	ta.Providers = 1
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	if _, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b", "c", "d")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for id, start := range startsByID(ta) {
		if start != 0 {
			t.Errorf("venue %s pinned to provider %d with a single provider", id, start)
		}
	}
}

func TestAnalyzeBatchFailureIsolation(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	ta.Resp["a"] = []string{"Sea view"}
	ta.Err["b"] = errors.New("every provider down")
	// "c" takes the mock default: analyzed fine, nothing to tag.
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	result, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b", "c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(result["a"], []string{"Sea view"}) {
		t.Errorf("result[a] = %v", result["a"])
	}
	if _, ok := result["b"]; ok {
		t.Errorf("failed venue must be absent from the result, got %v", result["b"])
	}
	got, ok := result["c"]
	if !ok || got == nil || len(got) != 0 {
		t.Errorf("empty success must be present as an empty list, got %v (present=%v)", got, ok)
	}
}

func TestAnalyzeBatchDedupes(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	result, err := s.AnalyzeBatch(context.Background(),
		append(venuesNamed("a", "b", "a", "b", "a"), models.Venue{Name: "no id"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("result = %v, want entries for a and b only", result)
	}
	if len(ta.Calls) != 2 {
		t.Fatalf("duplicates reached the analyzer: %v", ta.Calls)
	}
}

func TestAnalyzeBatchStaggersGroups(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	ta.Providers = 1
	s := newTestScheduler(t, ta, testutil.NewMockStore())
	s.ApplyConfig(1, 60*time.Millisecond)

	if _, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b", "c", "d")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Each track has two single-venue groups; the second group of a track
	// is released at least a stagger after the first.
	ta.Mu.Lock()
	at := make(map[string]time.Time, len(ta.Calls))
	for _, c := range ta.Calls {
		at[c.PlaceID] = c.At
	}
	ta.Mu.Unlock()

	if d := at["b"].Sub(at["a"]); d < 50*time.Millisecond {
		t.Errorf("second group of first track released after %v, want >= stagger", d)
	}
	if d := at["d"].Sub(at["c"]); d < 50*time.Millisecond {
		t.Errorf("second group of second track released after %v, want >= stagger", d)
	}
}

func TestAnalyzeBatchContextCancelCountsUnreleasedAsFailed(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	s := newTestScheduler(t, ta, testutil.NewMockStore())
	s.ApplyConfig(1, 300*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := s.AnalyzeBatch(ctx, venuesNamed("a", "b", "c", "d"))
	if err == nil {
		t.Fatal("expected a context error")
	}
	// The first group of each track ("a" and "c") runs immediately; the
	// rest are never released and must be missing from the result.
	if _, ok := result["a"]; !ok {
		t.Errorf("venue a should have completed before cancellation")
	}
	if _, ok := result["c"]; !ok {
		t.Errorf("venue c should have completed before cancellation")
	}
	if _, ok := result["b"]; ok {
		t.Errorf("venue b was never released and must not appear in the result")
	}
	if _, ok := result["d"]; ok {
		t.Errorf("venue d was never released and must not appear in the result")
	}
}

// recordingStore captures appended events in memory.
type recordingStore struct {
	mu       sync.Mutex
	appended []events.Event
}

func (r *recordingStore) Append(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, e)
	return nil
}

func (r *recordingStore) ListByPlace(context.Context, string) ([]events.StoredEvent, error) {
	return nil, nil
}

func (r *recordingStore) ListRecent(context.Context, int) ([]events.StoredEvent, error) {
	return nil, nil
}

func (r *recordingStore) countByType() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, e := range r.appended {
		out[e.Type()]++
	}
	return out
}

func TestAnalyzeBatchEmitsAuditEvents(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	ta.Resp["a"] = []string{"Retro"}
	ta.Err["b"] = errors.New("down")
	s := newTestScheduler(t, ta, testutil.NewMockStore())

	rec := &recordingStore{}
	s.SetEventStore(rec)

	if _, err := s.AnalyzeBatch(context.Background(), venuesNamed("a", "b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := rec.countByType()
	if counts[events.TypeAnalysisStarted] != 2 {
		t.Errorf("started events = %d, want 2", counts[events.TypeAnalysisStarted])
	}
	if counts[events.TypeAnalysisCompleted] != 1 {
		t.Errorf("completed events = %d, want 1", counts[events.TypeAnalysisCompleted])
	}
	if counts[events.TypeAnalysisFailed] != 1 {
		t.Errorf("failed events = %d, want 1", counts[events.TypeAnalysisFailed])
	}
}

func TestGetStatsAccumulates(t *testing.T) {
	ta := testutil.NewMockTrackAnalyzer()
	ta.Err["b"] = errors.New("down")
	store := testutil.NewMockStore()
	store.Data["cached"] = []string{"Retro"}
	s := newTestScheduler(t, ta, store)

	if _, err := s.AnalyzeBatch(context.Background(), venuesNamed("cached", "a", "b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := s.GetStats()
	if st.VenuesRequested != 3 || st.CacheHits != 1 || st.Analyzed != 1 || st.Failed != 1 || st.Batches != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if st.Since.IsZero() {
		t.Error("stats start time unset")
	}
}
