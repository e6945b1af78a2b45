package vision

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"vibelymap/internal/models"
	testutil "vibelymap/internal/testing"
)

// scriptedAnalyzer returns a canned result per provider name and records the
// order providers were tried in.
type scriptedAnalyzer struct {
	tags  map[string][]string
	errs  map[string]error
	calls []string
}

func (s *scriptedAnalyzer) Analyze(_ context.Context, _ models.Venue, p *Provider) ([]string, error) {
	s.calls = append(s.calls, p.Name())
	if err := s.errs[p.Name()]; err != nil {
		return nil, err
	}
	return s.tags[p.Name()], nil
}

func newTestOrchestrator(t *testing.T, sa *scriptedAnalyzer, store *testutil.MockStore, names ...string) *Orchestrator {
	t.Helper()
	lg := newTestLogger(t)
	providers := make([]*Provider, 0, len(names))
	for _, n := range names {
		providers = append(providers, NewProvider(ProviderConfig{Name: n, Model: "m"}, lg))
	}
	return NewOrchestrator(providers, sa, store, lg)
}

func TestAnalyzeWithFallbackCacheHit(t *testing.T) {
	sa := &scriptedAnalyzer{}
	store := testutil.NewMockStore()
	store.Data["place-1"] = []string{"Retro", "Sea view"}
	o := newTestOrchestrator(t, sa, store, "p1", "p2")

	tags := o.AnalyzeWithFallback(context.Background(), testVenue())
	if !reflect.DeepEqual(tags, []string{"Retro", "Sea view"}) {
		t.Fatalf("tags = %v", tags)
	}
	if len(sa.calls) != 0 {
		t.Fatalf("cache hit should not reach any provider, got calls %v", sa.calls)
	}
}

func TestAnalyzeWithFallbackSecondProviderSucceeds(t *testing.T) {
	sa := &scriptedAnalyzer{
		tags: map[string][]string{"p2": {"Lighting 4"}},
		errs: map[string]error{"p1": errors.New("rate limited")},
	}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	tags := o.AnalyzeWithFallback(context.Background(), testVenue())
	if !reflect.DeepEqual(tags, []string{"Lighting 4"}) {
		t.Fatalf("tags = %v", tags)
	}
	if !reflect.DeepEqual(sa.calls, []string{"p1", "p2"}) {
		t.Fatalf("call order = %v", sa.calls)
	}
}

func TestAnalyzeWithFallbackTotalFailureYieldsEmpty(t *testing.T) {
	boom := errors.New("down")
	sa := &scriptedAnalyzer{errs: map[string]error{"p1": boom, "p2": boom}}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	if tags := o.AnalyzeWithFallback(context.Background(), testVenue()); tags != nil {
		t.Fatalf("tags = %v, want nil", tags)
	}
}

func TestAnalyzeFromReturnsLastErrorWhenAllFail(t *testing.T) {
	first := errors.New("first down")
	last := errors.New("last down")
	sa := &scriptedAnalyzer{errs: map[string]error{"p1": first, "p2": last}}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	_, err := o.AnalyzeFrom(context.Background(), testVenue(), 0)
	if !errors.Is(err, last) {
		t.Fatalf("err = %v, want the last provider's error", err)
	}
}

func TestAnalyzeFromStartsAtGivenProvider(t *testing.T) {
	sa := &scriptedAnalyzer{tags: map[string][]string{"p2": {"Outlets available"}}}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	tags, err := o.AnalyzeFrom(context.Background(), testVenue(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"Outlets available"}) {
		t.Fatalf("tags = %v", tags)
	}
	if !reflect.DeepEqual(sa.calls, []string{"p2"}) {
		t.Fatalf("call order = %v, want p2 only", sa.calls)
	}
}

func TestAnalyzeFromWrapsAround(t *testing.T) {
	sa := &scriptedAnalyzer{
		tags: map[string][]string{"p1": {"Quiet"}},
		errs: map[string]error{"p2": errors.New("down")},
	}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	tags, err := o.AnalyzeFrom(context.Background(), testVenue(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"Quiet"}) {
		t.Fatalf("tags = %v", tags)
	}
	if !reflect.DeepEqual(sa.calls, []string{"p2", "p1"}) {
		t.Fatalf("call order = %v", sa.calls)
	}
}

func TestAnalyzeFromEmptySuccessDoesNotFallBack(t *testing.T) {
	// p1 analyzed fine and found nothing; that is a success, not a reason
	// to burn tokens on p2.
	sa := &scriptedAnalyzer{tags: map[string][]string{"p1": {}}}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	tags, err := o.AnalyzeFrom(context.Background(), testVenue(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("tags = %v", tags)
	}
	if !reflect.DeepEqual(sa.calls, []string{"p1"}) {
		t.Fatalf("call order = %v, want p1 only", sa.calls)
	}
}

func TestAnalyzeFromNoProviders(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedAnalyzer{}, testutil.NewMockStore())
	if _, err := o.AnalyzeFrom(context.Background(), testVenue(), 0); err == nil {
		t.Fatal("expected an error with zero providers")
	}
}

func TestAnalyzeFromOutOfRangeStartResets(t *testing.T) {
	sa := &scriptedAnalyzer{tags: map[string][]string{"p1": {"Retro"}}}
	o := newTestOrchestrator(t, sa, testutil.NewMockStore(), "p1", "p2")

	if _, err := o.AnalyzeFrom(context.Background(), testVenue(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sa.calls) == 0 || sa.calls[0] != "p1" {
		t.Fatalf("call order = %v, want to start at p1", sa.calls)
	}
}
