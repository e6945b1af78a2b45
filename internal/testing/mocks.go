package testutil

import (
	"context"
	"sync"
	"time"

	"vibelymap/internal/models"
	"vibelymap/internal/places"
)

// MockStore implements tagcache.Store for tests.
type MockStore struct {
	Mu      sync.Mutex
	Data    map[string][]string
	SetErr  error
	DelErr  error
	Offline bool // Available() false and every Get misses

	GetCalls   []string
	SetCalls   []string
	BatchCalls [][]string
}

func NewMockStore() *MockStore {
	return &MockStore{Data: map[string][]string{}}
}

func (m *MockStore) Get(ctx context.Context, placeID string) ([]string, bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.GetCalls = append(m.GetCalls, placeID)
	if m.Offline {
		return nil, false
	}
	tags, ok := m.Data[placeID]
	return tags, ok
}

func (m *MockStore) Set(ctx context.Context, placeID string, tags []string, ttl time.Duration) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SetCalls = append(m.SetCalls, placeID)
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Data[placeID] = tags
	return nil
}

func (m *MockStore) Delete(ctx context.Context, placeID string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.DelErr != nil {
		return m.DelErr
	}
	delete(m.Data, placeID)
	return nil
}

func (m *MockStore) BatchGet(ctx context.Context, placeIDs []string) map[string][]string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.BatchCalls = append(m.BatchCalls, append([]string(nil), placeIDs...))
	out := make(map[string][]string)
	if m.Offline {
		return out
	}
	for _, id := range placeIDs {
		if tags, ok := m.Data[id]; ok {
			out[id] = tags
		}
	}
	return out
}

func (m *MockStore) ClearAll(ctx context.Context) (int, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	n := len(m.Data)
	m.Data = map[string][]string{}
	return n, nil
}

func (m *MockStore) Available() bool { return !m.Offline }

// MockTrackAnalyzer implements batch.TrackAnalyzer for tests.
type MockTrackAnalyzer struct {
	Mu        sync.Mutex
	Resp      map[string][]string
	Err       map[string]error
	Providers int

	// Calls records (placeID, startIndex) in invocation order.
	Calls []AnalyzeCall
}

type AnalyzeCall struct {
	PlaceID string
	Start   int
	At      time.Time
}

func NewMockTrackAnalyzer() *MockTrackAnalyzer {
	return &MockTrackAnalyzer{
		Resp:      map[string][]string{},
		Err:       map[string]error{},
		Providers: 2,
	}
}

func (m *MockTrackAnalyzer) AnalyzeFrom(ctx context.Context, venue models.Venue, start int) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls = append(m.Calls, AnalyzeCall{PlaceID: venue.ID, Start: start, At: time.Now()})
	if err, ok := m.Err[venue.ID]; ok {
		return nil, err
	}
	if tags, ok := m.Resp[venue.ID]; ok {
		return tags, nil
	}
	// default: empty success, photos supported nothing
	return []string{}, nil
}

func (m *MockTrackAnalyzer) ProviderCount() int { return m.Providers }

// MockVenueSource implements search.VenueSource for tests.
type MockVenueSource struct {
	Venues []models.Venue
	Err    error
}

func (m *MockVenueSource) Search(ctx context.Context, _ places.SearchRequest) ([]models.Venue, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Venues, nil
}
