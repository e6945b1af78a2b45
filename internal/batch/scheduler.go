// Package batch schedules multi-venue ambiance analysis. It partitions
// uncached venues across the configured providers and releases work in
// fixed-size, time-staggered groups so peak in-flight model calls stay
// bounded without serializing large result sets.
package batch

import (
	"context"
	"sync"
	"time"

	"vibelymap/internal/constants"
	"vibelymap/internal/models"
	"vibelymap/internal/tagcache"
	"vibelymap/pkg/events"
	"vibelymap/pkg/logging"
)

// TrackAnalyzer is the slice of the orchestrator the scheduler depends on.
type TrackAnalyzer interface {
	AnalyzeFrom(ctx context.Context, venue models.Venue, start int) ([]string, error)
	ProviderCount() int
}

// Scheduler runs batched analyses. Safe for concurrent use; each
// AnalyzeBatch call keeps its own bookkeeping and nothing survives the
// call except the external cache and the stats counters.
type Scheduler struct {
	analyzer TrackAnalyzer
	cache    tagcache.Store
	log      *logging.ComponentLogger

	mu        sync.RWMutex
	groupSize int
	stagger   time.Duration

	stats Stats

	es events.EventStore
}

func NewScheduler(analyzer TrackAnalyzer, cache tagcache.Store, log *logging.Logger) *Scheduler {
	s := &Scheduler{
		analyzer:  analyzer,
		cache:     cache,
		log:       log.WithComponent("batch"),
		groupSize: constants.BatchGroupSizeDefault,
		stagger:   constants.BatchStaggerDefault,
	}
	s.stats.startNano = time.Now().UnixNano()
	return s
}

// SetEventStore wires an optional audit event store.
func (s *Scheduler) SetEventStore(es events.EventStore) { s.es = es }

// ApplyConfig updates pacing knobs at runtime (config hot-reload).
// Non-positive values are ignored.
func (s *Scheduler) ApplyConfig(groupSize int, stagger time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if groupSize > 0 {
		s.groupSize = groupSize
	}
	if stagger > 0 {
		s.stagger = stagger
	}
}

func (s *Scheduler) pacing() (int, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupSize, s.stagger
}

// AnalyzeBatch resolves tags for every venue: cached entries short-circuit,
// the uncached remainder is split positionally in half across the first two
// providers and analyzed in staggered concurrent groups. Venues failing on
// every provider are absent from the returned map; venues analyzed
// successfully with nothing to tag are present with an empty list.
func (s *Scheduler) AnalyzeBatch(ctx context.Context, venues []models.Venue) (map[string][]string, error) {
	unique := dedupe(venues)
	result := make(map[string][]string, len(unique))
	if len(unique) == 0 {
		return result, nil
	}
	s.stats.addRequested(len(unique))

	ids := make([]string, len(unique))
	for i, v := range unique {
		ids[i] = v.ID
	}

	cached := s.cache.BatchGet(ctx, ids)
	var uncached []models.Venue
	for _, v := range unique {
		if tags, ok := cached[v.ID]; ok {
			result[v.ID] = tags
			continue
		}
		uncached = append(uncached, v)
	}
	s.stats.addCacheHits(len(cached))

	if len(uncached) == 0 {
		return result, nil
	}
	s.log.Info("analyzing uncached venues",
		logging.Int("cached", len(cached)), logging.Int("uncached", len(uncached)))

	// Static positional 50/50 split. The first track is pinned to provider 0,
	// the second to provider 1; each venue still falls back to the remaining
	// providers on failure. With a single provider both tracks pin to it.
	mid := (len(uncached) + 1) / 2
	tracks := [][]models.Venue{uncached[:mid], uncached[mid:]}
	starts := []int{0, 0}
	if s.analyzer.ProviderCount() > 1 {
		starts[1] = 1
	}

	var (
		mu     sync.Mutex
		failed []string
		wg     sync.WaitGroup
	)
	record := func(id string, tags []string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = append(failed, id)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		result[id] = tags
	}

	for t := range tracks {
		if len(tracks[t]) == 0 {
			continue
		}
		wg.Add(1)
		go func(track []models.Venue, start int) {
			defer wg.Done()
			s.runTrack(ctx, track, start, record)
		}(tracks[t], starts[t])
	}
	wg.Wait()

	s.stats.addAnalyzed(len(uncached) - len(failed))
	s.stats.addFailed(len(failed))
	s.stats.addBatches(1)

	for _, id := range failed {
		s.emit(ctx, events.PlaceAnalysisFailed{
			Base:   events.Base{Ts: time.Now(), PID: id},
			Reason: "all providers failed",
		})
	}

	if len(failed) > 0 {
		s.log.Warn("batch finished with failed venues",
			logging.Int("failed", len(failed)), logging.Int("total", len(unique)))
	}

	return result, ctx.Err()
}

// runTrack chunks the track into fixed-size groups, releasing group k at
// k*stagger after track start. The stagger bounds start time only; a slow
// group may still be in flight when the next one is released.
func (s *Scheduler) runTrack(ctx context.Context, track []models.Venue, start int, record func(string, []string, error)) {
	groupSize, stagger := s.pacing()

	var wg sync.WaitGroup
	for k := 0; k*groupSize < len(track); k++ {
		if k > 0 {
			select {
			case <-time.After(stagger):
			case <-ctx.Done():
				// Venues never released count as failed outcomes.
				for _, v := range track[k*groupSize:] {
					record(v.ID, nil, ctx.Err())
				}
				wg.Wait()
				return
			}
		}

		lo := k * groupSize
		hi := lo + groupSize
		if hi > len(track) {
			hi = len(track)
		}
		for _, v := range track[lo:hi] {
			wg.Add(1)
			go func(v models.Venue) {
				defer wg.Done()
				s.emit(ctx, events.PlaceAnalysisStarted{
					Base: events.Base{Ts: time.Now(), PID: v.ID},
				})
				tags, err := s.analyzer.AnalyzeFrom(ctx, v, start)
				if err == nil {
					s.emit(ctx, events.PlaceAnalysisCompleted{
						Base:     events.Base{Ts: time.Now(), PID: v.ID},
						TagCount: len(tags),
					})
				}
				record(v.ID, tags, err)
			}(v)
		}
	}
	wg.Wait()
}

func (s *Scheduler) emit(ctx context.Context, e events.Event) {
	if s.es == nil {
		return
	}
	if err := s.es.Append(ctx, e); err != nil {
		s.log.Debug("event append failed", logging.Error(err))
	}
}

// dedupe keeps the first occurrence of each place id, preserving order.
func dedupe(venues []models.Venue) []models.Venue {
	seen := make(map[string]struct{}, len(venues))
	out := make([]models.Venue, 0, len(venues))
	for _, v := range venues {
		if v.ID == "" {
			continue
		}
		if _, ok := seen[v.ID]; ok {
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}
