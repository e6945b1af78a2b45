package batch

import (
	"sync/atomic"
	"time"
)

// Stats tracks cumulative scheduler activity since process start.
// All fields are updated atomically; Snapshot returns a consistent-enough
// copy for reporting (counters may drift by one mid-batch, which is fine
// for an operational dashboard).
type Stats struct {
	requested int64
	cacheHits int64
	analyzed  int64
	failed    int64
	batches   int64
	startNano int64
}

func (s *Stats) addRequested(n int) { atomic.AddInt64(&s.requested, int64(n)) }
func (s *Stats) addCacheHits(n int) { atomic.AddInt64(&s.cacheHits, int64(n)) }
func (s *Stats) addAnalyzed(n int)  { atomic.AddInt64(&s.analyzed, int64(n)) }
func (s *Stats) addFailed(n int)    { atomic.AddInt64(&s.failed, int64(n)) }
func (s *Stats) addBatches(n int)   { atomic.AddInt64(&s.batches, int64(n)) }

// StatsSnapshot is the JSON-friendly view served by the stats endpoint.
type StatsSnapshot struct {
	VenuesRequested int64     `json:"venues_requested"`
	CacheHits       int64     `json:"cache_hits"`
	Analyzed        int64     `json:"analyzed"`
	Failed          int64     `json:"failed"`
	Batches         int64     `json:"batches"`
	Since           time.Time `json:"since"`
}

// GetStats returns a snapshot of cumulative counters.
func (s *Scheduler) GetStats() StatsSnapshot {
	start := atomic.LoadInt64(&s.stats.startNano)
	return StatsSnapshot{
		VenuesRequested: atomic.LoadInt64(&s.stats.requested),
		CacheHits:       atomic.LoadInt64(&s.stats.cacheHits),
		Analyzed:        atomic.LoadInt64(&s.stats.analyzed),
		Failed:          atomic.LoadInt64(&s.stats.failed),
		Batches:         atomic.LoadInt64(&s.stats.batches),
		Since:           time.Unix(0, start),
	}
}
