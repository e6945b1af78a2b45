package vision

import (
	"context"

	"vibelymap/internal/models"
	"vibelymap/internal/tagcache"
	errs "vibelymap/pkg/errors"
	"vibelymap/pkg/logging"
	"vibelymap/pkg/metrics"
)

// VenueAnalyzer is the single-venue analysis contract the orchestrator and
// batch scheduler build on. Tests swap in a mock.
type VenueAnalyzer interface {
	Analyze(ctx context.Context, venue models.Venue, p *Provider) ([]string, error)
}

// Orchestrator wraps the analyzer with an ordered list of providers.
// Upstream model providers have independent outage and rate-limit profiles;
// trying them in order keeps the tagging feature alive when one is down.
type Orchestrator struct {
	providers []*Provider
	analyzer  VenueAnalyzer
	cache     tagcache.Store
	log       *logging.ComponentLogger

	mCacheHits *metrics.Counter
	mFallbacks *metrics.Counter
	mExhausted *metrics.Counter
}

func NewOrchestrator(providers []*Provider, analyzer VenueAnalyzer, cache tagcache.Store, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		providers:  providers,
		analyzer:   analyzer,
		cache:      cache,
		log:        log.WithComponent("orchestrator"),
		mCacheHits: metrics.Default.Counter("vision_cache_short_circuits_total", "Analyses avoided by a cache hit"),
		mFallbacks: metrics.Default.Counter("vision_fallbacks_total", "Analyses retried on a secondary provider"),
		mExhausted: metrics.Default.Counter("vision_exhausted_total", "Venues for which every provider failed"),
	}
}

// ProviderCount returns the number of configured providers.
func (o *Orchestrator) ProviderCount() int { return len(o.providers) }

// Providers exposes the ordered provider list (used for stats reporting).
func (o *Orchestrator) Providers() []*Provider { return o.providers }

// AnalyzeWithFallback is the caller-facing single-venue entry point: cache
// hit short-circuits, then providers are tried in order. Total failure is
// logged and yields an empty list, indistinguishable from "genuinely
// nothing to tag" by design.
func (o *Orchestrator) AnalyzeWithFallback(ctx context.Context, venue models.Venue) []string {
	if tags, ok := o.cache.Get(ctx, venue.ID); ok {
		o.mCacheHits.Inc(1)
		return tags
	}
	tags, err := o.AnalyzeFrom(ctx, venue, 0)
	if err != nil {
		o.log.Error("analysis failed on every provider", err, logging.String("place_id", venue.ID))
		return nil
	}
	return tags
}

// AnalyzeFrom tries providers in order starting at index start, wrapping
// around, until one succeeds. It does not consult the cache; the batch
// scheduler has already partitioned cache hits away and pins each track to
// a starting provider. The returned error is non-nil only when every
// provider failed, so callers can tell "analysis failed" apart from
// "analyzed fine, nothing to tag".
func (o *Orchestrator) AnalyzeFrom(ctx context.Context, venue models.Venue, start int) ([]string, error) {
	n := len(o.providers)
	if n == 0 {
		return nil, errs.NewBiz("vision.AnalyzeFrom", "no vision providers configured", nil)
	}
	if start < 0 || start >= n {
		start = 0
	}

	var lastErr error
	for i := 0; i < n; i++ {
		p := o.providers[(start+i)%n]
		if i > 0 {
			o.mFallbacks.Inc(1)
			o.log.Info("falling back to next provider",
				logging.String("place_id", venue.ID), logging.String("provider", p.Name()))
		}

		tags, err := o.analyzer.Analyze(ctx, venue, p)
		if err == nil {
			return tags, nil
		}
		lastErr = err
		o.log.Warn("provider analysis failed",
			logging.String("place_id", venue.ID),
			logging.String("provider", p.Name()),
			logging.Error(err))
	}

	o.mExhausted.Inc(1)
	return nil, lastErr
}
