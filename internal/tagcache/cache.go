// Package tagcache stores AI-generated ambiance tags in Redis, keyed by
// place id. The cache is strictly best-effort: every failure on the read
// path degrades to a miss and every failure on the write path is logged and
// swallowed, so an unreachable store only makes the system slower, never
// broken.
package tagcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"vibelymap/internal/constants"
	errs "vibelymap/pkg/errors"
	"vibelymap/pkg/logging"
	"vibelymap/pkg/metrics"
)

// Store is the narrow contract the analysis pipeline depends on.
// A non-empty Get result means "analysis complete, do not re-run";
// a miss or empty list means "needs analysis". There is no partial state.
type Store interface {
	Get(ctx context.Context, placeID string) ([]string, bool)
	Set(ctx context.Context, placeID string, tags []string, ttl time.Duration) error
	Delete(ctx context.Context, placeID string) error
	BatchGet(ctx context.Context, placeIDs []string) map[string][]string
	ClearAll(ctx context.Context) (int, error)
	Available() bool
}

// RedisStore implements Store on a Redis key-value service.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logging.ComponentLogger

	mHits   *metrics.Counter
	mMisses *metrics.Counter
	mErrors *metrics.Counter
	mWrites *metrics.Counter
}

// NewRedisStore connects to the Redis URL. An empty URL yields a disabled
// store where every operation no-ops; this is deliberate so missing
// credentials in local/dev environments never crash the search flow.
func NewRedisStore(redisURL string, log *logging.Logger) (*RedisStore, error) {
	s := &RedisStore{
		prefix:  constants.CacheKeyPrefix,
		ttl:     constants.CacheTTLDefault,
		log:     log.WithComponent("tagcache"),
		mHits:   metrics.Default.Counter("tagcache_hits_total", "Tag cache hits"),
		mMisses: metrics.Default.Counter("tagcache_misses_total", "Tag cache misses"),
		mErrors: metrics.Default.Counter("tagcache_errors_total", "Tag cache transport errors"),
		mWrites: metrics.Default.Counter("tagcache_writes_total", "Tag cache successful writes"),
	}

	if redisURL == "" {
		s.log.Warn("no redis url configured, tag cache disabled; every lookup will miss")
		return s, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errs.NewValidation("tagcache.NewRedisStore", "invalid redis url", err)
	}
	s.rdb = redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), constants.CacheOpTimeout)
	defer cancel()
	if err := s.rdb.Ping(pingCtx).Err(); err != nil {
		// Reachability problems are logged, not fatal; the store may come up later.
		s.log.Error("redis ping failed, operating in degraded mode", err)
	}

	return s, nil
}

// SetTTL overrides the default entry lifetime. Applies to writes made
// after the call; existing entries keep their original expiry.
func (s *RedisStore) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// Available reports whether a Redis connection was configured. Callers may
// use it for health reporting; the data-path operations already degrade on
// their own.
func (s *RedisStore) Available() bool { return s.rdb != nil }

func (s *RedisStore) key(placeID string) string { return s.prefix + placeID }

// Get returns previously cached tags. Any transport or decode error counts
// as a miss.
func (s *RedisStore) Get(ctx context.Context, placeID string) ([]string, bool) {
	if s.rdb == nil {
		s.mMisses.Inc(1)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, constants.CacheOpTimeout)
	defer cancel()

	raw, err := s.rdb.Get(ctx, s.key(placeID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.mErrors.Inc(1)
			s.log.Error("cache read failed", errs.NewCache("tagcache.Get", placeID, err))
		}
		s.mMisses.Inc(1)
		return nil, false
	}

	tags, ok := decodeTags([]byte(raw))
	if !ok {
		s.mErrors.Inc(1)
		s.log.Warn("cache entry not decodable, treating as miss", logging.String("place_id", placeID))
		s.mMisses.Inc(1)
		return nil, false
	}
	if len(tags) == 0 {
		s.mMisses.Inc(1)
		return nil, false
	}

	s.mHits.Inc(1)
	return tags, true
}

// Set persists tags with the configured TTL. The returned error is for
// diagnostics only; callers must not fail analysis on it.
func (s *RedisStore) Set(ctx context.Context, placeID string, tags []string, ttl time.Duration) error {
	if s.rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	body, err := json.Marshal(tags)
	if err != nil {
		return errs.NewCache("tagcache.Set", "encode tags", err)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.CacheOpTimeout)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key(placeID), body, ttl).Err(); err != nil {
		s.mErrors.Inc(1)
		return errs.NewCache("tagcache.Set", placeID, err)
	}
	s.mWrites.Inc(1)
	return nil
}

// Delete removes one entry. Used for manual invalidation.
func (s *RedisStore) Delete(ctx context.Context, placeID string) error {
	if s.rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, constants.CacheOpTimeout)
	defer cancel()
	if err := s.rdb.Del(ctx, s.key(placeID)).Err(); err != nil {
		s.mErrors.Inc(1)
		return errs.NewCache("tagcache.Delete", placeID, err)
	}
	return nil
}

// BatchGet resolves many place ids in one MGET round trip and returns only
// the entries that hit. Missing keys are cache misses, not errors.
func (s *RedisStore) BatchGet(ctx context.Context, placeIDs []string) map[string][]string {
	out := make(map[string][]string, len(placeIDs))
	if s.rdb == nil || len(placeIDs) == 0 {
		return out
	}

	keys := make([]string, len(placeIDs))
	for i, id := range placeIDs {
		keys[i] = s.key(id)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.CacheOpTimeout)
	defer cancel()

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		s.mErrors.Inc(1)
		s.log.Error("cache batch read failed, treating all as misses", errs.NewCache("tagcache.BatchGet", "mget", err))
		s.mMisses.Inc(int64(len(placeIDs)))
		return out
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			s.mMisses.Inc(1)
			continue
		}
		tags, ok := decodeTags([]byte(raw))
		if !ok || len(tags) == 0 {
			s.mMisses.Inc(1)
			continue
		}
		out[placeIDs[i]] = tags
		s.mHits.Inc(1)
	}
	return out
}

// ClearAll enumerates and deletes every entry under the namespace prefix,
// returning the count. Administrative operation, not part of the hot path.
func (s *RedisStore) ClearAll(ctx context.Context) (int, error) {
	if s.rdb == nil {
		return 0, nil
	}

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			s.mErrors.Inc(1)
			return deleted, errs.NewCache("tagcache.ClearAll", "scan", err)
		}
		if len(keys) > 0 {
			n, err := s.rdb.Del(ctx, keys...).Result()
			if err != nil {
				s.mErrors.Inc(1)
				return deleted, errs.NewCache("tagcache.ClearAll", "del", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// decodeTags accepts the JSON array shape written by Set. Older entries
// written as a single JSON string are tolerated and wrapped.
func decodeTags(raw []byte) ([]string, bool) {
	var tags []string
	if err := json.Unmarshal(raw, &tags); err == nil {
		return tags, true
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}, true
	}
	return nil, false
}
