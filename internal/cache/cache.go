package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// Cache key builders and TTL classes. Keys are shared with invalidation
// call sites, so they live here and nowhere else. Per-tool keys share the
// "tool:<id>:" prefix so a single prefix sweep can drop all of them.
const (
	hotKey = "tools:hot"

	DetailTTL  = 60 * time.Minute
	HotTTL     = 30 * time.Minute
	ReviewsTTL = 120 * time.Minute
)

// ToolKeyPrefix is the common prefix of every cache key scoped to one tool.
func ToolKeyPrefix(toolID string) string { return "tool:" + toolID + ":" }

// ToolDetailKey is the cache key for one tool's detail payload.
func ToolDetailKey(toolID string) string { return ToolKeyPrefix(toolID) + "detail" }

// ToolReviewsKey is the cache key for one tool's assembled review thread.
func ToolReviewsKey(toolID string) string { return ToolKeyPrefix(toolID) + "reviews" }

// HotToolsKey is the cache key for the hot tools listing.
func HotToolsKey() string { return hotKey }

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache backend errors (treated as misses)",
		},
		[]string{"cache"},
	)
)

// Store is a read-through cache whose failures are invisible to callers:
// a backend outage degrades every read to a miss and every write to a no-op.
type Store interface {
	// Get returns the cached bytes and true on a hit. Misses and backend
	// errors both return false.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value best-effort.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate removes keys best-effort.
	Invalidate(ctx context.Context, keys ...string)
	// InvalidatePrefix removes every key with the given prefix best-effort.
	InvalidatePrefix(ctx context.Context, prefix string)
}

// RedisStore implements Store on Redis behind a circuit breaker. When Redis
// is down the breaker opens and calls short-circuit instead of waiting on
// timeouts, so the callers' fallback path to PostgreSQL stays fast.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
	name    string
}

// NewRedisStore creates a circuit-breaker-protected Redis cache.
func NewRedisStore(client *redis.Client, name string, logger *slog.Logger) *RedisStore {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("cache breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &RedisStore{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
		name:    name,
	}
}

// Get returns the cached bytes and true on a hit.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	var miss bool
	data, err := s.breaker.Execute(func() ([]byte, error) {
		b, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// A miss is a successful round trip; it must not trip the breaker.
			miss = true
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		cacheErrors.WithLabelValues(s.name).Inc()
		s.logger.WarnContext(ctx, "cache get failed, treating as miss",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	if miss {
		cacheMisses.WithLabelValues(s.name).Inc()
		return nil, false
	}

	cacheHits.WithLabelValues(s.name).Inc()
	return data, true
}

// Set stores a value best-effort.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		cacheErrors.WithLabelValues(s.name).Inc()
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate removes keys best-effort.
func (s *RedisStore) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		cacheErrors.WithLabelValues(s.name).Inc()
		s.logger.WarnContext(ctx, "cache invalidate failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidatePrefix removes every key with the given prefix best-effort. It
// walks the keyspace with SCAN rather than KEYS so a large instance is never
// blocked.
func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		cacheErrors.WithLabelValues(s.name).Inc()
		s.logger.WarnContext(ctx, "cache prefix invalidate failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
	}
}

// GetJSON reads a cached value and unmarshals it into target. A corrupt
// payload counts as a miss.
func GetJSON(ctx context.Context, s Store, key string, target any) bool {
	data, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.Invalidate(ctx, key)
		return false
	}
	return true
}

// SetJSON marshals a value and stores it best-effort.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.Set(ctx, key, data, ttl)
}
