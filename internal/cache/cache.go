// Package cache is the TTL read-through cache in front of the quote source.
//
// Values are JSON-encoded and keyed by kind and parameters. Only successful
// computations are stored; errors always reach the caller uncached. Concurrent
// misses on the same key share a single upstream call.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stockpulse/portfolio-engine/internal/metrics"
)

// Kind identifies a family of cached values and determines its TTL.
type Kind string

const (
	KindLivePrice      Kind = "live_price"
	KindBranding       Kind = "branding"
	KindOHLCIndicators Kind = "ohlc_indicators"
	KindIndicators     Kind = "indicators"
	KindSparkline      Kind = "sparkline"
	KindNews           Kind = "news"
	KindPrediction     Kind = "prediction"
)

var ttls = map[Kind]time.Duration{
	KindLivePrice:      5 * time.Minute,
	KindBranding:       24 * time.Hour,
	KindOHLCIndicators: 10 * time.Minute,
	KindIndicators:     10 * time.Minute,
	KindSparkline:      10 * time.Minute,
	KindNews:           3 * time.Minute,
	KindPrediction:     time.Hour,
}

// TTL returns the time-to-live for values of kind k.
func (k Kind) TTL() time.Duration {
	if ttl, ok := ttls[k]; ok {
		return ttl
	}
	return 5 * time.Minute
}

// Key builds a cache key from a kind, a symbol and optional parameters.
func Key(k Kind, symbol string, params ...string) string {
	parts := append([]string{string(k), symbol}, params...)
	return strings.Join(parts, ":")
}

// Store is a byte-oriented key/value backend with per-entry expiry.
type Store interface {
	// Get returns the stored bytes and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache wraps a Store with request coalescing and metrics.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Cache backed by st.
func New(st Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: st, logger: logger}
}

// GetOrCompute returns the cached value for key, or calls compute, stores a
// successful result for ttl and returns it.
//
// A failing backend degrades to a miss. A failing compute is returned as is
// and nothing is stored, so the next call retries upstream.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	kind := kindOf(key)

	var zero T
	if data, ok, err := c.store.Get(ctx, key); err != nil {
		metrics.CacheRequests.WithLabelValues(kind, "error").Inc()
		c.logger.Warn("cache get failed", "key", key, "err", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			metrics.CacheRequests.WithLabelValues(kind, "hit").Inc()
			return v, nil
		}
		c.logger.Warn("cache entry undecodable", "key", key)
	}
	metrics.CacheRequests.WithLabelValues(kind, "miss").Inc()

	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err == nil {
			if err := c.store.Set(ctx, key, data, ttl); err != nil {
				c.logger.Warn("cache set failed", "key", key, "err", err)
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func kindOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
