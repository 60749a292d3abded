// Package cache memoizes cosine search and BPE results. Redis is the shared
// store; an in-process expiring LRU serves as a fallback whenever Redis is
// disabled, failing, or behind an open circuit breaker. Concurrent requests
// for the same key are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-algorithms/pkg/resilience"
)

// Key prefixes per result kind.
const (
	PrefixSearch = "search:"
	PrefixBPE    = "bpe:"
)

// Store is the remote key-value store. *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	Total        int64  `json:"total"`
	HitRate      string `json:"hit_rate"`
	LocalEntries int    `json:"local_entries"`
	Remote       string `json:"remote"`
}

// ResultCache stores JSON-encoded results in Redis and in a local expiring
// LRU. Calls to Redis go through a circuit breaker; while it is open every
// lookup is served from the LRU alone. A nil *ResultCache is valid and
// caches nothing.
type ResultCache struct {
	remote  Store
	local   *expirable.LRU[string, []byte]
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache. remote may be nil, in which case only the local LRU
// is used.
func New(remote Store, cfg config.RedisConfig, m *metrics.Metrics) *ResultCache {
	size := cfg.LocalCacheSize
	if size <= 0 {
		size = 1024
	}
	c := &ResultCache{
		remote:  remote,
		local:   expirable.NewLRU[string, []byte](size, nil, cfg.CacheTTL),
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
		Ignore:           notStoreFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	m.CircuitBreakerState.WithLabelValues("redis").Set(float64(resilience.StateClosed))
	return c
}

// notStoreFailure covers results that say nothing about Redis health.
func notStoreFailure(err error) bool {
	return pkgredis.IsNilError(err) || errors.Is(err, context.Canceled)
}

type entry[T any] struct {
	value T
	hit   bool
}

// GetOrCompute returns the cached value for key, or runs compute, caches its
// result and returns it. The bool reports a cache hit. Errors from compute
// are returned as is and never cached.
func GetOrCompute[T any](ctx context.Context, c *ResultCache, key string, compute func() (T, error)) (T, bool, error) {
	var zero T
	if c == nil {
		v, err := compute()
		return v, false, err
	}
	if v, ok := lookup[T](ctx, c, key); ok {
		c.recordHit()
		return v, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := lookup[T](ctx, c, key); ok {
			return entry[T]{value: v, hit: true}, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, v)
		return entry[T]{value: v}, nil
	})
	if err != nil {
		c.recordMiss()
		return zero, false, err
	}
	e := val.(entry[T])
	if e.hit {
		c.recordHit()
	} else {
		c.recordMiss()
	}
	return e.value, e.hit, nil
}

func lookup[T any](ctx context.Context, c *ResultCache, key string) (T, bool) {
	var v T
	data, ok := c.get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return v, false
	}
	return v, true
}

func (c *ResultCache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.remote != nil {
		var data []byte
		err := c.breaker.Execute(func() error {
			var err error
			data, err = c.remote.Get(ctx, key)
			return err
		})
		switch {
		case err == nil:
			return data, true
		case pkgredis.IsNilError(err):
			// Redis answered; the local LRU may still hold the value from a
			// period when Redis was unreachable.
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("redis circuit open, using local cache", "key", key)
		default:
			c.logger.Warn("cache get failed, using local cache", "key", key, "error", err)
		}
	}
	return c.local.Get(key)
}

func (c *ResultCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	c.local.Add(key, data)
	if c.remote == nil {
		return
	}
	err = c.breaker.Execute(func() error {
		return c.remote.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached result locally and in Redis.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted := int64(c.local.Len())
	c.local.Purge()
	if c.remote == nil {
		c.logger.Info("cache invalidated", "keys_deleted", deleted)
		return deleted, nil
	}
	for _, prefix := range []string{PrefixSearch, PrefixBPE} {
		var n int64
		err := c.breaker.Execute(func() error {
			var err error
			n, err = c.remote.FlushByPattern(ctx, prefix+"*")
			return err
		})
		if err != nil {
			return deleted, fmt.Errorf("invalidating %s keys: %w", prefix, err)
		}
		deleted += n
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats reports hit and miss counts and where results are stored.
func (c *ResultCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	remote := "disabled"
	if c.remote != nil {
		remote = "redis (circuit " + c.breaker.GetState().String() + ")"
	}
	return Stats{
		Hits:         hits,
		Misses:       misses,
		Total:        total,
		HitRate:      fmt.Sprintf("%.1f%%", rate),
		LocalEntries: c.local.Len(),
		Remote:       remote,
	}
}

// HealthCheck reports the cache as degraded while the Redis breaker is not
// closed, since results are then only shared within this instance.
func (c *ResultCache) HealthCheck() health.Check {
	return func(context.Context) health.ComponentHealth {
		local := fmt.Sprintf("%d local entries", c.local.Len())
		if c.remote == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "local only, " + local}
		}
		st := c.breaker.Status()
		switch st.State {
		case resilience.StateClosed:
			return health.ComponentHealth{Status: health.StatusUp, Message: "redis, " + local}
		case resilience.StateOpen:
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("redis circuit open after %d failures, retry in %v, %s", st.Failures, st.RetryIn.Round(time.Second), local),
			}
		default:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "redis circuit " + st.State.String() + ", " + local}
		}
	}
}

func (c *ResultCache) recordHit() {
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
}

func (c *ResultCache) recordMiss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

// CosineKey identifies a cosine search. The query is normalized the way the
// search tokenizes it; documents are hashed verbatim because the best match
// is returned as written.
func CosineKey(query string, documents []string) string {
	h := sha256.New()
	writePart(h, normalizeText(query))
	for _, d := range documents {
		writePart(h, d)
	}
	return PrefixSearch + hex.EncodeToString(h.Sum(nil)[:16])
}

// BPEKey identifies a BPE learning run. Whitespace in the corpus is
// collapsed since it only separates words.
func BPEKey(corpus string, numMerges int, tieBreak, endOfWord string) string {
	h := sha256.New()
	writePart(h, strings.Join(strings.Fields(corpus), " "))
	writePart(h, strconv.Itoa(numMerges))
	writePart(h, tieBreak)
	writePart(h, endOfWord)
	return PrefixBPE + hex.EncodeToString(h.Sum(nil)[:16])
}

// writePart length-prefixes s so that part boundaries are unambiguous.
func writePart(h io.Writer, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
