// Package cache provides the content-addressed overlay cache: a bounded LRU of
// canonical overlays keyed by hash_id, with an optional persistent Backend
// consulted on miss and written through on Put.
//
// The cache is the only shared mutable structure in the engine. One mutex
// guards the LRU order and the counters; backend round trips run outside it.
// Backend failures are logged and counted, then treated as misses.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/inference-sim/overlay-engine/morsr"
)

var (
	// ErrBackendUnavailable wraps every failure of a persistent backend.
	ErrBackendUnavailable = errors.New("cache backend unavailable")
	// ErrNoHash reports an attempt to cache an overlay that is not canonical.
	ErrNoHash = errors.New("overlay has no hash_id")
)

// DefaultBackendTimeout bounds each backend call when Options leaves it unset.
const DefaultBackendTimeout = 2 * time.Second

// Options configures an OverlayCache.
type Options struct {
	MaxSize        int
	Backend        Backend       // optional
	TTL            time.Duration // passed to Backend.Set; 0 = no expiry
	BackendTimeout time.Duration // per backend call; 0 selects DefaultBackendTimeout
	Registerer     prometheus.Registerer
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	Stores        int64   `json:"stores"`
	BackendHits   int64   `json:"backend_hits"`
	BackendErrors int64   `json:"backend_errors"`
	HitRate       float64 `json:"hit_rate"`
}

// OverlayCache is a strict-LRU cache of canonical overlays. Both Get hits and
// Put count as an access. Safe for concurrent use.
type OverlayCache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, *morsr.Overlay]
	stats   Stats
	metrics *Metrics

	backend Backend
	ttl     time.Duration
	timeout time.Duration
	fetches singleflight.Group
}

// New builds an OverlayCache.
func New(opts Options) (*OverlayCache, error) {
	if opts.MaxSize <= 0 {
		return nil, fmt.Errorf("cache max size must be positive, got %d", opts.MaxSize)
	}
	lru, err := simplelru.NewLRU[string, *morsr.Overlay](opts.MaxSize, nil)
	if err != nil {
		return nil, err
	}
	timeout := opts.BackendTimeout
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return &OverlayCache{
		lru:     lru,
		metrics: NewMetrics(opts.Registerer),
		backend: opts.Backend,
		ttl:     opts.TTL,
		timeout: timeout,
	}, nil
}

// NewFromConfig opens the configured backend and builds a cache around it.
func NewFromConfig(ctx context.Context, cfg morsr.CacheConfig, reg prometheus.Registerer) (*OverlayCache, error) {
	backend, err := OpenBackend(ctx, cfg.Backend)
	if err != nil {
		return nil, err
	}
	c, err := New(Options{
		MaxSize:        cfg.MaxSize,
		Backend:        backend,
		TTL:            time.Duration(cfg.TTLSeconds) * time.Second,
		BackendTimeout: time.Duration(cfg.BackendTimeoutMs) * time.Millisecond,
		Registerer:     reg,
	})
	if err != nil {
		if backend != nil {
			_ = backend.Close()
		}
		return nil, err
	}
	return c, nil
}

// Get returns the overlay stored under hash and promotes it. On a memory miss
// the backend, if any, is consulted once per key across concurrent callers; a
// backend hit is inserted into memory and counted as a hit.
func (c *OverlayCache) Get(ctx context.Context, hash string) (*morsr.Overlay, bool) {
	c.mu.Lock()
	if o, ok := c.lru.Get(hash); ok {
		c.recordHit(false)
		c.mu.Unlock()
		return o, true
	}
	if c.backend == nil {
		c.recordMiss()
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Unlock()

	// The shared fetch is detached from any one caller's cancellation and
	// bounded by the backend timeout; each caller stops waiting on its own ctx.
	ch := c.fetches.DoChan(hash, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), hash)
	})
	var o *morsr.Overlay
	select {
	case res := <-ch:
		if res.Err != nil {
			c.backendFailed("get", hash, res.Err)
		}
		o, _ = res.Val.(*morsr.Overlay)
	case <-ctx.Done():
		c.backendFailed("get", hash, fmt.Errorf("%w: %v", ErrBackendUnavailable, ctx.Err()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if o == nil {
		c.recordMiss()
		return nil, false
	}
	c.add(hash, o)
	c.recordHit(true)
	return o, true
}

// Put stores a canonical overlay and writes it through to the backend.
// Returns false if o has no hash_id.
func (c *OverlayCache) Put(ctx context.Context, o *morsr.Overlay) bool {
	if o == nil || !o.IsCanonical() {
		logrus.Debugf("overlay cache: rejected put: %v", ErrNoHash)
		return false
	}
	hash := o.HashID()

	c.mu.Lock()
	c.add(hash, o)
	c.stats.Stores++
	c.metrics.Stores.Inc()
	c.mu.Unlock()

	if c.backend != nil {
		if err := c.store(ctx, hash, o); err != nil {
			c.backendFailed("set", hash, err)
		}
	}
	return true
}

// Contains reports whether hash is in memory without promoting it.
func (c *OverlayCache) Contains(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(hash)
}

// Remove drops hash from memory. The backend copy, if any, is left alone.
func (c *OverlayCache) Remove(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := c.lru.Remove(hash)
	c.metrics.Entries.Set(float64(c.lru.Len()))
	return removed
}

// Size returns the number of in-memory entries.
func (c *OverlayCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Keys returns the in-memory hashes from least to most recently used.
func (c *OverlayCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Keys()
}

// Clear drops every in-memory entry. Counters are cumulative and survive.
func (c *OverlayCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.metrics.Entries.Set(0)
}

// Stats returns a snapshot of the counters.
func (c *OverlayCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Close releases the backend.
func (c *OverlayCache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// add inserts under c.mu and accounts for an eviction.
func (c *OverlayCache) add(hash string, o *morsr.Overlay) {
	if evicted := c.lru.Add(hash, o); evicted {
		c.stats.Evictions++
		c.metrics.Evictions.Inc()
	}
	c.metrics.Entries.Set(float64(c.lru.Len()))
}

func (c *OverlayCache) recordHit(fromBackend bool) {
	c.stats.Hits++
	c.metrics.Hits.Inc()
	if fromBackend {
		c.stats.BackendHits++
		c.metrics.BackendHits.Inc()
	}
}

func (c *OverlayCache) recordMiss() {
	c.stats.Misses++
	c.metrics.Misses.Inc()
}

func (c *OverlayCache) backendFailed(op, hash string, err error) {
	logrus.Warnf("overlay cache: backend %s %s failed, continuing memory-only: %v", op, hash, err)
	c.mu.Lock()
	c.stats.BackendErrors++
	c.mu.Unlock()
	c.metrics.BackendErrors.Inc()
}

// fetch reads and decodes hash from the backend. A nil overlay with a nil
// error is a plain miss.
func (c *OverlayCache) fetch(ctx context.Context, hash string) (*morsr.Overlay, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	data, ok, err := c.backend.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !ok {
		return nil, nil
	}
	o, err := morsr.DecodeOverlay(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrBackendUnavailable, hash, err)
	}
	if o.HashID() != hash {
		return nil, fmt.Errorf("%w: entry %s carries hash %q", ErrBackendUnavailable, hash, o.HashID())
	}
	return o, nil
}

func (c *OverlayCache) store(ctx context.Context, hash string, o *morsr.Overlay) error {
	data, err := morsr.EncodeOverlay(o)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", hash, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.backend.Set(ctx, hash, data, c.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
