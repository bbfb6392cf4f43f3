// Package cache provides a bounded, thread-safe cache with per-entry
// expiration, used to reuse rankings for repeated questions.
package cache

import (
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/blake3"
)

// Stats contains cache statistics.
type Stats struct {
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Evictions int64  `json:"evictions"`
	Size      int    `json:"size"`
	MaxSize   int    `json:"max_size"`
	TTL       string `json:"ttl"`
}

// TTLCache holds at most maxSize entries, each expiring ttl after it was
// stored. The least recently used entry is evicted when full.
type TTLCache[K comparable, V any] struct {
	lru     *expirable.LRU[K, V]
	ttl     time.Duration
	maxSize int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache. A maxSize of 0 means unbounded; a ttl of 0 means
// entries never expire.
func New[K comparable, V any](maxSize int, ttl time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{ttl: ttl, maxSize: maxSize}
	c.lru = expirable.NewLRU[K, V](maxSize, func(K, V) { c.evictions.Add(1) }, ttl)
	return c
}

// Get returns the value for key if present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value under key and restarts its expiry clock.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// GetOrCompute returns the cached value for key, or calls compute and caches
// its result. Errors are returned and not cached.
func (c *TTLCache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		return v, false, err
	}
	c.Set(key, v)
	return v, false, nil
}

// Stats returns a snapshot of the counters.
func (c *TTLCache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
		MaxSize:   c.maxSize,
		TTL:       c.ttl.String(),
	}
}

// Key derives a cache key from parts by hashing them with BLAKE3. Parts are
// length-delimited so ("ab","c") and ("a","bc") differ.
func Key(parts ...[]byte) string {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		l := uint64(len(p))
		for i := range n {
			n[i] = byte(l >> (8 * i))
		}
		_, _ = h.Write(n[:])
		_, _ = h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
