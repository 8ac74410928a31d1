package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/eras/pkg/metrics"
)

// DefaultMemoryEntries bounds a MemoryCache created without WithMaxEntries.
const DefaultMemoryEntries = 64

// node holds one cached table in insertion order.
type node struct {
	fingerprint string
	entry       Entry
	expires     time.Time // zero means no expiry
	prev, next  *node
}

func (n *node) reset() {
	*n = node{}
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxEntries bounds the number of cached tables. Values <= 0 keep the default.
func WithMaxEntries(n int) MemoryOption {
	return func(c *MemoryCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTTL expires entries after ttl. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

// MemoryCache is an in-process period cache used when no Redis address is
// configured. When full, the oldest inserted table is evicted first.
// Every fingerprint owns exactly one node; removing an entry unlinks it.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*node
	head, tail *node // head is the oldest insertion
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	nodePool   sync.Pool
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]*node),
		maxEntries: DefaultMemoryEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.nodePool.New = func() any { return &node{} }
	return c
}

// Get returns a copy of the entry for fingerprint, or nil on a miss.
func (c *MemoryCache) Get(_ context.Context, fingerprint string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[fingerprint]
	if ok && !n.expires.IsZero() && !c.now().Before(n.expires) {
		c.remove(n)
		ok = false
	}
	if !ok {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	metrics.RecordCacheHit()
	e := n.entry
	e.Periods = slices.Clone(e.Periods)
	return &e, nil
}

// Set stores a copy of e under its fingerprint. Overwriting a live entry
// keeps its insertion slot.
func (c *MemoryCache) Set(_ context.Context, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e.StoredAt.IsZero() {
		e.StoredAt = now.UTC()
	}
	e.Periods = slices.Clone(e.Periods)

	n, ok := c.entries[e.Fingerprint]
	if !ok {
		n = c.push(e.Fingerprint)
	}
	n.entry = e
	n.expires = time.Time{}
	if c.ttl > 0 {
		n.expires = now.Add(c.ttl)
	}

	for len(c.entries) > c.maxEntries {
		c.remove(c.head)
	}
	return nil
}

// Invalidate drops the entry for fingerprint.
func (c *MemoryCache) Invalidate(_ context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.entries[fingerprint]; ok {
		c.remove(n)
	}
	return nil
}

// Len returns the number of stored entries. Expired entries count until
// they are read or evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.head != nil {
		c.remove(c.head)
	}
	return nil
}

// order returns the fingerprints from oldest to newest insertion.
func (c *MemoryCache) order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for n := c.head; n != nil; n = n.next {
		out = append(out, n.fingerprint)
	}
	return out
}

// push appends a node for fingerprint and indexes it.
func (c *MemoryCache) push(fingerprint string) *node {
	n, ok := c.nodePool.Get().(*node)
	if !ok {
		n = &node{}
	}
	n.fingerprint = fingerprint
	n.prev = c.tail
	if c.tail == nil {
		c.head = n
	} else {
		c.tail.next = n
	}
	c.tail = n
	c.entries[fingerprint] = n
	return n
}

// remove unlinks n, drops it from the index and recycles it.
func (c *MemoryCache) remove(n *node) {
	if n.prev == nil {
		c.head = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		c.tail = n.prev
	} else {
		n.next.prev = n.prev
	}
	delete(c.entries, n.fingerprint)
	n.reset()
	c.nodePool.Put(n)
}
