package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/qytetaret/synckit/internal/config"
)

// Category selects which bounded cache an entry belongs to. Each
// category carries its own TTL and capacity.
type Category string

const (
	// CategoryAPI holds gateway read responses.
	CategoryAPI Category = "api"

	// CategoryImage holds binary assets such as report photos.
	CategoryImage Category = "image"
)

// Options bound a single category.
type Options struct {
	TTL        time.Duration
	MaxEntries int
}

// entry wraps a payload with its insertion timestamp. Expiry is judged
// against this stamp on read, not swept by the backing store.
type entry struct {
	payload  interface{}
	inserted time.Time
}

// category is one bounded, time-boxed cache.
type category struct {
	entries *gocache.Cache
	order   []string // keys oldest first
	ttl     time.Duration
	max     int
}

// Cache is the in-memory read-through response cache. It sits beside
// gateway calls: callers check it before issuing a live request and
// populate it after a successful one. Contents are never persisted and
// never invalidated by writes elsewhere in the system.
//
// Eviction is FIFO by insertion order, not LRU: a read does not refresh
// an entry's position.
type Cache struct {
	mu   sync.Mutex
	cats map[Category]*category
	now  func() time.Time
	log  zerolog.Logger
}

// New creates a cache with the standard api and image categories
// configured from cfg.
func New(cfg config.CacheConfig, log zerolog.Logger) *Cache {
	return NewWithOptions(map[Category]Options{
		CategoryAPI: {
			TTL:        time.Duration(cfg.APITTLSec) * time.Second,
			MaxEntries: cfg.APIMaxEntries,
		},
		CategoryImage: {
			TTL:        time.Duration(cfg.ImageTTLSec) * time.Second,
			MaxEntries: cfg.ImageMaxEntries,
		},
	}, log)
}

// NewWithOptions creates a cache with explicit per-category bounds.
func NewWithOptions(opts map[Category]Options, log zerolog.Logger) *Cache {
	cats := make(map[Category]*category, len(opts))
	for name, o := range opts {
		cats[name] = &category{
			entries: gocache.New(gocache.NoExpiration, 0),
			ttl:     o.TTL,
			max:     o.MaxEntries,
		}
	}
	return &Cache{
		cats: cats,
		now:  time.Now,
		log:  log,
	}
}

// Get returns the cached payload for key if the entry exists and is
// younger than the category TTL. An entry of exactly TTL age is a miss.
// Expired entries are removed lazily here.
func (c *Cache) Get(cat Category, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.cats[cat]
	if !ok {
		return nil, false
	}

	raw, ok := cc.entries.Get(key)
	if !ok {
		return nil, false
	}

	e := raw.(entry)
	if c.now().Sub(e.inserted) >= cc.ttl {
		cc.entries.Delete(key)
		cc.removeFromOrder(key)
		return nil, false
	}

	return e.payload, true
}

// Put inserts a payload under key. When the category is at capacity the
// earliest-inserted surviving entry is evicted first. Re-putting an
// existing key refreshes its insertion timestamp and order position.
func (c *Cache) Put(cat Category, key string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.cats[cat]
	if !ok {
		return
	}

	if _, exists := cc.entries.Get(key); exists {
		cc.removeFromOrder(key)
	} else if cc.max > 0 && len(cc.order) >= cc.max {
		oldest := cc.order[0]
		cc.order = cc.order[1:]
		cc.entries.Delete(oldest)
		c.log.Debug().Str("category", string(cat)).Str("key", oldest).
			Msg("evicted oldest cache entry")
	}

	cc.entries.Set(key, entry{payload: payload, inserted: c.now()}, gocache.NoExpiration)
	cc.order = append(cc.order, key)
}

// Len reports the number of live entries currently held for a category.
// Entries past their TTL but not yet lazily collected are counted.
func (c *Cache) Len(cat Category) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cc, ok := c.cats[cat]
	if !ok {
		return 0
	}
	return len(cc.order)
}

// SetNow overrides the clock; tests use it to cross TTL boundaries
// without sleeping.
func (c *Cache) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// removeFromOrder drops key from the insertion-order queue.
func (cc *category) removeFromOrder(key string) {
	for i, k := range cc.order {
		if k == key {
			cc.order = append(cc.order[:i], cc.order[i+1:]...)
			return
		}
	}
}
