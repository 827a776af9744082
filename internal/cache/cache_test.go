package cache

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(ttl time.Duration, max int) *Cache {
	return NewWithOptions(map[Category]Options{
		CategoryAPI: {TTL: ttl, MaxEntries: max},
	}, zerolog.Nop())
}

func TestGetHitsUntilTTL(t *testing.T) {
	c := newTestCache(5*time.Minute, 10)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.SetNow(func() time.Time { return now })

	c.Put(CategoryAPI, "/reports", "payload")

	got, ok := c.Get(CategoryAPI, "/reports")
	require.True(t, ok)
	assert.Equal(t, "payload", got)

	// Just inside the TTL the entry is still live.
	now = base.Add(5*time.Minute - time.Nanosecond)
	_, ok = c.Get(CategoryAPI, "/reports")
	assert.True(t, ok)
}

func TestGetMissesAtExactTTL(t *testing.T) {
	c := newTestCache(5*time.Minute, 10)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.SetNow(func() time.Time { return now })

	c.Put(CategoryAPI, "/reports", "payload")

	now = base.Add(5 * time.Minute)
	_, ok := c.Get(CategoryAPI, "/reports")
	assert.False(t, ok, "entry aged exactly TTL must be a miss")

	// Lazy expiry removed the entry.
	assert.Equal(t, 0, c.Len(CategoryAPI))
}

func TestEvictionIsFIFO(t *testing.T) {
	c := newTestCache(time.Hour, 3)

	c.Put(CategoryAPI, "a", 1)
	c.Put(CategoryAPI, "b", 2)
	c.Put(CategoryAPI, "c", 3)

	// Reading the oldest entry must not protect it: insertion order,
	// not access order, decides eviction.
	_, ok := c.Get(CategoryAPI, "a")
	require.True(t, ok)

	c.Put(CategoryAPI, "d", 4)

	_, ok = c.Get(CategoryAPI, "a")
	assert.False(t, ok, "earliest-inserted entry should be evicted")
	for _, key := range []string{"b", "c", "d"} {
		_, ok := c.Get(CategoryAPI, key)
		assert.True(t, ok, "key %s should survive", key)
	}
	assert.Equal(t, 3, c.Len(CategoryAPI))
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := newTestCache(time.Hour, 3)

	for _, key := range []string{"a", "b", "c", "d", "e", "f"} {
		c.Put(CategoryAPI, key, key)
		assert.LessOrEqual(t, c.Len(CategoryAPI), 3)
	}
}

func TestRePutRefreshesOrder(t *testing.T) {
	c := newTestCache(time.Hour, 3)

	c.Put(CategoryAPI, "a", 1)
	c.Put(CategoryAPI, "b", 2)
	c.Put(CategoryAPI, "c", 3)
	c.Put(CategoryAPI, "a", 10)

	// "b" is now the oldest insertion.
	c.Put(CategoryAPI, "d", 4)

	_, ok := c.Get(CategoryAPI, "b")
	assert.False(t, ok)
	got, ok := c.Get(CategoryAPI, "a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
}

func TestUnknownCategoryMisses(t *testing.T) {
	c := newTestCache(time.Hour, 3)

	c.Put(Category("bogus"), "a", 1)
	_, ok := c.Get(Category("bogus"), "a")
	assert.False(t, ok)
}

func TestCategoriesAreIndependent(t *testing.T) {
	c := NewWithOptions(map[Category]Options{
		CategoryAPI:   {TTL: time.Minute, MaxEntries: 1},
		CategoryImage: {TTL: time.Hour, MaxEntries: 2},
	}, zerolog.Nop())

	c.Put(CategoryAPI, "x", 1)
	c.Put(CategoryImage, "x", 2)
	c.Put(CategoryAPI, "y", 3)

	// The api category evicted "x"; the image copy is untouched.
	_, ok := c.Get(CategoryAPI, "x")
	assert.False(t, ok)
	got, ok := c.Get(CategoryImage, "x")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}
