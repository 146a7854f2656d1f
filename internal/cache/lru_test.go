package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[[]string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[[]string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUGetSet(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)

	_, ok := c.Get("2023-04")
	assert.False(t, ok)

	c.Set("2023-04", []string{"a", "b"})
	got, ok := c.Get("2023-04")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	c.Set("2023-04", []string{"c"})
	got, _ = c.Get("2023-04")
	assert.Equal(t, []string{"c"}, got)
	assert.Equal(t, 1, c.Size())

	c.Delete("2023-04")
	assert.Equal(t, 0, c.Size())

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(4, time.Minute)
	c.Set("k", []string{"v"})

	clock.advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", nil)
	c.Set("b", nil)
	// Touch a so b becomes least recently used
	_, _ = c.Get("a")
	c.Set("c", nil)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestLRUCleanExpired(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("old1", nil)
	c.Set("old2", nil)
	clock.advance(30 * time.Second)
	c.Set("fresh", nil)
	clock.advance(45 * time.Second)

	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestManager(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", nil)
	clock.advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 1, m.CleanOnce())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx, time.Millisecond)
	cancel()
	m.Wait()
}
