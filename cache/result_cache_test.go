package cache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value 测试用的可深拷贝类型
type value struct {
	Items []string
}

func (v *value) Clone() *value {
	return &value{Items: append([]string(nil), v.Items...)}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(max int, ttl time.Duration) (*ResultCache[*value], *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewResultCache[*value](Config{MaxEntries: max, TTL: ttl, Clock: clock.Now}), clock
}

func TestGenerateCacheKeyDeterministic(t *testing.T) {
	text := "||a.com^\n||b.com^"
	assert.Equal(t, GenerateCacheKey(text), GenerateCacheKey(text))
	assert.NotEqual(t, GenerateCacheKey(text), GenerateCacheKey(text+"\n"))
	assert.NotEqual(t, GenerateCacheKey(""), GenerateCacheKey(" "))
}

func TestGenerateCacheKeyLongSharedPrefix(t *testing.T) {
	for _, n := range []int{99, 100, 101, 1000, 100000} {
		prefix := strings.Repeat("x", n)
		a := GenerateCacheKey(prefix + "a" + "tail")
		b := GenerateCacheKey(prefix + "b" + "tail")
		assert.NotEqual(t, a, b, "shared prefix of %d", n)
	}
}

func TestResultCacheGetMiss(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestResultCacheDeepCopy(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	orig := &value{Items: []string{"a"}}
	c.Save("k", orig)
	orig.Items[0] = "changed after save"

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, got.Items)

	got.Items[0] = "changed after get"
	again, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, again.Items)
}

func TestResultCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(3, time.Minute)

	c.Save("a", &value{})
	c.Save("b", &value{})
	c.Save("c", &value{})

	// a 变为最近使用，b 是最久未使用
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Save("d", &value{})
	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
	assert.True(t, c.Has("d"))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestResultCacheHasDoesNotTouch(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Save("a", &value{})
	c.Save("b", &value{})
	assert.True(t, c.Has("a"))

	c.Save("c", &value{})
	assert.False(t, c.Has("a"), "Has must not refresh recency")
	assert.True(t, c.Has("b"))
}

func TestResultCacheDefaultCapacity(t *testing.T) {
	c := NewResultCache[*value](Config{})
	for i := 0; i < DefaultMaxEntries+10; i++ {
		c.Save(fmt.Sprintf("k%d", i), &value{})
	}
	assert.Equal(t, DefaultMaxEntries, c.Len())
	assert.False(t, c.Has("k0"))
	assert.True(t, c.Has(fmt.Sprintf("k%d", DefaultMaxEntries+9)))
}

func TestResultCacheCleanup(t *testing.T) {
	c, clock := newTestCache(10, 30*time.Minute)

	assert.Equal(t, 0, c.Cleanup(), "empty cache")

	c.Save("old", &value{})
	clock.Advance(20 * time.Minute)
	c.Save("fresh", &value{})
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, c.Cleanup())
	assert.False(t, c.Has("old"))
	assert.True(t, c.Has("fresh"))
	assert.Equal(t, uint64(1), c.Stats().Expired)
}

func TestResultCacheGetRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(10, 30*time.Minute)

	c.Save("k", &value{})
	clock.Advance(25 * time.Minute)
	_, ok := c.Get("k")
	require.True(t, ok)
	clock.Advance(25 * time.Minute)

	assert.Equal(t, 0, c.Cleanup())
	assert.True(t, c.Has("k"))
}

func TestResultCacheClear(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Save("a", &value{})
	c.Save("b", &value{})

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("a"))
}

func TestResultCacheConcurrent(t *testing.T) {
	c, _ := newTestCache(8, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*31+i)%16)
				c.Save(key, &value{Items: []string{key}})
				if v, ok := c.Get(key); ok {
					assert.Equal(t, key, v.Items[0])
				}
				c.Has(key)
				if i%100 == 0 {
					c.Cleanup()
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 8)
}
