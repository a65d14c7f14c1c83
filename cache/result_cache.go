package cache

import (
	"context"
	"sync"
	"time"

	"adfilter/logger"

	"github.com/hashicorp/golang-lru/simplelru"
)

const (
	DefaultMaxEntries = 50
	DefaultTTL        = 30 * time.Minute
)

// Cloner 可深拷贝的缓存值
type Cloner[T any] interface {
	Clone() T
}

// Config 结果缓存配置
type Config struct {
	MaxEntries int
	TTL        time.Duration
	// Clock 用于测试注入时间，为空时使用 time.Now
	Clock func() time.Time
}

// Stats 缓存统计
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
}

type resultEntry[V any] struct {
	value        V
	lastAccessed time.Time
}

// ResultCache 有容量上限的 LRU 缓存，条目空闲超过 TTL 后由 Cleanup 清理。
// 存入和取出时都会深拷贝，调用方修改返回值不会影响缓存中的条目。
// 所有操作都由一把互斥锁串行化。
type ResultCache[V Cloner[V]] struct {
	mu    sync.Mutex
	lru   *simplelru.LRU
	ttl   time.Duration
	clock func() time.Time
	stats Stats
}

// NewResultCache 创建结果缓存
func NewResultCache[V Cloner[V]](cfg Config) *ResultCache[V] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	// size > 0, NewLRU cannot fail
	lru, _ := simplelru.NewLRU(cfg.MaxEntries, nil)

	return &ResultCache[V]{
		lru:   lru,
		ttl:   cfg.TTL,
		clock: cfg.Clock,
	}
}

// Save 存入一个值，容量已满时淘汰最久未使用的条目
func (c *ResultCache[V]) Save(key string, value V) {
	e := &resultEntry[V]{value: value.Clone()}

	c.mu.Lock()
	defer c.mu.Unlock()

	e.lastAccessed = c.clock()
	if c.lru.Add(key, e) {
		c.stats.Evictions++
		logger.Debugf("[Cache] Evicted least recently used entry, capacity reached")
	}
}

// Get 命中时返回深拷贝并将条目标记为最近使用
func (c *ResultCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	c.stats.Hits++
	e := v.(*resultEntry[V])
	e.lastAccessed = c.clock()
	return e.value.Clone(), true
}

// Has 检查键是否存在，不影响访问顺序
func (c *ResultCache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// Cleanup 删除空闲时间超过 TTL 的条目，返回删除数量
func (c *ResultCache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for _, k := range c.lru.Keys() {
		v, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		if now.Sub(v.(*resultEntry[V]).lastAccessed) > c.ttl {
			c.lru.Remove(k)
			removed++
		}
	}

	c.stats.Expired += uint64(removed)
	return removed
}

// Clear 清空缓存
func (c *ResultCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len 返回当前条目数
func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats 返回统计信息快照
func (c *ResultCache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = c.lru.Len()
	return s
}

// Run 按 interval 周期清理过期条目，直到 ctx 结束
func (c *ResultCache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Cleanup(); n > 0 {
				logger.Debugf("[Cache] Cleaned %d expired filter list entries", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
