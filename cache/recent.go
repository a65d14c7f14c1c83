package cache

import "sync"

// RecentList 保存最近的 N 个条目，满了以后覆盖最旧的条目
type RecentList[T any] struct {
	mu    sync.RWMutex
	items []T
	next  int
	full  bool
}

// NewRecentList 创建容量为 size 的列表
func NewRecentList[T any](size int) *RecentList[T] {
	if size <= 0 {
		size = 20
	}
	return &RecentList[T]{items: make([]T, size)}
}

// Add 追加一个条目
func (r *RecentList[T]) Add(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = item
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// GetAll 按从新到旧的顺序返回副本
func (r *RecentList[T]) GetAll() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.items)
	}

	out := make([]T, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.items[(r.next-i+len(r.items))%len(r.items)])
	}
	return out
}

// Len 返回当前条目数
func (r *RecentList[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.items)
	}
	return r.next
}

// Clear 清空列表
func (r *RecentList[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.items)
	r.next = 0
	r.full = false
}
