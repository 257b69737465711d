package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// L1 is the process-local tier: a size-bounded, TTL-expiring LRU, safe for
// concurrent reads and writes.
type L1[T any] struct {
	inner *lru.LRU[string, T]
}

// NewL1 builds an L1 tier holding at most size entries, each expiring ttl
// after being set.
func NewL1[T any](size int, ttl time.Duration) *L1[T] {
	return &L1[T]{inner: lru.NewLRU[string, T](size, nil, ttl)}
}

// Get returns the cached value and whether it was present and unexpired.
func (l *L1[T]) Get(key string) (T, bool) {
	return l.inner.Get(key)
}

// Set stores v under key, refreshing its TTL.
func (l *L1[T]) Set(key string, v T) {
	l.inner.Add(key, v)
}

// Delete evicts key, if present.
func (l *L1[T]) Delete(key string) {
	l.inner.Remove(key)
}
