// Package cache provides small in-process caches used to memoize derived
// values.
package cache

// Cache is a bounded key-value memo.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Size() int
}

var _ Cache[string, int] = (*LRUCache[string, int])(nil)
