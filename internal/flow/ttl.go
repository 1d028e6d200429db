package flow

import (
	"sync"
	"time"
)

// purgeAbove is the size from which Set sweeps expired entries.
const purgeAbove = 4096

// TTL is a minimal in-process TTL cache. It deduplicates re-delivered updates and keeps the
// transport's peer lookups off the network. Lazy expiration on Get.
type TTL[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
}

type entry[V any] struct {
	val V
	exp time.Time
}

func NewTTL[K comparable, V any]() *TTL[K, V] {
	return &TTL[K, V]{data: make(map[K]entry[V])}
}

// Get returns the value and true if found and not expired; otherwise zero value and false.
func (t *TTL[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	t.mu.RUnlock()
	if !ok || timeNow().After(e.exp) {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (t *TTL[K, V]) Set(k K, v V, ttl time.Duration) {
	t.mu.Lock()
	t.set(k, v, ttl)
	t.mu.Unlock()
}

// SetIfAbsent stores v only if k is absent or expired. Returns true if stored.
func (t *TTL[K, V]) SetIfAbsent(k K, v V, ttl time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.data[k]; ok && !timeNow().After(e.exp) {
		return false
	}
	t.set(k, v, ttl)
	return true
}

func (t *TTL[K, V]) Delete(k K) {
	t.mu.Lock()
	delete(t.data, k)
	t.mu.Unlock()
}

// Len counts stored entries, expired ones included until the next sweep.
func (t *TTL[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}

func (t *TTL[K, V]) set(k K, v V, ttl time.Duration) {
	now := timeNow()
	if len(t.data) >= purgeAbove {
		for key, e := range t.data {
			if now.After(e.exp) {
				delete(t.data, key)
			}
		}
	}
	t.data[k] = entry[V]{val: v, exp: now.Add(ttl)}
}
