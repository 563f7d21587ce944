package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryLayer is the in-process L1 in front of a Store.
type memoryLayer struct {
	items  *gocache.Cache
	maxTTL time.Duration
}

func newMemoryLayer(maxTTL time.Duration) *memoryLayer {
	return &memoryLayer{
		items:  gocache.New(maxTTL, 2*maxTTL),
		maxTTL: maxTTL,
	}
}

func (m *memoryLayer) get(key string) (*CacheEntry, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	entry, ok := v.(*CacheEntry)
	return entry, ok
}

// set keeps the entry for at most maxTTL; the entry's own ExpiresAt still
// decides visibility.
func (m *memoryLayer) set(entry *CacheEntry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if m.maxTTL > 0 && ttl > m.maxTTL {
		ttl = m.maxTTL
	}
	m.items.Set(entry.Key, entry, ttl)
}

func (m *memoryLayer) delete(key string) {
	m.items.Delete(key)
}

func (m *memoryLayer) flush() {
	m.items.Flush()
}

func (m *memoryLayer) len() int {
	return m.items.ItemCount()
}
