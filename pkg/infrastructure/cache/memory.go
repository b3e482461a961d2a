package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// sweepEvery is how many writes pass between scans for expired entries
const sweepEvery = 64

// MemoryCache implements an in-process cache. Expired entries are evicted on
// read and swept out every sweepEvery writes.
type MemoryCache struct {
	mu     sync.Mutex
	data   map[string]cacheItem
	config Config
	now    func() time.Time
	writes int
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache creates an in-memory cache
func NewMemoryCache(config Config) *MemoryCache {
	return &MemoryCache{
		data:   make(map[string]cacheItem),
		config: config,
		now:    time.Now,
	}
}

// Verify interface compliance
var _ Cache = (*MemoryCache)(nil)

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.live(m.config.Prefix + key)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	return append([]byte(nil), item.value...), nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	item := cacheItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[m.config.Prefix+key] = item
	m.writes++
	if m.writes%sweepEvery == 0 {
		m.sweep()
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for k := range m.data {
		if strings.HasPrefix(k, m.config.Prefix) {
			delete(m.data, k)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.live(m.config.Prefix + key)
	return ok, nil
}

// live must be called with the mutex held; it evicts an expired entry
func (m *MemoryCache) live(fullKey string) (cacheItem, bool) {
	item, ok := m.data[fullKey]
	if !ok {
		return cacheItem{}, false
	}
	if !item.expiration.IsZero() && m.now().After(item.expiration) {
		delete(m.data, fullKey)
		return cacheItem{}, false
	}
	return item, true
}

// sweep must be called with the mutex held
func (m *MemoryCache) sweep() {
	now := m.now()
	for k, item := range m.data {
		if !item.expiration.IsZero() && now.After(item.expiration) {
			delete(m.data, k)
		}
	}
}
