package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

func MemCachedClient(address string, port int) *memcache.Client {
	uri := fmt.Sprintf("%s:%d", address, port)
	client := memcache.New(uri)
	client.MaxIdleConns = 1000
	return client
}

const DEFAULT_CACHE_TTL = 5 * time.Minute

// MemCache stores raw document bytes in memcached.
// Entries expire after ttl so a stale fill cannot outlive it.
type MemCache struct {
	client *memcache.Client
	ttl    time.Duration
}

// NewMemCache uses DEFAULT_CACHE_TTL when ttl is not positive
func NewMemCache(client *memcache.Client, ttl time.Duration) *MemCache {
	if ttl <= 0 {
		ttl = DEFAULT_CACHE_TTL
	}
	return &MemCache{client: client, ttl: ttl}
}

// expiration in seconds, at least one since zero means never in memcached
func (m *MemCache) expiration() int32 {
	seconds := int32(m.ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (m *MemCache) Get(key string) ([]byte, bool, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

func (m *MemCache) Set(key string, value []byte) error {
	return m.client.Set(&memcache.Item{Key: key, Value: value, Expiration: m.expiration()})
}

// Delete removes key, a missing key is not an error
func (m *MemCache) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
