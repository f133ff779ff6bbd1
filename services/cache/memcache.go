package cache

import (
	"time"

	"campcompass/roompotcrawler/logger"
	"campcompass/roompotcrawler/services/metrics"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	return &MemcacheService{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		if err == memcache.ErrCacheMiss {
			metrics.ObserveCache("memcache", "miss")
		}
		return nil, err
	}
	metrics.ObserveCache("memcache", "hit")
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	metrics.ObserveCache("memcache", "set")
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
	if err != nil {
		logger.ForCache().Warn().Err(err).Str("key", key).Msg("Failed to set cache entry")
	}
	return err
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	metrics.ObserveCache("memcache", "del")
	return m.client.Delete(key)
}

// Ping checks that the memcache server is reachable
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}
