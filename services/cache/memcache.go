package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// maxKeyLength is the memcache protocol limit on key length
const maxKeyLength = 250

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client    *memcache.Client
	namespace string
}

// NewMemcacheService creates a new memcache service.
// Every key is stored under namespace + ":".
func NewMemcacheService(serverAddr, namespace string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheService{
		client:    client,
		namespace: namespace,
	}
}

// Ping checks that every server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

// key namespaces k and hashes it when it would exceed the protocol limit
func (m *MemcacheService) key(k string) string {
	full := m.namespace + ":" + k
	if len(full) <= maxKeyLength {
		return full
	}
	sum := sha256.Sum256([]byte(k))
	return m.namespace + ":h:" + hex.EncodeToString(sum[:])
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(m.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        m.key(key),
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}
