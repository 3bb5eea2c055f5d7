package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", "newsworker-test")

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	// Set a value
	err := mc.Set("test_key", []byte("test_value"), 1*time.Second)
	assert.NoError(t, err)

	// Get the value
	value, err := mc.Get("test_key")
	assert.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	// A key that was never stored is a miss
	_, err = mc.Get("missing_key")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemcacheService_Key(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", "summary")

	assert.Equal(t, "summary:abc", mc.key("abc"))

	long := strings.Repeat("가", 200)
	key := mc.key(long)
	assert.LessOrEqual(t, len(key), maxKeyLength)
	assert.True(t, strings.HasPrefix(key, "summary:h:"))
	assert.Equal(t, key, mc.key(long))
}
