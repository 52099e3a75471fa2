package cusp

import (
	"fmt"
	"sync"
)

// EnvironmentCache provides thread-safe, in-memory access to values that are
// expensive to recompute, such as Monte Carlo calibration thresholds.
type EnvironmentCache interface {
	// PutNew adds a new (key, value) pair to the cache. If the key
	// already exists, this noops and returns false.
	PutNew(string, interface{}) bool
	// Get returns the value of the given key.
	Get(string) (interface{}, bool)
	// Delete removes the given key from the cache.
	Delete(string)
}

// ThresholdCacheKey builds the cache key under which a calibrated threshold
// for the given series length, significance level, and calibration method is
// stored.
func ThresholdCacheKey(n int, alpha float64, method string) string {
	return fmt.Sprintf("threshold/%s/%d/%g", method, n, alpha)
}

type envCache struct {
	mu    sync.RWMutex
	cache map[string]interface{}
}

func newEnvironmentCache() *envCache {
	return &envCache{cache: map[string]interface{}{}}
}

func (c *envCache) PutNew(key string, value interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[key]; !ok {
		c.cache[key] = value
		return true
	}

	return false
}

func (c *envCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.cache[key]
	return val, ok
}

func (c *envCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
}
