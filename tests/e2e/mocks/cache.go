package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/godilite/ila-server/pkg/cache"
)

// TrackingCache is an in-process cache that counts calls. Values round-trip through JSON
// like they do in redis.
type TrackingCache struct {
	mu          sync.Mutex
	GetCalls    int
	SetCalls    int
	DeleteCalls int
	data        map[string]CacheEntry
}

type CacheEntry struct {
	Value  []byte
	Expiry time.Time
}

func NewTrackingCache() *TrackingCache {
	return &TrackingCache{
		data: make(map[string]CacheEntry),
	}
}

func (c *TrackingCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GetCalls++
	entry, exists := c.data[key]
	if !exists || (!entry.Expiry.IsZero() && time.Now().After(entry.Expiry)) {
		return cache.ErrMiss
	}
	return json.Unmarshal(entry.Value, dest)
}

func (c *TrackingCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.SetCalls++
	entry := CacheEntry{Value: data}
	if exp > 0 {
		entry.Expiry = time.Now().Add(exp)
	}
	c.data[key] = entry
	return nil
}

func (c *TrackingCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.DeleteCalls++
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// Calls returns the get, set and delete counters.
func (c *TrackingCache) Calls() (get, set, del int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GetCalls, c.SetCalls, c.DeleteCalls
}
