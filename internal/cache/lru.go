package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item 包装缓存数据和过期时间
type item struct {
	data      []byte
	expiresAt time.Time
}

// LRU is a bounded in-process cache with per-entry expiry.
type LRU struct {
	lruCache *lru.Cache[string, item]
	now      func() time.Time
}

func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU{lruCache: l, now: time.Now}, nil
}

func (c *LRU) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	c.lruCache.Add(key, item{data: data, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *LRU) Get(_ context.Context, key string, dest any) (bool, error) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return false, nil
	}

	// 检查过期
	if c.now().After(val.expiresAt) {
		c.lruCache.Remove(key)
		return false, nil
	}

	if err := json.Unmarshal(val.data, dest); err != nil {
		c.lruCache.Remove(key)
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return true, nil
}

func (c *LRU) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		c.lruCache.Remove(k)
	}
	return nil
}
