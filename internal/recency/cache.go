// Package recency suppresses repeated emission for message ids the engine has
// already acted on.
package recency

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const DefaultCapacity = 100

// Store is the guard consulted before a recall or send confirmation is emitted.
// MarkIfAbsent returns true only for the caller that inserted key first.
type Store interface {
	MarkIfAbsent(ctx context.Context, key string) (bool, error)
}

// Cache 固定容量的最近已见集合，超出容量时淘汰最早插入的 key
type Cache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, struct{}]
}

func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	lru, err := simplelru.NewLRU[string, struct{}](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create recency cache: %w", err)
	}
	return &Cache{lru: lru}, nil
}

// Seen 只读检查，不刷新顺序
func (c *Cache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// MarkSeen inserts key. Re-marking an existing key does not move it.
func (c *Cache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lru.Contains(key) {
		c.lru.Add(key, struct{}{})
	}
}

// MarkIfAbsent 检查与插入在同一次加锁内完成
func (c *Cache) MarkIfAbsent(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Contains(key) {
		return false, nil
	}
	c.lru.Add(key, struct{}{})
	return true, nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
