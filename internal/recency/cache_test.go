package recency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEvictsLeastRecentlyInserted(t *testing.T) {
	c, err := NewCache(3)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		c.MarkSeen(fmt.Sprintf("msg-%d", i))
	}

	assert.False(t, c.Seen("msg-0"))
	assert.True(t, c.Seen("msg-1"))
	assert.True(t, c.Seen("msg-3"))
	assert.Equal(t, 3, c.Len())
}

func TestCacheSeenDoesNotRefresh(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	c.MarkSeen("a")
	c.MarkSeen("b")
	// a 被读取后仍然是最早插入的
	require.True(t, c.Seen("a"))
	c.MarkSeen("c")

	assert.False(t, c.Seen("a"))
	assert.True(t, c.Seen("b"))
	assert.True(t, c.Seen("c"))
}

func TestCacheDefaultCapacity(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)

	for i := 0; i <= DefaultCapacity; i++ {
		c.MarkSeen(fmt.Sprintf("k%d", i))
	}
	assert.Equal(t, DefaultCapacity, c.Len())
	assert.False(t, c.Seen("k0"))
}

func TestMarkIfAbsent(t *testing.T) {
	ctx := context.Background()
	c, err := NewCache(10)
	require.NoError(t, err)

	first, err := c.MarkIfAbsent(ctx, "m1")
	require.NoError(t, err)
	second, err := c.MarkIfAbsent(ctx, "m1")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, c.Seen("m1"))
}

func TestMarkIfAbsentConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	c, err := NewCache(DefaultCapacity)
	require.NoError(t, err)

	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := c.MarkIfAbsent(ctx, "same-id"); ok {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
