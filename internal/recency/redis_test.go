package recency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, func() *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, func() *redis.Client {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return rdb
	}
}

func TestRedisStoreSingleWinnerAcrossInstances(t *testing.T) {
	_, newClient := newTestRedis(t)
	log := zaptest.NewLogger(t)

	// 两个实例各自持有客户端，共享同一个 redis
	stores := []*RedisStore{
		NewRedisStore(newClient(), "recall", time.Minute, log),
		NewRedisStore(newClient(), "recall", time.Minute, log),
	}

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(s *RedisStore) {
			defer wg.Done()
			first, err := s.MarkIfAbsent(context.Background(), "m-1")
			assert.NoError(t, err)
			if first {
				winners.Add(1)
			}
		}(stores[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestRedisStoreWindowAndPrefixes(t *testing.T) {
	mr, newClient := newTestRedis(t)
	rdb := newClient()
	log := zaptest.NewLogger(t)
	recall := NewRedisStore(rdb, "recall", time.Minute, log)
	sent := NewRedisStore(rdb, "sent", time.Minute, log)
	ctx := context.Background()

	first, err := recall.MarkIfAbsent(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, first)
	first, err = sent.MarkIfAbsent(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, first, "caches do not share keys")

	first, err = recall.MarkIfAbsent(ctx, "m-1")
	require.NoError(t, err)
	assert.False(t, first)
	assert.Equal(t, time.Minute, mr.TTL("recency:recall:m-1"))

	mr.FastForward(time.Minute + time.Second)
	first, err = recall.MarkIfAbsent(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, first, "id forgotten after the window")
}

func TestRedisStoreFailsOpen(t *testing.T) {
	mr, newClient := newTestRedis(t)
	s := NewRedisStore(newClient(), "sent", time.Minute, zaptest.NewLogger(t))
	mr.SetError("ERR redis unavailable")

	for i := 0; i < 2; i++ {
		first, err := s.MarkIfAbsent(context.Background(), "m-1")
		require.NoError(t, err)
		assert.True(t, first)
	}
}
