package gateway_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"imbridge/internal/gateway"
	"imbridge/internal/gateway/gatewaytest"
)

// countingGateway 记录回源次数
type countingGateway struct {
	*gatewaytest.Fake

	mu          sync.Mutex
	userCalls   int
	memberCalls int
}

func (c *countingGateway) UserUin(ctx context.Context, uid string) (string, error) {
	c.mu.Lock()
	c.userCalls++
	c.mu.Unlock()
	return c.Fake.UserUin(ctx, uid)
}

func (c *countingGateway) GroupMemberUin(ctx context.Context, groupCode, uid string) (string, error) {
	c.mu.Lock()
	c.memberCalls++
	c.mu.Unlock()
	return c.Fake.GroupMemberUin(ctx, groupCode, uid)
}

func newCachedGateway(t *testing.T) (*gateway.Cached, *countingGateway, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := &countingGateway{Fake: gatewaytest.New()}
	return gateway.NewCached(inner, rdb, time.Hour, zaptest.NewLogger(t)), inner, mr
}

func TestCachedMemoizesUserUin(t *testing.T) {
	c, inner, mr := newCachedGateway(t)
	inner.Users["u_1"] = "10001"
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		uin, err := c.UserUin(ctx, "u_1")
		require.NoError(t, err)
		assert.Equal(t, "10001", uin)
	}
	assert.Equal(t, 1, inner.userCalls)

	cached, err := mr.Get("uin:user:u_1")
	require.NoError(t, err)
	assert.Equal(t, "10001", cached)
	assert.Equal(t, time.Hour, mr.TTL("uin:user:u_1"))

	mr.FastForward(time.Hour + time.Second)
	_, err = c.UserUin(ctx, "u_1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.userCalls)
}

func TestCachedKeysMembersPerGroup(t *testing.T) {
	c, inner, _ := newCachedGateway(t)
	inner.Members["100:u_1"] = "10001"
	inner.Members["200:u_1"] = "10001"
	ctx := context.Background()

	_, err := c.GroupMemberUin(ctx, "100", "u_1")
	require.NoError(t, err)
	_, err = c.GroupMemberUin(ctx, "200", "u_1")
	require.NoError(t, err)
	_, err = c.GroupMemberUin(ctx, "100", "u_1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.memberCalls)
}

func TestCachedDoesNotCacheNotFound(t *testing.T) {
	c, inner, mr := newCachedGateway(t)
	ctx := context.Background()

	_, err := c.UserUin(ctx, "u_unknown")
	assert.ErrorIs(t, err, gateway.ErrNotFound)
	assert.False(t, mr.Exists("uin:user:u_unknown"))

	inner.Users["u_unknown"] = "10009"
	uin, err := c.UserUin(ctx, "u_unknown")
	require.NoError(t, err)
	assert.Equal(t, "10009", uin)
	assert.Equal(t, 2, inner.userCalls)
}

func TestCachedFallsThroughWhenRedisFails(t *testing.T) {
	c, inner, mr := newCachedGateway(t)
	inner.Users["u_1"] = "10001"
	mr.SetError("ERR redis unavailable")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		uin, err := c.UserUin(ctx, "u_1")
		require.NoError(t, err)
		assert.Equal(t, "10001", uin)
	}
	assert.Equal(t, 2, inner.userCalls)
}
