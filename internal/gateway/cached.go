package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imbridge/internal/model"
)

// Cached memoizes uid→uin resolutions in redis. Other calls pass through.
// uid 到 uin 的映射不会变化，只有 TTL 控制淘汰
type Cached struct {
	Gateway
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(next Gateway, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{
		Gateway: next,
		rdb:     rdb,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *Cached) GroupMemberUin(ctx context.Context, groupCode, uid string) (string, error) {
	return c.memo(ctx, "uin:member:"+groupCode+":"+uid, func() (string, error) {
		return c.Gateway.GroupMemberUin(ctx, groupCode, uid)
	})
}

func (c *Cached) UserUin(ctx context.Context, uid string) (string, error) {
	return c.memo(ctx, "uin:user:"+uid, func() (string, error) {
		return c.Gateway.UserUin(ctx, uid)
	})
}

// MessagesBySeq is not cached: reactions target recent messages.
func (c *Cached) MessagesBySeq(ctx context.Context, peer model.Peer, seq string, count int) ([]model.RawMessage, error) {
	return c.Gateway.MessagesBySeq(ctx, peer, seq, count)
}

func (c *Cached) memo(ctx context.Context, key string, load func() (string, error)) (string, error) {
	uin, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return uin, nil
	}
	if !errors.Is(err, redis.Nil) {
		// redis 故障时直接回源
		c.logger.Warn("Redis uin cache read failed", zap.String("key", key), zap.Error(err))
	}

	uin, err = load()
	if err != nil {
		return "", err
	}

	if err := c.rdb.Set(ctx, key, uin, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis uin cache write failed", zap.String("key", key), zap.Error(err))
	}
	return uin, nil
}
