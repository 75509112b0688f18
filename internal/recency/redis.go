package recency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore 多实例部署时共享的去重窗口，窗口由 TTL 而非容量决定
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) key(id string) string {
	return "recency:" + s.prefix + ":" + id
}

// MarkIfAbsent uses SETNX so concurrent instances agree on a single winner.
// When redis is unavailable processing is allowed and the error is only logged.
func (s *RedisStore) MarkIfAbsent(ctx context.Context, id string) (bool, error) {
	key := s.key(id)

	ok, err := s.rdb.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		// redis 不可用时不阻止处理
		s.logger.Warn("Redis recency check failed, allowing processing",
			zap.String("cache", s.prefix),
			zap.String("key", key),
			zap.Error(err),
		)
		return true, nil
	}

	if !ok {
		s.logger.Debug("Skipped repeated notification",
			zap.String("cache", s.prefix),
			zap.String("key", key),
		)
	}
	return ok, nil
}
