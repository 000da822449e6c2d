package user

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peter-abah/conecr/internal/model"
)

// userCacheKeyPrefix 用户资料 Redis Key 前缀
const userCacheKeyPrefix = "conecr:user:"

func buildUserCacheKey(uid string) string {
	return userCacheKeyPrefix + uid
}

// RedisCache 跨进程共享的用户资料缓存。
// 条目带 TTL，其他用户修改资料后最多经过一个 TTL 周期收敛；
// 缓存故障一律按未命中处理，不影响读路径
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
}

// Get 查找缓存
func (c *RedisCache) Get(ctx context.Context, uid string) (*model.User, bool) {
	data, err := c.client.Get(ctx, buildUserCacheKey(uid)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read user cache", "uid", uid, "error", err)
		}
		return nil, false
	}

	var user model.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		c.logger.Warn("Failed to decode cached user", "uid", uid, "error", err)
		return nil, false
	}
	return &user, true
}

// Put 写入缓存
func (c *RedisCache) Put(ctx context.Context, user *model.User) {
	data, err := json.Marshal(user)
	if err != nil {
		c.logger.Warn("Failed to encode user for cache", "uid", user.UID, "error", err)
		return
	}

	if err := c.client.Set(ctx, buildUserCacheKey(user.UID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write user cache", "uid", user.UID, "error", err)
	}
}
