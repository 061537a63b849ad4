package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultCacheTTL is applied to user snapshots and the active set when
	// no explicit TTL is configured.
	DefaultCacheTTL = 3600 * time.Second

	userKeyPrefix = "user:"
	activeSetKey  = "users:active"
)

// UserCacheKey returns the snapshot key for an internal user id.
func UserCacheKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

// RedisCache stores JSON user snapshots under user:<id> with a per-key TTL
// reset on every write, and the active-user set under a single key whose
// shared TTL is refreshed on every membership change.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

type RedisCacheOption func(*RedisCache)

// WithCacheTTL overrides the default snapshot and active-set TTL.
func WithCacheTTL(ttl time.Duration) RedisCacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisCache wraps a Redis client in the presence cache layout.
func NewRedisCache(client redis.UniversalClient, opts ...RedisCacheOption) *RedisCache {
	cache := &RedisCache{
		client: client,
		ttl:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cache)
		}
	}
	return cache
}

// TTL exposes the configured expiration, mostly for logging and tests.
func (c *RedisCache) TTL() time.Duration {
	return c.ttl
}

func (c *RedisCache) GetUser(ctx context.Context, id int64) (*User, error) {
	val, err := c.client.Get(ctx, UserCacheKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	user := new(User)
	if err := json.Unmarshal([]byte(val), user); err != nil {
		// A snapshot we cannot decode is as good as no snapshot.
		return nil, fmt.Errorf("decode cached user %d: %w", id, ErrCacheMiss)
	}
	return user, nil
}

func (c *RedisCache) SetUser(ctx context.Context, user *User) error {
	if user == nil || user.ID == 0 {
		return fmt.Errorf("cannot cache user without internal id")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user %d: %w", user.ID, err)
	}
	return c.client.Set(ctx, UserCacheKey(user.ID), data, c.ttl).Err()
}

func (c *RedisCache) DeleteUser(ctx context.Context, id int64) error {
	return c.client.Del(ctx, UserCacheKey(id)).Err()
}

func (c *RedisCache) AddActive(ctx context.Context, id int64) error {
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, activeSetKey, id)
	pipe.Expire(ctx, activeSetKey, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) RemoveActive(ctx context.Context, id int64) error {
	pipe := c.client.TxPipeline()
	pipe.SRem(ctx, activeSetKey, id)
	pipe.Expire(ctx, activeSetKey, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) IsActive(ctx context.Context, id int64) (bool, error) {
	return c.client.SIsMember(ctx, activeSetKey, strconv.FormatInt(id, 10)).Result()
}
