package altcache

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
)

// RedisHotlist persists the discovered-ALT hotlist in a Redis set,
// giving the hotlist a durable warm-start path in addition to the
// on-disk JSON file.
type RedisHotlist struct {
	client *redis.Client
	key    string
}

// NewRedisHotlist constructs a RedisHotlist backed by client, using key
// as the Redis set name.
func NewRedisHotlist(client *redis.Client, key string) *RedisHotlist {
	return &RedisHotlist{client: client, key: key}
}

// SaveRedisHotlist replaces the Redis set's contents with the cache's current
// in-memory hotlist.
func (c *Cache) SaveRedisHotlist(ctx context.Context, h *RedisHotlist) error {
	c.mu.Lock()
	members := make([]interface{}, 0, len(c.hotlist))
	for table := range c.hotlist {
		members = append(members, table.String())
	}
	c.mu.Unlock()

	pipe := h.client.TxPipeline()
	pipe.Del(ctx, h.key)
	if len(members) > 0 {
		pipe.SAdd(ctx, h.key, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("altcache: save redis hotlist: %w", err)
	}
	return nil
}

// LoadRedisHotlist merges the Redis set's members into the cache's
// in-memory hotlist.
func (c *Cache) LoadRedisHotlist(ctx context.Context, h *RedisHotlist) error {
	members, err := h.client.SMembers(ctx, h.key).Result()
	if err != nil {
		return fmt.Errorf("altcache: load redis hotlist: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range members {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			continue
		}
		c.hotlist[pk] = struct{}{}
	}
	return nil
}
