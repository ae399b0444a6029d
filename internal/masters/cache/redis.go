package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the production Cache backend. Single-key set/delete are atomic
// in Redis, which is all the contract requires.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeletePrefix removes every key under the prefix via SCAN, batching
// deletes through a pipeline.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 256).Iterator()
	pipe := r.client.Pipeline()
	batched := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		batched++
		if batched >= 256 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("cache delete prefix: %w", err)
			}
			batched = 0
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if batched > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("cache delete prefix: %w", err)
		}
	}
	return nil
}
