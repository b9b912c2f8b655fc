package docstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV is a [KV] backed by Redis string keys. Names are stored under
// prefix, so "softwareAuth" with prefix "authdoc:" lives at
// "authdoc:softwareAuth".
type RedisKV struct {
	client redis.Cmdable
	prefix string
}

// NewRedisKV returns a KV using client. The caller owns the client.
func NewRedisKV(client redis.Cmdable, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

// Get implements [KV]. A missing key is reported as not found, not an error.
func (r *RedisKV) Get(ctx context.Context, name string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set implements [KV]. Values never expire.
func (r *RedisKV) Set(ctx context.Context, name, value string) error {
	return r.client.Set(ctx, r.prefix+name, value, 0).Err()
}

// Del implements [KV].
func (r *RedisKV) Del(ctx context.Context, name string) error {
	return r.client.Del(ctx, r.prefix+name).Err()
}

var _ KV = (*RedisKV)(nil)
