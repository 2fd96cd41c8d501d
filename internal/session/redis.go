package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps the two tokens as plain Redis string keys.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. prefix namespaces the keys.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) accessKey() string  { return r.prefix + AccessTokenKey }
func (r *RedisStore) refreshKey() string { return r.prefix + RefreshTokenKey }

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context) (Credentials, error) {
	vals, err := r.client.MGet(ctx, r.accessKey(), r.refreshKey()).Result()
	if err != nil {
		return Credentials{}, fmt.Errorf("redis: %w", err)
	}

	var c Credentials
	c.AccessToken, _ = vals[0].(string)
	c.RefreshToken, _ = vals[1].(string)
	if c.Empty() {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Set implements Store. Both keys change in one MULTI/EXEC.
func (r *RedisStore) Set(ctx context.Context, c Credentials) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.accessKey(), c.AccessToken, 0)
		if c.RefreshToken == "" {
			p.Del(ctx, r.refreshKey())
		} else {
			p.Set(ctx, r.refreshKey(), c.RefreshToken, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Clear implements Store.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.accessKey(), r.refreshKey()).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
