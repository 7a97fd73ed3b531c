package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Redis is a Repository backed by a Redis instance. Used when several
// worker instances need to share learned state.
type Redis struct {
	pool      *redis.Pool
	keyPrefix string
}

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	Addr      string
	Password  string
	KeyPrefix string
	MaxIdle   int
}

// NewRedis creates a Redis-backed repository and verifies connectivity.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 4
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "pathlight:"
	}

	pool := &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 4 * time.Minute,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialConnectTimeout(2 * time.Second)}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.Dial("tcp", cfg.Addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	conn := pool.Get()
	defer func() { _ = conn.Close() }()
	if _, err := conn.Do("PING"); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{pool: pool, keyPrefix: prefix}, nil
}

// Load returns the record stored under key, or ErrNotFound.
func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, wrap("load", key, err)
	}
	defer func() { _ = conn.Close() }()

	value, err := redis.Bytes(conn.Do("GET", r.keyPrefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("load", key, err)
	}
	return value, nil
}

// Save stores the record under key.
func (r *Redis) Save(ctx context.Context, key string, value []byte) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return wrap("save", key, err)
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Do("SET", r.keyPrefix+key, value)
	return wrap("save", key, err)
}

// Delete removes the record under key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return wrap("delete", key, err)
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Do("DEL", r.keyPrefix+key)
	return wrap("delete", key, err)
}

// Keys lists stored keys with the given prefix using incremental SCAN.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, wrap("keys", prefix, err)
	}
	defer func() { _ = conn.Close() }()

	pattern := r.keyPrefix + prefix + "*"
	var keys []string
	cursor := 0
	for {
		values, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", pattern, "COUNT", 100))
		if err != nil {
			return nil, wrap("keys", prefix, err)
		}
		var batch []string
		if _, err := redis.Scan(values, &cursor, &batch); err != nil {
			return nil, wrap("keys", prefix, err)
		}
		for _, k := range batch {
			keys = append(keys, k[len(r.keyPrefix):])
		}
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}
