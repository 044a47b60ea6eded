// Package redis implements the render cache on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Cache implements mathcat.Cache using Redis. Each rule set keeps a set of
// its keys so that Invalidate can drop them together.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration of cached renders. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a cache connected to address.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: "mathcat:render:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(key string) string {
	return c.prefix + key
}

func (c *Cache) indexKey(ruleSet string) string {
	return c.prefix + "ruleset:" + ruleSet
}

// Get returns the cached output for key.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Put stores output under key and indexes it under ruleSet.
func (c *Cache) Put(ctx context.Context, key, ruleSet, output string) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(key), output, c.ttl)
	pipe.SAdd(ctx, c.indexKey(ruleSet), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Invalidate removes every render produced by ruleSet and returns how many
// were still present.
func (c *Cache) Invalidate(ctx context.Context, ruleSet string) (int64, error) {
	members, err := c.client.SMembers(ctx, c.indexKey(ruleSet)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis members: %w", err)
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, c.key(m))
	}

	var removed *backend.IntCmd
	pipe := c.client.TxPipeline()
	if len(members) > 0 {
		removed = pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, c.indexKey(ruleSet))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis invalidate: %w", err)
	}
	if removed == nil {
		return 0, nil
	}
	return removed.Val(), nil
}

// Ping checks the connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
