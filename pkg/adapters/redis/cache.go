package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/convo/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Cache implements ports.StateCache using Redis.
// Entries are JSON documents; a sorted set indexes version IDs by expiry.
type Cache struct {
	client *backend.Client
	ttl    time.Duration
	prefix string
}

// Option configures the Redis cache.
type Option func(*Cache)

// WithTTL sets the expiration of cached states. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix. The default is "convo:state:".
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New connects to addr and creates a cache.
func New(addr, password string, db int, opts ...Option) *Cache {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a cache on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: "convo:state:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client returns the underlying Redis client, e.g. to share it with a Locker.
func (c *Cache) Client() *backend.Client {
	return c.client
}

// Prefix returns the key prefix of the cache.
func (c *Cache) Prefix() string {
	return c.prefix
}

func (c *Cache) key(versionID string) string {
	return c.prefix + versionID
}

func (c *Cache) indexKey() string {
	return c.prefix + "index"
}

// Set stores state under versionID and records it in the index.
func (c *Cache) Set(ctx context.Context, versionID string, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	score := float64(0)
	if c.ttl > 0 {
		score = float64(time.Now().Add(c.ttl).Unix())
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(versionID), data, c.ttl)
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: score, Member: versionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache state: %w", err)
	}
	return nil
}

// Get returns the cached state or domain.ErrStateNotCached.
func (c *Cache) Get(ctx context.Context, versionID string) (*domain.State, error) {
	data, err := c.client.Get(ctx, c.key(versionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrStateNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached state: %w", err)
	}
	return state.Clone(), nil
}

// Delete removes the entry and its index member.
func (c *Cache) Delete(ctx context.Context, versionID string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.key(versionID))
	pipe.ZRem(ctx, c.indexKey(), versionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cached state: %w", err)
	}
	return nil
}

// Versions lists the cached version IDs. Expired members are pruned from the
// index first; entries cached without TTL have score 0 and are never pruned.
func (c *Cache) Versions(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "1", now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune index: %w", err)
	}
	ids, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list index: %w", err)
	}
	return ids, nil
}
