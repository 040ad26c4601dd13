package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/GoCodeAlone/servicetest/logging"
)

// Observer is told about every Get, with whether it hit.
type Observer func(hit bool)

// Cache is a Redis backed key/value cache bound to a service's lifecycle.
type Cache struct {
	config   Config
	logger   logging.Logger
	observer Observer

	mu       sync.RWMutex
	client   *redis.Client
	embedded *miniredis.Miniredis
}

// NewCache creates a cache that connects on Start. observer may be nil.
func NewCache(cfg Config, logger logging.Logger, observer Observer) *Cache {
	return &Cache{
		config:   cfg,
		logger:   logging.OrNop(logger),
		observer: observer,
	}
}

// Start connects to the configured server, starting an embedded one first
// when no address is configured.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return ErrAlreadyConnected
	}

	addr := c.config.Address
	var embedded *miniredis.Miniredis
	if addr == "" {
		var err error
		embedded, err = miniredis.Run()
		if err != nil {
			return fmt.Errorf("failed to start embedded redis: %w", err)
		}
		if c.config.Password != "" {
			embedded.RequireAuth(c.config.Password)
		}
		addr = embedded.Addr()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    c.config.Password,
		DB:          c.config.DB,
		DialTimeout: c.config.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if embedded != nil {
			embedded.Close()
		}
		return fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	c.client = client
	c.embedded = embedded
	c.logger.Info("Cache connected", "address", addr, "embedded", embedded != nil)
	return nil
}

// Stop closes the client and the embedded server.
func (c *Cache) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return ErrNotConnected
	}
	err := c.client.Close()
	if c.embedded != nil {
		c.embedded.Close()
	}
	c.client, c.embedded = nil, nil
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	c.logger.Info("Cache closed")
	return nil
}

func (c *Cache) conn() (*redis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

func (c *Cache) key(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	return c.config.KeyPrefix + key, nil
}

// Get returns the value stored under key and whether it exists.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := c.conn()
	if err != nil {
		return "", false, err
	}
	k, err := c.key(key)
	if err != nil {
		return "", false, err
	}

	value, err := client.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		c.observe(false)
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("cache get %q: %w", key, err)
	}
	c.observe(true)
	return value, true, nil
}

// Set stores value under key. A zero ttl uses the configured default.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	client, err := c.conn()
	if err != nil {
		return err
	}
	k, err := c.key(key)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}
	if err := client.Set(ctx, k, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	client, err := c.conn()
	if err != nil {
		return err
	}
	k, err := c.key(key)
	if err != nil {
		return err
	}
	if err := client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

// Flush removes every key of the selected database.
func (c *Cache) Flush(ctx context.Context) error {
	client, err := c.conn()
	if err != nil {
		return err
	}
	return client.FlushDB(ctx).Err()
}

// Client returns the underlying Redis client while the cache is started.
func (c *Cache) Client() (*redis.Client, error) {
	return c.conn()
}

// Embedded returns the embedded server, if one is running. Tests use it to
// inspect keys or move its clock with FastForward.
func (c *Cache) Embedded() (*miniredis.Miniredis, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embedded, c.embedded != nil
}

func (c *Cache) observe(hit bool) {
	if c.observer != nil {
		c.observer(hit)
	}
}
