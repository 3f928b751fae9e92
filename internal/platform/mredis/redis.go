// Package mredis provides the catalog core's lazy, singleton redis
// connection, grounded on the teacher's common/mredis/redis.go: same
// ConnectionStringSource/Connect/GetDB shape, generalized from a bare
// *redis.Client field to the typed wrapper internal/cache needs for
// cross-instance cache invalidation (spec.md's "distributed lock primitive
// for tests" / "cache backend option" dependency note).
package mredis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/lakekeeper/catalog/internal/platform/mlog"
)

// Connection is a hub which deals with redis connections.
type Connection struct {
	Addr   string
	Logger mlog.Logger

	mu        sync.Mutex
	client    *redis.Client
	connected bool
}

// Connect establishes (or reuses) the singleton client.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	c.Logger.Info("connecting to redis")

	client := redis.NewClient(&redis.Options{Addr: c.Addr})

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("mredis: ping: %w", err)
	}

	c.client = client
	c.connected = true

	c.Logger.Info("connected to redis")

	return nil
}

// GetClient returns the redis client, connecting lazily if necessary.
func (c *Connection) GetClient(ctx context.Context) (*redis.Client, error) {
	c.mu.Lock()
	already := c.connected
	c.mu.Unlock()

	if !already {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}

// Close releases the underlying client, if one was ever established.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	return c.client.Close()
}
