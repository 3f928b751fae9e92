// Package mpg wraps a single Postgres connection pool behind a lazy-connect
// accessor, the same shape as the teacher's common/mpostgres package. The
// teacher also carried a primary/replica dbresolver split and a
// golang-migrate CLI binding; both are dropped here (see DESIGN.md) since
// this module ships no bundled migrations and every catalog-ops repository
// talks to a single pool.
package mpg

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/lakekeeper/catalog/internal/platform/mlog"
)

// Connection lazily opens and memoizes a *sql.DB for a single DSN. Connect
// is safe to call repeatedly and from multiple goroutines; the underlying
// *sql.DB is opened exactly once.
type Connection struct {
	ConnectionString string
	Logger           mlog.Logger

	MaxOpenConns int
	MaxIdleConns int

	mu        sync.Mutex
	db        *sql.DB
	connected bool
}

// Connect opens the pool if it has not been opened yet and pings it.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	db, err := sql.Open("pgx", c.ConnectionString)
	if err != nil {
		return fmt.Errorf("mpg: open: %w", err)
	}

	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}

	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("mpg: ping: %w", err)
	}

	c.db = db
	c.connected = true

	if c.Logger != nil {
		c.Logger.Info("mpg: connected to postgres")
	}

	return nil
}

// GetDB returns the pool, connecting it first if needed.
func (c *Connection) GetDB(ctx context.Context) (*sql.DB, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	return c.db, nil
}

// Close closes the underlying pool, if open.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}

	c.connected = false

	return c.db.Close()
}
