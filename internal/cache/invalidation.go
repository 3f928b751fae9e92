package cache

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/mredis"
)

// invalidationChannel is the single redis pub/sub channel every catalogd
// replica subscribes to. Messages are "<kind>:<id>" pairs; kind matches one
// of the constants below.
const invalidationChannel = "lakekeeper.cache.invalidate"

const (
	kindWarehouse = "warehouse"
	kindNamespace = "namespace"
	kindTabular   = "tabular"
	kindRole      = "role"
)

// Bus publishes and receives cross-replica cache invalidation messages over
// redis pub/sub. Each catalogd process runs its own in-process Caches (see
// catalog_caches.go); without a bus, a write handled by replica A would
// leave replica B serving a stale entry until that entry's TTL lapses. A
// Bus is optional — spec.md lists redis as a cache backend option, not a
// hard requirement, so Caches works standalone with nil Bus.
type Bus struct {
	conn   *mredis.Connection
	logger mlog.Logger
}

// NewBus wires a Bus over an existing redis connection.
func NewBus(conn *mredis.Connection, logger mlog.Logger) *Bus {
	return &Bus{conn: conn, logger: logger}
}

// Run subscribes to the invalidation channel and applies incoming messages
// to caches until ctx is cancelled. Intended to run in its own goroutine,
// mirroring the Dispatcher.Run shape in internal/events.
func (b *Bus) Run(ctx context.Context, caches *Caches) error {
	client, err := b.conn.GetClient(ctx)
	if err != nil {
		return err
	}

	sub := client.Subscribe(ctx, invalidationChannel)
	defer sub.Close() //nolint:errcheck

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			caches.applyRemoteInvalidation(msg.Payload)
		}
	}
}

func (b *Bus) publish(ctx context.Context, kind, id string) {
	client, err := b.conn.GetClient(ctx)
	if err != nil {
		b.logger.Warnf("cache: redis unavailable, skipping invalidation broadcast: %v", err)
		return
	}

	if err := client.Publish(ctx, invalidationChannel, kind+":"+id).Err(); err != nil {
		b.logger.Warnf("cache: failed to publish invalidation: %v", err)
	}
}

// PublishWarehouse broadcasts that a warehouse entry changed out from under
// this replica's cache and every other replica should drop its copy.
func (b *Bus) PublishWarehouse(ctx context.Context, id domain.WarehouseID) {
	b.publish(ctx, kindWarehouse, id.String())
}

// PublishNamespace broadcasts a namespace invalidation.
func (b *Bus) PublishNamespace(ctx context.Context, id domain.NamespaceID) {
	b.publish(ctx, kindNamespace, id.String())
}

// PublishTabular broadcasts a tabular invalidation.
func (b *Bus) PublishTabular(ctx context.Context, id domain.TabularID) {
	b.publish(ctx, kindTabular, id.String())
}

// PublishRole broadcasts a role invalidation.
func (b *Bus) PublishRole(ctx context.Context, id domain.RoleID) {
	b.publish(ctx, kindRole, id.String())
}

func (c *Caches) applyRemoteInvalidation(payload string) {
	kind, rawID, found := strings.Cut(payload, ":")
	if !found {
		return
	}

	switch kind {
	case kindWarehouse:
		if id, err := parseUUID[domain.WarehouseID](rawID); err == nil {
			c.Warehouses.Invalidate(id)
		}
	case kindNamespace:
		if id, err := parseUUID[domain.NamespaceID](rawID); err == nil {
			c.Namespaces.Invalidate(id)
		}
	case kindTabular:
		if id, err := parseUUID[domain.TabularID](rawID); err == nil {
			c.Tabulars.Invalidate(id)
		}
	case kindRole:
		if id, err := parseUUID[domain.RoleID](rawID); err == nil {
			c.Roles.Invalidate(id)
		}
	}
}

func parseUUID[T ~[16]byte](s string) (T, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		var zero T
		return zero, err
	}

	return T(u), nil
}
