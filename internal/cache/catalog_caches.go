package cache

import (
	"context"

	"github.com/lakekeeper/catalog/internal/config"
	"github.com/lakekeeper/catalog/internal/domain"
)

// Caches bundles the four entity caches the catalog core reads through,
// each independently sized and TTL'd per config.Config.
type Caches struct {
	Warehouses *Store[domain.WarehouseID, domain.Warehouse]
	Namespaces *Store[domain.NamespaceID, domain.Namespace]
	Tabulars   *Store[domain.TabularID, domain.Tabular]
	Roles      *Store[domain.RoleID, domain.Role]

	warehousesEnabled bool
	namespacesEnabled bool
	tabularsEnabled   bool
	rolesEnabled      bool
}

// New builds the four caches from configuration. A cache whose Enabled flag
// is false is still constructed (capacity 0, which NewStore treats as no
// size cap) so call sites never nil-check; callers check the Enabled flag
// before every Get and Put, matching the teacher's pattern of leaving a
// feature's wiring in place and gating it with a bool rather than
// branching on a nil dependency.
func New(cfg config.Config) *Caches {
	return &Caches{
		Warehouses:        NewStore[domain.WarehouseID, domain.Warehouse](effectiveCapacity(cfg.WarehouseCache), cfg.WarehouseCache.TimeToLive),
		Namespaces:        NewStore[domain.NamespaceID, domain.Namespace](effectiveCapacity(cfg.NamespaceCache), cfg.NamespaceCache.TimeToLive),
		Tabulars:          NewStore[domain.TabularID, domain.Tabular](effectiveCapacity(cfg.TabularCache), cfg.TabularCache.TimeToLive),
		Roles:             NewStore[domain.RoleID, domain.Role](effectiveCapacity(cfg.RoleCache), cfg.RoleCache.TimeToLive),
		warehousesEnabled: cfg.WarehouseCache.Enabled,
		namespacesEnabled: cfg.NamespaceCache.Enabled,
		tabularsEnabled:   cfg.TabularCache.Enabled,
		rolesEnabled:      cfg.RoleCache.Enabled,
	}
}

func effectiveCapacity(c config.CacheConfig) int {
	if !c.Enabled {
		return 0
	}

	return c.Capacity
}

// NamespaceLoader reads a single namespace by id from the source of truth,
// used by AncestryChain to fill cache misses while walking upward.
type NamespaceLoader func(ctx context.Context, id domain.NamespaceID) (domain.Namespace, error)

// AncestryChain reconstructs the full parent chain of ns, root first, using
// the namespace cache where possible and falling back to load for misses.
// The authorization gate uses this to build parent-namespace context
// without one round trip per ancestor on every request (spec.md §4.3).
func (c *Caches) AncestryChain(ctx context.Context, ns domain.Namespace, load NamespaceLoader) ([]domain.Namespace, error) {
	chain := []domain.Namespace{ns}

	current := ns
	for current.ParentID != nil {
		var (
			parent domain.Namespace
			err    error
		)

		if c.namespacesEnabled {
			if cached, ok := c.Namespaces.Get(*current.ParentID, Use, 0); ok {
				parent = cached
			} else {
				parent, err = load(ctx, *current.ParentID)
				if err != nil {
					return nil, err
				}

				c.Namespaces.Put(parent.ID, parent.Name(), parent, parent.Version)
			}
		} else {
			parent, err = load(ctx, *current.ParentID)
			if err != nil {
				return nil, err
			}
		}

		chain = append([]domain.Namespace{parent}, chain...)
		current = parent
	}

	return chain, nil
}
