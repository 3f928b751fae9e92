package domain

import (
	"strings"
	"time"
)

// Namespace is a node in the per-warehouse namespace tree. The Iceberg REST
// spec represents a namespace as an ordered list of levels ("a", "b", "c");
// the catalog stores that list plus a self-referential ParentID so ancestry
// can be walked without re-parsing the level list.
type Namespace struct {
	ID          NamespaceID
	WarehouseID WarehouseID
	ParentID    *NamespaceID
	Levels      []string

	PropertiesJSON []byte
	Protected      bool

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Depth is the number of levels, i.e. how far below the warehouse root this
// namespace sits. A depth of 1 is a top-level namespace.
func (n Namespace) Depth() int { return len(n.Levels) }

// Name joins the levels with the separator used for cache keys and
// human-readable logging. The wire format (a JSON array, or a
// unit-separator-joined path segment per the Iceberg REST spec) is a
// concern of the layer above the catalog core.
func (n Namespace) Name() string { return strings.Join(n.Levels, ".") }

// IsRootOf reports whether n is an ancestor of, or equal to, candidate,
// based on level-list prefix matching. Used by the authorization gate to
// build a parent-namespace ancestry context without extra round trips.
func (n Namespace) IsRootOf(candidate Namespace) bool {
	if len(n.Levels) > len(candidate.Levels) {
		return false
	}

	for i, level := range n.Levels {
		if candidate.Levels[i] != level {
			return false
		}
	}

	return true
}
