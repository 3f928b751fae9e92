package domain

import "time"

// WarehouseStatus controls whether a warehouse accepts mutating catalog
// operations. An inactive warehouse still serves reads so existing readers
// are not broken mid-migration.
type WarehouseStatus string

const (
	WarehouseStatusActive   WarehouseStatus = "active"
	WarehouseStatusInactive WarehouseStatus = "inactive"
)

// Warehouse is the top-level container: one storage profile, one secret
// (optional, for storage credentials), and a tree of namespaces below it.
type Warehouse struct {
	ID        WarehouseID
	ProjectID string
	Name      string
	Status    WarehouseStatus

	// StorageProfileJSON and SecretID are opaque to the catalog core: the
	// concrete storage profile type and secret persistence mechanism are
	// interface-only per spec.md's Non-goals (internal/storage,
	// internal/secrets). The catalog stores the profile's serialized form
	// and a pointer to where its secret lives, nothing more.
	StorageProfileJSON []byte
	SecretID           *string

	Protected bool

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether mutating operations may target this warehouse.
func (w Warehouse) IsActive() bool {
	return w.Status == WarehouseStatusActive
}
