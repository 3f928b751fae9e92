// Package catalog implements the catalog operations layer (spec.md §4.1):
// typed CRUD plus bulk-read operations over warehouses, namespaces, and
// tabulars, structural invariant enforcement (namespace depth, name
// uniqueness, active-warehouse gating), and backend-error-to-taxonomy
// translation at the Postgres boundary.
//
// Grounded on the teacher's repository pattern
// (internal/adapters/database/postgres/organization.postgresql.go):
// squirrel query builder over database/sql, a FromEntity/ToEntity-shaped
// row scan, app.ValidatePGError at the constraint boundary, and a
// UseCase struct in command.go/query.go aggregating narrow repository
// interfaces the way components/ledger's command.UseCase does.
package catalog

import (
	"context"
	"time"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/pagination"
)

// WarehouseRepository is the persistence seam for warehouses.
type WarehouseRepository interface {
	Create(ctx context.Context, w domain.Warehouse) (domain.Warehouse, error)
	Get(ctx context.Context, id domain.WarehouseID) (domain.Warehouse, error)
	GetByName(ctx context.Context, projectID, name string) (domain.Warehouse, error)
	UpdateStatus(ctx context.Context, id domain.WarehouseID, status domain.WarehouseStatus, expectedVersion int64) error
	SetProtected(ctx context.Context, id domain.WarehouseID, protected bool, expectedVersion int64) error
	Delete(ctx context.Context, id domain.WarehouseID, force bool) error
	List(ctx context.Context, projectID string, cursor string, limit int) (pagination.Page[domain.Warehouse], error)
}

// NamespaceRepository is the persistence seam for namespaces.
type NamespaceRepository interface {
	Create(ctx context.Context, n domain.Namespace) (domain.Namespace, error)
	Get(ctx context.Context, id domain.NamespaceID) (domain.Namespace, error)
	GetByLevels(ctx context.Context, warehouseID domain.WarehouseID, levels []string) (domain.Namespace, error)
	UpdateProperties(ctx context.Context, id domain.NamespaceID, properties map[string]string, expectedVersion int64) error
	SetProtected(ctx context.Context, id domain.NamespaceID, protected bool, expectedVersion int64) error
	Delete(ctx context.Context, id domain.NamespaceID, force bool) error
	IsEmpty(ctx context.Context, id domain.NamespaceID) (bool, error)
	List(ctx context.Context, warehouseID domain.WarehouseID, parentID *domain.NamespaceID, cursor string, limit int) (pagination.Page[domain.Namespace], error)
}

// TabularRepository is the persistence seam for tables and views.
type TabularRepository interface {
	Create(ctx context.Context, t domain.Tabular) (domain.Tabular, error)
	Get(ctx context.Context, id domain.TabularID) (domain.Tabular, error)
	GetByName(ctx context.Context, namespaceID domain.NamespaceID, kind domain.TabularKind, name string) (domain.Tabular, error)
	ListByIDs(ctx context.Context, ids []domain.TabularID) ([]domain.Tabular, error)
	Rename(ctx context.Context, id domain.TabularID, newNamespaceID domain.NamespaceID, newName string, expectedVersion int64) error
	StageForDeletion(ctx context.Context, id domain.TabularID, expectedVersion int64) error
	SetProtected(ctx context.Context, id domain.TabularID, protected bool, expectedVersion int64) error
	Purge(ctx context.Context, id domain.TabularID) error
	List(ctx context.Context, namespaceID domain.NamespaceID, kind domain.TabularKind, cursor string, limit int) (pagination.Page[domain.Tabular], error)

	// ListExpired returns staged-for-deletion tabulars whose DeleteAfter has
	// elapsed as of before, capped at limit. The tabular_expiration_sweep
	// cron job drives expiration off this rather than scanning on every
	// worker poll.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Tabular, error)
}
