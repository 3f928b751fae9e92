package domain

import "time"

// TabularStatus tracks the soft-delete lifecycle spec.md §4.5 drives through
// the task queue: active tables serve reads/writes, staged-for-deletion
// tables are hidden from listings but still physically present pending the
// tabular_expiration/tabular_purge tasks, and purged tabulars are gone.
type TabularStatus string

const (
	TabularStatusActive             TabularStatus = "active"
	TabularStatusStagedForDeletion  TabularStatus = "staged_for_deletion"
)

// Tabular is the shared identity row for both tables and views: one name
// inside one namespace, one current metadata location, one optimistic
// version. TableMetadata/ViewMetadata (metadata.go) hold the Iceberg-specific
// payload; Tabular holds what the catalog needs regardless of kind, mirroring
// how the teacher's Account and the catalog's Tabular both separate "the
// slot in the tree" from "the domain payload it currently holds".
type Tabular struct {
	ID          TabularID
	WarehouseID WarehouseID
	NamespaceID NamespaceID
	Kind        TabularKind
	Name        string

	MetadataLocation string
	PreviousLocation string

	Status    TabularStatus
	Protected bool

	// DeleteAfter is set when Status transitions to StagedForDeletion; the
	// tabular_expiration task becomes eligible to run once DeleteAfter has
	// elapsed (spec.md §4.5).
	DeleteAfter *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsVisible reports whether this tabular should appear in listings and be
// loadable by name. Staged-for-deletion tabulars still resolve by id for
// task-queue bookkeeping but never by name lookup.
func (t Tabular) IsVisible() bool {
	return t.Status == TabularStatusActive
}
