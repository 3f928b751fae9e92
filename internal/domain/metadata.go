package domain

// TableMetadata is the catalog's materialized view of an Iceberg table's
// metadata.json: enough structure for the commit pipeline to apply updates
// and enforce requirements without parsing the full Iceberg spec. Field
// naming follows the vocabulary of github.com/apache/iceberg-go's table
// package (Schema, Spec/PartitionSpec, SortOrder, Properties, Location,
// CurrentSnapshot) so a reader familiar with that library recognizes the
// shape immediately; this module does not import it; see DESIGN.md.
type TableMetadata struct {
	FormatVersion int
	TableUUID     string
	Location      string

	CurrentSchemaID int
	Schemas         []Schema

	DefaultSpecID int
	PartitionSpecs []PartitionSpec

	DefaultSortOrderID int
	SortOrders         []SortOrder

	Properties map[string]string

	CurrentSnapshotID *int64
	Snapshots         []Snapshot
	SnapshotLog       []SnapshotLogEntry

	LastUpdatedMillis  int64
	LastColumnID       int
	LastPartitionID    int
	LastSequenceNumber int64
}

// Schema is a single schema revision in a table's schema history.
type Schema struct {
	SchemaID int
	Fields   []SchemaField
}

// SchemaField is one column in a Schema.
type SchemaField struct {
	ID       int
	Name     string
	Type     string
	Required bool
}

// PartitionSpec is a single partition spec revision.
type PartitionSpec struct {
	SpecID int
	Fields []PartitionField
}

// PartitionField is one transform applied to a source column.
type PartitionField struct {
	SourceID  int
	FieldID   int
	Name      string
	Transform string
}

// SortOrder is a single sort order revision.
type SortOrder struct {
	OrderID int
	Fields  []SortField
}

// SortField orders by one source column.
type SortField struct {
	SourceID  int
	Transform string
	Direction string
	NullOrder string
}

// Snapshot is one committed point-in-time state of the table.
type Snapshot struct {
	SnapshotID       int64
	ParentSnapshotID *int64
	SequenceNumber   int64
	TimestampMillis  int64
	ManifestList     string
	Summary          map[string]string
	SchemaID         *int
}

// SnapshotLogEntry records when a snapshot became current, for time-travel
// and audit queries.
type SnapshotLogEntry struct {
	TimestampMillis int64
	SnapshotID      int64
}

// ViewVersion is the view analogue of Snapshot: one point-in-time
// definition (query representation plus the schema it resolves against).
type ViewVersion struct {
	VersionID       int
	SchemaID        int
	TimestampMillis int64
	Summary         map[string]string
	Representations []ViewRepresentation
	DefaultCatalog  string
	DefaultNamespace []string
}

// ViewRepresentation is one SQL dialect's rendering of a view's query.
type ViewRepresentation struct {
	Dialect string
	SQL     string
}

// ViewMetadata is the view analogue of TableMetadata.
type ViewMetadata struct {
	FormatVersion int
	ViewUUID      string
	Location      string

	CurrentVersionID int
	Versions         []ViewVersion
	VersionLog       []ViewVersionLogEntry

	CurrentSchemaID int
	Schemas         []Schema

	Properties map[string]string
}

// ViewVersionLogEntry records when a version became current.
type ViewVersionLogEntry struct {
	TimestampMillis int64
	VersionID       int
}
