// Package commit implements the commit pipeline (spec.md §4.4): applying a
// sequence of TableUpdate/ViewUpdate operations to a base metadata snapshot
// after checking TableRequirement/ViewRequirement preconditions, then
// persisting the result under optimistic concurrency with jittered
// exponential backoff retries on a lost race.
//
// The teacher has no direct analogue for an apply-then-CAS pipeline; the
// retry/backoff shape is grounded on cenkalti/backoff/v4 usage patterns
// common across the example pack's service layers (see DESIGN.md), and the
// span/error plumbing follows the teacher's command-layer convention
// (internal/services/command/create-organization.go: Start span, defer
// HandleSpanError, wrap with perr at the boundary).
package commit

import (
	"fmt"
	"slices"

	"github.com/lakekeeper/catalog/internal/domain"
)

// TableUpdateKind enumerates the update operations the Iceberg REST spec
// defines for tables. The catalog core applies these in order against a
// TableMetadata value; it does not interpret the contents beyond what is
// needed to mutate the right field.
type TableUpdateKind string

const (
	TableUpdateAssignUUID           TableUpdateKind = "assign-uuid"
	TableUpdateUpgradeFormatVersion TableUpdateKind = "upgrade-format-version"
	TableUpdateAddSchema            TableUpdateKind = "add-schema"
	TableUpdateSetCurrentSchema     TableUpdateKind = "set-current-schema"
	TableUpdateAddPartitionSpec     TableUpdateKind = "add-spec"
	TableUpdateSetDefaultSpec       TableUpdateKind = "set-default-spec"
	TableUpdateAddSortOrder         TableUpdateKind = "add-sort-order"
	TableUpdateSetDefaultSortOrder  TableUpdateKind = "set-default-sort-order"
	TableUpdateAddSnapshot          TableUpdateKind = "add-snapshot"
	TableUpdateSetSnapshotRef       TableUpdateKind = "set-snapshot-ref"
	TableUpdateRemoveSnapshots      TableUpdateKind = "remove-snapshots"
	TableUpdateRemoveSnapshotRef    TableUpdateKind = "remove-snapshot-ref"
	TableUpdateSetLocation          TableUpdateKind = "set-location"
	TableUpdateSetProperties        TableUpdateKind = "set-properties"
	TableUpdateRemoveProperties     TableUpdateKind = "remove-properties"
)

// TableUpdate is one step of a table commit's update list.
type TableUpdate struct {
	Kind TableUpdateKind

	UUID string // assign-uuid

	FormatVersion int // upgrade-format-version

	Schema     domain.Schema // add-schema
	SchemaID   int           // set-current-schema (or -1 for "last added")

	PartitionSpec domain.PartitionSpec // add-spec
	SpecID        int                  // set-default-spec (or -1 for "last added")

	SortOrder domain.SortOrder // add-sort-order
	SortOrderID int            // set-default-sort-order (or -1 for "last added")

	Snapshot   domain.Snapshot // add-snapshot
	RefName    string          // set-snapshot-ref / remove-snapshot-ref
	SnapshotID int64           // set-snapshot-ref

	SnapshotIDsToRemove []int64 // remove-snapshots

	Location string // set-location

	Properties       map[string]string // set-properties
	PropertiesToDrop []string          // remove-properties
}

// ApplyTableUpdates applies updates in order to a copy of base, returning
// the resulting metadata. It never mutates base. An update referencing a
// schema/spec/sort-order id that does not exist is a ValidationError,
// surfaced via perr at the caller boundary (ApplyTableUpdates returns plain
// errors; CommitTable and CommitTransactionAtomic wrap them).
func ApplyTableUpdates(base domain.TableMetadata, updates []TableUpdate) (domain.TableMetadata, error) {
	m := cloneTableMetadata(base)

	for _, u := range updates {
		if err := applyTableUpdate(&m, u); err != nil {
			return domain.TableMetadata{}, fmt.Errorf("apply %s: %w", u.Kind, err)
		}
	}

	return m, nil
}

func applyTableUpdate(m *domain.TableMetadata, u TableUpdate) error {
	switch u.Kind {
	case TableUpdateAssignUUID:
		if m.TableUUID != "" && m.TableUUID != u.UUID {
			return fmt.Errorf("table uuid already assigned")
		}

		m.TableUUID = u.UUID
	case TableUpdateUpgradeFormatVersion:
		if u.FormatVersion < m.FormatVersion {
			return fmt.Errorf("cannot downgrade format version %d to %d", m.FormatVersion, u.FormatVersion)
		}

		m.FormatVersion = u.FormatVersion
	case TableUpdateAddSchema:
		m.LastColumnID = maxFieldID(u.Schema, m.LastColumnID)
		m.Schemas = append(m.Schemas, u.Schema)
	case TableUpdateSetCurrentSchema:
		id := resolveLastAdded(u.SchemaID, func() int {
			if len(m.Schemas) == 0 {
				return -1
			}

			return m.Schemas[len(m.Schemas)-1].SchemaID
		}, m.Schemas, func(s domain.Schema) int { return s.SchemaID })
		if !containsSchemaID(m.Schemas, id) {
			return fmt.Errorf("unknown schema id %d", id)
		}

		m.CurrentSchemaID = id
	case TableUpdateAddPartitionSpec:
		m.PartitionSpecs = append(m.PartitionSpecs, u.PartitionSpec)
	case TableUpdateSetDefaultSpec:
		id := u.SpecID
		if id == -1 && len(m.PartitionSpecs) > 0 {
			id = m.PartitionSpecs[len(m.PartitionSpecs)-1].SpecID
		}

		if !slices.ContainsFunc(m.PartitionSpecs, func(s domain.PartitionSpec) bool { return s.SpecID == id }) {
			return fmt.Errorf("unknown partition spec id %d", id)
		}

		m.DefaultSpecID = id
	case TableUpdateAddSortOrder:
		m.SortOrders = append(m.SortOrders, u.SortOrder)
	case TableUpdateSetDefaultSortOrder:
		id := u.SortOrderID
		if id == -1 && len(m.SortOrders) > 0 {
			id = m.SortOrders[len(m.SortOrders)-1].OrderID
		}

		if !slices.ContainsFunc(m.SortOrders, func(s domain.SortOrder) bool { return s.OrderID == id }) {
			return fmt.Errorf("unknown sort order id %d", id)
		}

		m.DefaultSortOrderID = id
	case TableUpdateAddSnapshot:
		m.Snapshots = append(m.Snapshots, u.Snapshot)
		m.LastSequenceNumber = u.Snapshot.SequenceNumber
	case TableUpdateSetSnapshotRef:
		if u.RefName == "main" {
			id := u.SnapshotID
			m.CurrentSnapshotID = &id
			m.SnapshotLog = append(m.SnapshotLog, domain.SnapshotLogEntry{SnapshotID: id})
		}
	case TableUpdateRemoveSnapshots:
		m.Snapshots = removeSnapshots(m.Snapshots, u.SnapshotIDsToRemove)
	case TableUpdateRemoveSnapshotRef:
		if u.RefName == "main" {
			m.CurrentSnapshotID = nil
		}
	case TableUpdateSetLocation:
		m.Location = u.Location
	case TableUpdateSetProperties:
		if m.Properties == nil {
			m.Properties = map[string]string{}
		}

		for k, v := range u.Properties {
			m.Properties[k] = v
		}
	case TableUpdateRemoveProperties:
		for _, k := range u.PropertiesToDrop {
			delete(m.Properties, k)
		}
	default:
		return fmt.Errorf("unknown table update kind %q", u.Kind)
	}

	return nil
}

func cloneTableMetadata(m domain.TableMetadata) domain.TableMetadata {
	out := m
	out.Schemas = append([]domain.Schema{}, m.Schemas...)
	out.PartitionSpecs = append([]domain.PartitionSpec{}, m.PartitionSpecs...)
	out.SortOrders = append([]domain.SortOrder{}, m.SortOrders...)
	out.Snapshots = append([]domain.Snapshot{}, m.Snapshots...)
	out.SnapshotLog = append([]domain.SnapshotLogEntry{}, m.SnapshotLog...)

	out.Properties = make(map[string]string, len(m.Properties))
	for k, v := range m.Properties {
		out.Properties[k] = v
	}

	return out
}

func maxFieldID(s domain.Schema, current int) int {
	max := current
	for _, f := range s.Fields {
		if f.ID > max {
			max = f.ID
		}
	}

	return max
}

func containsSchemaID(schemas []domain.Schema, id int) bool {
	for _, s := range schemas {
		if s.SchemaID == id {
			return true
		}
	}

	return false
}

func resolveLastAdded(requested int, lastAdded func() int, _ []domain.Schema, _ func(domain.Schema) int) int {
	if requested == -1 {
		return lastAdded()
	}

	return requested
}

func removeSnapshots(snapshots []domain.Snapshot, ids []int64) []domain.Snapshot {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	out := make([]domain.Snapshot, 0, len(snapshots))

	for _, s := range snapshots {
		if !drop[s.SnapshotID] {
			out = append(out, s)
		}
	}

	return out
}
