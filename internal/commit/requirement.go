package commit

import (
	"fmt"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// TableRequirementKind enumerates the preconditions the Iceberg REST spec
// lets a commit assert against the base metadata before applying updates.
type TableRequirementKind string

const (
	RequireTableUUID            TableRequirementKind = "assert-table-uuid"
	RequireCurrentSchemaID      TableRequirementKind = "assert-current-schema-id"
	RequireDefaultSpecID        TableRequirementKind = "assert-default-spec-id"
	RequireDefaultSortOrderID   TableRequirementKind = "assert-default-sort-order-id"
	RequireCurrentSnapshotID    TableRequirementKind = "assert-ref-snapshot-id"
	RequireLastAssignedFieldID  TableRequirementKind = "assert-last-assigned-field-id"
	RequireLastAssignedPartID   TableRequirementKind = "assert-last-assigned-partition-id"
	RequireTableNotExists       TableRequirementKind = "assert-create"
)

// TableRequirement is one precondition checked against the base metadata
// before a table commit's updates are applied.
type TableRequirement struct {
	Kind TableRequirementKind

	UUID     string
	SchemaID int
	SpecID   int
	OrderID  int
	RefName  string
	// SnapshotID is nil when the requirement asserts the ref is unset.
	SnapshotID      *int64
	LastFieldID     int
	LastPartitionID int
}

// CheckTableRequirements verifies every requirement against base, in order,
// returning the first violation as a perr.FailedPreconditionError (or, for
// assert-create, a perr.EntityConflictError, matching the Iceberg REST
// spec's distinct status code for that case). A nil slice passes trivially.
func CheckTableRequirements(base domain.TableMetadata, tableExists bool, reqs []TableRequirement) error {
	for _, r := range reqs {
		if err := checkTableRequirement(base, tableExists, r); err != nil {
			return err
		}
	}

	return nil
}

func checkTableRequirement(base domain.TableMetadata, tableExists bool, r TableRequirement) error {
	fail := func(format string, args ...any) error {
		return perr.FailedPreconditionError{
			RequirementType: string(r.Kind),
			Code:            string(r.Kind),
			Title:           "Commit Requirement Failed",
			Message:         fmt.Sprintf(format, args...),
		}
	}

	switch r.Kind {
	case RequireTableNotExists:
		if tableExists {
			return perr.EntityConflictError{
				Code:    "tabular_already_exists",
				Title:   "Tabular Already Exists",
				Message: "assert-create requirement failed: table already exists",
			}
		}
	case RequireTableUUID:
		if base.TableUUID != r.UUID {
			return fail("table UUID does not match %q", r.UUID)
		}
	case RequireCurrentSchemaID:
		if base.CurrentSchemaID != r.SchemaID {
			return fail("current schema id %d does not match %d", base.CurrentSchemaID, r.SchemaID)
		}
	case RequireDefaultSpecID:
		if base.DefaultSpecID != r.SpecID {
			return fail("default spec id %d does not match %d", base.DefaultSpecID, r.SpecID)
		}
	case RequireDefaultSortOrderID:
		if base.DefaultSortOrderID != r.OrderID {
			return fail("default sort order id %d does not match %d", base.DefaultSortOrderID, r.OrderID)
		}
	case RequireCurrentSnapshotID:
		switch {
		case r.SnapshotID == nil && base.CurrentSnapshotID != nil:
			return fail("ref %q is not unset", r.RefName)
		case r.SnapshotID != nil && base.CurrentSnapshotID == nil:
			return fail("ref %q is unset", r.RefName)
		case r.SnapshotID != nil && base.CurrentSnapshotID != nil && *r.SnapshotID != *base.CurrentSnapshotID:
			return fail("ref %q snapshot id %d does not match %d", r.RefName, *base.CurrentSnapshotID, *r.SnapshotID)
		}
	case RequireLastAssignedFieldID:
		if base.LastColumnID != r.LastFieldID {
			return fail("last assigned field id %d does not match %d", base.LastColumnID, r.LastFieldID)
		}
	case RequireLastAssignedPartID:
		if base.LastPartitionID != r.LastPartitionID {
			return fail("last assigned partition id %d does not match %d", base.LastPartitionID, r.LastPartitionID)
		}
	default:
		return fail("unknown requirement kind %q", r.Kind)
	}

	return nil
}

// ViewRequirementKind is the view analogue of TableRequirementKind; the
// Iceberg REST spec currently defines only the uuid assertion and the
// create-only assertion for views.
type ViewRequirementKind string

const (
	RequireViewUUID     ViewRequirementKind = "assert-view-uuid"
	RequireViewNotExist ViewRequirementKind = "assert-create"
)

// ViewRequirement is one precondition checked against the base view
// metadata before a view commit's updates are applied.
type ViewRequirement struct {
	Kind ViewRequirementKind
	UUID string
}

// CheckViewRequirements is the view analogue of CheckTableRequirements.
func CheckViewRequirements(base domain.ViewMetadata, viewExists bool, reqs []ViewRequirement) error {
	for _, r := range reqs {
		switch r.Kind {
		case RequireViewNotExist:
			if viewExists {
				return perr.EntityConflictError{
					Code:    "tabular_already_exists",
					Title:   "Tabular Already Exists",
					Message: "assert-create requirement failed: view already exists",
				}
			}
		case RequireViewUUID:
			if base.ViewUUID != r.UUID {
				return perr.FailedPreconditionError{
					RequirementType: string(r.Kind),
					Code:            string(r.Kind),
					Title:           "Commit Requirement Failed",
					Message:         fmt.Sprintf("view UUID does not match %q", r.UUID),
				}
			}
		default:
			return perr.FailedPreconditionError{
				RequirementType: string(r.Kind),
				Code:            string(r.Kind),
				Title:           "Commit Requirement Failed",
				Message:         fmt.Sprintf("unknown requirement kind %q", r.Kind),
			}
		}
	}

	return nil
}
