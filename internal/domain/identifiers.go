// Package domain holds the catalog's data model: warehouses, namespaces,
// tabulars (tables and views), roles, and the task queue entities, plus the
// invariants spec.md §3 attaches to each. It has no dependency on Postgres,
// Redis, or any adapter; internal/catalog, internal/cache, internal/authz,
// internal/commit, and internal/tasks all operate on these types.
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// WarehouseID, NamespaceID, TabularID, and TaskID are distinct UUID-backed
// id types so a warehouse id can never be passed where a tabular id is
// expected, matching the teacher's convention of typed ids per entity
// (components/ledger/internal/services uses uuid.UUID directly per field
// name; this module goes one step further with named types since the
// catalog has more entity kinds in play at any one call site).
type WarehouseID uuid.UUID
type NamespaceID uuid.UUID
type TabularID uuid.UUID
type TaskID uuid.UUID
type TaskInstanceID uuid.UUID
type RoleID uuid.UUID

func (id WarehouseID) String() string    { return uuid.UUID(id).String() }
func (id NamespaceID) String() string    { return uuid.UUID(id).String() }
func (id TabularID) String() string      { return uuid.UUID(id).String() }
func (id TaskID) String() string         { return uuid.UUID(id).String() }
func (id TaskInstanceID) String() string { return uuid.UUID(id).String() }
func (id RoleID) String() string         { return uuid.UUID(id).String() }

// TabularKind distinguishes a table from a view. Both share the Tabular
// identity space (a name collision across kinds in the same namespace is
// still a conflict) but carry different metadata payloads.
type TabularKind string

const (
	TabularKindTable TabularKind = "table"
	TabularKindView  TabularKind = "view"
)

// roleIdentifierPattern matches "provider~source_id" per spec.md §6/P9:
// provider is restricted to [a-z0-9-]+, source_id is opaque and non-empty
// and may itself contain "~"; only the first "~" separates the two.
var roleIdentifierPattern = regexp.MustCompile(`^[a-z0-9-]+~.+$`)

// RoleIdentifier is the externally-visible "provider~source_id" encoding of
// a principal's role assignment. It round-trips: ParseRoleIdentifier(s)
// .String() == s for every s it accepts.
type RoleIdentifier struct {
	Provider string
	SourceID string
}

func (r RoleIdentifier) String() string {
	return r.Provider + "~" + r.SourceID
}

// ParseRoleIdentifier validates and decomposes a role identifier. It fails
// closed: anything not matching provider~source_id with a valid provider is
// rejected rather than guessed at.
func ParseRoleIdentifier(raw string) (RoleIdentifier, error) {
	if !roleIdentifierPattern.MatchString(raw) {
		return RoleIdentifier{}, fmt.Errorf("%w: %s", perr.ErrInvalidRoleIdentifier, raw)
	}

	idx := strings.Index(raw, "~")

	return RoleIdentifier{Provider: raw[:idx], SourceID: raw[idx+1:]}, nil
}
