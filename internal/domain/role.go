package domain

import "time"

// Role binds a principal (identified by a RoleIdentifier sourced from an
// external IdP/provider) to a named role within a project. The catalog core
// does not interpret role names or enforce a fixed role vocabulary; the
// authorization gate (internal/authz) is the sole consumer of this
// assignment, and a concrete Authorizer implementation (out of scope here,
// per spec.md's Non-goals) owns what each role name grants.
type Role struct {
	ID         RoleID
	ProjectID  string
	Identifier RoleIdentifier
	RoleName   string

	CreatedAt time.Time
	UpdatedAt time.Time
}
