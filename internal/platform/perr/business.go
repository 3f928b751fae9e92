package perr

import (
	"errors"
	"fmt"
)

// Sentinel business errors. Call sites raise these (via errors.New-style
// comparison, never by constructing the perr.* kinds directly) and the
// catalog ops / commit pipeline layers run them through Translate at the
// boundary where the entity type is known. This mirrors the teacher's
// separation between a numbered sentinel vocabulary and the HTTP-shaped
// error kinds that wrap it for the wire.
var (
	ErrEntityNotFound           = errors.New("entity_not_found")
	ErrTabularAlreadyExists     = errors.New("tabular_already_exists")
	ErrNamespaceAlreadyExists   = errors.New("namespace_already_exists")
	ErrWarehouseAlreadyExists   = errors.New("warehouse_already_exists")
	ErrNamespaceNotFound        = errors.New("namespace_not_found")
	ErrWarehouseNotFound        = errors.New("warehouse_not_found")
	ErrWarehouseInactive        = errors.New("warehouse_inactive")
	ErrNamespaceNotEmpty        = errors.New("namespace_not_empty")
	ErrWarehouseNotEmpty        = errors.New("warehouse_not_empty")
	ErrResourceProtected        = errors.New("resource_protected")
	ErrNamespaceDepthExceeded   = errors.New("namespace_depth_exceeded")
	ErrInvalidRoleIdentifier    = errors.New("invalid_role_identifier")
	ErrInvalidPaginationToken   = errors.New("invalid_pagination_token")
	ErrStaleParentVersion       = errors.New("stale_parent_version")
	ErrDuplicateIdempotencyKey  = errors.New("duplicate_idempotency_key")
	ErrTaskNotFound             = errors.New("task_not_found")
	ErrConcurrentUpdate         = errors.New("concurrent_update")
)

// Translate maps a sentinel business error into the HTTP-shaped kind the
// caller should return, attaching entityType and any format args. Errors
// not recognized here pass through unchanged, exactly like the teacher's
// ValidateBusinessError default case.
//
//nolint:gocyclo
func Translate(err error, entityType string, args ...any) error {
	switch {
	case errors.Is(err, ErrEntityNotFound):
		return EntityNotFoundError{
			EntityType: entityType,
			Code:       "entity_not_found",
			Title:      "Entity Not Found",
			Message:    fmt.Sprintf("No %s was found for the given identifier.", entityType),
			Reason:     ReasonResourceNotFound,
		}
	case errors.Is(err, ErrTabularAlreadyExists):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "tabular_already_exists",
			Title:      "Tabular Already Exists",
			Message:    fmt.Sprintf("A table or view named %v already exists in this namespace.", args...),
		}
	case errors.Is(err, ErrNamespaceAlreadyExists):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "namespace_already_exists",
			Title:      "Namespace Already Exists",
			Message:    fmt.Sprintf("A namespace named %v already exists in this warehouse.", args...),
		}
	case errors.Is(err, ErrWarehouseAlreadyExists):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "warehouse_already_exists",
			Title:      "Warehouse Already Exists",
			Message:    fmt.Sprintf("A warehouse named %v already exists in this project.", args...),
		}
	case errors.Is(err, ErrNamespaceNotFound):
		return EntityNotFoundError{
			EntityType: entityType,
			Code:       "namespace_not_found",
			Title:      "Namespace Not Found",
			Message:    "The referenced namespace does not exist.",
			Reason:     ReasonResourceNotFound,
		}
	case errors.Is(err, ErrWarehouseNotFound):
		return EntityNotFoundError{
			EntityType: entityType,
			Code:       "warehouse_not_found",
			Title:      "Warehouse Not Found",
			Message:    "The referenced warehouse does not exist.",
			Reason:     ReasonResourceNotFound,
		}
	case errors.Is(err, ErrWarehouseInactive):
		return ValidationError{
			EntityType: entityType,
			Code:       "warehouse_inactive",
			Title:      "Warehouse Inactive",
			Message:    "The warehouse is inactive and cannot accept this operation.",
		}
	case errors.Is(err, ErrNamespaceNotEmpty):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "namespace_not_empty",
			Title:      "Namespace Not Empty",
			Message:    "The namespace still contains child namespaces or tabulars. Pass force to cascade, or purge to delete them.",
		}
	case errors.Is(err, ErrWarehouseNotEmpty):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "warehouse_not_empty",
			Title:      "Warehouse Not Empty",
			Message:    "The warehouse still contains tabulars or unfinished tasks. Pass force to delete an unprotected warehouse anyway.",
		}
	case errors.Is(err, ErrResourceProtected):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "resource_protected",
			Title:      "Resource Protected",
			Message:    "The resource is protected against deletion. Unset protection, or pass force, to proceed.",
		}
	case errors.Is(err, ErrNamespaceDepthExceeded):
		return ValidationError{
			EntityType: entityType,
			Code:       "namespace_depth_exceeded",
			Title:      "Namespace Depth Exceeded",
			Message:    fmt.Sprintf("Namespace depth exceeds the maximum of %v components.", args...),
		}
	case errors.Is(err, ErrInvalidRoleIdentifier):
		return ValidationError{
			EntityType: entityType,
			Code:       "invalid_role_identifier",
			Title:      "Invalid Role Identifier",
			Message:    fmt.Sprintf("%v is not a valid role identifier. Expected provider~source_id with provider matching [a-z0-9-]+.", args...),
		}
	case errors.Is(err, ErrInvalidPaginationToken):
		return ValidationError{
			EntityType: entityType,
			Code:       "invalid_pagination_token",
			Title:      "Invalid Pagination Token",
			Message:    "The provided page token is malformed or has expired.",
		}
	case errors.Is(err, ErrStaleParentVersion):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "stale_parent_version",
			Title:      "Stale Parent Version",
			Message:    "The parent namespace has changed since this reference was last observed.",
		}
	case errors.Is(err, ErrDuplicateIdempotencyKey):
		return EntityConflictError{
			EntityType: entityType,
			Code:       "duplicate_idempotency_key",
			Title:      "Duplicate Idempotency Key",
			Message:    "A task with this idempotency key already exists in this queue.",
		}
	case errors.Is(err, ErrTaskNotFound):
		return EntityNotFoundError{
			EntityType: entityType,
			Code:       "task_not_found",
			Title:      "Task Not Found",
			Message:    "No task instance matches the given id.",
			Reason:     ReasonResourceNotFound,
		}
	case errors.Is(err, ErrConcurrentUpdate):
		return ConcurrentUpdateError{EntityType: entityType, Err: err}
	default:
		return err
	}
}
