package mpg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// ValidatePGError mirrors the teacher's services.ValidatePGError: it
// inspects a *pgconn.PgError's constraint name and SQLSTATE and returns the
// matching perr sentinel so callers can run it through perr.Translate with
// the right entityType. Constraint names are the catalog schema's, not the
// teacher's ledger schema.
func ValidatePGError(err error, entityType string, args ...any) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.ConstraintName {
	case "tabular_warehouse_id_namespace_id_name_key":
		return perr.Translate(perr.ErrTabularAlreadyExists, entityType, args...)
	case "namespace_warehouse_id_namespace_name_key":
		return perr.Translate(perr.ErrNamespaceAlreadyExists, entityType, args...)
	case "warehouse_project_id_warehouse_name_key":
		return perr.Translate(perr.ErrWarehouseAlreadyExists, entityType, args...)
	case "task_queue_name_idempotency_key_key":
		return perr.Translate(perr.ErrDuplicateIdempotencyKey, entityType, args...)
	case "tabular_namespace_id_fkey", "namespace_parent_namespace_id_fkey":
		return perr.Translate(perr.ErrNamespaceNotFound, entityType, args...)
	case "namespace_warehouse_id_fkey", "tabular_warehouse_id_fkey":
		return perr.Translate(perr.ErrWarehouseNotFound, entityType, args...)
	}

	switch pgErr.Code {
	case "23505": // unique_violation, unmapped constraint
		return perr.EntityConflictError{EntityType: entityType, Code: "unique_violation", Message: pgErr.Message, Err: err}
	case "23503": // foreign_key_violation, unmapped constraint
		return perr.EntityNotFoundError{EntityType: entityType, Code: "foreign_key_violation", Message: pgErr.Message, Reason: perr.ReasonResourceNotFound, Err: err}
	default:
		return perr.InternalServerError{EntityType: entityType, Code: "postgres_error", Message: pgErr.Message, Err: err}
	}
}
