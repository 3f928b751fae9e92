package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/pagination"
	"github.com/lakekeeper/catalog/internal/platform/mpg"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// PostgresTabularRepository implements TabularRepository over the tabular
// table, shared by both tables and views (distinguished by the kind
// column), mirroring the teacher's repository shape.
type PostgresTabularRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewPostgresTabularRepository(db *sql.DB) *PostgresTabularRepository {
	return &PostgresTabularRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

const tabularColumns = "id, warehouse_id, namespace_id, kind, name, metadata_location, previous_location, status, protected, delete_after, version, created_at, updated_at"

func (r *PostgresTabularRepository) Create(ctx context.Context, t domain.Tabular) (domain.Tabular, error) {
	if t.ID == (domain.TabularID{}) {
		t.ID = domain.TabularID(uuid.Must(uuid.NewV7()))
	}

	now := time.Now()
	t.CreatedAt, t.UpdatedAt, t.Version = now, now, 1

	if t.Status == "" {
		t.Status = domain.TabularStatusActive
	}

	sqlStr, args, err := r.builder.Insert("tabular").
		Columns("id", "warehouse_id", "namespace_id", "kind", "name", "metadata_location", "previous_location", "status", "protected", "delete_after", "version", "created_at", "updated_at").
		Values(t.ID.String(), t.WarehouseID.String(), t.NamespaceID.String(), string(t.Kind), t.Name, t.MetadataLocation, t.PreviousLocation, string(t.Status), t.Protected, t.DeleteAfter, t.Version, now, now).
		ToSql()
	if err != nil {
		return domain.Tabular{}, err
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return domain.Tabular{}, mpg.ValidatePGError(err, "tabular", t.Name)
	}

	return t, nil
}

func (r *PostgresTabularRepository) scanTabular(row interface{ Scan(...any) error }) (domain.Tabular, error) {
	var (
		t        domain.Tabular
		idStr    string
		whStr    string
		nsStr    string
		kind     string
		status   string
		deleteAfter sql.NullTime
	)

	if err := row.Scan(&idStr, &whStr, &nsStr, &kind, &t.Name, &t.MetadataLocation, &t.PreviousLocation,
		&status, &t.Protected, &deleteAfter, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Tabular{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return domain.Tabular{}, err
	}

	wh, err := uuid.Parse(whStr)
	if err != nil {
		return domain.Tabular{}, err
	}

	ns, err := uuid.Parse(nsStr)
	if err != nil {
		return domain.Tabular{}, err
	}

	t.ID = domain.TabularID(id)
	t.WarehouseID = domain.WarehouseID(wh)
	t.NamespaceID = domain.NamespaceID(ns)
	t.Kind = domain.TabularKind(kind)
	t.Status = domain.TabularStatus(status)

	if deleteAfter.Valid {
		t.DeleteAfter = &deleteAfter.Time
	}

	return t, nil
}

func (r *PostgresTabularRepository) Get(ctx context.Context, id domain.TabularID) (domain.Tabular, error) {
	sqlStr, args, err := r.builder.Select(tabularColumns).From("tabular").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return domain.Tabular{}, err
	}

	t, err := r.scanTabular(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tabular{}, perr.Translate(perr.ErrEntityNotFound, "tabular")
		}

		return domain.Tabular{}, err
	}

	return t, nil
}

func (r *PostgresTabularRepository) GetByName(ctx context.Context, namespaceID domain.NamespaceID, kind domain.TabularKind, name string) (domain.Tabular, error) {
	sqlStr, args, err := r.builder.Select(tabularColumns).From("tabular").
		Where(sq.Eq{"namespace_id": namespaceID.String(), "kind": string(kind), "name": name, "status": string(domain.TabularStatusActive)}).
		ToSql()
	if err != nil {
		return domain.Tabular{}, err
	}

	t, err := r.scanTabular(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tabular{}, perr.Translate(perr.ErrEntityNotFound, string(kind))
		}

		return domain.Tabular{}, err
	}

	return t, nil
}

func (r *PostgresTabularRepository) ListByIDs(ctx context.Context, ids []domain.TabularID) ([]domain.Tabular, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	sqlStr, args, err := r.builder.Select(tabularColumns).From("tabular").Where(sq.Eq{"id": strIDs}).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tabular

	for rows.Next() {
		t, err := r.scanTabular(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, rows.Err()
}

func (r *PostgresTabularRepository) Rename(ctx context.Context, id domain.TabularID, newNamespaceID domain.NamespaceID, newName string, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"namespace_id": newNamespaceID.String(), "name": newName})
}

func (r *PostgresTabularRepository) StageForDeletion(ctx context.Context, id domain.TabularID, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"status": string(domain.TabularStatusStagedForDeletion), "delete_after": time.Now()})
}

func (r *PostgresTabularRepository) SetProtected(ctx context.Context, id domain.TabularID, protected bool, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"protected": protected})
}

func (r *PostgresTabularRepository) casUpdate(ctx context.Context, id domain.TabularID, expectedVersion int64, set sq.Eq) error {
	update := r.builder.Update("tabular").Where(sq.Eq{"id": id.String(), "version": expectedVersion})

	set["version"] = expectedVersion + 1
	set["updated_at"] = time.Now()

	for k, v := range set {
		update = update.Set(k, v)
	}

	sqlStr, args, err := update.ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return mpg.ValidatePGError(err, "tabular")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return perr.Translate(perr.ErrConcurrentUpdate, "tabular")
	}

	return nil
}

func (r *PostgresTabularRepository) Purge(ctx context.Context, id domain.TabularID) error {
	sqlStr, args, err := r.builder.Delete("tabular").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, sqlStr, args...)

	return err
}

func (r *PostgresTabularRepository) List(ctx context.Context, namespaceID domain.NamespaceID, kind domain.TabularKind, cursor string, limit int) (pagination.Page[domain.Tabular], error) {
	q := r.builder.Select(tabularColumns).From("tabular").
		Where(sq.Eq{"namespace_id": namespaceID.String(), "kind": string(kind), "status": string(domain.TabularStatusActive)}).
		OrderBy("id ASC").Limit(uint64(limit) + 1)

	if cursor != "" {
		q = q.Where(sq.Gt{"id": cursor})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return pagination.Page[domain.Tabular]{}, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return pagination.Page[domain.Tabular]{}, err
	}
	defer rows.Close()

	var items []domain.Tabular

	for rows.Next() {
		t, err := r.scanTabular(rows)
		if err != nil {
			return pagination.Page[domain.Tabular]{}, err
		}

		items = append(items, t)
	}

	if err := rows.Err(); err != nil {
		return pagination.Page[domain.Tabular]{}, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	next := ""
	if len(items) > 0 {
		next = items[len(items)-1].ID.String()
	}

	return pagination.Page[domain.Tabular]{Items: items, NextCursor: next, HasMore: hasMore}, nil
}

func (r *PostgresTabularRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]domain.Tabular, error) {
	sqlStr, args, err := r.builder.Select(tabularColumns).From("tabular").
		Where(sq.Eq{"status": string(domain.TabularStatusStagedForDeletion)}).
		Where(sq.LtOrEq{"delete_after": before}).
		OrderBy("delete_after ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Tabular

	for rows.Next() {
		t, err := r.scanTabular(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, t)
	}

	return out, rows.Err()
}
