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

// PostgresWarehouseRepository implements WarehouseRepository over the
// warehouse table, following the teacher's
// organization.postgresql.go shape: squirrel builder, explicit row scan,
// ValidatePGError at the constraint boundary.
type PostgresWarehouseRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewPostgresWarehouseRepository(db *sql.DB) *PostgresWarehouseRepository {
	return &PostgresWarehouseRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *PostgresWarehouseRepository) Create(ctx context.Context, w domain.Warehouse) (domain.Warehouse, error) {
	if w.ID == (domain.WarehouseID{}) {
		w.ID = domain.WarehouseID(uuid.Must(uuid.NewV7()))
	}

	now := time.Now()
	w.CreatedAt, w.UpdatedAt, w.Version = now, now, 1

	sqlStr, args, err := r.builder.Insert("warehouse").
		Columns("id", "project_id", "name", "status", "storage_profile", "secret_id", "protected", "version", "created_at", "updated_at").
		Values(w.ID.String(), w.ProjectID, w.Name, string(w.Status), w.StorageProfileJSON, w.SecretID, w.Protected, w.Version, now, now).
		ToSql()
	if err != nil {
		return domain.Warehouse{}, err
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return domain.Warehouse{}, mpg.ValidatePGError(err, "warehouse", w.Name)
	}

	return w, nil
}

const warehouseColumns = "id, project_id, name, status, storage_profile, secret_id, protected, version, created_at, updated_at"

func (r *PostgresWarehouseRepository) scanWarehouse(row interface{ Scan(...any) error }) (domain.Warehouse, error) {
	var (
		w         domain.Warehouse
		idStr     string
		status    string
		secretID  sql.NullString
		storage   []byte
	)

	if err := row.Scan(&idStr, &w.ProjectID, &w.Name, &status, &storage, &secretID, &w.Protected, &w.Version, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return domain.Warehouse{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return domain.Warehouse{}, err
	}

	w.ID = domain.WarehouseID(id)
	w.Status = domain.WarehouseStatus(status)
	w.StorageProfileJSON = storage

	if secretID.Valid {
		s := secretID.String
		w.SecretID = &s
	}

	return w, nil
}

func (r *PostgresWarehouseRepository) Get(ctx context.Context, id domain.WarehouseID) (domain.Warehouse, error) {
	sqlStr, args, err := r.builder.Select(warehouseColumns).From("warehouse").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return domain.Warehouse{}, err
	}

	w, err := r.scanWarehouse(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Warehouse{}, perr.Translate(perr.ErrWarehouseNotFound, "warehouse")
		}

		return domain.Warehouse{}, err
	}

	return w, nil
}

func (r *PostgresWarehouseRepository) GetByName(ctx context.Context, projectID, name string) (domain.Warehouse, error) {
	sqlStr, args, err := r.builder.Select(warehouseColumns).From("warehouse").
		Where(sq.Eq{"project_id": projectID, "name": name}).ToSql()
	if err != nil {
		return domain.Warehouse{}, err
	}

	w, err := r.scanWarehouse(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Warehouse{}, perr.Translate(perr.ErrWarehouseNotFound, "warehouse")
		}

		return domain.Warehouse{}, err
	}

	return w, nil
}

func (r *PostgresWarehouseRepository) UpdateStatus(ctx context.Context, id domain.WarehouseID, status domain.WarehouseStatus, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"status": string(status)})
}

func (r *PostgresWarehouseRepository) SetProtected(ctx context.Context, id domain.WarehouseID, protected bool, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"protected": protected})
}

func (r *PostgresWarehouseRepository) casUpdate(ctx context.Context, id domain.WarehouseID, expectedVersion int64, set sq.Eq) error {
	update := r.builder.Update("warehouse").Where(sq.Eq{"id": id.String(), "version": expectedVersion})

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
		return mpg.ValidatePGError(err, "warehouse")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return perr.Translate(perr.ErrConcurrentUpdate, "warehouse")
	}

	return nil
}

func (r *PostgresWarehouseRepository) Delete(ctx context.Context, id domain.WarehouseID, force bool) error {
	w, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if w.Protected && !force {
		return perr.Translate(perr.ErrResourceProtected, "warehouse")
	}

	sqlStr, args, err := r.builder.Delete("warehouse").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return mpg.ValidatePGError(err, "warehouse")
	}

	return nil
}

func (r *PostgresWarehouseRepository) List(ctx context.Context, projectID, cursor string, limit int) (pagination.Page[domain.Warehouse], error) {
	q := r.builder.Select(warehouseColumns).From("warehouse").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("id ASC").Limit(uint64(limit) + 1)

	if cursor != "" {
		q = q.Where(sq.Gt{"id": cursor})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return pagination.Page[domain.Warehouse]{}, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return pagination.Page[domain.Warehouse]{}, err
	}
	defer rows.Close()

	var items []domain.Warehouse

	for rows.Next() {
		w, err := r.scanWarehouse(rows)
		if err != nil {
			return pagination.Page[domain.Warehouse]{}, err
		}

		items = append(items, w)
	}

	if err := rows.Err(); err != nil {
		return pagination.Page[domain.Warehouse]{}, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	next := ""
	if len(items) > 0 {
		next = items[len(items)-1].ID.String()
	}

	return pagination.Page[domain.Warehouse]{Items: items, NextCursor: next, HasMore: hasMore}, nil
}
