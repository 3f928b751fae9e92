package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/pagination"
	"github.com/lakekeeper/catalog/internal/platform/mpg"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// PostgresNamespaceRepository implements NamespaceRepository over the
// namespace table, mirroring PostgresWarehouseRepository's shape.
type PostgresNamespaceRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewPostgresNamespaceRepository(db *sql.DB) *PostgresNamespaceRepository {
	return &PostgresNamespaceRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

const namespaceColumns = "id, warehouse_id, parent_id, levels, properties, protected, version, created_at, updated_at"

func (r *PostgresNamespaceRepository) Create(ctx context.Context, n domain.Namespace) (domain.Namespace, error) {
	if n.ID == (domain.NamespaceID{}) {
		n.ID = domain.NamespaceID(uuid.Must(uuid.NewV7()))
	}

	now := time.Now()
	n.CreatedAt, n.UpdatedAt, n.Version = now, now, 1

	var parentID any
	if n.ParentID != nil {
		parentID = n.ParentID.String()
	}

	sqlStr, args, err := r.builder.Insert("namespace").
		Columns("id", "warehouse_id", "parent_id", "levels", "properties", "protected", "version", "created_at", "updated_at").
		Values(n.ID.String(), n.WarehouseID.String(), parentID, strings.Join(n.Levels, "\x1f"), n.PropertiesJSON, n.Protected, n.Version, now, now).
		ToSql()
	if err != nil {
		return domain.Namespace{}, err
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return domain.Namespace{}, mpg.ValidatePGError(err, "namespace", n.Name())
	}

	return n, nil
}

func (r *PostgresNamespaceRepository) scanNamespace(row interface{ Scan(...any) error }) (domain.Namespace, error) {
	var (
		n        domain.Namespace
		idStr    string
		whStr    string
		parent   sql.NullString
		levels   string
		props    []byte
	)

	if err := row.Scan(&idStr, &whStr, &parent, &levels, &props, &n.Protected, &n.Version, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return domain.Namespace{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return domain.Namespace{}, err
	}

	wh, err := uuid.Parse(whStr)
	if err != nil {
		return domain.Namespace{}, err
	}

	n.ID = domain.NamespaceID(id)
	n.WarehouseID = domain.WarehouseID(wh)
	n.Levels = strings.Split(levels, "\x1f")
	n.PropertiesJSON = props

	if parent.Valid {
		pid, err := uuid.Parse(parent.String)
		if err != nil {
			return domain.Namespace{}, err
		}

		nid := domain.NamespaceID(pid)
		n.ParentID = &nid
	}

	return n, nil
}

func (r *PostgresNamespaceRepository) Get(ctx context.Context, id domain.NamespaceID) (domain.Namespace, error) {
	sqlStr, args, err := r.builder.Select(namespaceColumns).From("namespace").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return domain.Namespace{}, err
	}

	n, err := r.scanNamespace(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Namespace{}, perr.Translate(perr.ErrNamespaceNotFound, "namespace")
		}

		return domain.Namespace{}, err
	}

	return n, nil
}

func (r *PostgresNamespaceRepository) GetByLevels(ctx context.Context, warehouseID domain.WarehouseID, levels []string) (domain.Namespace, error) {
	sqlStr, args, err := r.builder.Select(namespaceColumns).From("namespace").
		Where(sq.Eq{"warehouse_id": warehouseID.String(), "levels": strings.Join(levels, "\x1f")}).ToSql()
	if err != nil {
		return domain.Namespace{}, err
	}

	n, err := r.scanNamespace(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Namespace{}, perr.Translate(perr.ErrNamespaceNotFound, "namespace")
		}

		return domain.Namespace{}, err
	}

	return n, nil
}

func (r *PostgresNamespaceRepository) UpdateProperties(ctx context.Context, id domain.NamespaceID, properties map[string]string, expectedVersion int64) error {
	propsJSON, err := marshalProperties(properties)
	if err != nil {
		return err
	}

	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"properties": propsJSON})
}

func (r *PostgresNamespaceRepository) SetProtected(ctx context.Context, id domain.NamespaceID, protected bool, expectedVersion int64) error {
	return r.casUpdate(ctx, id, expectedVersion, sq.Eq{"protected": protected})
}

func (r *PostgresNamespaceRepository) casUpdate(ctx context.Context, id domain.NamespaceID, expectedVersion int64, set sq.Eq) error {
	update := r.builder.Update("namespace").Where(sq.Eq{"id": id.String(), "version": expectedVersion})

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
		return mpg.ValidatePGError(err, "namespace")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return perr.Translate(perr.ErrConcurrentUpdate, "namespace")
	}

	return nil
}

func (r *PostgresNamespaceRepository) Delete(ctx context.Context, id domain.NamespaceID, force bool) error {
	n, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if n.Protected && !force {
		return perr.Translate(perr.ErrResourceProtected, "namespace")
	}

	if !force {
		empty, err := r.IsEmpty(ctx, id)
		if err != nil {
			return err
		}

		if !empty {
			return perr.Translate(perr.ErrNamespaceNotEmpty, "namespace")
		}
	}

	sqlStr, args, err := r.builder.Delete("namespace").Where(sq.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return mpg.ValidatePGError(err, "namespace")
	}

	return nil
}

func (r *PostgresNamespaceRepository) IsEmpty(ctx context.Context, id domain.NamespaceID) (bool, error) {
	const query = `SELECT count(*) FROM (
		SELECT id FROM namespace WHERE parent_id = $1
		UNION ALL
		SELECT id FROM tabular WHERE namespace_id = $1
	) sub`

	var count int

	if err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&count); err != nil {
		return false, err
	}

	return count == 0, nil
}

func (r *PostgresNamespaceRepository) List(ctx context.Context, warehouseID domain.WarehouseID, parentID *domain.NamespaceID, cursor string, limit int) (pagination.Page[domain.Namespace], error) {
	where := sq.Eq{"warehouse_id": warehouseID.String()}
	if parentID != nil {
		where["parent_id"] = parentID.String()
	} else {
		where["parent_id"] = nil
	}

	q := r.builder.Select(namespaceColumns).From("namespace").Where(where).
		OrderBy("id ASC").Limit(uint64(limit) + 1)

	if cursor != "" {
		q = q.Where(sq.Gt{"id": cursor})
	}

	sqlStr, sqlArgs, err := q.ToSql()
	if err != nil {
		return pagination.Page[domain.Namespace]{}, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, sqlArgs...)
	if err != nil {
		return pagination.Page[domain.Namespace]{}, err
	}
	defer rows.Close()

	var items []domain.Namespace

	for rows.Next() {
		n, err := r.scanNamespace(rows)
		if err != nil {
			return pagination.Page[domain.Namespace]{}, err
		}

		items = append(items, n)
	}

	if err := rows.Err(); err != nil {
		return pagination.Page[domain.Namespace]{}, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	next := ""
	if len(items) > 0 {
		next = items[len(items)-1].ID.String()
	}

	return pagination.Page[domain.Namespace]{Items: items, NextCursor: next, HasMore: hasMore}, nil
}
