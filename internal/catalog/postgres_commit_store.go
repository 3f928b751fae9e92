package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/lakekeeper/catalog/internal/commit"
	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mpg"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// PostgresCommitStore implements commit.Store, commit.ViewStore, and
// commit.TransactionStore against the tabular_metadata table: one row per
// tabular id, holding the serialized current TableMetadata/ViewMetadata.
// The CAS check is against the tabular table's own version
// column, so a lost race here and a lost race in PostgresTabularRepository
// are the same event observed from two call sites.
type PostgresCommitStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewPostgresCommitStore(db *sql.DB) *PostgresCommitStore {
	return &PostgresCommitStore{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (s *PostgresCommitStore) LoadTableForUpdate(ctx context.Context, tabularID domain.TabularID) (domain.TableMetadata, int64, bool, error) {
	var (
		raw     []byte
		version int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT tm.metadata, t.version FROM tabular t LEFT JOIN tabular_metadata tm ON tm.tabular_id = t.id WHERE t.id = $1`,
		tabularID.String()).Scan(&nullBytes{&raw}, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TableMetadata{}, 0, false, nil
		}

		return domain.TableMetadata{}, 0, false, err
	}

	if raw == nil {
		return domain.TableMetadata{}, version, true, nil
	}

	var m domain.TableMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.TableMetadata{}, 0, false, err
	}

	return m, version, true, nil
}

func (s *PostgresCommitStore) CommitTableMetadata(ctx context.Context, tabularID domain.TabularID, expectedVersion int64, newMetadata domain.TableMetadata, newLocation string) error {
	raw, err := json.Marshal(newMetadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE tabular SET metadata_location = $1, version = version + 1, updated_at = now() WHERE id = $2 AND version = $3`,
		newLocation, tabularID.String(), expectedVersion)
	if err != nil {
		return mpg.ValidatePGError(err, "tabular")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return perr.ConcurrentUpdateError{EntityType: "tabular", TabularID: tabularID.String(), ExpectedLocation: newLocation}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tabular_metadata (tabular_id, metadata)
		VALUES ($1, $2)
		ON CONFLICT (tabular_id) DO UPDATE SET metadata = EXCLUDED.metadata`,
		tabularID.String(), raw); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresCommitStore) LoadViewForUpdate(ctx context.Context, tabularID domain.TabularID) (domain.ViewMetadata, int64, bool, error) {
	var (
		raw     []byte
		version int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT tm.metadata, t.version FROM tabular t LEFT JOIN tabular_metadata tm ON tm.tabular_id = t.id WHERE t.id = $1`,
		tabularID.String()).Scan(&nullBytes{&raw}, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ViewMetadata{}, 0, false, nil
		}

		return domain.ViewMetadata{}, 0, false, err
	}

	if raw == nil {
		return domain.ViewMetadata{}, version, true, nil
	}

	var m domain.ViewMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.ViewMetadata{}, 0, false, err
	}

	return m, version, true, nil
}

func (s *PostgresCommitStore) CommitViewMetadata(ctx context.Context, tabularID domain.TabularID, expectedVersion int64, newMetadata domain.ViewMetadata, newLocation string) error {
	raw, err := json.Marshal(newMetadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE tabular SET metadata_location = $1, version = version + 1, updated_at = now() WHERE id = $2 AND version = $3`,
		newLocation, tabularID.String(), expectedVersion)
	if err != nil {
		return mpg.ValidatePGError(err, "tabular")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return perr.ConcurrentUpdateError{EntityType: "tabular", TabularID: tabularID.String(), ExpectedLocation: newLocation}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tabular_metadata (tabular_id, metadata)
		VALUES ($1, $2)
		ON CONFLICT (tabular_id) DO UPDATE SET metadata = EXCLUDED.metadata`,
		tabularID.String(), raw); err != nil {
		return err
	}

	return tx.Commit()
}

// CommitTransaction persists every entry's new metadata in one database
// transaction: either every CAS in the batch succeeds, or the whole
// transaction rolls back and the first lost race is reported.
func (s *PostgresCommitStore) CommitTransaction(ctx context.Context, entries []commit.TransactionEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range entries {
		raw, err := json.Marshal(e.NewMetadata)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE tabular SET metadata_location = $1, version = version + 1, updated_at = now() WHERE id = $2 AND version = $3`,
			e.NewLocation, e.TabularID.String(), e.ExpectedVersion)
		if err != nil {
			return mpg.ValidatePGError(err, "tabular")
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if n == 0 {
			return perr.ConcurrentUpdateError{EntityType: "tabular", TabularID: e.TabularID.String(), ExpectedLocation: e.NewLocation}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tabular_metadata (tabular_id, metadata)
			VALUES ($1, $2)
			ON CONFLICT (tabular_id) DO UPDATE SET metadata = EXCLUDED.metadata`,
			e.TabularID.String(), raw); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// nullBytes adapts a *[]byte destination to sql.Scanner so a NULL
// tabular_metadata.metadata column (a tabular with no committed metadata
// yet) scans as a nil slice instead of an error.
type nullBytes struct {
	dest *[]byte
}

func (n *nullBytes) Scan(src any) error {
	if src == nil {
		*n.dest = nil
		return nil
	}

	b, ok := src.([]byte)
	if !ok {
		return errors.New("nullBytes: unsupported scan source")
	}

	*n.dest = append([]byte{}, b...)

	return nil
}
