package commit

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/mtelemetry"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// TableCommit is one table's requirements/updates within a multi-table
// commit_transaction request.
type TableCommit struct {
	TabularID domain.TabularID
	Requirements []TableRequirement
	Updates      []TableUpdate
}

// TransactionStore extends Store with the ability to persist every table in
// a transaction's commit set atomically: either all tables advance to their
// new metadata location, or none do.
type TransactionStore interface {
	Store
	// CommitTransaction persists every entry in commits atomically, after
	// each entry's CAS has been verified against its ExpectedVersion.
	// A single lost race aborts the whole transaction as
	// perr.ConcurrentUpdateError naming the losing tabular.
	CommitTransaction(ctx context.Context, commits []TransactionEntry) error
}

// TransactionEntry is one table's resolved next state within a
// CommitTransaction call, computed by CommitTransactionAtomic before the
// store is invoked.
type TransactionEntry struct {
	TabularID       domain.TabularID
	ExpectedVersion int64
	NewMetadata     domain.TableMetadata
	NewLocation     string
}

// CommitTransactionAtomic loads, checks and applies updates for every table
// in commits against a consistent read, then persists all of them in one
// store call. Like CommitTable, it writes no metadata files and generates no
// table config. Unlike CommitTable, the whole transaction is retried as a unit on a
// lost race (any single table's CAS failing aborts all of them), since a
// partial multi-table commit would violate the atomicity the Iceberg REST
// spec requires of commit_transaction.
func CommitTransactionAtomic(ctx context.Context, store TransactionStore, logger mlog.Logger, policy RetryPolicy, genLocation LocationGenerator, commits []TableCommit) ([]domain.TableMetadata, error) {
	ctx, span := mtelemetry.Start(ctx, "commit.CommitTransactionAtomic")
	defer span.End()

	var results []domain.TableMetadata

	op := func() error {
		entries := make([]TransactionEntry, 0, len(commits))
		results = make([]domain.TableMetadata, 0, len(commits))

		for _, c := range commits {
			base, version, exists, err := store.LoadTableForUpdate(ctx, c.TabularID)
			if err != nil {
				return backoff.Permanent(err)
			}

			if err := CheckTableRequirements(base, exists, c.Requirements); err != nil {
				return backoff.Permanent(err)
			}

			next, err := ApplyTableUpdates(base, c.Updates)
			if err != nil {
				return backoff.Permanent(perr.ValidationError{Code: "invalid_commit", Title: "Invalid Commit", Message: err.Error(), Err: err})
			}

			location := genLocation(c.TabularID, version+1)

			entries = append(entries, TransactionEntry{
				TabularID:       c.TabularID,
				ExpectedVersion: version,
				NewMetadata:     next,
				NewLocation:     location,
			})
			results = append(results, next)
		}

		if err := store.CommitTransaction(ctx, entries); err != nil {
			var conflict perr.ConcurrentUpdateError
			if errors.As(err, &conflict) {
				logger.Warnf("commit transaction: lost race across %d tables, retrying", len(commits))
				return err
			}

			return backoff.Permanent(err)
		}

		return nil
	}

	if err := backoff.Retry(op, policy.backoff(ctx)); err != nil {
		mtelemetry.HandleSpanError(span, "commit transaction failed", err)
		return nil, err
	}

	return results, nil
}
