package commit

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/mtelemetry"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

// Store is the persistence seam the pipeline drives. internal/catalog's
// Postgres-backed implementation satisfies this; the pipeline itself has no
// database dependency, matching the teacher's pattern of a UseCase calling
// narrow repository interfaces (internal/services/command/command.go).
type Store interface {
	// LoadTableForUpdate returns the current metadata and the tabular row's
	// optimistic version, read inside the eventual write transaction so the
	// CAS in CommitTableMetadata observes a consistent snapshot.
	LoadTableForUpdate(ctx context.Context, tabularID domain.TabularID) (domain.TableMetadata, int64, bool, error)
	// CommitTableMetadata persists newMetadata at a new location, succeeding
	// only if the tabular's version still equals expectedVersion. A lost
	// race returns perr.ConcurrentUpdateError.
	CommitTableMetadata(ctx context.Context, tabularID domain.TabularID, expectedVersion int64, newMetadata domain.TableMetadata, newLocation string) error
}

// ViewStore is the view analogue of Store.
type ViewStore interface {
	LoadViewForUpdate(ctx context.Context, tabularID domain.TabularID) (domain.ViewMetadata, int64, bool, error)
	CommitViewMetadata(ctx context.Context, tabularID domain.TabularID, expectedVersion int64, newMetadata domain.ViewMetadata, newLocation string) error
}

// RetryPolicy bounds the pipeline's response to a lost optimistic-concurrency
// race: spec.md §4.4 asks for jittered exponential backoff with a hard cap
// on elapsed time, the same shape the pack's service layers apply to
// transient upstream failures via cenkalti/backoff/v4.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy starts at 50ms and caps each delay at 3200ms, giving
// up once 5s have elapsed in total. Delays grow by backoff's default
// multiplier (1.5) with its default ±50% randomization.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     3200 * time.Millisecond,
		MaxElapsedTime:  5 * time.Second,
	}
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime

	return backoff.WithContext(b, ctx)
}

// LocationGenerator produces the metadata file location for a new commit,
// given the tabular's id and the version it is becoming.
// internal/storage's profile contract owns the actual path-building rules;
// the pipeline only needs a function to call.
type LocationGenerator func(tabularID domain.TabularID, nextVersion int64) string

// CommitTable commits a single table: load the base metadata, check
// requirements, apply updates, persist under CAS, retrying the whole
// load-check-apply-persist cycle on a lost race up to RetryPolicy's budget.
// It does not write a metadata file to storage, generate a table config, or
// remove an old base location after a SetLocation; the new metadata
// location is only recorded through the Store.
func CommitTable(ctx context.Context, store Store, logger mlog.Logger, policy RetryPolicy, genLocation LocationGenerator, tabularID domain.TabularID, reqs []TableRequirement, updates []TableUpdate) (domain.TableMetadata, error) {
	ctx, span := mtelemetry.Start(ctx, "commit.CommitTable")
	defer span.End()

	var result domain.TableMetadata

	attempt := 0

	op := func() error {
		attempt++

		base, version, exists, err := store.LoadTableForUpdate(ctx, tabularID)
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := CheckTableRequirements(base, exists, reqs); err != nil {
			return backoff.Permanent(err)
		}

		next, err := ApplyTableUpdates(base, updates)
		if err != nil {
			return backoff.Permanent(perr.ValidationError{Code: "invalid_commit", Title: "Invalid Commit", Message: err.Error(), Err: err})
		}

		location := genLocation(tabularID, version+1)

		if err := store.CommitTableMetadata(ctx, tabularID, version, next, location); err != nil {
			var conflict perr.ConcurrentUpdateError
			if errors.As(err, &conflict) {
				logger.Warnf("commit: optimistic concurrency conflict on tabular %s, attempt %d", tabularID, attempt)
				return err // retryable
			}

			return backoff.Permanent(err)
		}

		result = next

		return nil
	}

	if err := backoff.Retry(op, policy.backoff(ctx)); err != nil {
		mtelemetry.HandleSpanError(span, "commit table failed", err)
		return domain.TableMetadata{}, err
	}

	return result, nil
}

// CommitView is the view analogue of CommitTable.
func CommitView(ctx context.Context, store ViewStore, logger mlog.Logger, policy RetryPolicy, genLocation LocationGenerator, tabularID domain.TabularID, reqs []ViewRequirement, updates []ViewUpdate) (domain.ViewMetadata, error) {
	ctx, span := mtelemetry.Start(ctx, "commit.CommitView")
	defer span.End()

	var result domain.ViewMetadata

	attempt := 0

	op := func() error {
		attempt++

		base, version, exists, err := store.LoadViewForUpdate(ctx, tabularID)
		if err != nil {
			return backoff.Permanent(err)
		}

		if err := CheckViewRequirements(base, exists, reqs); err != nil {
			return backoff.Permanent(err)
		}

		next, err := ApplyViewUpdates(base, updates)
		if err != nil {
			return backoff.Permanent(perr.ValidationError{Code: "invalid_commit", Title: "Invalid Commit", Message: err.Error(), Err: err})
		}

		location := genLocation(tabularID, version+1)

		if err := store.CommitViewMetadata(ctx, tabularID, version, next, location); err != nil {
			var conflict perr.ConcurrentUpdateError
			if errors.As(err, &conflict) {
				logger.Warnf("commit: optimistic concurrency conflict on tabular %s, attempt %d", tabularID, attempt)
				return err
			}

			return backoff.Permanent(err)
		}

		result = next

		return nil
	}

	if err := backoff.Retry(op, policy.backoff(ctx)); err != nil {
		mtelemetry.HandleSpanError(span, "commit view failed", err)
		return domain.ViewMetadata{}, err
	}

	return result, nil
}
