package commit_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/commit"
	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/perr"
)

func TestApplyTableUpdates_AddAndSetCurrentSchema(t *testing.T) {
	base := domain.TableMetadata{FormatVersion: 2}

	updates := []commit.TableUpdate{
		{Kind: commit.TableUpdateAddSchema, Schema: domain.Schema{SchemaID: 1, Fields: []domain.SchemaField{{ID: 1, Name: "id"}}}},
		{Kind: commit.TableUpdateSetCurrentSchema, SchemaID: 1},
	}

	next, err := commit.ApplyTableUpdates(base, updates)
	require.NoError(t, err)
	assert.Equal(t, 1, next.CurrentSchemaID)
	assert.Len(t, next.Schemas, 1)
	assert.Equal(t, 1, next.LastColumnID)

	// base is untouched
	assert.Empty(t, base.Schemas)
}

func TestApplyTableUpdates_SetCurrentSchema_UnknownID(t *testing.T) {
	base := domain.TableMetadata{}

	_, err := commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateSetCurrentSchema, SchemaID: 7},
	})
	assert.Error(t, err)
}

func TestApplyTableUpdates_UpgradeFormatVersion_RejectsDowngrade(t *testing.T) {
	base := domain.TableMetadata{FormatVersion: 2}

	_, err := commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateUpgradeFormatVersion, FormatVersion: 1},
	})
	assert.Error(t, err)
}

func TestApplyTableUpdates_SetSnapshotRef_OnlyActsOnMain(t *testing.T) {
	base := domain.TableMetadata{}

	next, err := commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateAddSnapshot, Snapshot: domain.Snapshot{SnapshotID: 42, SequenceNumber: 1}},
		{Kind: commit.TableUpdateSetSnapshotRef, RefName: "main", SnapshotID: 42},
		{Kind: commit.TableUpdateSetSnapshotRef, RefName: "staging", SnapshotID: 99},
	})
	require.NoError(t, err)
	require.NotNil(t, next.CurrentSnapshotID)
	assert.EqualValues(t, 42, *next.CurrentSnapshotID)
	assert.Len(t, next.SnapshotLog, 1)
}

func TestApplyTableUpdates_RemoveSnapshotRef_OnlyMain(t *testing.T) {
	snapshotID := int64(1)
	base := domain.TableMetadata{CurrentSnapshotID: &snapshotID}

	next, err := commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateRemoveSnapshotRef, RefName: "staging"},
	})
	require.NoError(t, err)
	require.NotNil(t, next.CurrentSnapshotID)

	next, err = commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateRemoveSnapshotRef, RefName: "main"},
	})
	require.NoError(t, err)
	assert.Nil(t, next.CurrentSnapshotID)
}

func TestApplyTableUpdates_RemoveSnapshots(t *testing.T) {
	base := domain.TableMetadata{Snapshots: []domain.Snapshot{{SnapshotID: 1}, {SnapshotID: 2}, {SnapshotID: 3}}}

	next, err := commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateRemoveSnapshots, SnapshotIDsToRemove: []int64{2}},
	})
	require.NoError(t, err)

	ids := make([]int64, 0, len(next.Snapshots))
	for _, s := range next.Snapshots {
		ids = append(ids, s.SnapshotID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestApplyTableUpdates_SetAndRemoveProperties(t *testing.T) {
	base := domain.TableMetadata{Properties: map[string]string{"keep": "1", "drop": "2"}}

	next, err := commit.ApplyTableUpdates(base, []commit.TableUpdate{
		{Kind: commit.TableUpdateSetProperties, Properties: map[string]string{"added": "3"}},
		{Kind: commit.TableUpdateRemoveProperties, PropertiesToDrop: []string{"drop"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"keep": "1", "added": "3"}, next.Properties)
}

func TestApplyViewUpdates_AddSchemaAndVersion(t *testing.T) {
	base := domain.ViewMetadata{}

	next, err := commit.ApplyViewUpdates(base, []commit.ViewUpdate{
		{Kind: commit.ViewUpdateAddSchema, Schema: domain.Schema{SchemaID: 1}},
		{Kind: commit.ViewUpdateAddViewVersion, ViewVersion: domain.ViewVersion{VersionID: 1, SchemaID: 1}},
		{Kind: commit.ViewUpdateSetCurrentVersion, VersionID: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, next.CurrentVersionID)
	assert.Len(t, next.VersionLog, 1)
}

func TestApplyViewUpdates_SetCurrentVersion_UnknownID(t *testing.T) {
	base := domain.ViewMetadata{}

	_, err := commit.ApplyViewUpdates(base, []commit.ViewUpdate{
		{Kind: commit.ViewUpdateSetCurrentVersion, VersionID: 3},
	})
	assert.Error(t, err)
}

func TestCheckTableRequirements_AssertCreate_ConflictWhenExists(t *testing.T) {
	err := commit.CheckTableRequirements(domain.TableMetadata{}, true, []commit.TableRequirement{
		{Kind: commit.RequireTableNotExists},
	})

	var conflict perr.EntityConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestCheckTableRequirements_AssertCreate_PassesWhenAbsent(t *testing.T) {
	err := commit.CheckTableRequirements(domain.TableMetadata{}, false, []commit.TableRequirement{
		{Kind: commit.RequireTableNotExists},
	})
	assert.NoError(t, err)
}

func TestCheckTableRequirements_UUIDMismatch_IsFailedPrecondition(t *testing.T) {
	err := commit.CheckTableRequirements(domain.TableMetadata{TableUUID: "a"}, true, []commit.TableRequirement{
		{Kind: commit.RequireTableUUID, UUID: "b"},
	})

	var precondition perr.FailedPreconditionError
	require.True(t, errors.As(err, &precondition))
}

func TestCheckTableRequirements_RefSnapshotID_UnsetVsSet(t *testing.T) {
	snapshotID := int64(5)

	err := commit.CheckTableRequirements(domain.TableMetadata{CurrentSnapshotID: &snapshotID}, true, []commit.TableRequirement{
		{Kind: commit.RequireCurrentSnapshotID, RefName: "main", SnapshotID: nil},
	})
	assert.Error(t, err)

	err = commit.CheckTableRequirements(domain.TableMetadata{}, true, []commit.TableRequirement{
		{Kind: commit.RequireCurrentSnapshotID, RefName: "main", SnapshotID: &snapshotID},
	})
	assert.Error(t, err)

	err = commit.CheckTableRequirements(domain.TableMetadata{CurrentSnapshotID: &snapshotID}, true, []commit.TableRequirement{
		{Kind: commit.RequireCurrentSnapshotID, RefName: "main", SnapshotID: &snapshotID},
	})
	assert.NoError(t, err)
}

func TestCheckViewRequirements_AssertCreate_ConflictWhenExists(t *testing.T) {
	err := commit.CheckViewRequirements(domain.ViewMetadata{}, true, []commit.ViewRequirement{
		{Kind: commit.RequireViewNotExist},
	})

	var conflict perr.EntityConflictError
	require.True(t, errors.As(err, &conflict))
}

// fakeStore is an in-memory Store double. failNextCommits counts down:
// while nonzero, CommitTableMetadata returns
// perr.ConcurrentUpdateError instead of applying the write, to exercise the
// pipeline's retry loop.
type fakeStore struct {
	metadata        domain.TableMetadata
	version         int64
	exists          bool
	failNextCommits int
	commitAttempts  int
}

func (s *fakeStore) LoadTableForUpdate(_ context.Context, _ domain.TabularID) (domain.TableMetadata, int64, bool, error) {
	return s.metadata, s.version, s.exists, nil
}

func (s *fakeStore) CommitTableMetadata(_ context.Context, _ domain.TabularID, expectedVersion int64, newMetadata domain.TableMetadata, newLocation string) error {
	s.commitAttempts++

	if s.failNextCommits > 0 {
		s.failNextCommits--
		return perr.ConcurrentUpdateError{EntityType: "tabular", Err: errors.New("lost race")}
	}

	if expectedVersion != s.version {
		return perr.ConcurrentUpdateError{EntityType: "tabular", Err: errors.New("version mismatch")}
	}

	newMetadata.Location = newLocation
	s.metadata = newMetadata
	s.version++
	s.exists = true

	return nil
}

func genLocation(tabularID domain.TabularID, nextVersion int64) string {
	return "s3://bucket/" + tabularID.String() + "/metadata/v" + strconv.FormatInt(nextVersion, 10) + ".json"
}

func fastRetryPolicy() commit.RetryPolicy {
	return commit.RetryPolicy{
		InitialInterval: 0,
		MaxInterval:     0,
		MaxElapsedTime:  0,
	}
}

func TestCommitTable_SucceedsFirstTry(t *testing.T) {
	store := &fakeStore{exists: true}

	result, err := commit.CommitTable(context.Background(), store, mlog.Nop{}, fastRetryPolicy(), genLocation, domain.TabularID{}, nil, []commit.TableUpdate{
		{Kind: commit.TableUpdateSetLocation, Location: "s3://bucket/t"},
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/t", result.Location)
	assert.Equal(t, 1, store.commitAttempts)
}

func TestCommitTable_RetriesOnConcurrentUpdate(t *testing.T) {
	store := &fakeStore{exists: true, failNextCommits: 2}

	result, err := commit.CommitTable(context.Background(), store, mlog.Nop{}, fastRetryPolicy(), genLocation, domain.TabularID{}, nil, []commit.TableUpdate{
		{Kind: commit.TableUpdateSetProperties, Properties: map[string]string{"a": "1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", result.Properties["a"])
	assert.Equal(t, 3, store.commitAttempts)
}

func TestCommitTable_RequirementFailure_IsPermanent_NoRetry(t *testing.T) {
	store := &fakeStore{exists: true, failNextCommits: 5}

	_, err := commit.CommitTable(context.Background(), store, mlog.Nop{}, fastRetryPolicy(), genLocation, domain.TabularID{}, []commit.TableRequirement{
		{Kind: commit.RequireTableUUID, UUID: "expected"},
	}, nil)

	var precondition perr.FailedPreconditionError
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, 0, store.commitAttempts)
}

// fakeTransactionStore extends fakeStore with a multi-table view for
// CommitTransactionAtomic, keyed by tabular ID.
type fakeTransactionStore struct {
	tables          map[domain.TabularID]*fakeStore
	failNextCommits int
}

func (s *fakeTransactionStore) LoadTableForUpdate(ctx context.Context, tabularID domain.TabularID) (domain.TableMetadata, int64, bool, error) {
	return s.tables[tabularID].LoadTableForUpdate(ctx, tabularID)
}

func (s *fakeTransactionStore) CommitTableMetadata(ctx context.Context, tabularID domain.TabularID, expectedVersion int64, newMetadata domain.TableMetadata, newLocation string) error {
	return s.tables[tabularID].CommitTableMetadata(ctx, tabularID, expectedVersion, newMetadata, newLocation)
}

func (s *fakeTransactionStore) CommitTransaction(_ context.Context, commits []commit.TransactionEntry) error {
	if s.failNextCommits > 0 {
		s.failNextCommits--
		return perr.ConcurrentUpdateError{EntityType: "tabular", Err: errors.New("lost race")}
	}

	for _, c := range commits {
		store := s.tables[c.TabularID]
		if c.ExpectedVersion != store.version {
			return perr.ConcurrentUpdateError{EntityType: "tabular", Err: errors.New("version mismatch")}
		}
	}

	for _, c := range commits {
		store := s.tables[c.TabularID]
		store.metadata = c.NewMetadata
		store.version++
		store.exists = true
	}

	return nil
}

func TestCommitTransactionAtomic_CommitsAllOrNone(t *testing.T) {
	idA := domain.TabularID{1}
	idB := domain.TabularID{2}

	store := &fakeTransactionStore{tables: map[domain.TabularID]*fakeStore{
		idA: {exists: true},
		idB: {exists: true},
	}}

	results, err := commit.CommitTransactionAtomic(context.Background(), store, mlog.Nop{}, fastRetryPolicy(), genLocation, []commit.TableCommit{
		{TabularID: idA, Updates: []commit.TableUpdate{{Kind: commit.TableUpdateSetLocation, Location: "s3://a"}}},
		{TabularID: idB, Updates: []commit.TableUpdate{{Kind: commit.TableUpdateSetLocation, Location: "s3://b"}}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.EqualValues(t, 1, store.tables[idA].version)
	assert.EqualValues(t, 1, store.tables[idB].version)
}

func TestCommitTransactionAtomic_RetriesWholeTransactionOnConflict(t *testing.T) {
	idA := domain.TabularID{1}

	store := &fakeTransactionStore{
		tables:          map[domain.TabularID]*fakeStore{idA: {exists: true}},
		failNextCommits: 1,
	}

	_, err := commit.CommitTransactionAtomic(context.Background(), store, mlog.Nop{}, fastRetryPolicy(), genLocation, []commit.TableCommit{
		{TabularID: idA, Updates: []commit.TableUpdate{{Kind: commit.TableUpdateSetLocation, Location: "s3://a"}}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, store.tables[idA].version)
}
