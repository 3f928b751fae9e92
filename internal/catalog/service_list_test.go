package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakekeeper/catalog/internal/authz"
	"github.com/lakekeeper/catalog/internal/catalog"
	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/pagination"
)

// fakeWarehouseRepository only implements List; every other
// catalog.WarehouseRepository method is inherited from the embedded nil
// interface and would panic if called, which these tests never do.
type fakeWarehouseRepository struct {
	catalog.WarehouseRepository
	items []domain.Warehouse
}

func (r fakeWarehouseRepository) List(_ context.Context, _ string, cursor string, limit int) (pagination.Page[domain.Warehouse], error) {
	return pageOf(r.items, cursor, limit, func(w domain.Warehouse) string { return w.ID.String() })
}

type fakeTabularRepository struct {
	catalog.TabularRepository
	items []domain.Tabular
}

func (r fakeTabularRepository) List(_ context.Context, _ domain.NamespaceID, kind domain.TabularKind, cursor string, limit int) (pagination.Page[domain.Tabular], error) {
	var matching []domain.Tabular

	for _, t := range r.items {
		if t.Kind == kind {
			matching = append(matching, t)
		}
	}

	return pageOf(matching, cursor, limit, func(t domain.Tabular) string { return t.ID.String() })
}

func (r fakeTabularRepository) ListByIDs(_ context.Context, ids []domain.TabularID) ([]domain.Tabular, error) {
	byID := make(map[domain.TabularID]domain.Tabular, len(r.items))
	for _, t := range r.items {
		byID[t.ID] = t
	}

	out := make([]domain.Tabular, 0, len(ids))

	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}

	return out, nil
}

// pageOf paginates a fixed in-memory slice by id cursor, the same keyset
// shape the Postgres repositories use (id > cursor, ORDER BY id ASC).
func pageOf[T any](items []T, cursor string, limit int, idOf func(T) string) (pagination.Page[T], error) {
	start := 0

	if cursor != "" {
		for i, item := range items {
			if idOf(item) == cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + limit
	hasMore := true

	if end >= len(items) {
		end = len(items)
		hasMore = false
	}

	if start >= len(items) {
		return pagination.Page[T]{}, nil
	}

	page := items[start:end]

	next := ""
	if len(page) > 0 {
		next = idOf(page[len(page)-1])
	}

	return pagination.Page[T]{Items: append([]T{}, page...), NextCursor: next, HasMore: hasMore}, nil
}

// denyingAuthorizer denies can-see for every id in denied, allows everyone
// else, simulating a listing where some rows are invisible to the caller.
type denyingAuthorizer struct {
	denied map[string]bool
}

func (a denyingAuthorizer) Evaluate(_ context.Context, reqs []authz.Request) ([]authz.Decision, error) {
	decisions := make([]authz.Decision, len(reqs))
	for i, r := range reqs {
		decisions[i] = authz.Decision{Allowed: !a.denied[r.ResourceID]}
	}

	return decisions, nil
}

func warehouseWithID(b byte) domain.Warehouse {
	return domain.Warehouse{ID: domain.WarehouseID{b}}
}

func tabularWithID(b byte, kind domain.TabularKind) domain.Tabular {
	return domain.Tabular{ID: domain.TabularID{b}, Kind: kind}
}

func TestListWarehouses_FiltersOutUnauthorizedRows(t *testing.T) {
	all := []domain.Warehouse{warehouseWithID(1), warehouseWithID(2), warehouseWithID(3)}

	uc := &catalog.UseCase{
		Warehouses: fakeWarehouseRepository{items: all},
		Gate:       authz.New(denyingAuthorizer{denied: map[string]bool{all[1].ID.String(): true}}),
	}

	result, err := uc.ListWarehouses(context.Background(), "alice", "project-1", "", 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, all[0].ID, result.Items[0].ID)
	assert.Equal(t, all[2].ID, result.Items[1].ID)
}

func TestListWarehouses_KeepsFetchingPastFilteredRowsForFullPage(t *testing.T) {
	all := []domain.Warehouse{warehouseWithID(1), warehouseWithID(2), warehouseWithID(3), warehouseWithID(4)}

	uc := &catalog.UseCase{
		Warehouses: fakeWarehouseRepository{items: all},
		Gate:       authz.New(denyingAuthorizer{denied: map[string]bool{all[0].ID.String(): true, all[2].ID.String(): true}}),
	}

	// requesting a raw page of 1 at a time would naively return a
	// 1-filtered-to-0 page; FetchUntilFullPage must keep pulling until
	// pageSize=2 approved rows are found.
	result, err := uc.ListWarehouses(context.Background(), "alice", "project-1", "", 2)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, all[1].ID, result.Items[0].ID)
	assert.Equal(t, all[3].ID, result.Items[1].ID)
}

func TestListTables_OnlyReturnsTableKind(t *testing.T) {
	items := []domain.Tabular{
		tabularWithID(1, domain.TabularKindTable),
		tabularWithID(2, domain.TabularKindView),
		tabularWithID(3, domain.TabularKindTable),
	}

	uc := &catalog.UseCase{
		Tabulars: fakeTabularRepository{items: items},
		Gate:     authz.New(denyingAuthorizer{}),
	}

	result, err := uc.ListTables(context.Background(), "alice", domain.NamespaceID{}, "", 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, domain.TabularKindTable, result.Items[0].Kind)
	assert.Equal(t, domain.TabularKindTable, result.Items[1].Kind)
}

func TestLoadTabularsByIDs_FiltersAndCapsToMaxResults(t *testing.T) {
	items := []domain.Tabular{
		tabularWithID(1, domain.TabularKindTable),
		tabularWithID(2, domain.TabularKindTable),
		tabularWithID(3, domain.TabularKindView),
	}

	uc := &catalog.UseCase{
		Tabulars: fakeTabularRepository{items: items},
		Gate:     authz.New(denyingAuthorizer{denied: map[string]bool{items[1].ID.String(): true}}),
	}

	mapping, err := uc.LoadTabularsByIDs(context.Background(), "alice",
		[]domain.TabularID{items[0].ID, items[1].ID, items[2].ID}, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, mapping.Len())

	v, ok := mapping.Get(items[0].ID)
	assert.True(t, ok)
	assert.Equal(t, items[0].ID, v.ID)

	_, ok = mapping.Get(items[1].ID)
	assert.False(t, ok, "denied row must not appear in the mapping")

	mapping, err = uc.LoadTabularsByIDs(context.Background(), "alice",
		[]domain.TabularID{items[0].ID, items[2].ID}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, mapping.Len())
}
