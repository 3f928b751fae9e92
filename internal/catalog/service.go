package catalog

import (
	"context"

	"github.com/lakekeeper/catalog/internal/authz"
	"github.com/lakekeeper/catalog/internal/cache"
	"github.com/lakekeeper/catalog/internal/commit"
	"github.com/lakekeeper/catalog/internal/config"
	"github.com/lakekeeper/catalog/internal/domain"
	"github.com/lakekeeper/catalog/internal/events"
	"github.com/lakekeeper/catalog/internal/pagination"
	"github.com/lakekeeper/catalog/internal/platform/mlog"
	"github.com/lakekeeper/catalog/internal/platform/mtelemetry"
	"github.com/lakekeeper/catalog/internal/platform/perr"
	"github.com/lakekeeper/catalog/internal/secrets"
	"github.com/lakekeeper/catalog/internal/storage"
)

// UseCase aggregates the repositories, caches, gate, and ambient helpers
// every catalog operation needs, the same shape as the teacher's
// command.UseCase/query.UseCase: a flat struct of narrow interfaces,
// constructed once at bootstrap and passed to every handler.
type UseCase struct {
	Warehouses WarehouseRepository
	Namespaces NamespaceRepository
	Tabulars   TabularRepository

	Cache   *cache.Caches
	Gate    *authz.Gate
	Store   storage.Profile
	Secrets secrets.Store

	Dispatcher *events.Dispatcher

	Config config.Config
}

// CreateWarehouse persists a new warehouse, optionally storing its storage
// credentials through the secrets contract and recording the resulting
// secret id rather than the credentials themselves.
func (uc *UseCase) CreateWarehouse(ctx context.Context, principal string, projectID, name string, storageProfileJSON []byte, credentials []byte) (domain.Warehouse, error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.CreateWarehouse")
	defer span.End()

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceWarehouse, ResourceID: projectID, Action: authz.ActionCreateWarehouse,
	}); err != nil {
		return domain.Warehouse{}, err
	}

	w := domain.Warehouse{ProjectID: projectID, Name: name, Status: domain.WarehouseStatusActive, StorageProfileJSON: storageProfileJSON}

	if len(credentials) > 0 {
		secretID, err := uc.Secrets.PersistSecret(ctx, credentials)
		if err != nil {
			mtelemetry.HandleSpanError(span, "persist warehouse secret failed", err)
			return domain.Warehouse{}, err
		}

		w.SecretID = &secretID
	}

	created, err := uc.Warehouses.Create(ctx, w)
	if err != nil {
		mtelemetry.HandleSpanError(span, "create warehouse failed", err)
		return domain.Warehouse{}, err
	}

	if uc.Config.WarehouseCache.Enabled {
		uc.Cache.Warehouses.Put(created.ID, created.Name, created, created.Version)
	}

	uc.Dispatcher.Dispatch(ctx, events.Event{Kind: "com.lakekeeper.catalog.warehouse.create", WarehouseID: created.ID.String()})

	return created, nil
}

// CreateNamespace validates depth and name uniqueness, checks the actor may
// create a namespace at this point in the tree, and persists the row.
func (uc *UseCase) CreateNamespace(ctx context.Context, principal string, warehouseID domain.WarehouseID, parentID *domain.NamespaceID, levels []string, properties map[string]string) (domain.Namespace, error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.CreateNamespace")
	defer span.End()

	logger := mlog.FromContext(ctx)

	if len(levels) > uc.Config.MaxNamespaceDepth {
		err := perr.Translate(perr.ErrNamespaceDepthExceeded, "namespace", uc.Config.MaxNamespaceDepth)
		mtelemetry.HandleSpanError(span, "namespace depth exceeded", err)

		return domain.Namespace{}, err
	}

	wh, err := uc.loadWarehouseChecked(ctx, warehouseID)
	if err != nil {
		return domain.Namespace{}, err
	}

	if !wh.IsActive() {
		return domain.Namespace{}, perr.Translate(perr.ErrWarehouseInactive, "warehouse")
	}

	var ancestry []domain.NamespaceID
	if parentID != nil {
		ancestry = []domain.NamespaceID{*parentID}
	}

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceWarehouse, ResourceID: warehouseID.String(),
		Action: authz.ActionCreateNamespace, Ancestry: ancestry,
	}); err != nil {
		return domain.Namespace{}, err
	}

	propsJSON, err := marshalProperties(properties)
	if err != nil {
		return domain.Namespace{}, err
	}

	n := domain.Namespace{WarehouseID: warehouseID, ParentID: parentID, Levels: levels, PropertiesJSON: propsJSON}

	created, err := uc.Namespaces.Create(ctx, n)
	if err != nil {
		mtelemetry.HandleSpanError(span, "create namespace failed", err)
		return domain.Namespace{}, err
	}

	if uc.Config.NamespaceCache.Enabled {
		uc.Cache.Namespaces.Put(created.ID, created.Name(), created, created.Version)
	}

	logger.Infof("catalog: created namespace %s in warehouse %s", created.Name(), warehouseID)
	uc.Dispatcher.Dispatch(ctx, events.Event{Kind: "com.lakekeeper.catalog.namespace.create", WarehouseID: warehouseID.String()})

	return created, nil
}

// LoadNamespace resolves a namespace by its level path, serving from cache
// when freshness allows, and enforces the can-see phase of authorization.
func (uc *UseCase) LoadNamespace(ctx context.Context, principal string, warehouseID domain.WarehouseID, levels []string, freshness cache.Freshness) (domain.Namespace, error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.LoadNamespace")
	defer span.End()

	name := joinLevels(levels)

	var (
		n   domain.Namespace
		err error
	)

	if uc.Config.NamespaceCache.Enabled {
		if cached, ok := uc.Cache.Namespaces.GetByName(name, freshness, 0); ok {
			n = cached
		} else {
			n, err = uc.Namespaces.GetByLevels(ctx, warehouseID, levels)
			if err != nil {
				mtelemetry.HandleSpanError(span, "load namespace failed", err)
				return domain.Namespace{}, err
			}

			uc.Cache.Namespaces.Put(n.ID, n.Name(), n, n.Version)
		}
	} else {
		n, err = uc.Namespaces.GetByLevels(ctx, warehouseID, levels)
		if err != nil {
			mtelemetry.HandleSpanError(span, "load namespace failed", err)
			return domain.Namespace{}, err
		}
	}

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceNamespace, ResourceID: n.ID.String(), Action: authz.ActionCanSee,
	}); err != nil {
		return domain.Namespace{}, err
	}

	return n, nil
}

// DropNamespace removes a namespace after checking protection and
// emptiness (unless force is set), matching spec.md §4.1's cascade rules.
func (uc *UseCase) DropNamespace(ctx context.Context, principal string, namespaceID domain.NamespaceID, force bool) error {
	ctx, span := mtelemetry.Start(ctx, "catalog.DropNamespace")
	defer span.End()

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceNamespace, ResourceID: namespaceID.String(), Action: authz.ActionDrop,
	}); err != nil {
		return err
	}

	if err := uc.Namespaces.Delete(ctx, namespaceID, force); err != nil {
		mtelemetry.HandleSpanError(span, "drop namespace failed", err)
		return err
	}

	uc.Cache.Namespaces.Invalidate(namespaceID)

	return nil
}

// CreateTable creates a new table's identity row and initial metadata
// commit in one operation, per spec.md §4.1/§4.4's create_table contract.
func (uc *UseCase) CreateTable(ctx context.Context, principal string, namespaceID domain.NamespaceID, warehouseID domain.WarehouseID, name string, initial domain.TableMetadata, store commit.Store, genLocation commit.LocationGenerator) (domain.Tabular, domain.TableMetadata, error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.CreateTable")
	defer span.End()

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceNamespace, ResourceID: namespaceID.String(), Action: authz.ActionCreateTable,
	}); err != nil {
		return domain.Tabular{}, domain.TableMetadata{}, err
	}

	t := domain.Tabular{WarehouseID: warehouseID, NamespaceID: namespaceID, Kind: domain.TabularKindTable, Name: name}

	created, err := uc.Tabulars.Create(ctx, t)
	if err != nil {
		mtelemetry.HandleSpanError(span, "create table failed", err)
		return domain.Tabular{}, domain.TableMetadata{}, err
	}

	metadata, err := commit.CommitTable(ctx, store, mlog.FromContext(ctx), commit.DefaultRetryPolicy(), genLocation, created.ID,
		[]commit.TableRequirement{{Kind: commit.RequireTableNotExists}}, tableUpdatesFromInitial(initial))
	if err != nil {
		return domain.Tabular{}, domain.TableMetadata{}, err
	}

	if uc.Config.TabularCache.Enabled {
		uc.Cache.Tabulars.Put(created.ID, created.Name, created, created.Version)
	}

	uc.Dispatcher.Dispatch(ctx, events.Event{Kind: "com.lakekeeper.catalog.tabular.create", WarehouseID: warehouseID.String()})

	return created, metadata, nil
}

// DropTable stages a table for deletion (soft-delete; the
// tabular_expiration task removes the underlying storage once DeleteAfter
// elapses), or, when purgeImmediately is set, removes its storage and its
// row right away. Both paths are gated by the same ActionDrop check.
func (uc *UseCase) DropTable(ctx context.Context, principal string, tabularID domain.TabularID, purgeImmediately bool) error {
	ctx, span := mtelemetry.Start(ctx, "catalog.DropTable")
	defer span.End()

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceTable, ResourceID: tabularID.String(), Action: authz.ActionDrop,
	}); err != nil {
		return err
	}

	t, err := uc.Tabulars.Get(ctx, tabularID)
	if err != nil {
		return err
	}

	if t.Protected {
		return perr.Translate(perr.ErrResourceProtected, "tabular")
	}

	if err := uc.Tabulars.StageForDeletion(ctx, tabularID, t.Version); err != nil {
		mtelemetry.HandleSpanError(span, "stage tabular for deletion failed", err)
		return err
	}

	uc.Cache.Tabulars.Invalidate(tabularID)

	if purgeImmediately {
		if err := uc.Store.RemoveAll(ctx, t.MetadataLocation); err != nil {
			return err
		}

		return uc.Tabulars.Purge(ctx, tabularID)
	}

	return nil
}

// RenameTable moves a table to a new namespace and/or name under CAS,
// re-checking authorization against the destination namespace.
func (uc *UseCase) RenameTable(ctx context.Context, principal string, tabularID domain.TabularID, destNamespaceID domain.NamespaceID, newName string) error {
	ctx, span := mtelemetry.Start(ctx, "catalog.RenameTable")
	defer span.End()

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceTable, ResourceID: tabularID.String(), Action: authz.ActionRename,
	}); err != nil {
		return err
	}

	if err := uc.Gate.Check(ctx, authz.Request{
		Principal: principal, Kind: authz.ResourceNamespace, ResourceID: destNamespaceID.String(), Action: authz.ActionCreateTable,
	}); err != nil {
		return err
	}

	t, err := uc.Tabulars.Get(ctx, tabularID)
	if err != nil {
		return err
	}

	if err := uc.Tabulars.Rename(ctx, tabularID, destNamespaceID, newName, t.Version); err != nil {
		mtelemetry.HandleSpanError(span, "rename tabular failed", err)
		return err
	}

	uc.Cache.Tabulars.Invalidate(tabularID)

	return nil
}

// defaultPageSize is used when a caller passes pageSize <= 0.
const defaultPageSize = 100

// ListWarehouses returns a page of warehouses under projectID, fetching
// past any rows the principal cannot see so a short page never leaks which
// rows were filtered out (spec.md §4.6).
func (uc *UseCase) ListWarehouses(ctx context.Context, principal string, projectID string, cursor string, pageSize int) (pagination.Result[domain.Warehouse], error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.ListWarehouses")
	defer span.End()

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	fetch := func(ctx context.Context, cursor string, limit int) (pagination.Page[domain.Warehouse], error) {
		return uc.Warehouses.List(ctx, projectID, cursor, limit)
	}

	filter := func(ctx context.Context, w domain.Warehouse) (bool, error) {
		return uc.Gate.CanIncludeInList(ctx, authz.Request{
			Principal: principal, Kind: authz.ResourceWarehouse, ResourceID: w.ID.String(),
		})
	}

	result, err := pagination.FetchUntilFullPage(ctx, fetch, filter, func(w domain.Warehouse) string { return w.ID.String() }, cursor, pageSize)
	if err != nil {
		mtelemetry.HandleSpanError(span, "list warehouses failed", err)
		return pagination.Result[domain.Warehouse]{}, err
	}

	return result, nil
}

// ListNamespaces returns a page of child namespaces under parentID (root
// namespaces when parentID is nil), filtered the same way as
// ListWarehouses.
func (uc *UseCase) ListNamespaces(ctx context.Context, principal string, warehouseID domain.WarehouseID, parentID *domain.NamespaceID, cursor string, pageSize int) (pagination.Result[domain.Namespace], error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.ListNamespaces")
	defer span.End()

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	fetch := func(ctx context.Context, cursor string, limit int) (pagination.Page[domain.Namespace], error) {
		return uc.Namespaces.List(ctx, warehouseID, parentID, cursor, limit)
	}

	filter := func(ctx context.Context, n domain.Namespace) (bool, error) {
		return uc.Gate.CanIncludeInList(ctx, authz.Request{
			Principal: principal, Kind: authz.ResourceNamespace, ResourceID: n.ID.String(),
		})
	}

	result, err := pagination.FetchUntilFullPage(ctx, fetch, filter, func(n domain.Namespace) string { return n.ID.String() }, cursor, pageSize)
	if err != nil {
		mtelemetry.HandleSpanError(span, "list namespaces failed", err)
		return pagination.Result[domain.Namespace]{}, err
	}

	return result, nil
}

// ListTables returns a page of tables in namespaceID.
func (uc *UseCase) ListTables(ctx context.Context, principal string, namespaceID domain.NamespaceID, cursor string, pageSize int) (pagination.Result[domain.Tabular], error) {
	return uc.listTabulars(ctx, principal, namespaceID, domain.TabularKindTable, authz.ResourceTable, cursor, pageSize)
}

// ListViews returns a page of views in namespaceID.
func (uc *UseCase) ListViews(ctx context.Context, principal string, namespaceID domain.NamespaceID, cursor string, pageSize int) (pagination.Result[domain.Tabular], error) {
	return uc.listTabulars(ctx, principal, namespaceID, domain.TabularKindView, authz.ResourceView, cursor, pageSize)
}

func (uc *UseCase) listTabulars(ctx context.Context, principal string, namespaceID domain.NamespaceID, kind domain.TabularKind, resource authz.ResourceKind, cursor string, pageSize int) (pagination.Result[domain.Tabular], error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.listTabulars")
	defer span.End()

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	fetch := func(ctx context.Context, cursor string, limit int) (pagination.Page[domain.Tabular], error) {
		return uc.Tabulars.List(ctx, namespaceID, kind, cursor, limit)
	}

	filter := func(ctx context.Context, t domain.Tabular) (bool, error) {
		return uc.Gate.CanIncludeInList(ctx, authz.Request{
			Principal: principal, Kind: resource, ResourceID: t.ID.String(),
		})
	}

	result, err := pagination.FetchUntilFullPage(ctx, fetch, filter, func(t domain.Tabular) string { return t.ID.String() }, cursor, pageSize)
	if err != nil {
		mtelemetry.HandleSpanError(span, "list tabulars failed", err)
		return pagination.Result[domain.Tabular]{}, err
	}

	return result, nil
}

// LoadTabularsByIDs resolves a caller-supplied batch of table/view ids
// (e.g. a commit_transaction request naming several tables at once) to
// their current rows, silently dropping any id the principal cannot see
// and capping the result at maxResults once filtering is done, per
// pagination.TakeNAuthzApproved's contract. The returned mapping preserves
// request order and still supports O(1) lookup by id, the shape a
// multi-table response body needs.
func (uc *UseCase) LoadTabularsByIDs(ctx context.Context, principal string, ids []domain.TabularID, maxResults int) (*pagination.PaginatedMapping[domain.TabularID, domain.Tabular], error) {
	ctx, span := mtelemetry.Start(ctx, "catalog.LoadTabularsByIDs")
	defer span.End()

	rows, err := uc.Tabulars.ListByIDs(ctx, ids)
	if err != nil {
		mtelemetry.HandleSpanError(span, "load tabulars by ids failed", err)
		return nil, err
	}

	byID := make(map[domain.TabularID]domain.Tabular, len(rows))
	for _, t := range rows {
		byID[t.ID] = t
	}

	var approved []domain.Tabular

	for _, id := range ids {
		t, found := byID[id]
		if !found {
			continue
		}

		delete(byID, id)

		resource := authz.ResourceTable
		if t.Kind == domain.TabularKindView {
			resource = authz.ResourceView
		}

		ok, err := uc.Gate.CanIncludeInList(ctx, authz.Request{Principal: principal, Kind: resource, ResourceID: t.ID.String()})
		if err != nil {
			mtelemetry.HandleSpanError(span, "authz filter failed", err)
			return nil, err
		}

		if ok {
			approved = append(approved, t)
		}
	}

	approved = pagination.TakeNAuthzApproved(approved, maxResults)

	mapping := pagination.NewPaginatedMapping[domain.TabularID, domain.Tabular](len(approved))
	for _, t := range approved {
		mapping.Put(t.ID, t)
	}

	return mapping, nil
}

func (uc *UseCase) loadWarehouseChecked(ctx context.Context, id domain.WarehouseID) (domain.Warehouse, error) {
	if uc.Config.WarehouseCache.Enabled {
		if cached, ok := uc.Cache.Warehouses.Get(id, cache.Use, 0); ok {
			return cached, nil
		}
	}

	w, err := uc.Warehouses.Get(ctx, id)
	if err != nil {
		return domain.Warehouse{}, err
	}

	if uc.Config.WarehouseCache.Enabled {
		uc.Cache.Warehouses.Put(w.ID, w.Name, w, w.Version)
	}

	return w, nil
}

func joinLevels(levels []string) string {
	out := ""

	for i, l := range levels {
		if i > 0 {
			out += "."
		}

		out += l
	}

	return out
}

// tableUpdatesFromInitial converts a freshly-built TableMetadata into the
// update list CommitTable expects for a from-scratch create, so
// CreateTable can reuse the same commit path every other mutation uses
// rather than a separate insert-only code path.
func tableUpdatesFromInitial(m domain.TableMetadata) []commit.TableUpdate {
	updates := []commit.TableUpdate{
		{Kind: commit.TableUpdateAssignUUID, UUID: m.TableUUID},
		{Kind: commit.TableUpdateUpgradeFormatVersion, FormatVersion: m.FormatVersion},
		{Kind: commit.TableUpdateSetLocation, Location: m.Location},
	}

	for _, s := range m.Schemas {
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateAddSchema, Schema: s})
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateSetCurrentSchema, SchemaID: -1})
	}

	for _, ps := range m.PartitionSpecs {
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateAddPartitionSpec, PartitionSpec: ps})
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateSetDefaultSpec, SpecID: -1})
	}

	for _, so := range m.SortOrders {
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateAddSortOrder, SortOrder: so})
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateSetDefaultSortOrder, SortOrderID: -1})
	}

	if len(m.Properties) > 0 {
		updates = append(updates, commit.TableUpdate{Kind: commit.TableUpdateSetProperties, Properties: m.Properties})
	}

	return updates
}
