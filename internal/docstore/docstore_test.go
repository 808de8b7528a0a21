package docstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placedir/internal/db"
	"placedir/internal/db/repository"
	"placedir/internal/domain"
	"placedir/internal/policy"
	"placedir/internal/service/directory"
)

type fixture struct {
	store   *Store
	tenants *repository.TenantRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)
	_ = readDB

	tenants := repository.NewTenantRepo(writeDB)
	engine, err := policy.NewEngine(directory.NewService(tenants))
	require.NoError(t, err)

	store := NewStore(
		engine,
		repository.NewResourceRepo(writeDB),
		repository.NewAnalyticsRepo(writeDB),
		repository.NewAssetRepo(writeDB),
		tenants,
		repository.NewAuditRepo(writeDB),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return &fixture{store: store, tenants: tenants}
}

func ctxAs(uid string, role domain.Role, scope string) context.Context {
	return domain.WithCaller(context.Background(), domain.Caller{UID: uid, Role: role, ScopeRef: scope})
}

func adminCtx() context.Context {
	return ctxAs("admin-1", domain.RoleAdmin, "")
}

func (f *fixture) seedResource(t *testing.T, ctx context.Context, fields map[string]interface{}) string {
	t.Helper()
	doc, err := f.store.Create(ctx, domain.CollectionResources, fields)
	require.NoError(t, err)
	return doc["id"].(string)
}

func (f *fixture) seedTenant(t *testing.T, id, name string, members ...string) {
	t.Helper()
	require.NoError(t, f.tenants.Create(context.Background(), &domain.BusinessTenant{
		ID: id, Name: name, OwnerUID: id, AssociatedUserIDs: append([]string{id}, members...),
	}))
}

func TestAnalytics_AnonymousCreate(t *testing.T) {
	f := newFixture(t)
	doc, err := f.store.Create(context.Background(), domain.CollectionAnalyticsEvents, map[string]interface{}{
		"poiId":      "poi-1",
		"categoryId": "cat-food",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc["id"])
	assert.Equal(t, "poi-1", doc["poiId"])
}

func TestAnalytics_Create_ExtraFieldRejectedAsInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(context.Background(), domain.CollectionAnalyticsEvents, map[string]interface{}{
		"poiId":      "poi-1",
		"categoryId": "cat-food",
		"timestamp":  time.Now(),
		"userAgent":  "curl",
	})
	require.Error(t, err)
	var inv *domain.InvalidArgumentError
	assert.ErrorAs(t, err, &inv)
}

func TestAnalytics_Create_BadTimestampStringRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(context.Background(), domain.CollectionAnalyticsEvents, map[string]interface{}{
		"poiId":      "poi-1",
		"categoryId": "cat-food",
		"timestamp":  "yesterday",
	})
	var inv *domain.InvalidArgumentError
	assert.ErrorAs(t, err, &inv)
}

func TestAnalytics_Read_AdminOnly(t *testing.T) {
	f := newFixture(t)
	doc, err := f.store.Create(context.Background(), domain.CollectionAnalyticsEvents, map[string]interface{}{
		"poiId": "poi-1", "categoryId": "cat-1", "timestamp": time.Now(),
	})
	require.NoError(t, err)
	id := doc["id"].(string)

	_, err = f.store.Get(adminCtx(), domain.CollectionAnalyticsEvents, id)
	assert.NoError(t, err)

	_, err = f.store.Get(ctxAs("cm-1", domain.RoleContentManager, ""), domain.CollectionAnalyticsEvents, id)
	var denied *domain.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)

	_, err = f.store.Get(context.Background(), domain.CollectionAnalyticsEvents, id)
	var unauth *domain.UnauthenticatedError
	assert.ErrorAs(t, err, &unauth)
}

func TestResource_Create_RequiresElevatedRole(t *testing.T) {
	f := newFixture(t)
	fields := map[string]interface{}{"name": "Cafe", "active": true}

	_, err := f.store.Create(ctxAs("u-1", domain.RoleStandardUser, ""), domain.CollectionResources, fields)
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	_, err = f.store.Create(context.Background(), domain.CollectionResources, fields)
	var unauth *domain.UnauthenticatedError
	require.ErrorAs(t, err, &unauth)

	_, err = f.store.Create(ctxAs("cm-1", domain.RoleContentManager, ""), domain.CollectionResources, fields)
	assert.NoError(t, err)
}

func TestResource_InactiveHiddenFromLowPrivilegeReads(t *testing.T) {
	f := newFixture(t)
	activeID := f.seedResource(t, adminCtx(), map[string]interface{}{"name": "Open", "active": true})
	inactiveID := f.seedResource(t, adminCtx(), map[string]interface{}{"name": "Closed", "active": false})

	_, err := f.store.Get(context.Background(), domain.CollectionResources, activeID)
	assert.NoError(t, err)

	_, err = f.store.Get(context.Background(), domain.CollectionResources, inactiveID)
	var unauth *domain.UnauthenticatedError
	assert.ErrorAs(t, err, &unauth)

	_, err = f.store.Get(ctxAs("u-1", domain.RoleStandardUser, ""), domain.CollectionResources, inactiveID)
	var denied *domain.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)

	docs, _, err := f.store.List(context.Background(), domain.CollectionResources, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, activeID, docs[0]["id"])

	docs, _, err = f.store.List(adminCtx(), domain.CollectionResources, domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestResource_OperatorUpdate_OwnedAndAllowListed(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t, "op-1", "Acme")
	id := f.seedResource(t, adminCtx(), map[string]interface{}{
		"name": "Cafe", "active": true, "ownerBusinessRef": "op-1",
	})

	ctx := ctxAs("op-1", domain.RoleBusinessOperator, "op-1")
	doc, err := f.store.Update(ctx, domain.CollectionResources, id, map[string]interface{}{
		"phone": "+1 555 0100",
	})
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0100", doc["phone"])
}

func TestResource_OperatorUpdate_DisallowedFieldFailsWholeWrite(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t, "op-1", "Acme")
	id := f.seedResource(t, adminCtx(), map[string]interface{}{
		"name": "Cafe", "active": true, "ownerBusinessRef": "op-1",
	})

	ctx := ctxAs("op-1", domain.RoleBusinessOperator, "op-1")
	_, err := f.store.Update(ctx, domain.CollectionResources, id, map[string]interface{}{
		"phone":  "+1 555 0100",
		"active": false,
	})
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	doc, err := f.store.Get(adminCtx(), domain.CollectionResources, id)
	require.NoError(t, err)
	assert.NotContains(t, doc, "phone")
	assert.Equal(t, true, doc["active"])
}

func TestResource_OperatorUpdate_IDFieldFailsWholeWrite(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t, "op-1", "Acme")
	id := f.seedResource(t, adminCtx(), map[string]interface{}{
		"name": "Cafe", "active": true, "ownerBusinessRef": "op-1",
	})

	ctx := ctxAs("op-1", domain.RoleBusinessOperator, "op-1")
	_, err := f.store.Update(ctx, domain.CollectionResources, id, map[string]interface{}{
		"id":          "evil-rekey",
		"description": "updated",
	})
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	doc, err := f.store.Get(adminCtx(), domain.CollectionResources, id)
	require.NoError(t, err)
	assert.NotContains(t, doc, "description")
	assert.Equal(t, id, doc["id"])
}

func TestResource_AdminUpdate_IDMismatchRejected(t *testing.T) {
	f := newFixture(t)
	id := f.seedResource(t, adminCtx(), map[string]interface{}{"name": "Cafe", "active": true})

	_, err := f.store.Update(adminCtx(), domain.CollectionResources, id, map[string]interface{}{
		"id":          "other-id",
		"description": "updated",
	})
	var inv *domain.InvalidArgumentError
	require.ErrorAs(t, err, &inv)

	doc, err := f.store.Get(adminCtx(), domain.CollectionResources, id)
	require.NoError(t, err)
	assert.NotContains(t, doc, "description")

	// An echoed matching id is harmless and is dropped before apply.
	doc, err = f.store.Update(adminCtx(), domain.CollectionResources, id, map[string]interface{}{
		"id":          id,
		"description": "updated",
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", doc["description"])
	assert.Equal(t, id, doc["id"])
}

func TestResource_OperatorUpdate_ForeignResourceDenied(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t, "op-1", "Acme")
	f.seedTenant(t, "op-2", "Globex")
	id := f.seedResource(t, adminCtx(), map[string]interface{}{
		"name": "Cafe", "active": true, "ownerBusinessRef": "op-2",
	})

	ctx := ctxAs("op-1", domain.RoleBusinessOperator, "op-1")
	_, err := f.store.Update(ctx, domain.CollectionResources, id, map[string]interface{}{
		"phone": "+1 555 0100",
	})
	var denied *domain.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestResource_Delete_AdminOnly(t *testing.T) {
	f := newFixture(t)
	id := f.seedResource(t, adminCtx(), map[string]interface{}{"name": "Cafe", "active": true})

	err := f.store.Delete(ctxAs("cm-1", domain.RoleContentManager, ""), domain.CollectionResources, id)
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	require.NoError(t, f.store.Delete(adminCtx(), domain.CollectionResources, id))

	_, err = f.store.Get(adminCtx(), domain.CollectionResources, id)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestTenant_OperatorReadsOnlyOwnTenant(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t, "op-1", "Acme")
	f.seedTenant(t, "op-2", "Globex")

	ctx := ctxAs("op-1", domain.RoleBusinessOperator, "op-1")
	doc, err := f.store.Get(ctx, domain.CollectionTenants, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", doc["name"])

	_, err = f.store.Get(ctx, domain.CollectionTenants, "op-2")
	var denied *domain.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)

	docs, _, err := f.store.List(ctx, domain.CollectionTenants, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "op-1", docs[0]["id"])
}

func TestTenant_CreateRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(adminCtx(), domain.CollectionTenants, map[string]interface{}{"name": "Rogue"})
	var denied *domain.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestTenant_AdminUpdateKeepsOwnerInMembers(t *testing.T) {
	f := newFixture(t)
	f.seedTenant(t, "op-1", "Acme")

	doc, err := f.store.Update(adminCtx(), domain.CollectionTenants, "op-1", map[string]interface{}{
		"associatedUserIds": []interface{}{"helper-1"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"helper-1", "op-1"}, doc["associatedUserIds"])
}

func TestAsset_WorldReadableElevatedWritable(t *testing.T) {
	f := newFixture(t)
	doc, err := f.store.Create(ctxAs("cm-1", domain.RoleContentManager, ""), domain.CollectionAssets, map[string]interface{}{
		"name": "pin-icon", "url": "https://cdn.example/pin.svg",
	})
	require.NoError(t, err)
	id := doc["id"].(string)

	got, err := f.store.Get(context.Background(), domain.CollectionAssets, id)
	require.NoError(t, err)
	assert.Equal(t, "pin-icon", got["name"])

	_, err = f.store.Update(ctxAs("u-1", domain.RoleStandardUser, ""), domain.CollectionAssets, id, map[string]interface{}{
		"name": "hijacked",
	})
	var denied *domain.PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestUnknownCollectionRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Get(adminCtx(), "secrets", "x")
	var inv *domain.InvalidArgumentError
	assert.ErrorAs(t, err, &inv)
}
