package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placedir/internal/db"
	"placedir/internal/domain"
)

func TestPrincipalRepo_CreateGetDelete(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewPrincipalRepo(writeDB)
	ctx := context.Background()

	in := &domain.Principal{
		UID:      "u-1",
		Role:     domain.RoleBusinessOperator,
		Email:    "op@example.com",
		TenantID: "t-1",
	}
	require.NoError(t, repo.Create(ctx, in))

	got, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBusinessOperator, got.Role)
	assert.Equal(t, "op@example.com", got.Email)
	assert.Equal(t, "t-1", got.TenantID)
	assert.False(t, got.Blocked)
	assert.False(t, got.CreatedAt.IsZero())

	var exists *domain.AlreadyExistsError
	require.ErrorAs(t, repo.Create(ctx, in), &exists)

	require.NoError(t, repo.Delete(ctx, "u-1"))
	var notFound *domain.NotFoundError
	_, err = repo.Get(ctx, "u-1")
	require.ErrorAs(t, err, &notFound)

	// Absent rows delete without error so retried batches converge.
	require.NoError(t, repo.Delete(ctx, "u-1"))
}

func TestPrincipalRepo_UpsertOverwrites(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewPrincipalRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Principal{UID: "u-1", Role: domain.RoleSalesAgent, Email: "a@example.com"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Principal{UID: "u-1", Role: domain.RoleStandardUser, Email: "a@example.com"}))

	got, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStandardUser, got.Role)
}

func TestPrincipalRepo_SetRoleAndBlocked(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewPrincipalRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Principal{UID: "u-1", Role: domain.RoleSalesAgent, Email: "a@example.com"}))

	require.NoError(t, repo.SetRole(ctx, "u-1", domain.RoleContentManager))
	require.NoError(t, repo.SetBlocked(ctx, "u-1", true))

	got, err := repo.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleContentManager, got.Role)
	assert.True(t, got.Blocked)

	var notFound *domain.NotFoundError
	require.ErrorAs(t, repo.SetRole(ctx, "ghost", domain.RoleContentManager), &notFound)
	require.ErrorAs(t, repo.SetBlocked(ctx, "ghost", true), &notFound)
}

func TestTenantRepo_MembershipSet(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewTenantRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.BusinessTenant{
		ID:                "t-1",
		Name:              "Acme",
		OwnerUID:          "op-1",
		AssociatedUserIDs: []string{"op-1", "op-1", "helper-1"},
	}))

	got, err := repo.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	// Duplicates collapse; members come back sorted.
	assert.Equal(t, []string{"helper-1", "op-1"}, got.AssociatedUserIDs)

	got.Name = "Acme Corp"
	got.AssociatedUserIDs = []string{"op-1"}
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, []string{"op-1"}, got.AssociatedUserIDs)

	require.NoError(t, repo.Delete(ctx, "t-1"))
	var notFound *domain.NotFoundError
	_, err = repo.Get(ctx, "t-1")
	require.ErrorAs(t, err, &notFound)
}

func TestTenantRepo_UpdateUnknown(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewTenantRepo(writeDB)

	err := repo.Update(context.Background(), &domain.BusinessTenant{ID: "ghost", Name: "X"})
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResourceRepo_ContentRoundTrip(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewResourceRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.ManagedResource{
		ID:          "r-1",
		OwnerTenant: "t-1",
		Active:      true,
		Content: map[string]interface{}{
			"name":      "Cafe Acme",
			"phone":     "+1 555 0100",
			"imageRefs": []interface{}{"img-1", "img-2"},
		},
	}))

	got, err := repo.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "t-1", got.OwnerTenant)
	assert.Equal(t, "Cafe Acme", got.Content["name"])
	assert.Equal(t, []interface{}{"img-1", "img-2"}, got.Content["imageRefs"])

	got.Active = false
	delete(got.Content, "phone")
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotContains(t, got.Content, "phone")
}

func TestResourceRepo_UnownedResource(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewResourceRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.ManagedResource{ID: "r-1", Active: true}))

	got, err := repo.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Empty(t, got.OwnerTenant)
}

func TestAnalyticsRepo_InsertAndList(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewAnalyticsRepo(writeDB)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, &domain.AnalyticsEvent{
		ID: "e-1", POIID: "poi-1", CategoryID: "cat-food", Timestamp: ts,
	}))
	require.NoError(t, repo.Insert(ctx, &domain.AnalyticsEvent{
		ID: "e-2", POIID: "poi-2", CategoryID: "cat-fuel", Timestamp: ts.Add(time.Hour),
	}))

	events, total, err := repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, events, 2)

	got, err := repo.Get(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, "poi-1", got.POIID)
	assert.True(t, got.Timestamp.Equal(ts))
}

func TestAuditRepo_Filtering(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB)
	ctx := context.Background()

	msg := "boom"
	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{ActorUID: "admin-1", Action: "CREATE_SALES_AGENT", TargetUID: "u-1", Status: "ALLOWED"}))
	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{ActorUID: "admin-1", Action: "DELETE_SALES_AGENT", TargetUID: "u-1", Status: "ERROR", ErrorMessage: &msg}))
	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{ActorUID: "op-1", Action: "DOC_update", Collection: "managedResources", Status: "DENIED"}))

	entries, total, err := repo.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 3)

	actor := "admin-1"
	entries, total, err = repo.List(ctx, domain.AuditFilter{ActorUID: &actor})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	status := "DENIED"
	entries, _, err = repo.List(ctx, domain.AuditFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DOC_update", entries[0].Action)
	assert.Equal(t, "managedResources", entries[0].Collection)

	action := "DELETE_SALES_AGENT"
	entries, _, err = repo.List(ctx, domain.AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.Equal(t, "boom", *entries[0].ErrorMessage)
}

func TestWithinTx_RollbackLeavesNoPartialBatch(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	principals := NewPrincipalRepo(writeDB)
	tenants := NewTenantRepo(writeDB)
	tx := NewTxManager(writeDB)
	ctx := context.Background()

	require.NoError(t, tenants.Create(ctx, &domain.BusinessTenant{ID: "t-1", Name: "Taken", OwnerUID: "op-0"}))

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := principals.Create(ctx, &domain.Principal{UID: "op-1", Role: domain.RoleBusinessOperator, Email: "op@example.com"}); err != nil {
			return err
		}
		// Conflicts with the seeded tenant and aborts the batch.
		return tenants.Create(ctx, &domain.BusinessTenant{ID: "t-1", Name: "Acme", OwnerUID: "op-1"})
	})
	var exists *domain.AlreadyExistsError
	require.ErrorAs(t, err, &exists)

	var notFound *domain.NotFoundError
	_, err = principals.Get(ctx, "op-1")
	require.ErrorAs(t, err, &notFound)
}

func TestWithinTx_Commit(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	principals := NewPrincipalRepo(writeDB)
	tx := NewTxManager(writeDB)
	ctx := context.Background()

	require.NoError(t, tx.WithinTx(ctx, func(ctx context.Context) error {
		return principals.Create(ctx, &domain.Principal{UID: "u-1", Role: domain.RoleStandardUser, Email: "a@example.com"})
	}))

	_, err := principals.Get(ctx, "u-1")
	require.NoError(t, err)
}
