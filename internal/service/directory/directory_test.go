package directory

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placedir/internal/db"
	"placedir/internal/db/repository"
	"placedir/internal/domain"
)

func TestResolve(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	tenants := repository.NewTenantRepo(writeDB)
	svc := NewService(tenants)
	ctx := context.Background()

	require.NoError(t, tenants.Create(ctx, &domain.BusinessTenant{
		ID:                "t-1",
		Name:              "Acme",
		OwnerUID:          "op-1",
		AssociatedUserIDs: []string{"op-1", "helper-1"},
	}))

	got, err := svc.Resolve(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.ElementsMatch(t, []string{"op-1", "helper-1"}, got.AssociatedUserIDs)
}

func TestResolve_MembershipChangeIsVisibleImmediately(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	tenants := repository.NewTenantRepo(writeDB)
	svc := NewService(tenants)
	ctx := context.Background()

	require.NoError(t, tenants.Create(ctx, &domain.BusinessTenant{
		ID: "t-1", Name: "Acme", OwnerUID: "op-1", AssociatedUserIDs: []string{"op-1"},
	}))

	got, err := svc.Resolve(ctx, "t-1")
	require.NoError(t, err)
	got.AssociatedUserIDs = append(got.AssociatedUserIDs, "helper-1")
	require.NoError(t, tenants.Update(ctx, got))

	got, err = svc.Resolve(ctx, "t-1")
	require.NoError(t, err)
	assert.Contains(t, got.AssociatedUserIDs, "helper-1")
}

func TestResolve_Errors(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	svc := NewService(repository.NewTenantRepo(writeDB))

	var invalid *domain.InvalidArgumentError
	_, err := svc.Resolve(context.Background(), "")
	require.ErrorAs(t, err, &invalid)

	var notFound *domain.NotFoundError
	_, err = svc.Resolve(context.Background(), "ghost")
	require.ErrorAs(t, err, &notFound)
}
