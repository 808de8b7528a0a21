package lifecycle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placedir/internal/claims"
	"placedir/internal/db"
	"placedir/internal/db/repository"
	"placedir/internal/domain"
	"placedir/internal/identity"
)

type fixture struct {
	svc        *Service
	provider   *identity.Provider
	principals *repository.PrincipalRepo
	tenants    *repository.TenantRepo
	audit      *repository.AuditRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	writeDB, _ := db.OpenTestSQLite(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := claims.NewCodec("0123456789abcdef0123456789abcdef", "placedir-test", time.Hour)
	require.NoError(t, err)

	provider := identity.NewProvider(repository.NewProviderAccountRepo(writeDB), codec, logger, identity.WithSynchronousHooks())
	principals := repository.NewPrincipalRepo(writeDB)
	tenants := repository.NewTenantRepo(writeDB)
	audit := repository.NewAuditRepo(writeDB)
	svc := NewService(provider, principals, tenants, repository.NewTxManager(writeDB), audit, logger)
	return &fixture{svc: svc, provider: provider, principals: principals, tenants: tenants, audit: audit}
}

func adminCtx() context.Context {
	return domain.WithCaller(context.Background(), domain.Caller{UID: "admin-1", Role: domain.RoleAdmin})
}

func operatorReq(name, username string) domain.CreateBusinessOperatorRequest {
	return domain.CreateBusinessOperatorRequest{Name: name, Username: username, Password: "Passw0rd"}
}

func TestCreateBusinessOperator(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	uid, err := f.svc.CreateBusinessOperator(ctx, operatorReq("Acme", "acme1"))
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	bundle, err := f.provider.GetClaims(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBusinessOperator, bundle.Role)
	assert.Equal(t, uid, bundle.ScopeRef)

	p, err := f.principals.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBusinessOperator, p.Role)
	assert.Equal(t, "acme1@operators.placedir.local", p.Email)
	assert.Equal(t, uid, p.TenantID)

	tenant, err := f.tenants.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Acme", tenant.Name)
	assert.Equal(t, uid, tenant.OwnerUID)
	assert.Equal(t, []string{uid}, tenant.AssociatedUserIDs)

	action := "CREATE_BUSINESS_OPERATOR"
	entries, _, err := f.audit.List(ctx, domain.AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin-1", entries[0].ActorUID)
	assert.Equal(t, "ALLOWED", entries[0].Status)
}

func TestCreateBusinessOperator_DuplicateUsernameLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	first, err := f.svc.CreateBusinessOperator(ctx, operatorReq("Acme", "acme1"))
	require.NoError(t, err)

	_, err = f.svc.CreateBusinessOperator(ctx, operatorReq("Imposter", "acme1"))
	var exists *domain.AlreadyExistsError
	require.ErrorAs(t, err, &exists)

	// Only the first operator's documents exist.
	tenants, _, err := f.tenants.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, first, tenants[0].ID)
}

func TestCreateBusinessOperator_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBusinessOperator(context.Background(), operatorReq("Acme", "acme1"))
	var unauth *domain.UnauthenticatedError
	require.ErrorAs(t, err, &unauth)

	opCtx := domain.WithCaller(context.Background(), domain.Caller{UID: "op-1", Role: domain.RoleBusinessOperator})
	_, err = f.svc.CreateBusinessOperator(opCtx, operatorReq("Acme", "acme1"))
	var denied *domain.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	// Rejected calls must not have provisioned anything.
	accounts, err := f.provider.ListAccountsCreatedBefore(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

// assertNothingProvisioned checks that no account, principal, or tenant
// document came into existence.
func (f *fixture) assertNothingProvisioned(t *testing.T, ctx context.Context) {
	t.Helper()
	accounts, err := f.provider.ListAccountsCreatedBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, accounts)
	principals, _, err := f.principals.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, principals)
	tenants, _, err := f.tenants.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, tenants)
}

func TestCreateBusinessOperator_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	var invalid *domain.InvalidArgumentError
	for name, req := range map[string]domain.CreateBusinessOperatorRequest{
		"empty name":       {Name: "", Username: "acme1", Password: "Passw0rd"},
		"short username":   {Name: "Acme", Username: "ab", Password: "Passw0rd"},
		"illegal username": {Name: "Acme", Username: "acme one", Password: "Passw0rd"},
		"short password":   {Name: "Acme", Username: "acme1", Password: "abc"},
	} {
		_, err := f.svc.CreateBusinessOperator(ctx, req)
		require.ErrorAs(t, err, &invalid, name)
	}
	f.assertNothingProvisioned(t, ctx)
}

func TestCreateContentManager_InvalidInputWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	var invalid *domain.InvalidArgumentError
	for name, req := range map[string]domain.CreateContentManagerRequest{
		"empty email":    {Email: "", Password: "Passw0rd"},
		"short password": {Email: "cm@example.com", Password: "abc"},
	} {
		_, err := f.svc.CreateContentManager(ctx, req)
		require.ErrorAs(t, err, &invalid, name)
	}
	f.assertNothingProvisioned(t, ctx)
}

func TestCreateSalesAgent_InvalidInputWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	var invalid *domain.InvalidArgumentError
	for name, req := range map[string]domain.CreateSalesAgentRequest{
		"empty email":        {Email: "", Password: "Passw0rd", DisplayName: "Agent"},
		"short password":     {Email: "agent@example.com", Password: "abc", DisplayName: "Agent"},
		"empty display name": {Email: "agent@example.com", Password: "Passw0rd", DisplayName: ""},
	} {
		_, err := f.svc.CreateSalesAgent(ctx, req)
		require.ErrorAs(t, err, &invalid, name)
	}
	f.assertNothingProvisioned(t, ctx)
}

func TestDeleteBusinessOperator_Convergent(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	uid, err := f.svc.CreateBusinessOperator(ctx, operatorReq("Acme", "acme1"))
	require.NoError(t, err)

	returned, err := f.svc.DeleteBusinessOperator(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, uid, returned)

	var notFound *domain.NotFoundError
	_, err = f.provider.GetAccount(ctx, uid)
	require.ErrorAs(t, err, &notFound)
	_, err = f.principals.Get(ctx, uid)
	require.ErrorAs(t, err, &notFound)
	_, err = f.tenants.Get(ctx, uid)
	require.ErrorAs(t, err, &notFound)

	// A repeat delete converges on the same state instead of failing.
	_, err = f.svc.DeleteBusinessOperator(ctx, uid)
	require.NoError(t, err)
}

func TestContentManagerLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	uid, err := f.svc.CreateContentManager(ctx, domain.CreateContentManagerRequest{
		Email: "cm@example.com", Password: "Passw0rd",
	})
	require.NoError(t, err)

	p, err := f.principals.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleContentManager, p.Role)
	assert.Empty(t, p.TenantID)

	_, err = f.svc.BlockContentManager(ctx, uid)
	require.NoError(t, err)

	account, err := f.provider.GetAccount(ctx, uid)
	require.NoError(t, err)
	assert.True(t, account.Disabled)
	p, err = f.principals.Get(ctx, uid)
	require.NoError(t, err)
	assert.True(t, p.Blocked)

	_, err = f.svc.DeleteContentManager(ctx, uid)
	require.NoError(t, err)
}

func TestBlockContentManager_Unknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BlockContentManager(adminCtx(), "ghost")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestDeleteSalesAgent_RoleGuard(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	cmUID, err := f.svc.CreateContentManager(ctx, domain.CreateContentManagerRequest{
		Email: "cm@example.com", Password: "Passw0rd",
	})
	require.NoError(t, err)

	_, err = f.svc.DeleteSalesAgent(ctx, cmUID)
	var precondition *domain.FailedPreconditionError
	require.ErrorAs(t, err, &precondition)

	// The guard fired before any side effect.
	_, err = f.provider.GetAccount(ctx, cmUID)
	require.NoError(t, err)
	_, err = f.principals.Get(ctx, cmUID)
	require.NoError(t, err)

	agentUID, err := f.svc.CreateSalesAgent(ctx, domain.CreateSalesAgentRequest{
		Email: "agent@example.com", Password: "Passw0rd", DisplayName: "Agent",
	})
	require.NoError(t, err)
	_, err = f.svc.DeleteSalesAgent(ctx, agentUID)
	require.NoError(t, err)
}

func TestPromoteRole(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	uid, err := f.svc.CreateSalesAgent(ctx, domain.CreateSalesAgentRequest{
		Email: "agent@example.com", Password: "Passw0rd", DisplayName: "Agent",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.PromoteRole(ctx, domain.PromoteRoleRequest{UID: uid, Role: domain.RoleContentManager}))

	bundle, err := f.provider.GetClaims(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleContentManager, bundle.Role)
	p, err := f.principals.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleContentManager, p.Role)
}

func TestPromoteRole_OperatorKeepsTenantScope(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	uid, err := f.svc.CreateBusinessOperator(ctx, operatorReq("Acme", "acme1"))
	require.NoError(t, err)

	// Round-trip through another role and back; the scope follows the
	// stored tenant link, not the previous bundle.
	require.NoError(t, f.svc.PromoteRole(ctx, domain.PromoteRoleRequest{UID: uid, Role: domain.RoleContentManager}))
	bundle, err := f.provider.GetClaims(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, bundle.ScopeRef)

	require.NoError(t, f.svc.PromoteRole(ctx, domain.PromoteRoleRequest{UID: uid, Role: domain.RoleBusinessOperator}))
	bundle, err = f.provider.GetClaims(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, uid, bundle.ScopeRef)
}

func TestPromoteRole_InvalidRole(t *testing.T) {
	f := newFixture(t)

	err := f.svc.PromoteRole(adminCtx(), domain.PromoteRoleRequest{UID: "u-1", Role: domain.Role("superadmin")})
	var invalid *domain.InvalidArgumentError
	require.ErrorAs(t, err, &invalid)
}
