package domain

import (
	"context"
	"time"
)

// PrincipalRepository persists the document-store copy of each principal.
type PrincipalRepository interface {
	Create(ctx context.Context, p *Principal) error
	// Upsert writes the principal, overwriting an existing document with the
	// same UID. Used by the bootstrap path, which may lose the race with an
	// explicit provisioning call.
	Upsert(ctx context.Context, p *Principal) error
	Get(ctx context.Context, uid string) (*Principal, error)
	List(ctx context.Context, page PageRequest) ([]Principal, int64, error)
	SetRole(ctx context.Context, uid string, role Role) error
	SetBlocked(ctx context.Context, uid string, blocked bool) error
	Delete(ctx context.Context, uid string) error
}

// TenantRepository persists business tenant documents and their membership sets.
type TenantRepository interface {
	Create(ctx context.Context, t *BusinessTenant) error
	Get(ctx context.Context, id string) (*BusinessTenant, error)
	List(ctx context.Context, page PageRequest) ([]BusinessTenant, int64, error)
	Update(ctx context.Context, t *BusinessTenant) error
	Delete(ctx context.Context, id string) error
}

// TenantDirectory is the read-only accessor the policy engine uses to resolve
// a tenant's membership set. The read is deliberately not transactional with
// the write being authorized.
type TenantDirectory interface {
	Resolve(ctx context.Context, tenantID string) (*BusinessTenant, error)
}

// ResourceRepository persists managed POI resources.
type ResourceRepository interface {
	Create(ctx context.Context, r *ManagedResource) error
	Get(ctx context.Context, id string) (*ManagedResource, error)
	List(ctx context.Context, page PageRequest) ([]ManagedResource, int64, error)
	Update(ctx context.Context, r *ManagedResource) error
	Delete(ctx context.Context, id string) error
}

// AnalyticsRepository persists create-only analytics events.
type AnalyticsRepository interface {
	Insert(ctx context.Context, e *AnalyticsEvent) error
	Get(ctx context.Context, id string) (*AnalyticsEvent, error)
	List(ctx context.Context, page PageRequest) ([]AnalyticsEvent, int64, error)
	Delete(ctx context.Context, id string) error
}

// AssetRepository persists shared assets (icons, media references).
type AssetRepository interface {
	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context, page PageRequest) ([]Asset, int64, error)
	Update(ctx context.Context, a *Asset) error
	Delete(ctx context.Context, id string) error
}

// TxManager runs fn inside a single store transaction. Repository calls made
// with the context passed to fn join that transaction, giving lifecycle
// operations their atomic document batches.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ClaimBundle is the signed set of authorization attributes attached to a
// principal's session.
type ClaimBundle struct {
	Role     Role
	ScopeRef string // tenant ID for business operators; empty otherwise
}

// ProviderAccount is the identity provider's view of an account.
type ProviderAccount struct {
	UID         string
	Email       string
	DisplayName string
	Disabled    bool
	CreatedAt   time.Time
}

// IdentityProvider is the external account authority. Account creation and
// claim assignment are separate, non-transactional steps; the lifecycle
// service sequences them and the bootstrap handler covers accounts created
// outside it.
type IdentityProvider interface {
	// CreateAccount provisions a new account. Duplicate identifiers fail
	// with AlreadyExistsError; any other provider failure is unexpected.
	CreateAccount(ctx context.Context, email, password, displayName string) (uid string, err error)
	// DeleteAccount removes an account, failing with NotFoundError when it
	// is already gone. Callers that need idempotent deletion tolerate that.
	DeleteAccount(ctx context.Context, uid string) error
	// DisableAccount blocks sign-in without removing the account.
	DisableAccount(ctx context.Context, uid string) error
	GetAccount(ctx context.Context, uid string) (*ProviderAccount, error)
	// SetClaims replaces the claim bundle attached to future session tokens.
	// Already-open sessions keep their stale bundle until refreshed.
	SetClaims(ctx context.Context, uid string, bundle ClaimBundle) error
	// GetClaims returns the current bundle, or nil when none has been set.
	GetClaims(ctx context.Context, uid string) (*ClaimBundle, error)
	// ListAccountsCreatedBefore supports the orphan reconciliation sweep.
	ListAccountsCreatedBefore(ctx context.Context, cutoff time.Time) ([]ProviderAccount, error)
}
