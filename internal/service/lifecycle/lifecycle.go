// Package lifecycle provides the account provisioning and deprovisioning
// operations. Every operation requires an authenticated admin caller, checks
// its input before any side effect, and sequences provider write, claim
// issuance, and the document batch in that order.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"placedir/internal/domain"
)

// providerEmailDomain is the synthetic domain for username-based operator
// logins; the identity provider requires an email-shaped identifier.
const providerEmailDomain = "operators.placedir.local"

// Service implements the account lifecycle RPCs.
type Service struct {
	provider   domain.IdentityProvider
	principals domain.PrincipalRepository
	tenants    domain.TenantRepository
	tx         domain.TxManager
	audit      domain.AuditRepository
	logger     *slog.Logger
}

// NewService creates a lifecycle Service.
func NewService(
	provider domain.IdentityProvider,
	principals domain.PrincipalRepository,
	tenants domain.TenantRepository,
	tx domain.TxManager,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		provider:   provider,
		principals: principals,
		tenants:    tenants,
		tx:         tx,
		audit:      audit,
		logger:     logger,
	}
}

// CreateBusinessOperator provisions an operator account, its claim bundle
// scoped to a tenant keyed by the new uid, and the Principal + BusinessTenant
// documents in one batch.
func (s *Service) CreateBusinessOperator(ctx context.Context, req domain.CreateBusinessOperatorRequest) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	email := fmt.Sprintf("%s@%s", req.Username, providerEmailDomain)
	uid, err := s.createProviderAccount(ctx, caller, "CREATE_BUSINESS_OPERATOR", email, req.Password, req.Name)
	if err != nil {
		return "", err
	}

	bundle := domain.ClaimBundle{Role: domain.RoleBusinessOperator, ScopeRef: uid}
	if err := s.provider.SetClaims(ctx, uid, bundle); err != nil {
		return "", s.internal(ctx, caller, "CREATE_BUSINESS_OPERATOR", uid, err)
	}

	// Principal and tenant land atomically; the provider account above is
	// not covered by this transaction. A failure here orphans the provider
	// account until the reconciliation sweep picks it up.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.principals.Create(ctx, &domain.Principal{
			UID:      uid,
			Role:     domain.RoleBusinessOperator,
			Email:    email,
			TenantID: uid,
		}); err != nil {
			return err
		}
		return s.tenants.Create(ctx, &domain.BusinessTenant{
			ID:                uid,
			Name:              req.Name,
			OwnerUID:          uid,
			AssociatedUserIDs: []string{uid},
		})
	})
	if err != nil {
		return "", s.internal(ctx, caller, "CREATE_BUSINESS_OPERATOR", uid, err)
	}

	s.logAudit(ctx, caller.UID, "CREATE_BUSINESS_OPERATOR", uid, "ALLOWED", nil)
	return uid, nil
}

// DeleteBusinessOperator removes the provider account (tolerating a prior
// disappearance) and then the Principal and BusinessTenant documents in one
// batch. It is idempotent and convergent.
func (s *Service) DeleteBusinessOperator(ctx context.Context, uid string) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", domain.ErrInvalidArgument("uid is required")
	}

	if err := s.deleteProviderAccount(ctx, uid); err != nil {
		return "", s.internal(ctx, caller, "DELETE_BUSINESS_OPERATOR", uid, err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.principals.Delete(ctx, uid); err != nil {
			return err
		}
		return s.tenants.Delete(ctx, uid)
	})
	if err != nil {
		return "", s.internal(ctx, caller, "DELETE_BUSINESS_OPERATOR", uid, err)
	}

	s.logAudit(ctx, caller.UID, "DELETE_BUSINESS_OPERATOR", uid, "ALLOWED", nil)
	return uid, nil
}

// CreateContentManager provisions a content manager account.
func (s *Service) CreateContentManager(ctx context.Context, req domain.CreateContentManagerRequest) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	return s.createSimplePrincipal(ctx, caller, "CREATE_CONTENT_MANAGER", domain.RoleContentManager, req.Email, req.Password, "")
}

// DeleteContentManager removes a content manager account and document.
func (s *Service) DeleteContentManager(ctx context.Context, uid string) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", domain.ErrInvalidArgument("uid is required")
	}
	return s.deleteSimplePrincipal(ctx, caller, "DELETE_CONTENT_MANAGER", uid)
}

// BlockContentManager disables sign-in for the account and marks the
// Principal document blocked without removing either.
func (s *Service) BlockContentManager(ctx context.Context, uid string) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", domain.ErrInvalidArgument("uid is required")
	}

	if err := s.provider.DisableAccount(ctx, uid); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return "", err
		}
		return "", s.internal(ctx, caller, "BLOCK_CONTENT_MANAGER", uid, err)
	}
	if err := s.principals.SetBlocked(ctx, uid, true); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return "", err
		}
		return "", s.internal(ctx, caller, "BLOCK_CONTENT_MANAGER", uid, err)
	}

	s.logAudit(ctx, caller.UID, "BLOCK_CONTENT_MANAGER", uid, "ALLOWED", nil)
	return uid, nil
}

// CreateSalesAgent provisions a sales agent account.
func (s *Service) CreateSalesAgent(ctx context.Context, req domain.CreateSalesAgentRequest) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	return s.createSimplePrincipal(ctx, caller, "CREATE_SALES_AGENT", domain.RoleSalesAgent, req.Email, req.Password, req.DisplayName)
}

// DeleteSalesAgent removes a sales agent. The target's current document role
// must be exactly sales_agent so the wrong account class is never deleted
// through this endpoint.
func (s *Service) DeleteSalesAgent(ctx context.Context, uid string) (string, error) {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if uid == "" {
		return "", domain.ErrInvalidArgument("uid is required")
	}

	p, err := s.principals.Get(ctx, uid)
	if err != nil {
		return "", err
	}
	if p.Role != domain.RoleSalesAgent {
		return "", domain.ErrFailedPrecondition("principal %s has role %q, not %q", uid, p.Role, domain.RoleSalesAgent)
	}

	return s.deleteSimplePrincipal(ctx, caller, "DELETE_SALES_AGENT", uid)
}

// PromoteRole reassigns a principal's role. The claim bundle and the
// Principal document both converge to the new role; sessions opened before
// the change keep the old claim until refreshed.
func (s *Service) PromoteRole(ctx context.Context, req domain.PromoteRoleRequest) error {
	caller, err := domain.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	p, err := s.principals.Get(ctx, req.UID)
	if err != nil {
		return err
	}

	bundle := domain.ClaimBundle{Role: req.Role}
	if req.Role == domain.RoleBusinessOperator && p.TenantID != "" {
		bundle.ScopeRef = p.TenantID
	}
	if err := s.provider.SetClaims(ctx, req.UID, bundle); err != nil {
		return s.internal(ctx, caller, "PROMOTE_ROLE", req.UID, err)
	}
	if err := s.principals.SetRole(ctx, req.UID, req.Role); err != nil {
		return s.internal(ctx, caller, "PROMOTE_ROLE", req.UID, err)
	}

	s.logAudit(ctx, caller.UID, "PROMOTE_ROLE", req.UID, "ALLOWED", nil)
	return nil
}

// createSimplePrincipal runs the create sequence for the classes that have no
// tenant: provider account, claim bundle, then the Principal document.
func (s *Service) createSimplePrincipal(ctx context.Context, caller domain.Caller, action string, role domain.Role, email, password, displayName string) (string, error) {
	uid, err := s.createProviderAccount(ctx, caller, action, email, password, displayName)
	if err != nil {
		return "", err
	}

	if err := s.provider.SetClaims(ctx, uid, domain.ClaimBundle{Role: role}); err != nil {
		return "", s.internal(ctx, caller, action, uid, err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.principals.Create(ctx, &domain.Principal{UID: uid, Role: role, Email: email})
	})
	if err != nil {
		return "", s.internal(ctx, caller, action, uid, err)
	}

	s.logAudit(ctx, caller.UID, action, uid, "ALLOWED", nil)
	return uid, nil
}

func (s *Service) deleteSimplePrincipal(ctx context.Context, caller domain.Caller, action, uid string) (string, error) {
	if err := s.deleteProviderAccount(ctx, uid); err != nil {
		return "", s.internal(ctx, caller, action, uid, err)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.principals.Delete(ctx, uid)
	})
	if err != nil {
		return "", s.internal(ctx, caller, action, uid, err)
	}

	s.logAudit(ctx, caller.UID, action, uid, "ALLOWED", nil)
	return uid, nil
}

func (s *Service) createProviderAccount(ctx context.Context, caller domain.Caller, action, email, password, displayName string) (string, error) {
	uid, err := s.provider.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		var exists *domain.AlreadyExistsError
		if errors.As(err, &exists) {
			return "", err
		}
		return "", s.internal(ctx, caller, action, "", err)
	}
	return uid, nil
}

// deleteProviderAccount tolerates a provider account that is already gone, so
// a retried or partially-failed delete still converges.
func (s *Service) deleteProviderAccount(ctx context.Context, uid string) error {
	err := s.provider.DeleteAccount(ctx, uid)
	if err == nil {
		return nil
	}
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// internal reports the cause to the log and audit trail and collapses it to
// an InternalError so provider detail never leaks to callers.
func (s *Service) internal(ctx context.Context, caller domain.Caller, action, target string, cause error) error {
	s.logger.Error("lifecycle operation failed", "action", action, "target", target, "error", cause)
	msg := cause.Error()
	s.logAudit(ctx, caller.UID, action, target, "ERROR", &msg)
	return domain.ErrInternal(cause, "operation failed")
}

func (s *Service) logAudit(ctx context.Context, actor, action, target, status string, errMsg *string) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		ActorUID:     actor,
		Action:       action,
		TargetUID:    target,
		Status:       status,
		ErrorMessage: errMsg,
	})
}
