// Package directory provides the read-only tenant accessor the policy engine
// uses for scope checks.
package directory

import (
	"context"

	"placedir/internal/domain"
)

var _ domain.TenantDirectory = (*Service)(nil)

// Service resolves tenant membership from the read pool. It holds no cache:
// a membership change is visible to the next evaluation, and the read is not
// transactional with the write being authorized.
type Service struct {
	tenants domain.TenantRepository
}

// NewService creates a directory Service.
func NewService(tenants domain.TenantRepository) *Service {
	return &Service{tenants: tenants}
}

// Resolve returns the tenant with its full membership set.
func (s *Service) Resolve(ctx context.Context, tenantID string) (*domain.BusinessTenant, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidArgument("tenant id is required")
	}
	return s.tenants.Get(ctx, tenantID)
}
