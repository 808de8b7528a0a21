package domain

import (
	"regexp"
	"time"
)

// Principal is an account under management by the identity core. Role is the
// display-authoritative copy of the claim bundle's role.
type Principal struct {
	UID       string
	Role      Role
	Email     string
	TenantID  string // resolves to the owned BusinessTenant for business operators
	Blocked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

const minPasswordLen = 6

// CreateBusinessOperatorRequest holds parameters for provisioning a business
// operator and its tenant.
type CreateBusinessOperatorRequest struct {
	Name     string
	Username string
	Password string
}

// Validate checks the request before any side effect.
func (r *CreateBusinessOperatorRequest) Validate() error {
	if r.Name == "" {
		return ErrInvalidArgument("business name is required")
	}
	if r.Username == "" {
		return ErrInvalidArgument("username is required")
	}
	if len(r.Username) < 3 {
		return ErrInvalidArgument("username must be at least 3 characters")
	}
	if !usernamePattern.MatchString(r.Username) {
		return ErrInvalidArgument("username may only contain letters, digits, '_', '.', and '-'")
	}
	if len(r.Password) < minPasswordLen {
		return ErrInvalidArgument("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// CreateContentManagerRequest holds parameters for provisioning a content manager.
type CreateContentManagerRequest struct {
	Email    string
	Password string
}

// Validate checks the request before any side effect.
func (r *CreateContentManagerRequest) Validate() error {
	if r.Email == "" {
		return ErrInvalidArgument("email is required")
	}
	if len(r.Password) < minPasswordLen {
		return ErrInvalidArgument("password must be at least %d characters", minPasswordLen)
	}
	return nil
}

// CreateSalesAgentRequest holds parameters for provisioning a sales agent.
type CreateSalesAgentRequest struct {
	Email       string
	Password    string
	DisplayName string
}

// Validate checks the request before any side effect.
func (r *CreateSalesAgentRequest) Validate() error {
	if r.Email == "" {
		return ErrInvalidArgument("email is required")
	}
	if len(r.Password) < minPasswordLen {
		return ErrInvalidArgument("password must be at least %d characters", minPasswordLen)
	}
	if r.DisplayName == "" {
		return ErrInvalidArgument("display name is required")
	}
	return nil
}

// PromoteRoleRequest holds parameters for reassigning a principal's role.
type PromoteRoleRequest struct {
	UID  string
	Role Role
}

// Validate checks the request before any side effect.
func (r *PromoteRoleRequest) Validate() error {
	if r.UID == "" {
		return ErrInvalidArgument("uid is required")
	}
	if !r.Role.Valid() {
		return ErrInvalidArgument("role %q is not a valid role", r.Role)
	}
	return nil
}
