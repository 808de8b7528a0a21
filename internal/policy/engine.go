// Package policy is the declarative access-policy engine. Evaluate is a pure
// predicate over (caller claims, operation, collection, document snapshot,
// proposed write); its only I/O is the tenant directory read used for scope
// checks.
package policy

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"placedir/internal/domain"
)

// Operation is a document-store operation being authorized.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns an allowing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny returns a denying decision with a formatted reason.
func Deny(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Request describes one operation to authorize. Caller is nil for anonymous
// requests. Current is the stored document snapshot (nil on create). Proposed
// is the full document on create and the changed fields only on update.
type Request struct {
	Caller     *domain.Caller
	Op         Operation
	Collection string
	Current    map[string]interface{}
	Proposed   map[string]interface{}
}

// Engine evaluates the per-collection rule table.
type Engine struct {
	directory domain.TenantDirectory
	allowList *AllowList
}

// NewEngine creates an engine bound to a tenant directory and the embedded
// field allow-list.
func NewEngine(directory domain.TenantDirectory) (*Engine, error) {
	al, err := LoadAllowList()
	if err != nil {
		return nil, err
	}
	return &Engine{directory: directory, allowList: al}, nil
}

// AllowList exposes the versioned allow-list for read-only consumers.
func (e *Engine) AllowList() *AllowList { return e.allowList }

// Evaluate applies the rule table. It never mutates state; the tenant
// directory read it may issue is not transactional with the write being
// authorized (an accepted, narrow TOCTOU window).
func (e *Engine) Evaluate(ctx context.Context, req Request) Decision {
	switch req.Collection {
	case domain.CollectionAnalyticsEvents:
		return e.evaluateAnalytics(req)
	case domain.CollectionResources:
		return e.evaluateResource(ctx, req)
	case domain.CollectionTenants:
		return e.evaluateTenant(req)
	case domain.CollectionAssets:
		return e.evaluateAsset(req)
	default:
		return Deny("unknown collection %q", req.Collection)
	}
}

// evaluateAnalytics: create is open to any caller but structurally closed;
// read and delete are admin only; update is never allowed.
func (e *Engine) evaluateAnalytics(req Request) Decision {
	switch req.Op {
	case OpCreate:
		return analyticsShapeCheck(req.Proposed)
	case OpRead, OpDelete:
		if req.Caller == nil {
			return Deny("analytics events require an authenticated admin")
		}
		if req.Caller.Role != domain.RoleAdmin {
			return Deny("analytics events are restricted to admins")
		}
		return Allow()
	case OpUpdate:
		return Deny("analytics events are immutable")
	}
	return Deny("unsupported operation %q", req.Op)
}

// analyticsShapeCheck enforces the closed schema: exactly the three declared
// fields, string types, and the length bound. A superset or subset denies,
// it never silently drops fields.
func analyticsShapeCheck(proposed map[string]interface{}) Decision {
	if len(proposed) != 3 {
		return Deny("analytics event must have exactly poiId, categoryId, and timestamp")
	}
	for _, key := range []string{"poiId", "categoryId"} {
		v, ok := proposed[key]
		if !ok {
			return Deny("analytics event is missing %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return Deny("%s must be a string", key)
		}
		if s == "" {
			return Deny("%s must not be empty", key)
		}
		// Counted in characters, matching the schema's length() check.
		if utf8.RuneCountInString(s) > domain.MaxAnalyticsFieldLen {
			return Deny("%s exceeds %d characters", key, domain.MaxAnalyticsFieldLen)
		}
	}
	ts, ok := proposed["timestamp"]
	if !ok {
		return Deny("analytics event is missing timestamp")
	}
	if _, ok := ts.(time.Time); !ok {
		return Deny("timestamp must be a timestamp value")
	}
	return Allow()
}

// evaluateResource applies the ManagedResource rules, including per-document
// visibility of inactive resources and the business-operator field allow-list.
func (e *Engine) evaluateResource(ctx context.Context, req Request) Decision {
	switch req.Op {
	case OpCreate:
		return requireElevated(req.Caller, "create resources")
	case OpRead:
		if req.Caller != nil && req.Caller.Role.Elevated() {
			return Allow()
		}
		// Visibility is decided per document: a direct-id fetch of an
		// inactive resource denies rather than pretending absence.
		if active, _ := req.Current["active"].(bool); active {
			return Allow()
		}
		return Deny("resource is not active")
	case OpUpdate:
		return e.evaluateResourceUpdate(ctx, req)
	case OpDelete:
		if req.Caller == nil {
			return Deny("deleting resources requires an authenticated admin")
		}
		if req.Caller.Role != domain.RoleAdmin {
			return Deny("deleting resources is restricted to admins")
		}
		return Allow()
	}
	return Deny("unsupported operation %q", req.Op)
}

func (e *Engine) evaluateResourceUpdate(ctx context.Context, req Request) Decision {
	if req.Caller == nil {
		return Deny("updating resources requires authentication")
	}
	switch req.Caller.Role {
	case domain.RoleAdmin, domain.RoleContentManager:
		return Allow()
	case domain.RoleBusinessOperator:
		// One disallowed field denies the entire write, even when the
		// document-level predicate passes.
		for field := range req.Proposed {
			if !e.allowList.Permits(field) {
				return Deny("field %q is not operator-writable", field)
			}
		}
		if req.Caller.ScopeRef == "" {
			return Deny("caller has no tenant scope")
		}
		tenant, err := e.directory.Resolve(ctx, req.Caller.ScopeRef)
		if err != nil {
			return Deny("tenant scope could not be resolved")
		}
		if !tenant.Contains(req.Caller.UID) {
			return Deny("caller is not a member of its scope tenant")
		}
		owner, _ := req.Current["ownerBusinessRef"].(string)
		if owner == "" || owner != tenant.ID {
			return Deny("resource is not owned by the caller's tenant")
		}
		return Allow()
	case domain.RoleSalesAgent, domain.RoleStandardUser:
		return Deny("role %q may not update resources", req.Caller.Role)
	}
	return Deny("unknown role %q", req.Caller.Role)
}

// evaluateTenant: admin for everything; a business operator may read the one
// tenant its scope reference points at.
func (e *Engine) evaluateTenant(req Request) Decision {
	if req.Caller == nil {
		return Deny("tenant documents require authentication")
	}
	if req.Caller.Role == domain.RoleAdmin {
		return Allow()
	}
	if req.Op == OpRead && req.Caller.Role == domain.RoleBusinessOperator {
		id, _ := req.Current["id"].(string)
		if id != "" && id == req.Caller.ScopeRef {
			return Allow()
		}
		return Deny("operators may only read their own tenant")
	}
	return Deny("tenant documents are restricted to admins")
}

// evaluateAsset: shared assets are world-readable, elevated-writable.
func (e *Engine) evaluateAsset(req Request) Decision {
	if req.Op == OpRead {
		return Allow()
	}
	return requireElevated(req.Caller, "manage assets")
}

func requireElevated(caller *domain.Caller, what string) Decision {
	if caller == nil {
		return Deny("authentication is required to %s", what)
	}
	if !caller.Role.Elevated() {
		return Deny("role %q may not %s", caller.Role, what)
	}
	return Allow()
}
