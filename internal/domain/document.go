package domain

import "time"

// Collection names of the persisted document layout. These are the only
// collections the guarded document store accepts.
const (
	CollectionPrincipals      = "principals"
	CollectionTenants         = "tenants"
	CollectionResources       = "managedResources"
	CollectionAnalyticsEvents = "analyticsEvents"
	CollectionAssets          = "assets"
)

// ManagedResource is a point-of-interest record. Content fields beyond the
// typed columns are an open set carried in Content.
type ManagedResource struct {
	ID          string
	OwnerTenant string // empty when unowned
	Active      bool
	Content     map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxAnalyticsFieldLen bounds the poiId and categoryId strings of an
// analytics event.
const MaxAnalyticsFieldLen = 100

// AnalyticsEvent is a create-only, schema-closed interaction record. It is
// writable by any caller, anonymous ones included, and readable only by
// elevated roles.
type AnalyticsEvent struct {
	ID         string
	POIID      string
	CategoryID string
	Timestamp  time.Time
	CreatedAt  time.Time
}

// Validate enforces the closed schema's types and length bounds.
func (e *AnalyticsEvent) Validate() error {
	if e.POIID == "" {
		return ErrInvalidArgument("poiId is required")
	}
	if len(e.POIID) > MaxAnalyticsFieldLen {
		return ErrInvalidArgument("poiId exceeds %d characters", MaxAnalyticsFieldLen)
	}
	if e.CategoryID == "" {
		return ErrInvalidArgument("categoryId is required")
	}
	if len(e.CategoryID) > MaxAnalyticsFieldLen {
		return ErrInvalidArgument("categoryId exceeds %d characters", MaxAnalyticsFieldLen)
	}
	if e.Timestamp.IsZero() {
		return ErrInvalidArgument("timestamp is required")
	}
	return nil
}

// Asset is a shared icon or media reference managed by elevated roles and
// readable by anyone.
type Asset struct {
	ID        string
	Content   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
