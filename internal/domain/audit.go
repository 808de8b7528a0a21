package domain

import (
	"context"
	"time"
)

// AuditEntry represents a single audit log record.
type AuditEntry struct {
	ID           string
	ActorUID     string // empty for anonymous or system actors
	Action       string
	TargetUID    string
	Collection   string
	Status       string // "ALLOWED", "DENIED", "ERROR"
	ErrorMessage *string
	CreatedAt    time.Time
}

// AuditRepository appends and lists audit log records.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}

// AuditFilter narrows an audit listing.
type AuditFilter struct {
	ActorUID *string
	Action   *string
	Status   *string
	Page     PageRequest
}
