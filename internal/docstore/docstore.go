// Package docstore is the guarded document surface the front-ends use. Every
// operation is authorized by the policy engine before any repository call;
// front-ends never invoke the engine directly.
package docstore

import (
	"context"
	"log/slog"
	"time"

	"placedir/internal/domain"
	"placedir/internal/policy"
)

// Store dispatches document operations per collection after policy
// evaluation.
type Store struct {
	engine    *policy.Engine
	resources domain.ResourceRepository
	analytics domain.AnalyticsRepository
	assets    domain.AssetRepository
	tenants   domain.TenantRepository
	audit     domain.AuditRepository
	logger    *slog.Logger
}

// NewStore creates a guarded document store.
func NewStore(
	engine *policy.Engine,
	resources domain.ResourceRepository,
	analytics domain.AnalyticsRepository,
	assets domain.AssetRepository,
	tenants domain.TenantRepository,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Store {
	return &Store{
		engine:    engine,
		resources: resources,
		analytics: analytics,
		assets:    assets,
		tenants:   tenants,
		audit:     audit,
		logger:    logger,
	}
}

// Create authorizes and persists a new document, returning its snapshot.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]interface{}) (map[string]interface{}, error) {
	fields = normalizeFields(collection, fields)

	if err := s.authorize(ctx, policy.OpCreate, collection, nil, fields); err != nil {
		return nil, err
	}

	switch collection {
	case domain.CollectionAnalyticsEvents:
		return s.createAnalyticsEvent(ctx, fields)
	case domain.CollectionResources:
		return s.createResource(ctx, fields)
	case domain.CollectionAssets:
		return s.createAsset(ctx, fields)
	case domain.CollectionTenants:
		return nil, domain.ErrPermissionDenied("tenants are provisioned by the lifecycle service")
	default:
		return nil, domain.ErrInvalidArgument("unknown collection %q", collection)
	}
}

// Get authorizes and returns a document by direct id. Visibility is decided
// against the fetched snapshot: an inactive resource denies for low-privilege
// callers rather than reporting absence.
func (s *Store) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	current, err := s.snapshot(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, policy.OpRead, collection, current, nil); err != nil {
		return nil, err
	}
	return current, nil
}

// List returns the documents the caller may read, applying the read predicate
// per document.
func (s *Store) List(ctx context.Context, collection string, page domain.PageRequest) ([]map[string]interface{}, string, error) {
	snapshots, token, err := s.snapshots(ctx, collection, page)
	if err != nil {
		return nil, "", err
	}

	caller := callerPtr(ctx)
	visible := make([]map[string]interface{}, 0, len(snapshots))
	for _, doc := range snapshots {
		d := s.engine.Evaluate(ctx, policy.Request{
			Caller: caller, Op: policy.OpRead, Collection: collection, Current: doc,
		})
		if d.Allowed {
			visible = append(visible, doc)
		}
	}
	return visible, token, nil
}

// Update authorizes the proposed diff against the current snapshot and
// applies it. A single disallowed field fails the whole write.
func (s *Store) Update(ctx context.Context, collection, id string, diff map[string]interface{}) (map[string]interface{}, error) {
	diff = normalizeFields(collection, diff)

	current, err := s.snapshot(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	// The diff is authorized as submitted. An "id" key stays in so the field
	// allow-list can reject it for operators instead of it being stripped.
	if err := s.authorize(ctx, policy.OpUpdate, collection, current, diff); err != nil {
		return nil, err
	}
	if raw, ok := diff["id"]; ok {
		if v, ok := raw.(string); !ok || v != id {
			return nil, domain.ErrInvalidArgument("document id cannot be changed")
		}
		delete(diff, "id")
	}

	switch collection {
	case domain.CollectionResources:
		return s.updateResource(ctx, id, diff)
	case domain.CollectionAssets:
		return s.updateAsset(ctx, id, diff)
	case domain.CollectionTenants:
		return s.updateTenant(ctx, id, diff)
	case domain.CollectionAnalyticsEvents:
		// authorize above already denied; kept for exhaustiveness
		return nil, domain.ErrPermissionDenied("analytics events are immutable")
	default:
		return nil, domain.ErrInvalidArgument("unknown collection %q", collection)
	}
}

// Delete authorizes and removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	current, err := s.snapshot(ctx, collection, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, policy.OpDelete, collection, current, nil); err != nil {
		return err
	}

	switch collection {
	case domain.CollectionResources:
		return s.resources.Delete(ctx, id)
	case domain.CollectionAnalyticsEvents:
		return s.analytics.Delete(ctx, id)
	case domain.CollectionAssets:
		return s.assets.Delete(ctx, id)
	case domain.CollectionTenants:
		return s.tenants.Delete(ctx, id)
	default:
		return domain.ErrInvalidArgument("unknown collection %q", collection)
	}
}

// authorize runs the policy engine and maps a denial onto the error taxonomy:
// anonymous callers get Unauthenticated, authenticated ones PermissionDenied,
// and a structurally rejected analytics create InvalidArgument.
func (s *Store) authorize(ctx context.Context, op policy.Operation, collection string, current, proposed map[string]interface{}) error {
	caller := callerPtr(ctx)
	d := s.engine.Evaluate(ctx, policy.Request{
		Caller: caller, Op: op, Collection: collection, Current: current, Proposed: proposed,
	})
	if d.Allowed {
		return nil
	}

	if op != policy.OpRead {
		s.logDenied(ctx, caller, op, collection, d.Reason)
	}

	if collection == domain.CollectionAnalyticsEvents && op == policy.OpCreate {
		return domain.ErrInvalidArgument("%s", d.Reason)
	}
	if caller == nil {
		return domain.ErrUnauthenticated("%s", d.Reason)
	}
	return domain.ErrPermissionDenied("%s", d.Reason)
}

func (s *Store) logDenied(ctx context.Context, caller *domain.Caller, op policy.Operation, collection, reason string) {
	actor := ""
	if caller != nil {
		actor = caller.UID
	}
	s.logger.Debug("write denied", "collection", collection, "op", string(op), "actor", actor, "reason", reason)
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		ActorUID:     actor,
		Action:       "DOC_" + string(op),
		Collection:   collection,
		Status:       "DENIED",
		ErrorMessage: &reason,
	})
}

func callerPtr(ctx context.Context) *domain.Caller {
	if c, ok := domain.CallerFromContext(ctx); ok {
		return &c
	}
	return nil
}

// normalizeFields converts wire-format values into the types the policy
// engine and repositories expect. Unparseable values pass through so the
// engine can reject them with a precise reason.
func normalizeFields(collection string, fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return map[string]interface{}{}
	}
	if collection == domain.CollectionAnalyticsEvents {
		if raw, ok := fields["timestamp"].(string); ok {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				fields["timestamp"] = ts
			}
		}
	}
	return fields
}
