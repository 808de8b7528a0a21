package docstore

import (
	"context"
	"time"

	"placedir/internal/domain"
)

// Per-collection fetch, snapshot, create, and update plumbing. Snapshots are
// the flat map form the policy engine evaluates; the typed keys the engine
// reads ("id", "active", "ownerBusinessRef") are always present for resources.

func (s *Store) snapshot(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	switch collection {
	case domain.CollectionResources:
		r, err := s.resources.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return resourceDoc(r), nil
	case domain.CollectionAnalyticsEvents:
		e, err := s.analytics.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return analyticsDoc(e), nil
	case domain.CollectionAssets:
		a, err := s.assets.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return assetDoc(a), nil
	case domain.CollectionTenants:
		t, err := s.tenants.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return tenantDoc(t), nil
	default:
		return nil, domain.ErrInvalidArgument("unknown collection %q", collection)
	}
}

func (s *Store) snapshots(ctx context.Context, collection string, page domain.PageRequest) ([]map[string]interface{}, string, error) {
	offset, limit := page.Offset(), page.Limit()
	switch collection {
	case domain.CollectionResources:
		rows, total, err := s.resources.List(ctx, page)
		if err != nil {
			return nil, "", err
		}
		docs := make([]map[string]interface{}, 0, len(rows))
		for i := range rows {
			docs = append(docs, resourceDoc(&rows[i]))
		}
		return docs, domain.NextPageToken(offset, limit, total), nil
	case domain.CollectionAnalyticsEvents:
		rows, total, err := s.analytics.List(ctx, page)
		if err != nil {
			return nil, "", err
		}
		docs := make([]map[string]interface{}, 0, len(rows))
		for i := range rows {
			docs = append(docs, analyticsDoc(&rows[i]))
		}
		return docs, domain.NextPageToken(offset, limit, total), nil
	case domain.CollectionAssets:
		rows, total, err := s.assets.List(ctx, page)
		if err != nil {
			return nil, "", err
		}
		docs := make([]map[string]interface{}, 0, len(rows))
		for i := range rows {
			docs = append(docs, assetDoc(&rows[i]))
		}
		return docs, domain.NextPageToken(offset, limit, total), nil
	case domain.CollectionTenants:
		rows, total, err := s.tenants.List(ctx, page)
		if err != nil {
			return nil, "", err
		}
		docs := make([]map[string]interface{}, 0, len(rows))
		for i := range rows {
			docs = append(docs, tenantDoc(&rows[i]))
		}
		return docs, domain.NextPageToken(offset, limit, total), nil
	default:
		return nil, "", domain.ErrInvalidArgument("unknown collection %q", collection)
	}
}

func (s *Store) createAnalyticsEvent(ctx context.Context, fields map[string]interface{}) (map[string]interface{}, error) {
	// The policy check already proved the shape, so the assertions hold.
	e := &domain.AnalyticsEvent{
		ID:         domain.NewID(),
		POIID:      fields["poiId"].(string),
		CategoryID: fields["categoryId"].(string),
		Timestamp:  fields["timestamp"].(time.Time),
	}
	if err := s.analytics.Insert(ctx, e); err != nil {
		return nil, err
	}
	return analyticsDoc(e), nil
}

func (s *Store) createResource(ctx context.Context, fields map[string]interface{}) (map[string]interface{}, error) {
	r := &domain.ManagedResource{
		ID:      domain.NewID(),
		Content: map[string]any{},
	}
	if id, ok := fields["id"].(string); ok && id != "" {
		r.ID = id
	}
	for k, v := range fields {
		switch k {
		case "id":
		case "active":
			b, ok := v.(bool)
			if !ok {
				return nil, domain.ErrInvalidArgument("active must be a boolean")
			}
			r.Active = b
		case "ownerBusinessRef":
			ref, ok := v.(string)
			if !ok {
				return nil, domain.ErrInvalidArgument("ownerBusinessRef must be a string")
			}
			r.OwnerTenant = ref
		default:
			r.Content[k] = v
		}
	}
	if err := s.resources.Create(ctx, r); err != nil {
		return nil, err
	}
	return resourceDoc(r), nil
}

func (s *Store) updateResource(ctx context.Context, id string, diff map[string]interface{}) (map[string]interface{}, error) {
	r, err := s.resources.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Content == nil {
		r.Content = map[string]any{}
	}
	for k, v := range diff {
		switch k {
		case "active":
			b, ok := v.(bool)
			if !ok {
				return nil, domain.ErrInvalidArgument("active must be a boolean")
			}
			r.Active = b
		case "ownerBusinessRef":
			ref, ok := v.(string)
			if !ok {
				return nil, domain.ErrInvalidArgument("ownerBusinessRef must be a string")
			}
			r.OwnerTenant = ref
		default:
			if v == nil {
				delete(r.Content, k)
			} else {
				r.Content[k] = v
			}
		}
	}
	if err := s.resources.Update(ctx, r); err != nil {
		return nil, err
	}
	return resourceDoc(r), nil
}

func (s *Store) createAsset(ctx context.Context, fields map[string]interface{}) (map[string]interface{}, error) {
	a := &domain.Asset{ID: domain.NewID(), Content: map[string]any{}}
	if id, ok := fields["id"].(string); ok && id != "" {
		a.ID = id
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		a.Content[k] = v
	}
	if err := s.assets.Create(ctx, a); err != nil {
		return nil, err
	}
	return assetDoc(a), nil
}

func (s *Store) updateAsset(ctx context.Context, id string, diff map[string]interface{}) (map[string]interface{}, error) {
	a, err := s.assets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Content == nil {
		a.Content = map[string]any{}
	}
	for k, v := range diff {
		if v == nil {
			delete(a.Content, k)
			continue
		}
		a.Content[k] = v
	}
	if err := s.assets.Update(ctx, a); err != nil {
		return nil, err
	}
	return assetDoc(a), nil
}

func (s *Store) updateTenant(ctx context.Context, id string, diff map[string]interface{}) (map[string]interface{}, error) {
	t, err := s.tenants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name, ok := diff["name"].(string); ok {
		t.Name = name
	}
	if raw, ok := diff["associatedUserIds"]; ok {
		ids, err := toStringSlice(raw)
		if err != nil {
			return nil, domain.ErrInvalidArgument("associatedUserIds must be an array of strings")
		}
		if !containsString(ids, t.OwnerUID) {
			ids = append(ids, t.OwnerUID)
		}
		t.AssociatedUserIDs = ids
	}
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	return tenantDoc(t), nil
}

func resourceDoc(r *domain.ManagedResource) map[string]interface{} {
	doc := make(map[string]interface{}, len(r.Content)+3)
	for k, v := range r.Content {
		doc[k] = v
	}
	doc["id"] = r.ID
	doc["active"] = r.Active
	doc["ownerBusinessRef"] = r.OwnerTenant
	return doc
}

func analyticsDoc(e *domain.AnalyticsEvent) map[string]interface{} {
	return map[string]interface{}{
		"id":         e.ID,
		"poiId":      e.POIID,
		"categoryId": e.CategoryID,
		"timestamp":  e.Timestamp,
	}
}

func assetDoc(a *domain.Asset) map[string]interface{} {
	doc := make(map[string]interface{}, len(a.Content)+1)
	for k, v := range a.Content {
		doc[k] = v
	}
	doc["id"] = a.ID
	return doc
}

func tenantDoc(t *domain.BusinessTenant) map[string]interface{} {
	ids := make([]string, len(t.AssociatedUserIDs))
	copy(ids, t.AssociatedUserIDs)
	return map[string]interface{}{
		"id":                t.ID,
		"name":              t.Name,
		"ownerUid":          t.OwnerUID,
		"associatedUserIds": ids,
	}
}

func toStringSlice(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, domain.ErrInvalidArgument("expected string element")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, domain.ErrInvalidArgument("expected array of strings")
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
