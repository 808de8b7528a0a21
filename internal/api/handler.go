// Package api provides the HTTP handlers for the identity platform's REST
// surface: account lifecycle RPCs, the guarded document store, sign-in, the
// policy allow-list, and the audit log.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"placedir/internal/docstore"
	"placedir/internal/domain"
	"placedir/internal/identity"
	"placedir/internal/policy"
	"placedir/internal/service/lifecycle"
)

// Handler bundles the service dependencies behind the REST surface.
type Handler struct {
	lifecycle *lifecycle.Service
	store     *docstore.Store
	engine    *policy.Engine
	provider  *identity.Provider
	audit     domain.AuditRepository
}

// NewHandler creates a Handler with all service dependencies.
func NewHandler(
	lc *lifecycle.Service,
	store *docstore.Store,
	engine *policy.Engine,
	provider *identity.Provider,
	audit domain.AuditRepository,
) *Handler {
	return &Handler{
		lifecycle: lc,
		store:     store,
		engine:    engine,
		provider:  provider,
		audit:     audit,
	}
}

// Routes mounts all handlers. The caller wraps the result with the
// authentication middleware; documents and analytics additionally accept
// anonymous requests, which the policy engine arbitrates.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/signin", h.SignIn)

	r.Route("/lifecycle", func(r chi.Router) {
		r.Post("/business-operators", h.CreateBusinessOperator)
		r.Delete("/business-operators/{uid}", h.DeleteBusinessOperator)
		r.Post("/content-managers", h.CreateContentManager)
		r.Delete("/content-managers/{uid}", h.DeleteContentManager)
		r.Post("/content-managers/{uid}/block", h.BlockContentManager)
		r.Post("/sales-agents", h.CreateSalesAgent)
		r.Delete("/sales-agents/{uid}", h.DeleteSalesAgent)
		r.Post("/principals/{uid}/role", h.PromoteRole)
	})

	r.Route("/documents/{collection}", func(r chi.Router) {
		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)
		r.Get("/{id}", h.GetDocument)
		r.Patch("/{id}", h.UpdateDocument)
		r.Delete("/{id}", h.DeleteDocument)
	})

	r.Get("/policy/allowlist", h.GetAllowList)
	r.Get("/audit", h.ListAudit)

	return r
}

// pageFromQuery extracts pagination parameters from the query string.
func pageFromQuery(r *http.Request) domain.PageRequest {
	p := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		// Bad values fall back to the default page size.
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxResults = n
		}
	}
	return p
}
