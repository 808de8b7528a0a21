package api

import (
	"net/http"
	"time"

	"placedir/internal/domain"
)

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// SignIn verifies credentials against the embedded provider and returns a
// session token carrying the account's claim bundle.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var body signInBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, domain.ErrInvalidArgument("email and password are required"))
		return
	}
	token, err := h.provider.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

type allowListResponse struct {
	Version int      `json:"version"`
	Fields  []string `json:"fields"`
}

// GetAllowList exposes the operator-writable field set read-only so client
// forms stay in sync with what the engine will accept.
func (h *Handler) GetAllowList(w http.ResponseWriter, _ *http.Request) {
	al := h.engine.AllowList()
	writeJSON(w, http.StatusOK, allowListResponse{Version: al.Version, Fields: al.Fields})
}

type auditEntryResponse struct {
	ID           string    `json:"id"`
	ActorUID     string    `json:"actorUid,omitempty"`
	Action       string    `json:"action"`
	TargetUID    string    `json:"targetUid,omitempty"`
	Collection   string    `json:"collection,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type auditListResponse struct {
	Data          []auditEntryResponse `json:"data"`
	NextPageToken string               `json:"nextPageToken,omitempty"`
}

// ListAudit returns the audit trail, admins only.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if _, err := domain.RequireAdmin(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	filter := domain.AuditFilter{Page: pageFromQuery(r)}
	if v := r.URL.Query().Get("actor_uid"); v != "" {
		filter.ActorUID = &v
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Action = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	data := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		data[i] = auditEntryResponse{
			ID:           e.ID,
			ActorUID:     e.ActorUID,
			Action:       e.Action,
			TargetUID:    e.TargetUID,
			Collection:   e.Collection,
			Status:       e.Status,
			ErrorMessage: e.ErrorMessage,
			CreatedAt:    e.CreatedAt,
		}
	}
	npt := domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total)
	writeJSON(w, http.StatusOK, auditListResponse{Data: data, NextPageToken: npt})
}
