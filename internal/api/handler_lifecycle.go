package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"placedir/internal/domain"
)

type createOperatorBody struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type createPrincipalBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type promoteRoleBody struct {
	Role string `json:"role"`
}

type uidResponse struct {
	UID string `json:"uid"`
}

func (h *Handler) CreateBusinessOperator(w http.ResponseWriter, r *http.Request) {
	var body createOperatorBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	uid, err := h.lifecycle.CreateBusinessOperator(r.Context(), domain.CreateBusinessOperatorRequest{
		Name:     body.Name,
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uidResponse{UID: uid})
}

func (h *Handler) DeleteBusinessOperator(w http.ResponseWriter, r *http.Request) {
	uid, err := h.lifecycle.DeleteBusinessOperator(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uidResponse{UID: uid})
}

func (h *Handler) CreateContentManager(w http.ResponseWriter, r *http.Request) {
	var body createPrincipalBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	uid, err := h.lifecycle.CreateContentManager(r.Context(), domain.CreateContentManagerRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uidResponse{UID: uid})
}

func (h *Handler) DeleteContentManager(w http.ResponseWriter, r *http.Request) {
	uid, err := h.lifecycle.DeleteContentManager(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uidResponse{UID: uid})
}

func (h *Handler) BlockContentManager(w http.ResponseWriter, r *http.Request) {
	uid, err := h.lifecycle.BlockContentManager(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uidResponse{UID: uid})
}

func (h *Handler) CreateSalesAgent(w http.ResponseWriter, r *http.Request) {
	var body createPrincipalBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	uid, err := h.lifecycle.CreateSalesAgent(r.Context(), domain.CreateSalesAgentRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, uidResponse{UID: uid})
}

func (h *Handler) DeleteSalesAgent(w http.ResponseWriter, r *http.Request) {
	uid, err := h.lifecycle.DeleteSalesAgent(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uidResponse{UID: uid})
}

func (h *Handler) PromoteRole(w http.ResponseWriter, r *http.Request) {
	var body promoteRoleBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	err := h.lifecycle.PromoteRole(r.Context(), domain.PromoteRoleRequest{
		UID:  chi.URLParam(r, "uid"),
		Role: domain.Role(body.Role),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
