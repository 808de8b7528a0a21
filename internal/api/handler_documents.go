package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type documentList struct {
	Data          []map[string]interface{} `json:"data"`
	NextPageToken string                   `json:"nextPageToken,omitempty"`
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var fields map[string]interface{}
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.store.Create(r.Context(), chi.URLParam(r, "collection"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, npt, err := h.store.List(r.Context(), chi.URLParam(r, "collection"), pageFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentList{Data: docs, NextPageToken: npt})
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var diff map[string]interface{}
	if err := decodeJSON(r, &diff); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.store.Update(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), diff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
