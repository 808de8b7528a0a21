package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"placedir/internal/domain"
)

// errorBody is the JSON shape every error response uses.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// httpStatusFromDomainError maps the error taxonomy onto HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var unauthenticated *domain.UnauthenticatedError
	var denied *domain.PermissionDeniedError
	var invalid *domain.InvalidArgumentError
	var exists *domain.AlreadyExistsError
	var precondition *domain.FailedPreconditionError
	var notFound *domain.NotFoundError

	switch {
	case errors.As(err, &unauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &exists):
		return http.StatusConflict
	case errors.As(err, &precondition):
		return http.StatusPreconditionFailed
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error. Internal errors are collapsed to a
// generic message so provider and store detail never reaches clients.
func writeError(w http.ResponseWriter, err error) {
	code := httpStatusFromDomainError(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, code, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads the request body into dst, rejecting malformed JSON.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrInvalidArgument("invalid request body: %v", err)
	}
	return nil
}
