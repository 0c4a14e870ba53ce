package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/postboard/apiserver/internal/auth"
	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/services"
	"github.com/postboard/apiserver/internal/store"
	"github.com/postboard/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

const (
	detailUnauthenticated = "Could not validate credentials"
	detailInternal        = "internal server error"
)

// ErrorResponse is the error payload of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, detailUnauthenticated)
}

// resourceMessages names the 404 and 403 details for one kind of resource.
type resourceMessages struct {
	notFound  string
	forbidden string
}

// writeServiceError maps a service or store error to its HTTP status.
// Unclassified errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, msgs resourceMessages) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeUnauthenticated(w)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusForbidden, services.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, msgs.forbidden)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgs.notFound)
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, store.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "username or email already registered")
	default:
		log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, detailInternal)
	}
}
