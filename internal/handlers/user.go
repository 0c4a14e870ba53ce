package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/services"
)

var userMessages = resourceMessages{
	notFound:  "User Not Found",
	forbidden: "User Not Authorized to Access Profile Data",
}

// UserHandler provides registration and profile endpoints.
type UserHandler struct {
	userService *services.UserService
	logger      *logger.Logger
}

func NewUserHandler(userService *services.UserService, log *logger.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/", handler.Register)
	r.With(authMiddleware).Get("/{username}", handler.Profile)
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Register(r.Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, userMessages)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{ID: user.ID, CreatedAt: user.CreatedAt})
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	requester, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	user, err := h.userService.Profile(r.Context(), chi.URLParam(r, "username"), requester)
	if err != nil {
		writeServiceError(w, h.logger, err, userMessages)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type RegisterResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"creation_time"`
}
