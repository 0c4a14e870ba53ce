package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/services"
)

const tokenTypeBearer = "bearer"

// AuthHandler provides the login endpoint and the bearer authentication gate.
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: log}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/login", handler.Login)
}

// RequireAuth resolves the bearer token to a user and stores it in the request
// context. Every failure is answered with the same 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeUnauthenticated(w)
			return
		}

		user, err := h.authService.Authenticate(r.Context(), token)
		if err != nil {
			writeServiceError(w, h.logger, err, resourceMessages{})
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Login accepts form-encoded credentials and returns an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	req := LoginRequest{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	if err := validateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, resourceMessages{})
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token.Value,
		TokenType:   tokenTypeBearer,
	})
}

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
