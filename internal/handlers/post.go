package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postboard/apiserver/internal/logger"
	"github.com/postboard/apiserver/internal/services"
	"github.com/postboard/apiserver/types"
)

const contextPostIDKey contextKey = "post_id"

var postMessages = resourceMessages{
	notFound:  "Post Not Found",
	forbidden: "User Not Authorized to Access Post",
}

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	postService *services.PostService
	logger      *logger.Logger
}

// NewPostHandler constructs a handler with the provided service.
func NewPostHandler(postService *services.PostService, log *logger.Logger) *PostHandler {
	return &PostHandler{postService: postService, logger: log}
}

// PostRouter registers post routes on the given router. The id check runs
// ahead of authentication so a malformed id is a 400 for every caller.
func PostRouter(r chi.Router, handler *PostHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/", handler.ListPosts)
	r.With(authMiddleware).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Use(requirePostID, authMiddleware)
		r.Get("/", handler.GetPost)
		r.Put("/", handler.UpdatePost)
		r.Delete("/", handler.DeletePost)
	})
}

func requirePostID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "postID")
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid id: %s", raw))
			return
		}
		ctx := context.WithValue(r.Context(), contextPostIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func postIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(contextPostIDKey).(uuid.UUID)
	return id
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	posts, err := h.postService.List(r.Context(), user, search, page, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, postMessages)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	post, err := h.postService.Get(r.Context(), postIDFromContext(r.Context()), user)
	if err != nil {
		writeServiceError(w, h.logger, err, postMessages)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req CreatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Create(r.Context(), user, *req.Title, *req.Content, req.Published)
	if err != nil {
		writeServiceError(w, h.logger, err, postMessages)
		return
	}

	writeJSON(w, http.StatusCreated, CreatePostResponse{
		PostID:    post.ID,
		Published: post.Published,
		CreatedAt: post.CreatedAt,
		OwnerID:   post.OwnerID,
	})
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	var req UpdatePostRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.Update(r.Context(), postIDFromContext(r.Context()), user, types.PostPatch{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, postMessages)
		return
	}

	writeJSON(w, http.StatusOK, UpdatePostResponse{
		Title:     post.Title,
		Content:   post.Content,
		Published: post.Published,
		CreatedAt: post.CreatedAt,
	})
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}

	if err := h.postService.Delete(r.Context(), postIDFromContext(r.Context()), user); err != nil {
		writeServiceError(w, h.logger, err, postMessages)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePostRequest requires title and content to be present; empty strings
// are accepted.
type CreatePostRequest struct {
	Title     *string `json:"title" validate:"required"`
	Content   *string `json:"content" validate:"required"`
	Published *bool   `json:"published"`
}

// UpdatePostRequest carries a partial update; absent fields stay unchanged.
type UpdatePostRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
}

// UpdatePostResponse leaves out the post and owner ids.
type UpdatePostResponse struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"creation_time"`
}

type CreatePostResponse struct {
	PostID    uuid.UUID `json:"post_id"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"creation_time"`
	OwnerID   uuid.UUID `json:"owner_id"`
}

func parsePagination(r *http.Request) (page, limit int, err error) {
	query := r.URL.Query()

	page = 1
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid page: %q", raw)
		}
	}

	limit = services.DefaultPageLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, fmt.Errorf("invalid limit: %q", raw)
		}
	}

	return page, limit, nil
}
