package services

import (
	"context"
	"fmt"
	"math"
	"regexp"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/internal/auth"
	"github.com/postboard/apiserver/types"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, q types.PostQuery) ([]types.Post, error)
	Get(ctx context.Context, id uuid.UUID) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, id uuid.UUID, patch types.PostPatch) (types.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Archiver snapshots a post before it is removed.
type Archiver interface {
	Archive(ctx context.Context, post types.Post) error
}

// PostService encapsulates post use-cases. Every operation on a single post
// loads it first, so a missing post is reported before ownership.
type PostService struct {
	repo    PostRepository
	events  *EventPublisher
	archive Archiver
}

func NewPostService(repo PostRepository, events *EventPublisher, archive Archiver) *PostService {
	return &PostService{repo: repo, events: events, archive: archive}
}

// List returns the caller's posts, newest first. page starts at 1.
func (s *PostService) List(ctx context.Context, owner types.User, search string, page, limit int) ([]types.Post, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	if page-1 > math.MaxInt/limit {
		return []types.Post{}, nil
	}
	if search != "" {
		if _, err := regexp.Compile("(?i)" + search); err != nil {
			return nil, fmt.Errorf("%w: search pattern: %v", ErrInvalidInput, err)
		}
	}

	return s.repo.List(ctx, types.PostQuery{
		OwnerID: owner.ID,
		Search:  search,
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
}

func (s *PostService) Get(ctx context.Context, id uuid.UUID, user types.User) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if err := auth.AuthorizePost(post, user); err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// Create stores a post owned by user. A nil published flag means published.
func (s *PostService) Create(ctx context.Context, user types.User, title, content string, published *bool) (types.Post, error) {
	post := types.Post{
		Title:     title,
		Content:   content,
		Published: true,
		OwnerID:   user.ID,
	}
	if published != nil {
		post.Published = *published
	}

	created, err := s.repo.Create(ctx, post)
	if err != nil {
		return types.Post{}, err
	}
	s.events.Publish(ctx, types.PostCreated, created)
	return created, nil
}

// Update applies patch to the user's post. An empty patch returns the post
// unchanged without writing.
func (s *PostService) Update(ctx context.Context, id uuid.UUID, user types.User, patch types.PostPatch) (types.Post, error) {
	post, err := s.Get(ctx, id, user)
	if err != nil {
		return types.Post{}, err
	}
	if patch.Empty() {
		return post, nil
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return types.Post{}, err
	}
	s.events.Publish(ctx, types.PostUpdated, updated)
	return updated, nil
}

// Delete removes the user's post, archiving it first when an archive is
// configured. An archive failure leaves the post in place.
func (s *PostService) Delete(ctx context.Context, id uuid.UUID, user types.User) error {
	post, err := s.Get(ctx, id, user)
	if err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.Archive(ctx, post); err != nil {
			return fmt.Errorf("archive post %s: %w", id, err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Publish(ctx, types.PostDeleted, post)
	return nil
}
