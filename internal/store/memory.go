package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/types"
)

// MemoryUserRepository keeps users in process memory. It is used for local
// development (STORE_BACKEND=memory) and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]types.User
	now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[uuid.UUID]types.User),
		now:   time.Now,
	}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return types.User{}, ErrConflict
		}
	}

	user.ID = uuid.New()
	user.CreatedAt = r.now().UTC()
	r.users[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) exists(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok
}

// MemoryPostRepository keeps posts in process memory. Owners are checked
// against the paired user repository the same way the foreign key does.
type MemoryPostRepository struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]types.Post
	users *MemoryUserRepository
	now   func() time.Time
}

func NewMemoryPostRepository(users *MemoryUserRepository) *MemoryPostRepository {
	return &MemoryPostRepository{
		posts: make(map[uuid.UUID]types.Post),
		users: users,
		now:   time.Now,
	}
}

func (r *MemoryPostRepository) List(_ context.Context, q types.PostQuery) ([]types.Post, error) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	var pattern *regexp.Regexp
	if q.Search != "" {
		var err error
		pattern, err = regexp.Compile("(?i)" + q.Search)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}

	r.mu.RLock()
	matched := make([]types.Post, 0, len(r.posts))
	for _, post := range r.posts {
		if post.OwnerID != q.OwnerID {
			continue
		}
		if pattern != nil && !pattern.MatchString(post.Title) {
			continue
		}
		matched = append(matched, post)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if q.Offset >= len(matched) {
		return []types.Post{}, nil
	}
	end := min(q.Offset+q.Limit, len(matched))
	return matched[q.Offset:end], nil
}

func (r *MemoryPostRepository) Get(_ context.Context, id uuid.UUID) (types.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *MemoryPostRepository) Create(_ context.Context, post types.Post) (types.Post, error) {
	if r.users != nil && !r.users.exists(post.OwnerID) {
		return types.Post{}, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = uuid.New()
	post.CreatedAt = r.now().UTC()
	r.posts[post.ID] = post
	return post, nil
}

func (r *MemoryPostRepository) Update(_ context.Context, id uuid.UUID, patch types.PostPatch) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return types.Post{}, ErrNotFound
	}
	post = patch.Apply(post)
	r.posts[id] = post
	return post, nil
}

func (r *MemoryPostRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.posts, id)
	return nil
}
