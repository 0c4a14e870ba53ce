package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/types"
)

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// List returns the owner's posts whose title matches q.Search, newest first.
func (r *PostRepository) List(ctx context.Context, q types.PostQuery) ([]types.Post, error) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	const query = `
		SELECT id, title, content, published, created_at, owner_id
		FROM posts
		WHERE owner_id = $1
		  AND ($2 = '' OR title ~* $2)
		ORDER BY created_at DESC, id
		OFFSET $3 LIMIT $4`
	rows, err := r.db.QueryContext(ctx, query, q.OwnerID, q.Search, q.Offset, q.Limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	posts := make([]types.Post, 0, q.Limit)
	for rows.Next() {
		var post types.Post
		if err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Content,
			&post.Published,
			&post.CreatedAt,
			&post.OwnerID,
		); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return posts, nil
}

func (r *PostRepository) Get(ctx context.Context, id uuid.UUID) (types.Post, error) {
	const query = `
		SELECT id, title, content, published, created_at, owner_id
		FROM posts
		WHERE id = $1`
	var post types.Post
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Published,
		&post.CreatedAt,
		&post.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

// Create inserts a post, assigning its ID and creation time. A missing owner
// yields ErrNotFound through the foreign key.
func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	post.ID = uuid.New()
	post.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO posts (id, title, content, published, created_at, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		post.ID,
		post.Title,
		post.Content,
		post.Published,
		post.CreatedAt,
		post.OwnerID,
	); err != nil {
		return types.Post{}, translate(err)
	}
	return post, nil
}

// Update applies the non-nil patch fields and returns the stored result.
func (r *PostRepository) Update(ctx context.Context, id uuid.UUID, patch types.PostPatch) (types.Post, error) {
	const query = `
		UPDATE posts
		SET title = COALESCE($1, title),
			content = COALESCE($2, content),
			published = COALESCE($3, published)
		WHERE id = $4
		RETURNING id, title, content, published, created_at, owner_id`
	var post types.Post
	err := r.db.QueryRowContext(
		ctx,
		query,
		patch.Title,
		patch.Content,
		patch.Published,
		id,
	).Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Published,
		&post.CreatedAt,
		&post.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
