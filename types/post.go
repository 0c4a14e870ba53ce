package types

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry owned by a single user.
type Post struct {
	// ID is the store-assigned identifier of the post.
	ID uuid.UUID `json:"id" db:"id"`

	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`

	// Published is true unless the owner explicitly hides the post.
	Published bool `json:"published" db:"published"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `json:"creation_time" db:"created_at"`

	// OwnerID references the User that created the post. Only the owner may
	// read, update or delete it.
	OwnerID uuid.UUID `json:"owner_id" db:"owner_id"`
}

// PostPatch carries a partial update. Nil fields are left untouched.
type PostPatch struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	Published *bool   `json:"published,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Published == nil
}

// Apply returns a copy of post with the patch fields applied.
func (p PostPatch) Apply(post Post) Post {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.Published != nil {
		post.Published = *p.Published
	}
	return post
}

// PostQuery filters a listing of one owner's posts.
type PostQuery struct {
	OwnerID uuid.UUID
	// Search is a case-insensitive regular expression matched against titles.
	// Empty matches everything.
	Search string
	Offset int
	Limit  int
}
