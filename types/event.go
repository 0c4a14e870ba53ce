package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	PostCreated = "post.created"
	PostUpdated = "post.updated"
	PostDeleted = "post.deleted"
)

// PostEvent is published after a post changes. Type doubles as routing key.
type PostEvent struct {
	Type       string    `json:"type"`
	PostID     uuid.UUID `json:"post_id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Title      string    `json:"title"`
	Published  bool      `json:"published"`
	OccurredAt time.Time `json:"occurred_at"`
}
