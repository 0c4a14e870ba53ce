package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/postboard/apiserver/config"
	"github.com/postboard/apiserver/types"
)

// ObjectStore is the subset of object storage operations the archive needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// New connects the object store selected by cfg. It returns nil, nil when
// archiving is disabled.
func New(ctx context.Context, cfg config.ArchiveConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.ArchiveBackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ArchiveBackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

// ArchivedPost is the snapshot written when a post is deleted.
type ArchivedPost struct {
	Post       types.Post `json:"post"`
	ArchivedAt time.Time  `json:"archived_at"`
}

// PostArchive stores JSON snapshots of deleted posts.
type PostArchive struct {
	store ObjectStore
	now   func() time.Time
}

func NewPostArchive(store ObjectStore) *PostArchive {
	return &PostArchive{store: store, now: time.Now}
}

// ArchiveKey is the object key of a post snapshot.
func ArchiveKey(ownerID, postID uuid.UUID) string {
	return fmt.Sprintf("posts/%s/%s.json", ownerID, postID)
}

// Archive writes a snapshot of post.
func (a *PostArchive) Archive(ctx context.Context, post types.Post) error {
	data, err := json.Marshal(ArchivedPost{Post: post, ArchivedAt: a.now().UTC()})
	if err != nil {
		return err
	}

	metadata := map[string]string{
		"post-id":  post.ID.String(),
		"owner-id": post.OwnerID.String(),
	}
	key := ArchiveKey(post.OwnerID, post.ID)
	if err := a.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json", metadata); err != nil {
		return fmt.Errorf("archive post %s: %w", post.ID, err)
	}
	return nil
}

// Load reads a snapshot back.
func (a *PostArchive) Load(ctx context.Context, ownerID, postID uuid.UUID) (ArchivedPost, error) {
	reader, err := a.store.Get(ctx, ArchiveKey(ownerID, postID))
	if err != nil {
		return ArchivedPost{}, err
	}
	defer reader.Close()

	var archived ArchivedPost
	if err := json.NewDecoder(reader).Decode(&archived); err != nil {
		if errors.Is(err, io.EOF) {
			return ArchivedPost{}, fmt.Errorf("empty archive object for post %s", postID)
		}
		return ArchivedPost{}, err
	}
	return archived, nil
}
