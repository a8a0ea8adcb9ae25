package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore keeps per-user avatar images in an object storage
// backend, keyed by user ID.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore over the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Save stores the avatar for the given user, replacing any previous one.
// It returns the object key.
func (s *AvatarStore) Save(ctx context.Context, userID int, r io.Reader, size int64, contentType string) (string, error) {
	key := avatarKey(userID)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Open returns a reader for the avatar of the given user.
func (s *AvatarStore) Open(ctx context.Context, userID int) (io.ReadCloser, error) {
	return s.backend.Get(ctx, avatarKey(userID))
}

// Remove deletes the avatar object for the given user, if any.
func (s *AvatarStore) Remove(ctx context.Context, userID int) error {
	return s.backend.Delete(ctx, avatarKey(userID))
}

// Bucket returns the configured bucket name.
func (s *AvatarStore) Bucket() string {
	return s.backend.Bucket()
}

func avatarKey(userID int) string {
	return fmt.Sprintf("avatars/%d", userID)
}
