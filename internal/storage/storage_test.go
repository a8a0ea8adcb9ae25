package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/regform/apiserver/internal/storage"
)

type memoryBackend struct {
	objects map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}}
}

func (m *memoryBackend) EnsureBucket(ctx context.Context) error { return nil }

func (m *memoryBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "test-bucket" }

func TestAvatarStoreRoundTrip(t *testing.T) {
	backend := newMemoryBackend()
	avatars := storage.NewAvatarStore(backend)
	ctx := context.Background()

	payload := []byte("png-bytes")
	key, err := avatars.Save(ctx, 42, bytes.NewReader(payload), int64(len(payload)), "image/png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if key != "avatars/42" {
		t.Fatalf("unexpected key: %q", key)
	}

	reader, err := avatars.Open(ctx, 42)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("got %q, want %q", data, payload)
	}

	if err := avatars.Remove(ctx, 42); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := avatars.Open(ctx, 42); err == nil {
		t.Fatal("expected error opening removed avatar")
	}
}
