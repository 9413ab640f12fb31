package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"

	"chronovault/internal/chrono"
	"chronovault/internal/media"
)

// NewTestMediaStore creates an in-memory media store.
func NewTestMediaStore() *media.MemoryStore {
	return media.NewMemoryStore(FixedClock(), NewStubIDGenerator())
}

// StoreTestMedia stores a small image named name and returns its id.
func StoreTestMedia(t *testing.T, s chrono.MediaStore, name string) string {
	t.Helper()
	id, err := s.Store(context.Background(), strings.NewReader("content of "+name), chrono.MediaMeta{
		Name:     name,
		MimeType: "image/png",
	})
	if err != nil {
		t.Fatalf("storing test media %s: %v", name, err)
	}
	return id
}

// CountingMediaStore wraps a MediaStore and records Resolve calls.
type CountingMediaStore struct {
	chrono.MediaStore

	mu       sync.Mutex
	resolved []string
}

// NewCountingMediaStore wraps s.
func NewCountingMediaStore(s chrono.MediaStore) *CountingMediaStore {
	return &CountingMediaStore{MediaStore: s}
}

func (m *CountingMediaStore) Resolve(ctx context.Context, id string) (*chrono.MediaAsset, error) {
	m.mu.Lock()
	m.resolved = append(m.resolved, id)
	m.mu.Unlock()
	return m.MediaStore.Resolve(ctx, id)
}

// Resolved returns the ids passed to Resolve.
func (m *CountingMediaStore) Resolved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolved...)
}
