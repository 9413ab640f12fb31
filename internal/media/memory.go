package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"chronovault/internal/chrono"
)

// MemoryStore is an in-memory implementation of chrono.MediaStore, useful
// for tests. It is safe for concurrent use.
type MemoryStore struct {
	clock  chrono.Clock
	ids    chrono.IDGenerator
	mu     sync.RWMutex
	assets map[string]*chrono.MediaAsset
	data   map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(clock chrono.Clock, ids chrono.IDGenerator) *MemoryStore {
	return &MemoryStore{
		clock:  clock,
		ids:    ids,
		assets: make(map[string]*chrono.MediaAsset),
		data:   make(map[string][]byte),
	}
}

// Store saves the content of r and returns its id.
func (m *MemoryStore) Store(ctx context.Context, r io.Reader, meta chrono.MediaMeta) (string, error) {
	sum := newChecksumWriter()
	data, err := io.ReadAll(io.TeeReader(r, sum))
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	if meta.Size > 0 && int64(len(data)) != meta.Size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", meta.Size, len(data))
	}

	id := newID(m.clock, m.ids)
	asset := newAsset(id, meta, int64(len(data)), sum.Sum(), m.clock)
	asset.URL = "memory://" + id

	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[id] = asset
	m.data[id] = data
	return id, nil
}

// Resolve returns a copy of the asset's metadata.
func (m *MemoryStore) Resolve(ctx context.Context, id string) (*chrono.MediaAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
	}
	cp := *a
	return &cp, nil
}

// Open returns the stored bytes for id.
func (m *MemoryStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes an asset.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assets[id]; !ok {
		return fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
	}
	delete(m.assets, id)
	delete(m.data, id)
	return nil
}

// List returns assets matching filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter chrono.MediaFilter) ([]*chrono.MediaAsset, error) {
	m.mu.RLock()
	assets := make([]*chrono.MediaAsset, 0, len(m.assets))
	for _, a := range m.assets {
		if matches(a, filter) {
			cp := *a
			assets = append(assets, &cp)
		}
	}
	m.mu.RUnlock()

	return sortAndLimit(assets, filter.Limit), nil
}

// sortAndLimit orders assets newest upload first, breaking ties by id.
func sortAndLimit(assets []*chrono.MediaAsset, limit int) []*chrono.MediaAsset {
	sort.Slice(assets, func(i, j int) bool {
		if !assets[i].UploadedAt.Equal(assets[j].UploadedAt) {
			return assets[i].UploadedAt.After(assets[j].UploadedAt)
		}
		return assets[i].ID > assets[j].ID
	})
	if limit > 0 && len(assets) > limit {
		assets = assets[:limit]
	}
	return assets
}

var (
	_ chrono.MediaStore = (*MemoryStore)(nil)
	_ Opener            = (*MemoryStore)(nil)
)
