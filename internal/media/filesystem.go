package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"chronovault/internal/chrono"
)

// FileSystemStore keeps attachments on local disk:
//
//	<root>/
//	  content/
//	    <id>          (file bytes)
//	  meta/
//	    <id>.json     (chrono.MediaAsset)
type FileSystemStore struct {
	root       string
	contentDir string
	metaDir    string
	clock      chrono.Clock
	ids        chrono.IDGenerator
}

// NewFileSystemStore creates a store rooted at root, creating its directories.
func NewFileSystemStore(root string, clock chrono.Clock, ids chrono.IDGenerator) (*FileSystemStore, error) {
	contentDir := filepath.Join(root, "content")
	metaDir := filepath.Join(root, "meta")

	for _, dir := range []string{contentDir, metaDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}

	return &FileSystemStore{
		root:       root,
		contentDir: contentDir,
		metaDir:    metaDir,
		clock:      clock,
		ids:        ids,
	}, nil
}

// Store writes the content, then its metadata. Both writes are atomic.
func (s *FileSystemStore) Store(ctx context.Context, r io.Reader, meta chrono.MediaMeta) (string, error) {
	id := newID(s.clock, s.ids)
	contentPath := filepath.Join(s.contentDir, id)

	sum := newChecksumWriter()
	if err := writeFile(contentPath, io.TeeReader(r, sum), meta.Size); err != nil {
		return "", err
	}

	asset := newAsset(id, meta, sum.n, sum.Sum(), s.clock)
	asset.URL = fileURL(contentPath)

	b, err := json.Marshal(asset)
	if err != nil {
		os.Remove(contentPath)
		return "", fmt.Errorf("encoding media metadata: %w", err)
	}
	if err := writeFile(s.metaPath(id), strings.NewReader(string(b)), int64(len(b))); err != nil {
		os.Remove(contentPath)
		return "", err
	}
	return id, nil
}

// Resolve reads the metadata for id.
func (s *FileSystemStore) Resolve(ctx context.Context, id string) (*chrono.MediaAsset, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", chrono.ErrMediaNotFound, id)
	}
	b, err := os.ReadFile(s.metaPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("reading media metadata: %w", err)
	}
	var asset chrono.MediaAsset
	if err := json.Unmarshal(b, &asset); err != nil {
		return nil, fmt.Errorf("decoding media metadata for %s: %w", id, err)
	}
	return &asset, nil
}

// Open returns the stored bytes for id.
func (s *FileSystemStore) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", chrono.ErrMediaNotFound, id)
	}
	f, err := os.Open(filepath.Join(s.contentDir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}
	return f, nil
}

// Delete removes the metadata first, so a partially deleted asset no
// longer resolves.
func (s *FileSystemStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", chrono.ErrMediaNotFound, id)
	}
	if err := os.Remove(s.metaPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", chrono.ErrMediaNotFound, id)
		}
		return fmt.Errorf("removing media metadata: %w", err)
	}
	if err := os.Remove(filepath.Join(s.contentDir, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing media content: %w", err)
	}
	return nil
}

// List reads every metadata file and returns matches, newest first.
func (s *FileSystemStore) List(ctx context.Context, filter chrono.MediaFilter) ([]*chrono.MediaAsset, error) {
	entries, err := os.ReadDir(s.metaDir)
	if err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}

	var assets []*chrono.MediaAsset
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		a, err := s.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		if matches(a, filter) {
			assets = append(assets, a)
		}
	}
	return sortAndLimit(assets, filter.Limit), nil
}

func (s *FileSystemStore) metaPath(id string) string {
	return filepath.Join(s.metaDir, id+".json")
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// writeFile writes r to destPath through a temp file and rename. A
// positive expectedSize must match the bytes written.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if expectedSize > 0 && written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

var (
	_ chrono.MediaStore = (*FileSystemStore)(nil)
	_ Opener            = (*FileSystemStore)(nil)
)
