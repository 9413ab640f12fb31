package chrono

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"
)

// MediaType is the coarse kind of a media asset.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// MediaTypeFromMIME classifies a MIME type by its top-level type.
func MediaTypeFromMIME(mimeType string) MediaType {
	major, _, _ := strings.Cut(strings.ToLower(mimeType), "/")
	switch MediaType(major) {
	case MediaImage, MediaAudio, MediaVideo:
		return MediaType(major)
	default:
		return MediaOther
	}
}

// MediaAsset is file metadata owned by the file store.
type MediaAsset struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	Type       MediaType `json:"type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
	Checksum   string    `json:"checksum,omitempty"`
}

// MediaMeta describes a file being stored.
type MediaMeta struct {
	Name     string
	MimeType string
	Size     int64
}

// MediaFilter narrows MediaStore.List.
type MediaFilter struct {
	Type  MediaType // empty matches all
	Limit int       // 0 means no limit
}

// MediaStore is the external file-storage collaborator.
type MediaStore interface {
	// Store saves the content read from r and returns its new id.
	Store(ctx context.Context, r io.Reader, meta MediaMeta) (string, error)

	// Resolve returns metadata and a content location for id.
	// Returns ErrMediaNotFound if the id is unknown.
	Resolve(ctx context.Context, id string) (*MediaAsset, error)

	// Delete removes the asset. Deleting an unknown id returns ErrMediaNotFound.
	Delete(ctx context.Context, id string) error

	// List returns stored assets, newest upload first.
	List(ctx context.Context, filter MediaFilter) ([]*MediaAsset, error)
}

// ResolveAll resolves a comma-joined list of media ids. Each id is looked up
// in its own goroutine; ids that fail to resolve are logged and left out.
// The result keeps the order of the input ids.
func (s *SealService) ResolveAll(ctx context.Context, mediaIDs string) []*MediaAsset {
	ids := SplitMediaIDs(mediaIDs)
	if len(ids) == 0 {
		return nil
	}

	resolved := make([]*MediaAsset, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			asset, err := s.media.Resolve(ctx, id)
			if err != nil {
				level := s.logger.Warn
				if errors.Is(err, ErrMediaNotFound) {
					level = s.logger.Debug
				}
				level("media resolution failed", "id", id, "error", errors.Join(ErrMediaResolution, err))
				return
			}
			resolved[i] = asset
		}(i, id)
	}
	wg.Wait()

	assets := make([]*MediaAsset, 0, len(ids))
	for _, a := range resolved {
		if a != nil {
			assets = append(assets, a)
		}
	}
	return assets
}
