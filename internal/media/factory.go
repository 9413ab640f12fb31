package media

import (
	"context"
	"fmt"
	"time"

	"chronovault/internal/chrono"
	"chronovault/internal/config"
)

// NewMediaStoreFromConfig creates a MediaStore based on the media config type.
func NewMediaStoreFromConfig(ctx context.Context, cfg config.MediaConfig, clock chrono.Clock, ids chrono.IDGenerator) (chrono.MediaStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(clock, ids), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem media store requires root to be set")
		}
		s, err := NewFileSystemStore(cfg.Root, clock, ids)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		s, err := NewS3Store(ctx, S3Options{
			Bucket:      cfg.S3Bucket,
			Prefix:      cfg.S3Prefix,
			Region:      cfg.S3Region,
			Endpoint:    cfg.S3Endpoint,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretKey,
			Expiry:      time.Duration(cfg.PresignMinutes) * time.Minute,
		}, clock, ids)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown media type: %s", cfg.Type)
	}
}
