package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chronovault/internal/chrono"
)

// ErrChecksumMismatch is returned by Export when the stored bytes no longer
// hash to the checksum recorded at upload.
var ErrChecksumMismatch = errors.New("media content does not match its checksum")

// Opener is a store that can stream an asset's bytes back.
type Opener interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// Export copies asset's content from o to w and verifies it against the
// asset's BLAKE3 checksum. Assets stored without a checksum are copied
// unverified. On a mismatch w has already received the bad bytes.
func Export(ctx context.Context, o Opener, asset *chrono.MediaAsset, w io.Writer) error {
	rc, err := o.Open(ctx, asset.ID)
	if err != nil {
		return err
	}
	defer rc.Close()

	sum, err := Checksum(io.TeeReader(rc, w))
	if err != nil {
		return fmt.Errorf("copying media %s: %w", asset.ID, err)
	}
	if asset.Checksum != "" && sum != asset.Checksum {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, asset.ID)
	}
	return nil
}
