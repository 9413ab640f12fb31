package media

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/blake3"

	"chronovault/internal/chrono"
)

// newID returns "file_<unix ms>_<9 random chars>".
func newID(clock chrono.Clock, ids chrono.IDGenerator) string {
	suffix := strings.ReplaceAll(ids.New(), "-", "")
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return fmt.Sprintf("file_%d_%s", clock.Now().UnixMilli(), suffix)
}

// validID rejects ids that could escape a storage directory or prefix.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

// checksumWriter hashes everything written through it with BLAKE3.
type checksumWriter struct {
	h *blake3.Hasher
	n int64
}

func newChecksumWriter() *checksumWriter {
	return &checksumWriter{h: blake3.New()}
}

func (c *checksumWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return c.h.Write(p)
}

func (c *checksumWriter) Sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}

// Checksum returns the hex BLAKE3 digest of everything read from r.
func Checksum(r io.Reader) (string, error) {
	w := newChecksumWriter()
	if _, err := io.Copy(w, r); err != nil {
		return "", err
	}
	return w.Sum(), nil
}

func newAsset(id string, meta chrono.MediaMeta, size int64, checksum string, clock chrono.Clock) *chrono.MediaAsset {
	return &chrono.MediaAsset{
		ID:         id,
		Name:       meta.Name,
		Size:       size,
		MimeType:   meta.MimeType,
		Type:       chrono.MediaTypeFromMIME(meta.MimeType),
		UploadedAt: clock.Now().UTC(),
		Checksum:   checksum,
	}
}

// matches reports whether a passes the type part of f.
func matches(a *chrono.MediaAsset, f chrono.MediaFilter) bool {
	return f.Type == "" || a.Type == f.Type
}
