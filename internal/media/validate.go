package media

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"chronovault/internal/chrono"
)

// DefaultMaxFileSize is the largest attachment accepted by default.
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// MaxNameLength is the longest accepted file name.
const MaxNameLength = 255

var (
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidName     = errors.New("file name is empty or too long")
)

// AllowedTypes are the media kinds a seal may carry.
var AllowedTypes = []chrono.MediaType{chrono.MediaImage, chrono.MediaAudio, chrono.MediaVideo}

// ValidateFile checks an attachment before upload. maxSize <= 0 uses
// DefaultMaxFileSize. Every failed check is reported.
func ValidateFile(meta chrono.MediaMeta, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var errs []error
	if meta.Size > maxSize {
		errs = append(errs, fmt.Errorf("%w (%s)", ErrFileTooLarge, FormatFileSize(maxSize)))
	}

	kind := chrono.MediaTypeFromMIME(meta.MimeType)
	allowed := false
	for _, t := range AllowedTypes {
		if kind == t {
			allowed = true
			break
		}
	}
	if !allowed {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedType, meta.MimeType))
	}

	if meta.Name == "" || len(meta.Name) > MaxNameLength {
		errs = append(errs, ErrInvalidName)
	}
	return errors.Join(errs...)
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count with binary units and at most two
// decimals, e.g. 1536 -> "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// FileExtension returns the text after the last dot of name. Names without
// a dot, or whose only dot is the first character, have no extension.
func FileExtension(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}
