// Package imagestore: validation and storage of report photos
package imagestore

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
	"time"

	"infrabeacon/internal/apperr"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxBytes is the largest accepted upload.
const MaxBytes = 16 << 20

var formatExt = map[string]string{"png": "png", "jpeg": "jpg", "gif": "gif", "webp": "webp"}

var allowedExt = map[string]bool{"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true}

// Image is a validated photo ready to be stored.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int
	Height      int
}

// Store keeps photos and hands back a URL the front end can load directly.
type Store interface {
	Put(ctx context.Context, img *Image) (string, error)
	// Delete removes the object behind url; unknown urls are not an error.
	Delete(ctx context.Context, url string) error
}

// Inspect validates an upload: size, file extension and that the bytes decode as an image.
// The returned Image carries the sniffed format, not the one claimed by the filename.
func Inspect(data []byte, filename string) (*Image, error) {
	if len(data) == 0 {
		return nil, apperr.Validation("image is required")
	}
	if len(data) > MaxBytes {
		return nil, apperr.Validation("image exceeds %d MB", MaxBytes>>20)
	}
	if ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), "."); ext != "" && !allowedExt[ext] {
		return nil, apperr.Validation("file type %q not allowed", ext)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("image could not be decoded")
	}
	ext, ok := formatExt[format]
	if !ok {
		return nil, apperr.Validation("image format %q not allowed", format)
	}
	return &Image{
		Data:        data,
		Ext:         ext,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// ObjectKey names a stored photo: reports/<YYYYmmdd_HHMMSS>_<8 hex>.<ext>
func ObjectKey(now time.Time, ext string) string {
	return "reports/" + now.UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8] + "." + ext
}
