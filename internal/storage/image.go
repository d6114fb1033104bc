package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"folio/internal/apperr"
)

// MaxImageSize caps featured image uploads at 5 MiB.
const MaxImageSize = 5 << 20

// imageExt maps the sniffed content types we accept to file extensions.
var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadImage validates an uploaded featured image and stores it under
// articles/<uuid><ext>. It returns the public URL. Oversized or non-image
// input is reported as a ValidationError on featured_image.
func (c *Client) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", apperr.Storage("read upload", err)
	}
	if len(data) == 0 {
		return "", apperr.Invalid("featured_image", "The uploaded file is empty")
	}
	if len(data) > MaxImageSize {
		return "", apperr.Invalid("featured_image", "Images must be 5 MB or smaller")
	}

	contentType := http.DetectContentType(data)
	contentType, _, _ = strings.Cut(contentType, ";")
	ext, ok := imageExt[contentType]
	if !ok {
		return "", apperr.Invalid("featured_image", "Upload a JPEG, PNG, GIF or WebP image")
	}

	key := "articles/" + uuid.NewString() + ext
	if err := c.Upload(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", apperr.Storage("upload image", err)
	}

	slog.Info("featured image uploaded", "key", key, "size", len(data), "type", contentType)
	return c.FileURL(key), nil
}

// RemoveImage deletes a previously uploaded image given its public URL.
// URLs that point elsewhere are ignored.
func (c *Client) RemoveImage(ctx context.Context, rawURL string) error {
	key, ok := c.KeyFromURL(rawURL)
	if !ok || !strings.HasPrefix(key, "articles/") {
		return nil
	}
	return c.Delete(ctx, key)
}
