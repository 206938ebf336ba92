// Package storage decodes recipe images and persists them to S3 or local disk.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImagePrefix is the key prefix of stored recipe images.
const ImagePrefix = "recipe_images/"

const maxImageSize = 10 << 20

var ErrInvalidImage = errors.New("invalid image")

// imageTypes are the accepted data URI subtypes. Vector formats are left out
// since they can carry scripts.
var imageTypes = map[string]bool{
	"png":  true,
	"jpeg": true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
}

// Image is a decoded image ready to be stored.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageStore persists images and returns the URL they are served from.
type ImageStore interface {
	Save(ctx context.Context, img *Image) (string, error)
}

// DecodeDataURI decodes "data:image/<ext>;base64,<payload>" into an image
// named temp.<ext>.
func DecodeDataURI(uri string) (*Image, error) {
	header, payload, ok := strings.Cut(uri, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, fmt.Errorf("%w: expected a base64 data URI", ErrInvalidImage)
	}
	ext := strings.ToLower(strings.TrimPrefix(header, "data:image/"))
	if !imageTypes[ext] {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrInvalidImage, ext)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, maxImageSize)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s is not an image", ErrInvalidImage, contentType)
	}

	return &Image{
		Name:        "temp." + ext,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// FromUpload reads a multipart file upload.
func FromUpload(fh *multipart.FileHeader) (*Image, error) {
	if fh.Size > maxImageSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, maxImageSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 || len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: size out of range", ErrInvalidImage)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s is not an image", ErrInvalidImage, contentType)
	}
	return &Image{Name: filepath.Base(fh.Filename), ContentType: contentType, Data: data}, nil
}

// objectKey keeps the original base name and adds a random suffix so that
// every upload of temp.png gets its own key.
func objectKey(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "image"
	}
	return ImagePrefix + base + "_" + uuid.NewString()[:8] + strings.ToLower(ext)
}
