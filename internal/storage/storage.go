// Package storage validates uploaded product images and persists them to disk or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxImageSize is the per-file upload limit.
	MaxImageSize = 5 << 20
	// MaxImagesPerRequest caps the number of files in one create or update request.
	MaxImagesPerRequest = 5
	// RefPrefix starts every stored image reference.
	RefPrefix = "uploads/"
)

var (
	ErrUnsupportedImage = errors.New("only images are allowed")
	ErrImageTooLarge    = errors.New("file too large")
	ErrTooManyImages    = errors.New("too many files")
)

var allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true}

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// ImageStore persists uploaded images and resolves their public URLs.
type ImageStore interface {
	// Save stores the file and returns its reference, always of the form "uploads/<name>".
	Save(ctx context.Context, fh *multipart.FileHeader) (string, error)
	// Delete removes a previously saved image. Missing images are not an error.
	Delete(ctx context.Context, ref string) error
	// URL returns the absolute URL for ref.
	URL(ref string) string
}

// Validate checks the extension, declared content type and size of an upload.
func Validate(fh *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	mimeType := strings.ToLower(fh.Header.Get("Content-Type"))
	if !allowedExtensions[ext] || !allowedMIMETypes[mimeType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, fh.Filename)
	}
	if fh.Size > MaxImageSize {
		return fmt.Errorf("%w: %s", ErrImageTooLarge, fh.Filename)
	}
	return nil
}

// ValidateAll checks the file count and every file in files.
func ValidateAll(files []*multipart.FileHeader) error {
	if len(files) > MaxImagesPerRequest {
		return fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyImages, len(files), MaxImagesPerRequest)
	}
	for _, fh := range files {
		if err := Validate(fh); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeRef turns a client-supplied image reference into the stored "uploads/<name>" form.
// It accepts "uploads/x.png", "/uploads/x.png" and an absolute URL under baseURL. Anything
// else, such as a foreign URL or a path outside uploads/, yields "".
func NormalizeRef(ref, baseURL string) string {
	ref = strings.TrimSpace(ref)
	if baseURL != "" {
		ref = strings.TrimPrefix(ref, baseURL)
	}
	ref = strings.TrimLeft(ref, "/")
	if !strings.HasPrefix(ref, RefPrefix) {
		return ""
	}
	name := refName(ref)
	if name == "" {
		return ""
	}
	return RefPrefix + name
}

// refName returns the file name a reference points at, or "" when there is none.
func refName(ref string) string {
	name := path.Base(ref)
	switch name {
	case ".", "..", "/", strings.TrimSuffix(RefPrefix, "/"):
		return ""
	}
	return name
}

// objectName builds the stored file name from the upload time and the original extension.
func objectName(at time.Time, filename string) string {
	return fmt.Sprintf("%d%s", at.UnixMilli(), strings.ToLower(filepath.Ext(filename)))
}
