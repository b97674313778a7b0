package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileInfo describes a stored object returned by Open.
type FileInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// FileStore keeps uploaded photos. Keys are plain file names.
type FileStore interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error)
	Delete(ctx context.Context, key string) error

	// GetPublicURL returns an absolute URL, or a path relative to the API
	// host when the store has no public base URL.
	GetPublicURL(key string) string
}

// SanitizeFilename reduces name to a single path element and rejects names
// that could leave the upload directory.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if base != name || base == "." || base == ".." || base == "/" || base == "" {
		return "", ErrInvalidFilename
	}
	if strings.HasPrefix(base, ".") {
		return "", ErrInvalidFilename
	}
	return base, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
