package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
)

type LocalStoreConfig struct {
	Dir string
	// PublicBaseURL is prepended to "/uploads/<key>"; empty keeps URLs relative.
	PublicBaseURL string
}

type localStore struct {
	dir           string
	publicBaseURL string
}

func NewLocalStore(cfg LocalStoreConfig) (FileStore, error) {
	if cfg.Dir == "" {
		return nil, errors.New("invalid local storage configuration: directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.Dir, err)
	}
	return &localStore{dir: cfg.Dir, publicBaseURL: cfg.PublicBaseURL}, nil
}

func (s *localStore) path(key string) (string, error) {
	name, err := SanitizeFilename(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func (s *localStore) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write file (key: %s): %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file (key: %s): %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("failed to store file (key: %s): %w", key, err)
	}

	return &UploadResult{Key: key, Location: s.GetPublicURL(key)}, nil
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, *FileInfo, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if stat.IsDir() {
		f.Close()
		return nil, nil, ErrFileNotFound
	}

	info := &FileInfo{
		Key:         key,
		Size:        stat.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(target)),
	}
	return f, info, nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file (key: %s): %w", key, err)
	}
	return nil
}

func (s *localStore) GetPublicURL(key string) string {
	if s.publicBaseURL == "" {
		return "/uploads/" + key
	}
	return joinURL(s.publicBaseURL, "/uploads/"+key)
}
