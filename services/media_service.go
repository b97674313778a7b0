package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/storage"
)

// MaxUploadSize limits a single photo upload.
const MaxUploadSize = 10 << 20

type MediaService interface {
	UploadPhoto(ctx context.Context, input UploadInput) (*models.UploadedFile, error)
	OpenPhoto(ctx context.Context, filename string) (io.ReadCloser, *storage.FileInfo, error)
	DeletePhoto(ctx context.Context, filename string) error
}

type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64
	Reader       io.Reader
}

type mediaService struct {
	store  storage.FileStore
	logger *slog.Logger
}

func NewMediaService(store storage.FileStore, logger *slog.Logger) MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	return &mediaService{store: store, logger: logger}
}

func (s *mediaService) UploadPhoto(ctx context.Context, input UploadInput) (*models.UploadedFile, error) {
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: only image files are allowed", ErrValidationFailed)
	}
	if input.Size > MaxUploadSize {
		return nil, fmt.Errorf("%w: file must not be larger than %d bytes", ErrValidationFailed, MaxUploadSize)
	}

	filename := uuid.NewString() + photoExtension(input.OriginalName, contentType)

	res, err := s.store.Upload(ctx, filename, contentType, input.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	s.logger.Info("file uploaded",
		slog.String("original_name", input.OriginalName),
		slog.String("filename", filename),
		slog.Int64("size", input.Size),
		slog.String("mimetype", contentType))

	return &models.UploadedFile{
		OriginalName: input.OriginalName,
		Filename:     filename,
		Size:         input.Size,
		Mimetype:     contentType,
		URL:          res.Location,
	}, nil
}

func (s *mediaService) OpenPhoto(ctx context.Context, filename string) (io.ReadCloser, *storage.FileInfo, error) {
	name, err := storage.SanitizeFilename(filename)
	if err != nil {
		return nil, nil, ErrFileNotFound
	}

	rc, info, err := s.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	return rc, info, nil
}

func (s *mediaService) DeletePhoto(ctx context.Context, filename string) error {
	name, err := storage.SanitizeFilename(filename)
	if err != nil {
		return ErrFileNotFound
	}

	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file %s: %w", name, err)
	}

	s.logger.Info("file deleted", slog.String("filename", name))
	return nil
}

func photoExtension(originalName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext != "" && len(ext) <= 5 && !strings.ContainsAny(ext, `/\`) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
