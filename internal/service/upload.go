package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/regaloya/regaloya-api/internal/storage"
)

var (
	ErrEmptyUpload      = errors.New("uploaded file is empty")
	ErrImageTooLarge    = errors.New("image exceeds the maximum upload size")
	ErrUnsupportedImage = errors.New("only jpeg, png, gif and webp images are accepted")
	ErrUploadRejected   = storage.ErrUploadRejected
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type UploadService struct {
	store    ImageStore
	maxBytes int64
}

func NewUploadService(store ImageStore, maxBytes int64) *UploadService {
	return &UploadService{
		store:    store,
		maxBytes: maxBytes,
	}
}

func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// UploadImage checks that data really is an image of an accepted type and
// stores it under a fresh key scoped to the uploading user.
func (s *UploadService) UploadImage(ctx context.Context, userID uint, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}

	key := fmt.Sprintf("projects/%d/%s%s", userID, uuid.NewString(), ext)
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("s.store.Put -> %w", err)
	}

	return url, nil
}
