package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("storage: invalid key")

// FileStore keeps uploaded images on the local filesystem. It backs
// development setups where no upload service is configured; the API serves
// basePath under publicPath.
type FileStore struct {
	basePath   string
	publicPath string
}

func NewFileStore(basePath, publicPath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}

	return &FileStore{
		basePath:   basePath,
		publicPath: "/" + strings.Trim(publicPath, "/"),
	}, nil
}

func (s *FileStore) BasePath() string {
	return s.basePath
}

func (s *FileStore) PublicPath() string {
	return s.publicPath
}

// Put writes data at key and returns the URL path it is served from.
func (s *FileStore) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}

	return path.Join(s.publicPath, cleanKey), nil
}

func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}

	return cleaned, nil
}
