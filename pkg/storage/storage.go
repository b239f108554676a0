// Package storage abstracts where uploaded files and sellable PDFs live.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/d60-Lab/classifieds-api/config"
)

var (
	ErrNotFound     = errors.New("storage: object not found")
	ErrInvalidPath  = errors.New("storage: invalid path")
	ErrLinkExpired  = errors.New("storage: link expired")
	ErrBadSignature = errors.New("storage: bad signature")
)

// Storage is implemented by the local disk and GCS backends.
type Storage interface {
	Put(ctx context.Context, name string, r io.Reader, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	// SignedURL returns a direct, time-limited link to the object.
	SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, baseURL string) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalRoot, baseURL, cfg.SigningKey)
	case "gcs":
		return NewGCS(ctx, cfg.GCSBucket)
	}
	return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
}

// CleanName normalizes an object name and rejects traversal.
func CleanName(name string) (string, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(name)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." || strings.Contains(cleaned, "/../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
