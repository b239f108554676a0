package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCS stores objects in a Cloud Storage bucket; links are V4 signed URLs.
type GCS struct {
	client *gcs.Client
	bucket string
}

// NewGCS uses application default credentials.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("storage: gcs bucket is empty")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) object(name string) (*gcs.ObjectHandle, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	return g.client.Bucket(g.bucket).Object(clean), nil
}

func (g *GCS) Put(ctx context.Context, name string, r io.Reader, contentType string) error {
	obj, err := g.object(name)
	if err != nil {
		return err
	}
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := g.object(name)
	if err != nil {
		return nil, err
	}
	rc, err := obj.NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	return rc, err
}

func (g *GCS) Exists(ctx context.Context, name string) (bool, error) {
	obj, err := g.object(name)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (g *GCS) Delete(ctx context.Context, name string) error {
	obj, err := g.object(name)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (g *GCS) SignedURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return g.client.Bucket(g.bucket).SignedURL(clean, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
}

func (g *GCS) Close() error { return g.client.Close() }
