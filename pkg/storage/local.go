package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// Local stores objects under root and serves them through /storage/{name} links signed with
// an HMAC key derived from the configured signing key.
type Local struct {
	root    string
	baseURL string
	key     []byte
	now     func() time.Time
}

func NewLocal(root, baseURL, signingKey string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: local root is empty")
	}
	if signingKey == "" {
		return nil, errors.New("storage: signing key is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(signingKey), nil, []byte("storage-link-v1")), key); err != nil {
		return nil, fmt.Errorf("storage: derive key: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/"), key: key, now: time.Now}, nil
}

func (l *Local) fullPath(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *Local) Put(_ context.Context, name string, r io.Reader, _ string) error {
	p, err := l.fullPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := l.fullPath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	p, err := l.fullPath(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l *Local) Delete(_ context.Context, name string) error {
	p, err := l.fullPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) SignedURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	expires := l.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", l.sign(clean, expires))
	return l.baseURL + "/storage/" + (&url.URL{Path: clean}).EscapedPath() + "?" + q.Encode(), nil
}

// Verify checks a link produced by SignedURL.
func (l *Local) Verify(name, expires, signature string) error {
	clean, err := CleanName(name)
	if err != nil {
		return err
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal([]byte(l.sign(clean, exp)), []byte(signature)) {
		return ErrBadSignature
	}
	if l.now().Unix() >= exp {
		return ErrLinkExpired
	}
	return nil
}

func (l *Local) sign(name string, expires int64) string {
	mac := hmac.New(sha256.New, l.key)
	mac.Write([]byte(name))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
