package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StoredFile describes an object written by a FileStore.
type StoredFile struct {
	Key  string
	URL  string
	Size int64
}

// FileStore persists uploaded files and returns a public URL for them.
type FileStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (StoredFile, error)
	Remove(ctx context.Context, key string) error
}

// DiskStore writes files under a local directory that the HTTP server
// exposes at PublicPrefix.
type DiskStore struct {
	dir     string
	baseURL string
}

// PublicPrefix is the URL path uploaded files are served from.
const PublicPrefix = "/uploads"

// NewDiskStore creates dir if needed and returns a store rooted at it.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *DiskStore) Dir() string { return s.dir }

// Save copies r to a new object. The key keeps the original extension.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}

	key := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(filename)))
	f, err := os.OpenFile(filepath.Join(s.dir, key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create %s: %w", key, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, key))
		return StoredFile{}, fmt.Errorf("failed to write %s: %w", key, err)
	}

	return StoredFile{
		Key:  key,
		URL:  s.baseURL + PublicPrefix + "/" + key,
		Size: n,
	}, nil
}

// Remove deletes an object. Missing objects are not an error.
func (s *DiskStore) Remove(_ context.Context, key string) error {
	if key == "" || key != filepath.Base(key) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
