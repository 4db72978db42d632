package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dejo1307/frontdoc/internal/config"
)

// Backend persists the encoded cache store.
type Backend interface {
	// Load returns the stored bytes, or nil and no error when nothing is stored yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	String() string
}

// NewBackend builds the backend selected by cfg.
func NewBackend(cfg config.CacheConfig) (Backend, error) {
	switch cfg.Backend {
	case config.CacheFile, "":
		return NewFileBackend(cfg.Path), nil
	case config.CacheS3:
		b, err := NewS3Backend(cfg.S3)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.CacheNone:
		return NopBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// FileBackend stores the cache as a single JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) String() string { return b.path }

// Load reads the cache file. A missing file is an empty store.
func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save writes data to a temporary file and renames it over the cache file,
// so readers never observe a partial store.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replacing %s: %w", b.path, err)
	}
	return nil
}

// NopBackend never persists anything.
type NopBackend struct{}

func (NopBackend) String() string { return "none" }

func (NopBackend) Load(context.Context) ([]byte, error) { return nil, nil }

func (NopBackend) Save(context.Context, []byte) error { return nil }
