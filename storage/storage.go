package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"productsapi/config"
)

// Storage keeps uploaded files and returns the URL they are served from.
// Relative URLs are served by this process.
type Storage interface {
	Save(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

func New(cfg config.UploadConfig) (Storage, error) {
	switch cfg.Backend {
	case config.UploadR2:
		return NewR2Storage(cfg.R2), nil
	case config.UploadLocal, "":
		return NewLocalStorage(cfg.Dir)
	default:
		return nil, fmt.Errorf("upload backend %q not supported", cfg.Backend)
	}
}

// LocalStorage writes files under Dir; they are served below /uploads/.
type LocalStorage struct {
	Dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{Dir: dir}, nil
}

func (s *LocalStorage) Save(_ context.Context, name, _ string, body io.Reader) (string, error) {
	name = filepath.Base(name)
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return "/uploads/" + name, nil
}
