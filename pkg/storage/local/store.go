package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelviera/shoplane-backend/pkg/config"
	"github.com/angelviera/shoplane-backend/pkg/logger"
	"github.com/google/uuid"
)

// DefaultAvatarURL is served for users without an uploaded photo. It is never
// deleted by compensating cleanup.
const DefaultAvatarURL = "/uploads/default-avatar.png"

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ErrUnsupportedType rejects uploads outside the allowed image extensions.
var ErrUnsupportedType = errors.New("unsupported file type")

// Store saves uploaded files under a local directory and maps them to public
// URLs under the configured base path.
type Store struct {
	dir     string
	baseURL string
	maxSize int64
	logg    *logger.Logger
}

// New ensures the uploads directory exists and returns a Store.
func New(cfg config.UploadsConfig, logg *logger.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("uploads dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &Store{
		dir:     cfg.Dir,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		maxSize: int64(cfg.MaxUploadMB) << 20,
		logg:    logg,
	}, nil
}

// Save writes the upload to disk under a random name, keeping the original
// extension, and returns the public URL.
func (s *Store) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExts[ext] {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	limit := io.Reader(r)
	if s.maxSize > 0 {
		limit = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, limit)
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = os.Remove(path)
		return "", fmt.Errorf("upload exceeds %d bytes", s.maxSize)
	}

	return s.baseURL + "/" + name, nil
}

// Delete removes the file behind a previously returned URL. Unknown URLs and
// the default avatar are ignored so compensating cleanup stays idempotent.
func (s *Store) Delete(ctx context.Context, fileURL string) error {
	if fileURL == "" || fileURL == DefaultAvatarURL {
		return nil
	}
	if !strings.HasPrefix(fileURL, s.baseURL+"/") {
		return nil
	}

	name := filepath.Base(strings.TrimPrefix(fileURL, s.baseURL+"/"))
	path := filepath.Join(s.dir, name)

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}

// Dir exposes the backing directory, used to mount the static file server.
func (s *Store) Dir() string {
	return s.dir
}

// BaseURL exposes the public prefix uploads are served under.
func (s *Store) BaseURL() string {
	return s.baseURL
}
