package localmedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

// Store keeps visit photos on the local filesystem for development. Files are
// served by the HTTP router under the path of BaseURL.
type Store struct {
	log     *logger.Logger
	dir     string
	baseURL string
}

func New(log *logger.Logger, dir, baseURL string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("LOCAL_MEDIA_DIR is required for local media store")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("LOCAL_MEDIA_BASE_URL is required for local media store")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir %q: %w", abs, err)
	}
	storeLog := log.With("service", "LocalMediaStore")
	storeLog.Info("Local media store initialized", "dir", abs, "base_url", baseURL)
	return &Store{log: storeLog, dir: abs, baseURL: baseURL}, nil
}

func (s *Store) Dir() string { return s.dir }

// URLPath is the path component of BaseURL, for mounting a static handler.
func (s *Store) URLPath() string {
	u, err := url.Parse(s.baseURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

func (s *Store) Upload(ctx context.Context, r io.Reader, key, _ string) (string, error) {
	full, clean, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close media file: %w", err)
	}
	return s.baseURL + "/" + clean, nil
}

func (s *Store) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, s.baseURL+"/") {
		return fmt.Errorf("media url %q is not served from %q", rawURL, s.baseURL)
	}
	full, _, err := s.resolve(strings.TrimPrefix(rawURL, s.baseURL+"/"))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// resolve maps a key to a file under dir, refusing keys that escape it.
func (s *Store) resolve(key string) (string, string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", "", fmt.Errorf("empty object key")
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), clean, nil
}
