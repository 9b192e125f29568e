package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const (
	uploadTimeout = 2 * time.Minute
	deleteTimeout = 30 * time.Second
)

// MediaStore writes visit photos to a single GCS bucket and hands back the
// public URL that gets stored on the visit row.
type MediaStore struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   ObjectStorageMode
	emulatorHost  string
	bucket        string
	cdnDomain     string
	publicBaseURL string
}

func NewMediaStore(log *logger.Logger, storageCfg ObjectStorageConfig) (*MediaStore, error) {
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	storeLog := log.With("service", "MediaStore")

	publicBaseURL, publicBaseSource := resolveObjectStoragePublicBaseURL(storageCfg)

	stClient, err := newStorageClientForMode(context.Background(), storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	storeLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"public_base_source", publicBaseSource,
		"public_base_url", publicBaseURL,
		"bucket", storageCfg.Bucket,
		"cdn_domain", storageCfg.CDNDomain,
	)

	return &MediaStore{
		log:           storeLog,
		storageClient: stClient,
		storageMode:   storageCfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"),
		bucket:        storageCfg.Bucket,
		cdnDomain:     strings.TrimSpace(storageCfg.CDNDomain),
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{
			Code: ObjectStorageConfigErrorInvalidMode,
			Mode: string(storageCfg.Mode),
		}
	}
}

func resolveObjectStoragePublicBaseURL(storageCfg ObjectStorageConfig) (baseURL string, source string) {
	if raw := strings.TrimSpace(storageCfg.PublicBaseURL); raw != "" {
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url"
	}
	if storageCfg.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"), "storage_emulator_host"
	}
	return "", "gcs_default"
}

// Upload streams r to key and returns its public URL. An empty contentType is
// derived from the key extension.
func (s *MediaStore) Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.storageClient.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType = strings.TrimSpace(contentType); contentType == "" {
		contentType = contentTypeForKey(key)
	}
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return s.PublicURL(key), nil
}

// Delete removes the object behind a URL previously returned by Upload.
// A missing object is not an error.
func (s *MediaStore) Delete(ctx context.Context, rawURL string) error {
	key, err := s.KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()
	if err := s.storageClient.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.log.Debug("Object already gone", "bucket", s.bucket, "key", key)
			return nil
		}
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

func (s *MediaStore) Close() error {
	if s == nil || s.storageClient == nil {
		return nil
	}
	return s.storageClient.Close()
}

func (s *MediaStore) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	if s.storageMode == ObjectStorageModeGCSEmulator {
		if u := s.emulatorObjectMediaURL(key); u != "" {
			return u
		}
	}
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func (s *MediaStore) emulatorObjectMediaURL(key string) string {
	base := s.publicBaseURL
	if base == "" {
		base = s.emulatorHost
	}
	if base == "" {
		return ""
	}
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s?alt=media",
		base,
		url.PathEscape(s.bucket),
		url.PathEscape(key),
	)
}

// KeyFromURL reverses PublicURL for every URL form the store can produce.
func (s *MediaStore) KeyFromURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty media url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse media url %q: %w", rawURL, err)
	}

	escaped := u.EscapedPath()
	emulatorPrefix := "/storage/v1/b/" + url.PathEscape(s.bucket) + "/o/"
	if i := strings.Index(escaped, emulatorPrefix); i >= 0 {
		key, err := url.PathUnescape(escaped[i+len(emulatorPrefix):])
		if err != nil {
			return "", fmt.Errorf("unescape media url %q: %w", rawURL, err)
		}
		return nonEmptyKey(rawURL, key)
	}

	if s.cdnDomain != "" && strings.EqualFold(u.Host, s.cdnDomain) {
		return nonEmptyKey(rawURL, strings.TrimLeft(u.Path, "/"))
	}

	bucketSegment := "/" + s.bucket + "/"
	if i := strings.Index(u.Path, bucketSegment); i >= 0 {
		return nonEmptyKey(rawURL, u.Path[i+len(bucketSegment):])
	}
	return "", fmt.Errorf("media url %q does not belong to bucket %q", rawURL, s.bucket)
}

func nonEmptyKey(rawURL, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("media url %q has no object key", rawURL)
	}
	return key, nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".heic"):
		return "image/heic"
	default:
		return ""
	}
}
