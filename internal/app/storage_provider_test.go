package app

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/yungbote/fieldsales-backend/internal/platform/gcp"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
	"github.com/yungbote/fieldsales-backend/internal/services"
)

type stubMediaStore struct{ closed bool }

func (s *stubMediaStore) Upload(context.Context, io.Reader, string, string) (string, error) {
	return "", nil
}
func (s *stubMediaStore) Delete(context.Context, string) error { return nil }
func (s *stubMediaStore) Close() error {
	s.closed = true
	return nil
}

func stubGCS(t *testing.T) (*stubMediaStore, *gcp.ObjectStorageConfig) {
	t.Helper()
	orig := newGCSMediaStore
	t.Cleanup(func() { newGCSMediaStore = orig })

	stub := &stubMediaStore{}
	captured := &gcp.ObjectStorageConfig{}
	newGCSMediaStore = func(_ *logger.Logger, cfg gcp.ObjectStorageConfig) (services.MediaStore, io.Closer, error) {
		*captured = cfg
		return stub, stub, nil
	}
	return stub, captured
}

func requireBootstrapCode(t *testing.T, err error, want StorageProviderBootstrapErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %q error, got nil", want)
	}
	var got *StorageProviderBootstrapError
	if !errors.As(err, &got) {
		t.Fatalf("expected StorageProviderBootstrapError, got=%T", err)
	}
	if got.Code != want {
		t.Fatalf("code: want=%q got=%q", want, got.Code)
	}
}

func TestClassifyStorageProviderBootstrapError(t *testing.T) {
	cases := []struct {
		src  gcp.ObjectStorageConfigErrorCode
		want StorageProviderBootstrapErrorCode
	}{
		{gcp.ObjectStorageConfigErrorInvalidMode, StorageProviderBootstrapErrorInvalidMode},
		{gcp.ObjectStorageConfigErrorMissingBucket, StorageProviderBootstrapErrorMissingBucket},
		{gcp.ObjectStorageConfigErrorMissingEmulatorHost, StorageProviderBootstrapErrorMissingEmulatorHost},
		{gcp.ObjectStorageConfigErrorInvalidEmulatorHost, StorageProviderBootstrapErrorInvalidEmulatorHost},
		{gcp.ObjectStorageConfigErrorInvalidPublicBaseURL, StorageProviderBootstrapErrorInvalidPublicURL},
	}
	for _, tc := range cases {
		err := classifyStorageProviderBootstrapError(gcp.ObjectStorageConfig{}, &gcp.ObjectStorageConfigError{Code: tc.src})
		requireBootstrapCode(t, err, tc.want)
	}

	err := classifyStorageProviderBootstrapError(gcp.ObjectStorageConfig{Mode: gcp.ObjectStorageModeGCS}, errors.New("dial tcp: connection refused"))
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorConnectFailed)
}

func TestResolveMediaStoreInvalidMode(t *testing.T) {
	_, err := resolveMediaStore(logger.Nop(), Config{MediaStoreMode: "s3", VisitMediaBucket: "b"})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorInvalidMode)
}

func TestResolveMediaStoreMissingBucket(t *testing.T) {
	stubGCS(t)
	_, err := resolveMediaStore(logger.Nop(), Config{MediaStoreMode: "gcs"})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorMissingBucket)
}

func TestResolveMediaStoreGCSMode(t *testing.T) {
	stub, captured := stubGCS(t)

	p, err := resolveMediaStore(logger.Nop(), Config{
		MediaStoreMode:      "gcs",
		VisitMediaBucket:    "visit-media",
		VisitMediaCDNDomain: "cdn.example.com",
		StorageEmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if p.Store != stub || p.Local != nil {
		t.Fatalf("unexpected provider %+v", p)
	}
	if captured.Mode != gcp.ObjectStorageModeGCS || captured.Bucket != "visit-media" || captured.CDNDomain != "cdn.example.com" {
		t.Fatalf("unexpected config %+v", *captured)
	}
	p.Close()
	if !stub.closed {
		t.Fatal("expected store to be closed")
	}
}

func TestResolveMediaStoreEmulatorFallback(t *testing.T) {
	_, captured := stubGCS(t)

	p, err := resolveMediaStore(logger.Nop(), Config{
		VisitMediaBucket:    "visit-media",
		StorageEmulatorHost: "http://fake-gcs:4443/",
	})
	if err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if p.Mode != string(gcp.ObjectStorageModeGCSEmulator) {
		t.Fatalf("mode: want=%q got=%q", gcp.ObjectStorageModeGCSEmulator, p.Mode)
	}
	if !captured.CompatibilityFallback || captured.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("unexpected config %+v", *captured)
	}
}

func TestResolveMediaStoreInvalidEmulatorHost(t *testing.T) {
	stubGCS(t)
	_, err := resolveMediaStore(logger.Nop(), Config{
		MediaStoreMode:      "gcs_emulator",
		VisitMediaBucket:    "visit-media",
		StorageEmulatorHost: "fake-gcs:4443",
	})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorInvalidEmulatorHost)
}

func TestResolveMediaStoreConnectFailed(t *testing.T) {
	orig := newGCSMediaStore
	t.Cleanup(func() { newGCSMediaStore = orig })
	newGCSMediaStore = func(*logger.Logger, gcp.ObjectStorageConfig) (services.MediaStore, io.Closer, error) {
		return nil, nil, errors.New("credentials not found")
	}

	_, err := resolveMediaStore(logger.Nop(), Config{MediaStoreMode: "gcs", VisitMediaBucket: "visit-media"})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorConnectFailed)
}

func TestResolveMediaStoreLocalMode(t *testing.T) {
	dir := t.TempDir()
	p, err := resolveMediaStore(logger.Nop(), Config{
		MediaStoreMode:    "local",
		LocalMediaDir:     dir,
		LocalMediaBaseURL: "http://localhost:8080/media",
	})
	if err != nil {
		t.Fatalf("resolveMediaStore: %v", err)
	}
	if p.Local == nil || p.Local.URLPath() != "/media" {
		t.Fatalf("expected local store mounted at /media, got %+v", p.Local)
	}
	p.Close()

	_, err = resolveMediaStore(logger.Nop(), Config{MediaStoreMode: "local", LocalMediaDir: dir})
	requireBootstrapCode(t, err, StorageProviderBootstrapErrorLocalDir)
}
