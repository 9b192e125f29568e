package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/fieldsales-backend/internal/observability"
	"github.com/yungbote/fieldsales-backend/internal/platform/gcp"
	"github.com/yungbote/fieldsales-backend/internal/platform/localmedia"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
	"github.com/yungbote/fieldsales-backend/internal/services"
)

var (
	newGCSMediaStore = func(log *logger.Logger, cfg gcp.ObjectStorageConfig) (services.MediaStore, io.Closer, error) {
		store, err := gcp.NewMediaStore(log, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	newLocalMediaStore = localmedia.New
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorInvalidPublicURL    StorageProviderBootstrapErrorCode = "invalid_public_base_url"
	StorageProviderBootstrapErrorLocalDir            StorageProviderBootstrapErrorCode = "local_dir_unavailable"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "media store bootstrap failed"
	}
	return fmt.Sprintf(
		"media store bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// MediaProvider is the selected media store plus what the app needs to
// serve and release it.
type MediaProvider struct {
	Store services.MediaStore
	// Local is set in local mode so the router can serve the files.
	Local  *localmedia.Store
	Closer io.Closer
	Mode   string
}

func (p *MediaProvider) Close() {
	if p == nil || p.Closer == nil {
		return
	}
	_ = p.Closer.Close()
}

func resolveMediaStore(log *logger.Logger, cfg Config) (*MediaProvider, error) {
	metrics := observability.Current()
	mode := strings.ToLower(strings.TrimSpace(cfg.MediaStoreMode))

	if mode == MediaStoreModeLocal {
		metrics.SetObjectStorageModeActive(mode)
		log.Info("Selecting media store", "mode", mode, "dir", cfg.LocalMediaDir, "base_url", cfg.LocalMediaBaseURL)
		store, err := newLocalMediaStore(log, cfg.LocalMediaDir, cfg.LocalMediaBaseURL)
		if err != nil {
			bootErr := &StorageProviderBootstrapError{Code: StorageProviderBootstrapErrorLocalDir, Mode: mode, Cause: err}
			metrics.ObserveObjectStorageProviderBootstrap(mode, "error", string(bootErr.Code))
			log.Error("Media store bootstrap failed", "mode", mode, "error_code", bootErr.Code, "error", err)
			return nil, bootErr
		}
		metrics.ObserveObjectStorageProviderBootstrap(mode, "success", "none")
		return &MediaProvider{Store: store, Local: store, Mode: mode}, nil
	}

	storageCfg, err := gcp.ResolveObjectStorageConfig(mode, gcp.ObjectStorageConfig{
		EmulatorHost:  cfg.StorageEmulatorHost,
		Bucket:        cfg.VisitMediaBucket,
		CDNDomain:     cfg.VisitMediaCDNDomain,
		PublicBaseURL: cfg.ObjectStoragePublicBaseURL,
	})
	if err != nil {
		if storageCfg.Mode == "" {
			storageCfg.Mode = gcp.ObjectStorageMode(mode)
		}
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		code := storageProviderBootstrapErrorCode(classified)
		metrics.ObserveObjectStorageProviderBootstrap(string(storageCfg.Mode), "error", string(code))
		log.Error(
			"Media store selection failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"bucket", storageCfg.Bucket,
			"error_code", code,
			"error", classified,
		)
		return nil, classified
	}

	metrics.SetObjectStorageModeActive(string(storageCfg.Mode))
	log.Info(
		"Selecting media store",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"compatibility_fallback", storageCfg.CompatibilityFallback,
		"emulator_host", storageCfg.EmulatorHost,
		"bucket", storageCfg.Bucket,
	)

	store, closer, err := newGCSMediaStore(log, storageCfg)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		code := storageProviderBootstrapErrorCode(classified)
		metrics.ObserveObjectStorageProviderBootstrap(string(storageCfg.Mode), "error", string(code))
		log.Error(
			"Media store bootstrap failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", code,
			"error", classified,
		)
		return nil, classified
	}
	metrics.ObserveObjectStorageProviderBootstrap(string(storageCfg.Mode), "success", "none")
	return &MediaProvider{Store: store, Closer: closer, Mode: string(storageCfg.Mode)}, nil
}

func classifyStorageProviderBootstrapError(storageCfg gcp.ObjectStorageConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidPublicBaseURL:
			code = StorageProviderBootstrapErrorInvalidPublicURL
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storageCfg.Mode),
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
