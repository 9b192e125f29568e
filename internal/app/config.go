package app

import (
	"strings"
	"time"

	"github.com/yungbote/fieldsales-backend/internal/platform/envutil"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const (
	MediaStoreModeLocal = "local"

	PaymentSequenceScan  = "scan"
	PaymentSequenceRedis = "redis"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins []string

	PostgresHost         string
	PostgresPort         string
	PostgresUser         string
	PostgresPassword     string
	PostgresName         string
	PostgresSSLMode      string
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int

	VisitTxTimeout      time.Duration
	VisitTxMaxWait      time.Duration
	VisitMaxMultipartMB int

	MediaStoreMode             string
	VisitMediaBucket           string
	VisitMediaCDNDomain        string
	ObjectStoragePublicBaseURL string
	StorageEmulatorHost        string
	LocalMediaDir              string
	LocalMediaBaseURL          string

	PaymentSequenceSource string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	OtelEnabled     bool
	OtelServiceName string
	OtelEndpoint    string
	OtelHeaders     string
	OtelInsecure    bool
	OtelSampleRatio float64
}

func LoadConfig(log *logger.Logger) Config {
	port := envutil.String("PORT", "8080", log)
	return Config{
		Port:        port,
		Environment: envutil.String("APP_ENV", "development", log),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),

		PostgresHost:         envutil.String("POSTGRES_HOST", "localhost", log),
		PostgresPort:         envutil.String("POSTGRES_PORT", "5432", log),
		PostgresUser:         envutil.String("POSTGRES_USER", "postgres", log),
		PostgresPassword:     envutil.String("POSTGRES_PASSWORD", "", log),
		PostgresName:         envutil.String("POSTGRES_NAME", "fieldsales", log),
		PostgresSSLMode:      envutil.String("POSTGRES_SSLMODE", "disable", log),
		PostgresMaxOpenConns: envutil.Int("POSTGRES_MAX_OPEN_CONNS", 20, log),
		PostgresMaxIdleConns: envutil.Int("POSTGRES_MAX_IDLE_CONNS", 10, log),

		VisitTxTimeout:      envutil.Duration("VISIT_TX_TIMEOUT", 15*time.Second, log),
		VisitTxMaxWait:      envutil.Duration("VISIT_TX_MAX_WAIT", 5*time.Second, log),
		VisitMaxMultipartMB: envutil.Int("VISIT_MAX_MULTIPART_MB", 32, log),

		MediaStoreMode:             strings.ToLower(envutil.String("MEDIA_STORE_MODE", "", log)),
		VisitMediaBucket:           envutil.String("VISIT_MEDIA_BUCKET", "", log),
		VisitMediaCDNDomain:        envutil.String("VISIT_MEDIA_CDN_DOMAIN", "", log),
		ObjectStoragePublicBaseURL: envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", "", log),
		StorageEmulatorHost:        envutil.String("STORAGE_EMULATOR_HOST", "", log),
		LocalMediaDir:              envutil.String("LOCAL_MEDIA_DIR", "./media", log),
		LocalMediaBaseURL:          envutil.String("LOCAL_MEDIA_BASE_URL", "http://localhost:"+port+"/media", log),

		PaymentSequenceSource: strings.ToLower(envutil.String("PAYMENT_SEQUENCE_SOURCE", PaymentSequenceScan, log)),
		RedisAddr:             envutil.String("REDIS_ADDR", "", log),
		RedisPassword:         envutil.String("REDIS_PASSWORD", "", log),
		RedisDB:               envutil.Int("REDIS_DB", 0, log),

		OtelEnabled:     envutil.Bool("OTEL_ENABLED", false, log),
		OtelServiceName: envutil.String("OTEL_SERVICE_NAME", "fieldsales-backend", log),
		OtelEndpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		OtelHeaders:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log),
		OtelInsecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		OtelSampleRatio: float64(envutil.Int("OTEL_SAMPLE_PERCENT", 100, log)) / 100,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
