package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/fieldsales-backend/internal/clients/redis"
	"github.com/yungbote/fieldsales-backend/internal/data/db"
	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

type Clients struct {
	Postgres *db.PostgresService
	Media    *MediaProvider
	// DayCounter is nil unless PAYMENT_SEQUENCE_SOURCE=redis.
	DayCounter *redis.DayCounter
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Postgres
	pg, err := db.NewPostgresService(db.PostgresConfig{
		Host:         cfg.PostgresHost,
		Port:         cfg.PostgresPort,
		User:         cfg.PostgresUser,
		Password:     cfg.PostgresPassword,
		Name:         cfg.PostgresName,
		SSLMode:      cfg.PostgresSSLMode,
		MaxOpenConns: cfg.PostgresMaxOpenConns,
		MaxIdleConns: cfg.PostgresMaxIdleConns,
	}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
	}

	// Media
	media, err := resolveMediaStore(log, cfg)
	if err != nil {
		_ = pg.Close()
		return Clients{}, fmt.Errorf("init media store: %w", err)
	}

	// Redis
	var counter *redis.DayCounter
	switch cfg.PaymentSequenceSource {
	case PaymentSequenceRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			media.Close()
			_ = pg.Close()
			return Clients{}, fmt.Errorf("PAYMENT_SEQUENCE_SOURCE=redis requires REDIS_ADDR")
		}
		counter, err = redis.NewDayCounter(redis.DayCounterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			media.Close()
			_ = pg.Close()
			return Clients{}, fmt.Errorf("init redis day counter: %w", err)
		}
	case PaymentSequenceScan, "":
	default:
		media.Close()
		_ = pg.Close()
		return Clients{}, fmt.Errorf("invalid PAYMENT_SEQUENCE_SOURCE=%q (allowed: %q, %q)", cfg.PaymentSequenceSource, PaymentSequenceScan, PaymentSequenceRedis)
	}

	return Clients{Postgres: pg, Media: media, DayCounter: counter}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.DayCounter != nil {
		_ = c.DayCounter.Close()
	}
	c.Media.Close()
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
}
