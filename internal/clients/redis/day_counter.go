package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fieldsales-backend/internal/platform/logger"
)

const (
	defaultKeyPrefix = "fieldsales:payment_seq:"
	counterTTL       = 48 * time.Hour
)

// DayCounter hands out per-day sequence numbers with INCR, seeding an absent
// day from the caller's view of the highest sequence already stored.
type DayCounter struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

type DayCounterConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

func NewDayCounter(cfg DayCounterConfig, log *logger.Logger) (*DayCounter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewDayCounterFromClient(rdb, cfg.KeyPrefix, log), nil
}

func NewDayCounterFromClient(rdb goredis.UniversalClient, keyPrefix string, log *logger.Logger) *DayCounter {
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = defaultKeyPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DayCounter{
		log:    log.With("service", "RedisDayCounter"),
		rdb:    rdb,
		prefix: keyPrefix,
	}
}

// Incr returns the next sequence for day. The first caller of a day seeds
// the counter with SETNX so later callers continue after stored numbers.
func (c *DayCounter) Incr(ctx context.Context, day string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	if c == nil || c.rdb == nil {
		return 0, fmt.Errorf("redis day counter not initialized")
	}
	key := c.prefix + day

	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 && seed != nil {
		hi, err := seed(ctx)
		if err != nil {
			return 0, err
		}
		ok, err := c.rdb.SetNX(ctx, key, hi, counterTTL).Result()
		if err != nil {
			return 0, err
		}
		if ok {
			c.log.Debug("Seeded payment day counter", "key", key, "seed", hi)
		}
	}

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *DayCounter) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis day counter not initialized")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *DayCounter) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Client exposes the underlying connection for health collectors.
func (c *DayCounter) Client() goredis.UniversalClient {
	if c == nil {
		return nil
	}
	return c.rdb
}
