package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gst-billing/internal/config"
	"gst-billing/internal/core"
	"gst-billing/internal/db"
	"gst-billing/internal/lock"
)

// Open connects to the database and the configured lock backend and builds the
// full service graph. The returned close func releases both connections.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (ApplicationService, func(), error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	closers := []func(){pool.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	locker, err := newLocker(ctx, cfg.Lock, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if c, ok := locker.(interface{ Close() error }); ok {
		closers = append(closers, func() { _ = c.Close() })
	}

	docService := core.NewDocumentService(pool)
	ledger := core.NewLedger(pool)
	ruleEngine := core.NewRuleEngine(pool)

	svc := NewAppService(Services{
		Master:   core.NewMasterDataService(pool),
		Vouchers: core.NewVoucherService(pool, docService, ledger, ruleEngine, log),
		Returns:  core.NewReturnService(pool, docService, ledger, ruleEngine, log),
		Stock:    core.NewStockService(pool),
		Ledger:   ledger,
		Reports:  core.NewReportingService(pool),
	}, locker, cfg.CompanyCode, log)

	return svc, closeAll, nil
}

type redisLocker struct {
	*lock.Redis
	client *redis.Client
}

func (l redisLocker) Close() error { return l.client.Close() }

func newLocker(ctx context.Context, cfg config.LockConfig, log *zap.Logger) (lock.Locker, error) {
	if cfg.Backend != "redis" {
		log.Info("using in-process locks")
		return lock.NewLocal(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info("using redis locks", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.TTL))

	return redisLocker{
		Redis: lock.NewRedis(rdb, lock.RedisOptions{
			TTL:           cfg.TTL,
			RetryInterval: cfg.RetryInterval,
			RetryLimit:    cfg.RetryLimit,
			Prefix:        "gst-billing:",
		}, log),
		client: rdb,
	}, nil
}
