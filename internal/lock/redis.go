package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis implements Locker with bsm/redislock so that several server
// instances posting against one database serialize on the same keys.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	prefix string
	log    *zap.Logger
}

type RedisOptions struct {
	TTL           time.Duration
	RetryInterval time.Duration
	RetryLimit    int
	// Prefix namespaces keys, e.g. "gst-billing:".
	Prefix string
}

func NewRedis(rdb redis.UniversalClient, opts RedisOptions, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	retry := redislock.NoRetry()
	if opts.RetryLimit > 0 {
		retry = redislock.LimitRetry(redislock.LinearBackoff(opts.RetryInterval), opts.RetryLimit)
	}
	return &Redis{
		client: redislock.New(rdb),
		ttl:    opts.TTL,
		retry:  retry,
		prefix: opts.Prefix,
		log:    log,
	}
}

func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	held := make([]*redislock.Lock, 0, len(keys))
	var once sync.Once
	release := func() { once.Do(func() { r.releaseAll(held) }) }

	for _, k := range keys {
		l, err := r.client.Obtain(ctx, r.prefix+k, r.ttl, &redislock.Options{RetryStrategy: r.retry})
		if err != nil {
			r.releaseAll(held)
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, fmt.Errorf("%w: %s", ErrNotObtained, k)
			}
			return nil, fmt.Errorf("failed to obtain lock %s: %w", k, err)
		}
		held = append(held, l)
	}
	return release, nil
}

func (r *Redis) releaseAll(held []*redislock.Lock) {
	for i := len(held) - 1; i >= 0; i-- {
		// Release must run even when the request context is already done.
		if err := held[i].Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.log.Warn("failed to release lock", zap.String("key", held[i].Key()), zap.Error(err))
		}
	}
}
