package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/ila-server/internal/metrics"
	"github.com/godilite/ila-server/pkg/cache"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const defaultSetTimeout = 2 * time.Second

// addTTLJitter spreads expirations by up to ±10% of the TTL.
func addTTLJitter(ttl time.Duration) time.Duration {
	spread := int64(ttl / 5)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(spread)-spread/2)
}

// findAndCache is a read-through cache: hits return immediately, misses are fetched once per
// key via singleflight and written back before returning. A nil cache only deduplicates.
// Cache errors are treated as misses.
func findAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T

	if c != nil {
		var cached T
		err := c.Get(ctx, key, &cached)
		switch {
		case err == nil:
			metrics.BenchmarkCacheTotal.WithLabelValues("hit").Inc()
			logger.Debug("cache hit", zap.String("key", key))
			return cached, nil
		case errors.Is(err, cache.ErrMiss):
			metrics.BenchmarkCacheTotal.WithLabelValues("miss").Inc()
		default:
			metrics.BenchmarkCacheTotal.WithLabelValues("error").Inc()
			logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if c != nil {
			setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultSetTimeout)
			defer cancel()
			if err := c.Set(setCtx, key, value, addTTLJitter(ttl)); err != nil {
				logger.Warn("failed to set cache on miss", zap.String("key", key), zap.Error(err))
			}
		}
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}
