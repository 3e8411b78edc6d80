package s0_data

import (
	"context"
	"time"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
	"github.com/wonny/swingscreener/pkg/redis"
)

// Cache is the subset of redis.Cache used for fundamentals
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// FundamentalCache memoizes market cap lookups for a trading day.
// Cache errors are logged and never fail the lookup.
type FundamentalCache struct {
	lookup contracts.FundamentalLookup
	cache  Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewFundamentalCache wraps lookup with a daily cache
func NewFundamentalCache(lookup contracts.FundamentalLookup, cache Cache, log *logger.Logger) *FundamentalCache {
	return &FundamentalCache{
		lookup: lookup,
		cache:  cache,
		ttl:    redis.TTLDaily,
		logger: log.WithField("module", "fundamentals"),
	}
}

// MarketCap returns the cached value or performs the lookup
func (f *FundamentalCache) MarketCap(ctx context.Context, symbol string) (float64, error) {
	key := redis.MarketCapKey(symbol)

	var cached float64
	hit, err := f.cache.Get(ctx, key, &cached)
	if err != nil {
		f.logger.WithError(err).WithSymbol(symbol).Warn("Market cap cache read failed")
	}
	if hit {
		return cached, nil
	}

	value, err := f.lookup.MarketCap(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if err := f.cache.Set(ctx, key, value, f.ttl); err != nil {
		f.logger.WithError(err).WithSymbol(symbol).Warn("Market cap cache write failed")
	}
	return value, nil
}
