package oracle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/logging"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
)

const keyPrefix = "greeno:rate:"

// CachedOracle fronts another oracle with redis. Redis failures fall
// through to the upstream oracle.
type CachedOracle struct {
	next    PriceOracle
	rdb     *redis.Client
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCachedOracle creates a CachedOracle.
func NewCachedOracle(next PriceOracle, rdb *redis.Client, ttl time.Duration, logger *logging.Logger, m *metrics.Metrics) *CachedOracle {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedOracle{next: next, rdb: rdb, ttl: ttl, logger: logger, metrics: m}
}

func (c *CachedOracle) HbarToUSD(ctx context.Context) (decimal.Decimal, error) {
	return c.get(ctx, hbarKey(), c.next.HbarToUSD)
}

func (c *CachedOracle) USDToFiat(ctx context.Context, currency string) (decimal.Decimal, error) {
	return c.get(ctx, fiatKey(currency), func(ctx context.Context) (decimal.Decimal, error) {
		return c.next.USDToFiat(ctx, currency)
	})
}

// Refresh fetches fresh rates for currency and overwrites the cache.
func (c *CachedOracle) Refresh(ctx context.Context, currency string) error {
	hbar, err := c.next.HbarToUSD(ctx)
	if err != nil {
		return err
	}
	c.store(ctx, hbarKey(), hbar)

	fiat, err := c.next.USDToFiat(ctx, currency)
	if err != nil {
		return err
	}
	c.store(ctx, fiatKey(currency), fiat)
	return nil
}

func (c *CachedOracle) get(ctx context.Context, key string, load func(context.Context) (decimal.Decimal, error)) (decimal.Decimal, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if rate, perr := decimal.NewFromString(raw); perr == nil {
			c.metrics.RecordRateCache(true)
			return rate, nil
		}
		c.logger.WithContext(ctx).WithField("key", key).Warn("Discarding unparsable cached rate")
	case !errors.Is(err, redis.Nil):
		c.logger.WithContext(ctx).WithError(err).Warn("Rate cache read failed")
	}
	c.metrics.RecordRateCache(false)

	rate, err := load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	c.store(ctx, key, rate)
	return rate, nil
}

func (c *CachedOracle) store(ctx context.Context, key string, rate decimal.Decimal) {
	if err := c.rdb.Set(ctx, key, rate.String(), c.ttl).Err(); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Rate cache write failed")
	}
}

func hbarKey() string {
	return keyPrefix + SourceHbar
}

func fiatKey(currency string) string {
	return keyPrefix + "usd_" + strings.ToLower(currency)
}
