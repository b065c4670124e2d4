package oracle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeno_layer/internal/logging"
)

func rateServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPOracle_HbarToUSD(t *testing.T) {
	srv := rateServer(t, http.StatusOK, `{"hedera-hashgraph":{"usd":0.0712}}`)
	o := NewHTTPOracle(HTTPConfig{HbarURL: srv.URL})

	rate, err := o.HbarToUSD(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.0712")))
}

func TestHTTPOracle_USDToFiat(t *testing.T) {
	srv := rateServer(t, http.StatusOK, `{"base":"USD","rates":{"EUR":0.92,"TND":3.11}}`)
	o := NewHTTPOracle(HTTPConfig{FiatURL: srv.URL})

	rate, err := o.USDToFiat(context.Background(), "tnd")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("3.11")))
}

func TestHTTPOracle_TypedFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusBadGateway, `{}`, ErrUnavailable},
		{"missing field", http.StatusOK, `{"hedera-hashgraph":{}}`, ErrMalformedResponse},
		{"not a number", http.StatusOK, `{"hedera-hashgraph":{"usd":"cheap"}}`, ErrMalformedResponse},
		{"zero rate", http.StatusOK, `{"hedera-hashgraph":{"usd":0}}`, ErrMalformedResponse},
		{"invalid json", http.StatusOK, `<html>`, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rateServer(t, tt.status, tt.body)
			o := NewHTTPOracle(HTTPConfig{HbarURL: srv.URL})

			_, err := o.HbarToUSD(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type countingOracle struct {
	hbarCalls int
	fiatCalls int
	hbar      decimal.Decimal
	fiat      decimal.Decimal
	err       error
}

func (c *countingOracle) HbarToUSD(context.Context) (decimal.Decimal, error) {
	c.hbarCalls++
	return c.hbar, c.err
}

func (c *countingOracle) USDToFiat(context.Context, string) (decimal.Decimal, error) {
	c.fiatCalls++
	return c.fiat, c.err
}

func newCache(t *testing.T, next PriceOracle) (*CachedOracle, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := logging.NewWithWriter("oracle-test", io.Discard)
	return NewCachedOracle(next, rdb, time.Minute, logger, nil), mr
}

func TestCachedOracle_CachesRates(t *testing.T) {
	next := &countingOracle{hbar: decimal.RequireFromString("0.05"), fiat: decimal.RequireFromString("3.1")}
	cache, mr := newCache(t, next)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rate, err := cache.HbarToUSD(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0.05", rate.String())
	}
	assert.Equal(t, 1, next.hbarCalls)
	assert.Equal(t, time.Minute, mr.TTL("greeno:rate:hbar_usd"))

	_, err := cache.USDToFiat(ctx, "TND")
	require.NoError(t, err)
	_, err = cache.USDToFiat(ctx, "TND")
	require.NoError(t, err)
	assert.Equal(t, 1, next.fiatCalls)

	got, err := mr.Get("greeno:rate:usd_tnd")
	require.NoError(t, err)
	assert.Equal(t, "3.1", got)
}

func TestCachedOracle_ExpiredEntryRefetches(t *testing.T) {
	next := &countingOracle{hbar: decimal.RequireFromString("0.05")}
	cache, mr := newCache(t, next)

	_, err := cache.HbarToUSD(context.Background())
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = cache.HbarToUSD(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, next.hbarCalls)
}

func TestCachedOracle_UpstreamErrorNotCached(t *testing.T) {
	next := &countingOracle{err: ErrUnavailable}
	cache, mr := newCache(t, next)

	_, err := cache.HbarToUSD(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, mr.Exists("greeno:rate:hbar_usd"))
}

func TestCachedOracle_RedisDownFallsThrough(t *testing.T) {
	next := &countingOracle{hbar: decimal.RequireFromString("0.07")}
	cache, mr := newCache(t, next)
	mr.Close()

	rate, err := cache.HbarToUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.07", rate.String())
}

func TestCachedOracle_Refresh(t *testing.T) {
	next := &countingOracle{hbar: decimal.RequireFromString("0.06"), fiat: decimal.RequireFromString("3.2")}
	cache, mr := newCache(t, next)

	require.NoError(t, cache.Refresh(context.Background(), "TND"))

	hbar, _ := mr.Get("greeno:rate:hbar_usd")
	fiat, _ := mr.Get("greeno:rate:usd_tnd")
	assert.Equal(t, "0.06", hbar)
	assert.Equal(t, "3.2", fiat)
}

func TestNewRefresher_InvalidSchedule(t *testing.T) {
	cache, _ := newCache(t, &countingOracle{})
	_, err := NewRefresher(cache, "TND", "every now and then", logging.NewWithWriter("t", io.Discard))
	assert.Error(t, err)
}

func TestRefresher_RunWarmsCache(t *testing.T) {
	next := &countingOracle{hbar: decimal.RequireFromString("0.06"), fiat: decimal.RequireFromString("3.2")}
	cache, mr := newCache(t, next)
	r, err := NewRefresher(cache, "TND", "@every 1h", logging.NewWithWriter("t", io.Discard))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return mr.Exists("greeno:rate:usd_tnd") }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
