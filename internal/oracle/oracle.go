// Package oracle supplies HBAR and fiat exchange rates.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/greeno_layer/internal/httputil"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
)

var (
	// ErrUnavailable means the rate source could not be reached or refused.
	ErrUnavailable = errors.New("exchange rate source unavailable")
	// ErrMalformedResponse means the source answered without a usable rate.
	ErrMalformedResponse = errors.New("exchange rate response malformed")
)

// PriceOracle returns exchange rates.
type PriceOracle interface {
	HbarToUSD(ctx context.Context) (decimal.Decimal, error)
	USDToFiat(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Source names used in errors and metrics.
const (
	SourceHbar = "hbar_usd"
	SourceFiat = "usd_fiat"
)

// HTTPOracle reads rates from CoinGecko style and exchangerate-api style
// JSON endpoints.
type HTTPOracle struct {
	client  *httputil.Client
	hbarURL string
	fiatURL string
	metrics *metrics.Metrics
}

// HTTPConfig configures HTTPOracle.
type HTTPConfig struct {
	HbarURL string
	FiatURL string
	Client  *httputil.Client
	Metrics *metrics.Metrics
}

// NewHTTPOracle creates an HTTPOracle.
func NewHTTPOracle(cfg HTTPConfig) *HTTPOracle {
	client := cfg.Client
	if client == nil {
		client = httputil.NewClient(httputil.ClientConfig{})
	}
	return &HTTPOracle{
		client:  client,
		hbarURL: cfg.HbarURL,
		fiatURL: cfg.FiatURL,
		metrics: cfg.Metrics,
	}
}

// HbarToUSD reads hedera-hashgraph.usd.
func (o *HTTPOracle) HbarToUSD(ctx context.Context) (decimal.Decimal, error) {
	return o.fetch(ctx, SourceHbar, o.hbarURL, "hedera-hashgraph.usd")
}

// USDToFiat reads rates.<currency>.
func (o *HTTPOracle) USDToFiat(ctx context.Context, currency string) (decimal.Decimal, error) {
	return o.fetch(ctx, SourceFiat, o.fiatURL, "rates."+gjson.Escape(strings.ToUpper(currency)))
}

func (o *HTTPOracle) fetch(ctx context.Context, source, url, path string) (decimal.Decimal, error) {
	body, err := o.client.GetRaw(ctx, url)
	if err != nil {
		o.metrics.RecordRateFetch(source, false)
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, source, err)
	}

	rate, err := parseRate(body, path)
	if err != nil {
		o.metrics.RecordRateFetch(source, false)
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, source, err)
	}
	o.metrics.RecordRateFetch(source, true)
	return rate, nil
}

func parseRate(body []byte, path string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, errors.New("invalid JSON")
	}
	value := gjson.GetBytes(body, path)
	if !value.Exists() {
		return decimal.Zero, fmt.Errorf("missing %s", path)
	}
	if value.Type != gjson.Number {
		return decimal.Zero, fmt.Errorf("%s is not a number", path)
	}
	rate, err := decimal.NewFromString(value.Raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s is not positive", path)
	}
	return rate, nil
}
