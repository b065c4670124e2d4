package greeno

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/chain/chaintest"
	"github.com/R3E-Network/greeno_layer/internal/oracle"
)

type stubOracle struct {
	hbar, fiat       decimal.Decimal
	hbarErr, fiatErr error
	currencies       []string
}

func (s *stubOracle) HbarToUSD(context.Context) (decimal.Decimal, error) {
	return s.hbar, s.hbarErr
}

func (s *stubOracle) USDToFiat(_ context.Context, currency string) (decimal.Decimal, error) {
	s.currencies = append(s.currencies, currency)
	return s.fiat, s.fiatErr
}

func balanceFake(tinybars int64) *chaintest.Fake {
	fake := chaintest.New()
	fake.BalanceFn = func(chain.AccountID) (*chain.Balance, error) {
		return &chain.Balance{Tinybars: tinybars}, nil
	}
	return fake
}

func TestValuator_Valuate(t *testing.T) {
	rates := &stubOracle{
		hbar: decimal.RequireFromString("0.0712"),
		fiat: decimal.RequireFromString("3.1"),
	}
	v := NewValuator(balanceFake(250_000_000), rates, "")

	got, err := v.Valuate(context.Background(), "0.0.100")
	require.NoError(t, err)

	assert.Equal(t, "2.5", got.BalanceHBAR.String())
	assert.Equal(t, "0.18", got.BalanceUSD.StringFixed(2))
	assert.Equal(t, "0.55", got.BalanceFiat.StringFixed(2))
	assert.True(t, got.HbarToUSD.Equal(rates.hbar))
	assert.True(t, got.USDToFiat.Equal(rates.fiat))
	assert.Equal(t, DefaultFiatCurrency, got.Currency)
	assert.Equal(t, []string{"TND"}, rates.currencies)
}

func TestValuator_RateFailures(t *testing.T) {
	t.Run("hbar", func(t *testing.T) {
		v := NewValuator(balanceFake(1), &stubOracle{hbarErr: oracle.ErrUnavailable}, "TND")
		_, err := v.Valuate(context.Background(), "0.0.100")
		var re *RateError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "Could not retrieve HBAR to USD exchange rate.", re.Message)
		assert.ErrorIs(t, err, oracle.ErrUnavailable)
	})

	t.Run("fiat", func(t *testing.T) {
		v := NewValuator(balanceFake(1), &stubOracle{hbar: decimal.NewFromInt(1), fiatErr: oracle.ErrMalformedResponse}, "tnd")
		_, err := v.Valuate(context.Background(), "0.0.100")
		var re *RateError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "Could not retrieve USD to TND exchange rate.", re.Message)
		assert.ErrorIs(t, err, oracle.ErrMalformedResponse)
	})
}

func TestValuator_InvalidAccount(t *testing.T) {
	fake := balanceFake(1)
	_, err := NewValuator(fake, &stubOracle{}, "").Valuate(context.Background(), "alice")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Zero(t, fake.TotalCalls())
}
