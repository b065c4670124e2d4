package greeno

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/oracle"
)

// DefaultFiatCurrency is the second leg of a valuation.
const DefaultFiatCurrency = "TND"

var tinybarsPerHbar = decimal.NewFromInt(chain.TinybarsPerHbar)

// BalanceReader returns account balances. chain.Client satisfies it.
type BalanceReader interface {
	AccountBalance(ctx context.Context, account chain.AccountID) (*chain.Balance, error)
}

// Valuator prices an account's HBAR balance.
type Valuator struct {
	ledger   BalanceReader
	rates    oracle.PriceOracle
	currency string
}

// NewValuator creates a Valuator quoting in currency (TND when empty).
func NewValuator(ledger BalanceReader, rates oracle.PriceOracle, currency string) *Valuator {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultFiatCurrency
	}
	return &Valuator{ledger: ledger, rates: rates, currency: currency}
}

// Currency returns the fiat currency code.
func (v *Valuator) Currency() string {
	return v.currency
}

// Valuate converts the HBAR balance of accountID to USD and the fiat
// currency. Rate failures are returned as *RateError.
func (v *Valuator) Valuate(ctx context.Context, accountID string) (*Valuation, error) {
	account, err := ValidateAccountID(accountID)
	if err != nil {
		return nil, err
	}

	balance, err := v.ledger.AccountBalance(ctx, account)
	if err != nil {
		return nil, err
	}

	hbarToUSD, err := v.rates.HbarToUSD(ctx)
	if err != nil {
		return nil, &RateError{Message: "Could not retrieve HBAR to USD exchange rate.", Err: err}
	}
	usdToFiat, err := v.rates.USDToFiat(ctx, v.currency)
	if err != nil {
		return nil, &RateError{Message: fmt.Sprintf("Could not retrieve USD to %s exchange rate.", v.currency), Err: err}
	}

	hbar := decimal.NewFromInt(balance.Tinybars).Div(tinybarsPerHbar)
	usd := hbar.Mul(hbarToUSD)
	return &Valuation{
		BalanceHBAR: hbar,
		BalanceUSD:  usd.Round(2),
		BalanceFiat: usd.Mul(usdToFiat).Round(2),
		HbarToUSD:   hbarToUSD,
		USDToFiat:   usdToFiat,
		Currency:    v.currency,
	}, nil
}
