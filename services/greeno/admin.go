package greeno

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// ErrTokenRequired is returned by token operations given no token id.
var ErrTokenRequired = errors.New("token id is required")

// TokenAdmin runs treasury operations and account probes with the operator
// account.
type TokenAdmin struct {
	client chain.Client
	token  chain.TokenID
	spec   chain.TokenSpec
	logger *logging.Logger
}

// NewTokenAdmin creates a TokenAdmin. token is the default for mints and
// balance queries; spec parameterizes CreateToken.
func NewTokenAdmin(client chain.Client, token chain.TokenID, spec chain.TokenSpec, logger *logging.Logger) *TokenAdmin {
	return &TokenAdmin{client: client, token: token, spec: spec, logger: logger}
}

// Token returns the default token id.
func (a *TokenAdmin) Token() chain.TokenID {
	return a.token
}

// CreateToken creates a token from the configured parameters.
func (a *TokenAdmin) CreateToken(ctx context.Context) (chain.TokenID, error) {
	receipt, err := a.client.CreateToken(ctx, a.spec)
	if err != nil {
		return "", err
	}
	if !receipt.Succeeded() {
		return "", &chain.StatusError{Op: "create token", Status: receipt.Status, TransactionID: receipt.TransactionID}
	}
	a.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"token_id": receipt.TokenID,
		"symbol":   a.spec.Symbol,
	}).Info("Token created")
	return receipt.TokenID, nil
}

// TokenSupply returns the total supply of token.
func (a *TokenAdmin) TokenSupply(ctx context.Context, token chain.TokenID) (uint64, error) {
	if token == "" {
		return 0, ErrTokenRequired
	}
	return a.client.TokenSupply(ctx, token)
}

// Mint mints amount of the default token into the treasury and forwards it
// to user. The returned status is the mint receipt's; a forward that does
// not succeed is reported as a *chain.StatusError next to it.
func (a *TokenAdmin) Mint(ctx context.Context, amount uint64, user chain.AccountID) (string, error) {
	if amount == 0 {
		return "", fmt.Errorf("%w: mint amount must be positive", ErrAmountBelowUnit)
	}
	if amount > math.MaxInt64 {
		return "", fmt.Errorf("%w: %d units", ErrAmountTooLarge, amount)
	}
	if user == "" {
		return "", fmt.Errorf("%w: user account", ErrMissingInput)
	}
	receipt, err := a.client.MintToken(ctx, a.token, amount)
	if err != nil {
		return "", err
	}
	if !receipt.Succeeded() {
		return receipt.Status, nil
	}

	treasury := a.client.Operator()
	transfer, err := a.client.TransferTokens(ctx, chain.TokenTransfer{
		Token: a.token,
		Legs: []chain.TransferLeg{
			{Account: treasury, Amount: -int64(amount)},
			{Account: user, Amount: int64(amount)},
		},
	})
	if err != nil {
		return receipt.Status, err
	}
	entry := a.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"token_id":       a.token,
		"amount":         amount,
		"user":           user,
		"status":         receipt.Status,
		"forward_status": transfer.Status,
	})
	if !transfer.Succeeded() {
		entry.Warn("Tokens minted but not forwarded")
		return receipt.Status, &chain.StatusError{Op: "forward minted tokens", Status: transfer.Status, TransactionID: transfer.TransactionID}
	}
	entry.Info("Tokens minted")
	return receipt.Status, nil
}

// Burn removes amount of token from the treasury.
func (a *TokenAdmin) Burn(ctx context.Context, token chain.TokenID, amount uint64) (string, error) {
	if token == "" {
		return "", ErrTokenRequired
	}
	receipt, err := a.client.BurnToken(ctx, token, amount)
	if err != nil {
		return "", err
	}
	return receipt.Status, nil
}

// Delete marks token deleted.
func (a *TokenAdmin) Delete(ctx context.Context, token chain.TokenID) error {
	if token == "" {
		return ErrTokenRequired
	}
	receipt, err := a.client.DeleteToken(ctx, token)
	if err != nil {
		return err
	}
	if !receipt.Succeeded() {
		return &chain.StatusError{Op: "delete token", Status: receipt.Status, TransactionID: receipt.TransactionID}
	}
	a.logger.WithContext(ctx).WithField("token_id", token).Info("Token deleted")
	return nil
}

// ConnectProfile proves that key controls account. The returned status is
// SUCCESS on a match.
func (a *TokenAdmin) ConnectProfile(ctx context.Context, account chain.AccountID, key chain.PrivateKey) (string, error) {
	receipt, err := a.client.VerifyAccount(ctx, account, key)
	if err != nil {
		return "", err
	}
	if !receipt.Succeeded() {
		return receipt.Status, &chain.StatusError{Op: "verify", Status: receipt.Status, TransactionID: receipt.TransactionID}
	}
	return receipt.Status, nil
}

// TokenBalance returns the default token balance of account.
func (a *TokenAdmin) TokenBalance(ctx context.Context, account chain.AccountID) (uint64, error) {
	balance, err := a.client.AccountBalance(ctx, account)
	if err != nil {
		return 0, err
	}
	return balance.Tokens[a.token], nil
}
