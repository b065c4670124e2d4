package marble

import (
	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/services/greeno"
)

// =============================================================================
// Admin API
// =============================================================================

type CreateTokenResponse struct {
	TokenID string `json:"tokenId"`
}

type TokenRequest struct {
	TokenID string `json:"tokenId"`
}

type TokenSupplyResponse struct {
	TokenID     string `json:"tokenId"`
	TotalSupply uint64 `json:"totalSupply"`
}

type MintRequest struct {
	Amount        uint64 `json:"amount"`
	UserAccountID string `json:"userAccountId"`
}

type BurnRequest struct {
	TokenID string `json:"tokenId"`
	Amount  uint64 `json:"amount"`
}

// StatusResponse answers mint and burn.
type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// Client API
// =============================================================================

type ConnectProfileRequest struct {
	AccountID  string `json:"accountId"`
	PrivateKey string `json:"privateKey"`
}

type ConnectProfileResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	TransactionStatus string `json:"transactionStatus,omitempty"`
	Error             string `json:"error,omitempty"`
}

type TokenBalanceResponse struct {
	Balance string `json:"balance"`
}

// TransferResponse answers a completed transfer. ContractStatus is
// NOT_RECORDED, with Warning set, when the contract record failed.
type TransferResponse struct {
	Message        string `json:"message"`
	TransferStatus string `json:"transferStatus"`
	TransactionID  string `json:"transactionId"`
	ContractID     string `json:"contractId"`
	ContractStatus string `json:"contractStatus"`
	Warning        string `json:"warning,omitempty"`
}

type ContractTransactionsResponse struct {
	Transactions []greeno.ContractTransaction `json:"transactions"`
}

type HistoryResponse struct {
	Transactions []greeno.HistoryEntry `json:"transactions"`
}

type ExchangeRate struct {
	HbarToUSD decimal.Decimal `json:"hbarToUsd"`
	USDToTND  decimal.Decimal `json:"usdToTnd"`
}

// BalanceResponse answers /balance. USD and fiat amounts carry two decimals.
type BalanceResponse struct {
	BalanceHBAR  string       `json:"balanceHBAR"`
	BalanceUSD   string       `json:"balanceUSD"`
	BalanceTND   string       `json:"balanceTND"`
	Currency     string       `json:"currency"`
	ExchangeRate ExchangeRate `json:"exchangeRate"`
}
