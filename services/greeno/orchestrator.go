package greeno

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/logging"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
)

// Gas limits for contract calls.
const (
	DefaultRecordGas = 3_000_000
	DefaultQueryGas  = 100_000
)

// Contract function names of the purchase ledger.
const (
	fnRecordPurchase      = "recordPurchase"
	fnGetTransactionCount = "getTransactionCount"
	fnGetTransaction      = "getTransaction"
)

// Config is fixed at construction. An empty ContractID disables every
// contract operation with ErrContractNotDeployed.
type Config struct {
	TokenID    chain.TokenID
	ContractID chain.ContractID
	RecordGas  uint64
	QueryGas   uint64
}

// Orchestrator sequences token transfers and their contract records.
//
// A transfer that reaches consensus is final. Recording the purchase in the
// contract happens afterwards and may fail on its own; such a failure is
// reported as ContractStatusNotRecorded and never undoes the transfer.
type Orchestrator struct {
	client  chain.Client
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(client chain.Client, cfg Config, logger *logging.Logger, m *metrics.Metrics) *Orchestrator {
	if cfg.RecordGas == 0 {
		cfg.RecordGas = DefaultRecordGas
	}
	if cfg.QueryGas == 0 {
		cfg.QueryGas = DefaultQueryGas
	}
	return &Orchestrator{client: client, cfg: cfg, logger: logger, metrics: m}
}

// Config returns the construction settings.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// =============================================================================
// Transfers
// =============================================================================

// TransferTokensToSellers debits the sum of amounts from buyer and credits
// each seller in one atomic ledger transaction signed by the buyer key.
// Ledger errors are returned as is.
func (o *Orchestrator) TransferTokensToSellers(ctx context.Context, buyer chain.AccountID, key chain.PrivateKey, sellers []chain.AccountID, amounts []int64) (*TransferResult, error) {
	if buyer == "" || len(sellers) == 0 || len(amounts) == 0 {
		return nil, ErrMissingInput
	}
	if key.IsZero() {
		return nil, ErrMissingSigner
	}
	if len(sellers) != len(amounts) {
		return nil, fmt.Errorf("%w: %d sellers but %d amounts", ErrLengthMismatch, len(sellers), len(amounts))
	}

	legs := make([]chain.TransferLeg, 0, len(sellers)+1)
	legs = append(legs, chain.TransferLeg{Account: buyer})
	var total int64
	for i, seller := range sellers {
		if amounts[i] < 0 {
			return nil, fmt.Errorf("%w: leg %d has %d units", ErrAmountBelowUnit, i, amounts[i])
		}
		if total > math.MaxInt64-amounts[i] {
			return nil, fmt.Errorf("transfer total overflows")
		}
		total += amounts[i]
		legs = append(legs, chain.TransferLeg{Account: seller, Amount: amounts[i]})
	}
	legs[0].Amount = -total

	receipt, err := o.client.TransferTokens(ctx, chain.TokenTransfer{
		Token:   o.cfg.TokenID,
		Legs:    legs,
		Signers: []chain.PrivateKey{key},
	})
	if err != nil {
		o.metrics.RecordTransfer(statusLabel(err))
		return nil, err
	}
	o.metrics.RecordTransfer(receipt.Status)

	o.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"buyer":          buyer,
		"sellers":        len(sellers),
		"total_units":    total,
		"status":         receipt.Status,
		"transaction_id": receipt.TransactionID,
	}).Info("Token transfer submitted")

	return &TransferResult{
		Status:        receipt.Status,
		TransactionID: receipt.TransactionID,
		Receipt:       receipt,
	}, nil
}

// PurchaseTokens converts amounts to ledger units, transfers them from buyer
// to sellers and records the purchase in the contract. A sub-unit amount
// floors to a zero leg and is submitted as is; the ledger decides.
func (o *Orchestrator) PurchaseTokens(ctx context.Context, buyer chain.AccountID, sellers []chain.AccountID, amounts []decimal.Decimal, key chain.PrivateKey) (*PurchaseResult, error) {
	if o.cfg.ContractID == "" {
		return nil, ErrContractNotDeployed
	}

	units := make([]int64, len(amounts))
	for i, amount := range amounts {
		u, err := ToFixedPoint(amount)
		if err != nil {
			return nil, err
		}
		units[i] = u
	}

	transfer, err := o.TransferTokensToSellers(ctx, buyer, key, sellers, units)
	if err != nil {
		return nil, err
	}
	if transfer.Status != chain.StatusSuccess {
		return nil, &TransferStatusError{Status: transfer.Status, TransactionID: transfer.TransactionID}
	}

	result := &PurchaseResult{
		Transfer:     transfer,
		ContractID:   o.cfg.ContractID,
		FixedAmounts: units,
	}

	// The transfer is final from here on.
	receipt, err := o.recordPurchase(ctx, buyer, sellers, units)
	if err == nil && !receipt.Succeeded() {
		err = fmt.Errorf("contract recording failed with status: %s", receipt.Status)
	}
	if err != nil {
		o.metrics.RecordContractRecord(false)
		o.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"buyer":          buyer,
			"transaction_id": transfer.TransactionID,
			"contract_id":    o.cfg.ContractID,
		}).Warn("Purchase not recorded; tokens were transferred")
		result.ContractStatus = ContractStatusNotRecorded
		result.Warning = NotRecordedWarning
		result.RecordError = err
		return result, nil
	}

	o.metrics.RecordContractRecord(true)
	result.ContractStatus = receipt.Status
	return result, nil
}

func (o *Orchestrator) recordPurchase(ctx context.Context, buyer chain.AccountID, sellers []chain.AccountID, units []int64) (*chain.Receipt, error) {
	buyerAddr, err := chain.SolidityAddress(buyer)
	if err != nil {
		return nil, err
	}
	sellerAddrs := make([]string, len(sellers))
	for i, seller := range sellers {
		if sellerAddrs[i], err = chain.SolidityAddress(seller); err != nil {
			return nil, err
		}
	}

	params := chain.NewContractParams().
		AddAddress(buyerAddr).
		AddAddressArray(sellerAddrs).
		AddUint256Array(units)
	if err := params.Err(); err != nil {
		return nil, err
	}

	return o.client.ExecuteContract(ctx, chain.ContractCall{
		Contract: o.cfg.ContractID,
		Function: fnRecordPurchase,
		Gas:      o.cfg.RecordGas,
		Params:   params,
	})
}

// AssociateTokenWithAccount lets account hold the token. An account that is
// already associated yields Status ALREADY_ASSOCIATED and no error.
func (o *Orchestrator) AssociateTokenWithAccount(ctx context.Context, account chain.AccountID, key chain.PrivateKey) (*AssociationResult, error) {
	if key.IsZero() {
		return nil, ErrMissingSigner
	}

	receipt, err := o.client.AssociateToken(ctx, account, o.cfg.TokenID, key)
	if chain.IsStatus(err, chain.StatusTokenAlreadyAssociated) ||
		(err == nil && receipt.Status == chain.StatusTokenAlreadyAssociated) {
		o.logger.WithContext(ctx).WithField("account", account).Debug("Token already associated")
		return &AssociationResult{Status: AssociationAlreadyDone}, nil
	}
	if err != nil {
		return nil, err
	}
	return &AssociationResult{Status: receipt.Status, TransactionID: receipt.TransactionID}, nil
}

// =============================================================================
// Contract reads
// =============================================================================

// TransactionHistory reads every recorded purchase from the contract.
func (o *Orchestrator) TransactionHistory(ctx context.Context) ([]ContractTransaction, error) {
	if o.cfg.ContractID == "" {
		return nil, ErrContractNotDeployed
	}

	countResult, err := o.query(ctx, fnGetTransactionCount, chain.NewContractParams())
	if err != nil {
		return nil, err
	}
	count, err := countResult.Uint64(0)
	if err != nil {
		return nil, fmt.Errorf("decode transaction count: %w", err)
	}

	txs := make([]ContractTransaction, 0, count)
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := o.query(ctx, fnGetTransaction, chain.NewContractParams().AddUint256(i))
		if err != nil {
			return nil, err
		}
		tx, err := decodeContractTransaction(result)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ContractInfo returns the contract and token in use.
func (o *Orchestrator) ContractInfo() (ContractInfo, error) {
	if o.cfg.ContractID == "" {
		return ContractInfo{}, ErrContractNotDeployed
	}
	return ContractInfo{ContractID: o.cfg.ContractID, TokenID: o.cfg.TokenID}, nil
}

func (o *Orchestrator) query(ctx context.Context, function string, params *chain.ContractParams) (*chain.ContractResult, error) {
	return o.client.CallContract(ctx, chain.ContractCall{
		Contract: o.cfg.ContractID,
		Function: function,
		Gas:      o.cfg.QueryGas,
		Params:   params,
	})
}

func decodeContractTransaction(result *chain.ContractResult) (ContractTransaction, error) {
	addr, err := result.Address(0)
	if err != nil {
		return ContractTransaction{}, err
	}
	buyer, err := chain.AccountIDFromSolidityAddress(addr)
	if err != nil {
		return ContractTransaction{}, err
	}
	timestamp, err := result.Uint64(1)
	if err != nil {
		return ContractTransaction{}, err
	}
	total, err := result.Uint64(2)
	if err != nil {
		return ContractTransaction{}, err
	}
	return ContractTransaction{Buyer: buyer, Timestamp: timestamp, TotalAmount: total}, nil
}

func statusLabel(err error) string {
	if status := chain.StatusOf(err); status != "" {
		return status
	}
	return "ERROR"
}
