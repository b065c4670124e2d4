// Package greeno implements the Greeno token exchange: transfer validation,
// purchase orchestration with on-chain recording, transaction history and
// account valuation.
package greeno

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/chain"
)

// =============================================================================
// Records
// =============================================================================

// TransactionRecord is one mirrored transfer leg. Records are append-only.
type TransactionRecord struct {
	ID         string
	TokenID    chain.TokenID
	SenderID   chain.AccountID
	ReceiverID chain.AccountID
	Amount     decimal.NullDecimal
	Power      decimal.Decimal
	Price      decimal.Decimal
	Type       string
	Date       time.Time
}

// ContractTransaction is a purchase read back from the contract.
type ContractTransaction struct {
	Buyer       chain.AccountID `json:"buyer"`
	Timestamp   uint64          `json:"timestamp"`
	TotalAmount uint64          `json:"totalAmount"`
}

// Entry types and sources of the merged history feed.
const (
	EntryBuy  = "buy"
	EntrySell = "sell"

	SourceDatabase = "database"
	SourceContract = "contract"
)

// HistoryEntry is one item of a user's merged feed.
type HistoryEntry struct {
	Date   time.Time        `json:"date"`
	Amount *decimal.Decimal `json:"amount"`
	Power  decimal.Decimal  `json:"power"`
	Price  decimal.Decimal  `json:"price"`
	Type   string           `json:"type"`
	Source string           `json:"source"`
}

// =============================================================================
// Transfer request
// =============================================================================

// TransferRequest is the body of a transfer. Receivers and amounts accept
// either a single value or an array.
type TransferRequest struct {
	SenderID         string     `json:"senderId"`
	ReceiverIDs      StringList `json:"receiverIds"`
	Amounts          AmountList `json:"amounts"`
	SenderPrivateKey string     `json:"senderPrivateKey"`
}

// StringList decodes a JSON string or array. Non-string elements keep their
// JSON text so validation can cite them.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	values, err := decodeOneOrMany(data)
	if err != nil {
		return err
	}
	*l = values
	return nil
}

// AmountList decodes a JSON number, numeric string or array of either.
// Elements keep their literal text; parsing happens during validation.
type AmountList []string

func (l *AmountList) UnmarshalJSON(data []byte) error {
	values, err := decodeOneOrMany(data)
	if err != nil {
		return err
	}
	*l = values
	return nil
}

func decodeOneOrMany(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raw []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	} else {
		raw = []json.RawMessage{data}
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		out = append(out, literal(item))
	}
	if len(out) == 1 && out[0] == "" {
		return nil, nil
	}
	return out, nil
}

func literal(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(item))
}

// ValidatedTransfer is a transfer request that passed every check.
type ValidatedTransfer struct {
	Sender    chain.AccountID
	Receivers []chain.AccountID
	Amounts   []decimal.Decimal
	Key       chain.PrivateKey
}

// =============================================================================
// Results
// =============================================================================

// Contract recording status when the transfer landed but recording failed.
const (
	ContractStatusNotRecorded = "NOT_RECORDED"
	NotRecordedWarning        = "Tokens were transferred but contract recording failed"

	AssociationAlreadyDone = "ALREADY_ASSOCIATED"
)

// TransferResult is the outcome of one multi-party token transfer.
type TransferResult struct {
	Status        string
	TransactionID string
	Receipt       *chain.Receipt
}

// PurchaseResult is the outcome of a transfer plus its contract record.
// ContractStatus is NOT_RECORDED, with Warning set, when recording failed
// after a successful transfer.
type PurchaseResult struct {
	Transfer       *TransferResult
	ContractID     chain.ContractID
	ContractStatus string
	Warning        string
	RecordError    error
	FixedAmounts   []int64
}

// Recorded reports whether the purchase reached the contract.
func (r *PurchaseResult) Recorded() bool {
	return r.ContractStatus != ContractStatusNotRecorded
}

// AssociationResult is the outcome of a token association.
type AssociationResult struct {
	Status        string
	TransactionID string
}

// ContractInfo identifies the contract and token in use.
type ContractInfo struct {
	ContractID chain.ContractID `json:"contractId"`
	TokenID    chain.TokenID    `json:"tokenId"`
}

// Valuation is an account's HBAR balance priced in USD and a fiat currency.
type Valuation struct {
	BalanceHBAR decimal.Decimal
	BalanceUSD  decimal.Decimal
	BalanceFiat decimal.Decimal
	HbarToUSD   decimal.Decimal
	USDToFiat   decimal.Decimal
	Currency    string
}

func (v Valuation) String() string {
	return fmt.Sprintf("%s HBAR = %s USD = %s %s", v.BalanceHBAR, v.BalanceUSD.StringFixed(2), v.BalanceFiat.StringFixed(2), v.Currency)
}
