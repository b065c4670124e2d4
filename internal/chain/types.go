// Package chain provides Hedera ledger interaction for the Greeno service.
package chain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// Identifiers
// =============================================================================

// AccountID is a ledger account in shard.realm.num form.
type AccountID string

// TokenID is a ledger token in shard.realm.num form.
type TokenID string

// ContractID is a deployed contract in shard.realm.num form.
type ContractID string

var entityIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// IsValidEntityID reports whether s is three dot separated non-negative integers.
func IsValidEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}

// ParseAccountID validates s as an account id.
func ParseAccountID(s string) (AccountID, error) {
	if !IsValidEntityID(s) {
		return "", fmt.Errorf("invalid account id %q", s)
	}
	return AccountID(s), nil
}

func (a AccountID) String() string  { return string(a) }
func (t TokenID) String() string    { return string(t) }
func (c ContractID) String() string { return string(c) }

// =============================================================================
// Requests and results
// =============================================================================

// Status strings reported by the ledger.
const (
	StatusSuccess                  = "SUCCESS"
	StatusTokenAlreadyAssociated   = "TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT"
	StatusInsufficientTokenBalance = "INSUFFICIENT_TOKEN_BALANCE"
	StatusInvalidSignature         = "INVALID_SIGNATURE"
)

// TransferLeg is one signed account adjustment in a token transfer.
type TransferLeg struct {
	Account AccountID
	Amount  int64
}

// TokenTransfer moves one token between accounts in a single transaction.
// Legs must sum to zero. Signers are added on top of the operator signature.
type TokenTransfer struct {
	Token   TokenID
	Legs    []TransferLeg
	Signers []PrivateKey
}

// Sum returns the net adjustment across all legs.
func (t TokenTransfer) Sum() int64 {
	var total int64
	for _, leg := range t.Legs {
		total += leg.Amount
	}
	return total
}

// Receipt is the consensus outcome of a submitted transaction.
type Receipt struct {
	Status        string
	TransactionID string
	TokenID       TokenID
	ContractID    ContractID
}

// Succeeded reports whether the receipt carries SUCCESS.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// Balance is an account's native and token holdings.
type Balance struct {
	Tinybars int64
	Tokens   map[TokenID]uint64
}

// TinybarsPerHbar converts the native unit.
const TinybarsPerHbar = 100_000_000

// TokenSpec parameterizes a fungible token creation. The operator is
// treasury and holds the admin and supply keys.
type TokenSpec struct {
	Name          string
	Symbol        string
	Decimals      uint
	InitialSupply uint64
}

// ContractCall invokes a contract function.
type ContractCall struct {
	Contract ContractID
	Function string
	Gas      uint64
	Params   *ContractParams
}

// ContractDeploy creates a contract from hex encoded bytecode.
type ContractDeploy struct {
	Bytecode    string
	Gas         int64
	Constructor *ContractParams
}

// =============================================================================
// Errors
// =============================================================================

// StatusError is returned when the ledger rejects a transaction, either at
// precheck or in its receipt.
type StatusError struct {
	Op            string
	Status        string
	TransactionID string
	Err           error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: ledger status %s", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsStatus reports whether err carries the given ledger status. Errors that
// do not come through StatusError are matched on their message.
func IsStatus(err error, status string) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == status
	}
	return strings.Contains(err.Error(), status)
}

// StatusOf returns the ledger status carried by err, if any.
func StatusOf(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return ""
}
