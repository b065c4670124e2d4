package greeno

import (
	"errors"
	"fmt"
)

var (
	// ErrContractNotDeployed is returned by contract operations when no
	// contract id was configured.
	ErrContractNotDeployed = errors.New("contract not deployed")
	// ErrNoTransactions is returned when a user has no history at all.
	ErrNoTransactions = errors.New("no transactions found")
	// ErrMissingInput is returned when a required orchestrator argument is empty.
	ErrMissingInput = errors.New("missing required input")
	// ErrMissingSigner is returned when no buyer key was supplied.
	ErrMissingSigner = errors.New("buyer signing key is required")
	// ErrLengthMismatch is returned when sellers and amounts differ in length.
	ErrLengthMismatch = errors.New("sellers and amounts length mismatch")
	// ErrAmountBelowUnit is returned for negative ledger legs and zero mints.
	ErrAmountBelowUnit = errors.New("amount is below the smallest token unit")
	// ErrAmountTooLarge is returned when an amount does not fit a signed ledger leg.
	ErrAmountTooLarge = errors.New("amount exceeds the largest transferable token amount")
)

// ValidationError rejects a request before any ledger call.
type ValidationError struct {
	Message string
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// TransferStatusError reports a transfer that reached consensus with a
// status other than SUCCESS.
type TransferStatusError struct {
	Status        string
	TransactionID string
}

func (e *TransferStatusError) Error() string {
	return fmt.Sprintf("Transfer failed with status: %s", e.Status)
}

// AssociationError wraps a failed token association of the sender.
type AssociationError struct {
	Account string
	Err     error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("associate token with %s: %v", e.Account, e.Err)
}

func (e *AssociationError) Unwrap() error { return e.Err }

// RateError reports an exchange rate that could not be obtained.
type RateError struct {
	Message string
	Err     error
}

func (e *RateError) Error() string {
	return fmt.Sprintf("%s %v", e.Message, e.Err)
}

func (e *RateError) Unwrap() error { return e.Err }
