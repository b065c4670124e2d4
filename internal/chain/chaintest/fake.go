// Package chaintest provides an in-memory chain.Client for tests.
package chaintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/greeno_layer/internal/chain"
)

// Fake records every call and answers from its hooks. A nil hook returns a
// SUCCESS receipt.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int
	txSeq int

	OperatorID chain.AccountID

	TransferFn   func(chain.TokenTransfer) (*chain.Receipt, error)
	AssociateFn  func(chain.AccountID, chain.TokenID) (*chain.Receipt, error)
	VerifyFn     func(chain.AccountID, chain.PrivateKey) (*chain.Receipt, error)
	ExecuteFn    func(chain.ContractCall) (*chain.Receipt, error)
	CallFn       func(chain.ContractCall) (*chain.ContractResult, error)
	DeployFn     func(chain.ContractDeploy) (*chain.Receipt, error)
	SupplyFn     func(chain.TokenID) (uint64, error)
	BalanceFn    func(chain.AccountID) (*chain.Balance, error)
	TokenAdminFn func(op string, token chain.TokenID, amount uint64) (*chain.Receipt, error)

	Transfers  []chain.TokenTransfer
	Executions []chain.ContractCall
	Deploys    []chain.ContractDeploy
	Associated map[chain.AccountID]bool
}

// New returns a Fake whose operator is 0.0.2.
func New() *Fake {
	return &Fake{
		calls:      make(map[string]int),
		OperatorID: "0.0.2",
		Associated: make(map[chain.AccountID]bool),
	}
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of ledger calls of any kind.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *Fake) success() *chain.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txSeq++
	return &chain.Receipt{
		Status:        chain.StatusSuccess,
		TransactionID: fmt.Sprintf("%s@1700000000.%09d", f.OperatorID, f.txSeq),
	}
}

func (f *Fake) Operator() chain.AccountID { return f.OperatorID }

func (f *Fake) TransferTokens(_ context.Context, transfer chain.TokenTransfer) (*chain.Receipt, error) {
	f.record("TransferTokens")
	f.mu.Lock()
	f.Transfers = append(f.Transfers, transfer)
	f.mu.Unlock()
	if f.TransferFn != nil {
		return f.TransferFn(transfer)
	}
	return f.success(), nil
}

// AssociateToken reports TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT on repeat calls
// unless AssociateFn is set.
func (f *Fake) AssociateToken(_ context.Context, account chain.AccountID, token chain.TokenID, _ chain.PrivateKey) (*chain.Receipt, error) {
	f.record("AssociateToken")
	if f.AssociateFn != nil {
		return f.AssociateFn(account, token)
	}
	f.mu.Lock()
	already := f.Associated[account]
	f.Associated[account] = true
	f.mu.Unlock()
	if already {
		return nil, &chain.StatusError{Op: "associate", Status: chain.StatusTokenAlreadyAssociated}
	}
	return f.success(), nil
}

func (f *Fake) VerifyAccount(_ context.Context, account chain.AccountID, key chain.PrivateKey) (*chain.Receipt, error) {
	f.record("VerifyAccount")
	if f.VerifyFn != nil {
		return f.VerifyFn(account, key)
	}
	return f.success(), nil
}

func (f *Fake) CreateToken(_ context.Context, spec chain.TokenSpec) (*chain.Receipt, error) {
	f.record("CreateToken")
	if f.TokenAdminFn != nil {
		return f.TokenAdminFn("create", "", spec.InitialSupply)
	}
	r := f.success()
	r.TokenID = "0.0.9001"
	return r, nil
}

func (f *Fake) MintToken(_ context.Context, token chain.TokenID, amount uint64) (*chain.Receipt, error) {
	f.record("MintToken")
	if f.TokenAdminFn != nil {
		return f.TokenAdminFn("mint", token, amount)
	}
	return f.success(), nil
}

func (f *Fake) BurnToken(_ context.Context, token chain.TokenID, amount uint64) (*chain.Receipt, error) {
	f.record("BurnToken")
	if f.TokenAdminFn != nil {
		return f.TokenAdminFn("burn", token, amount)
	}
	return f.success(), nil
}

func (f *Fake) DeleteToken(_ context.Context, token chain.TokenID) (*chain.Receipt, error) {
	f.record("DeleteToken")
	if f.TokenAdminFn != nil {
		return f.TokenAdminFn("delete", token, 0)
	}
	return f.success(), nil
}

func (f *Fake) TokenSupply(_ context.Context, token chain.TokenID) (uint64, error) {
	f.record("TokenSupply")
	if f.SupplyFn != nil {
		return f.SupplyFn(token)
	}
	return 0, nil
}

func (f *Fake) AccountBalance(_ context.Context, account chain.AccountID) (*chain.Balance, error) {
	f.record("AccountBalance")
	if f.BalanceFn != nil {
		return f.BalanceFn(account)
	}
	return &chain.Balance{Tokens: map[chain.TokenID]uint64{}}, nil
}

func (f *Fake) ExecuteContract(_ context.Context, call chain.ContractCall) (*chain.Receipt, error) {
	f.record("ExecuteContract")
	f.mu.Lock()
	f.Executions = append(f.Executions, call)
	f.mu.Unlock()
	if f.ExecuteFn != nil {
		return f.ExecuteFn(call)
	}
	return f.success(), nil
}

func (f *Fake) CallContract(_ context.Context, call chain.ContractCall) (*chain.ContractResult, error) {
	f.record("CallContract")
	if f.CallFn != nil {
		return f.CallFn(call)
	}
	return &chain.ContractResult{Raw: chain.Uint256Word(0)}, nil
}

func (f *Fake) DeployContract(_ context.Context, deploy chain.ContractDeploy) (*chain.Receipt, error) {
	f.record("DeployContract")
	f.mu.Lock()
	f.Deploys = append(f.Deploys, deploy)
	f.mu.Unlock()
	if f.DeployFn != nil {
		return f.DeployFn(deploy)
	}
	r := f.success()
	r.ContractID = "0.0.7001"
	return r, nil
}

var _ chain.Client = (*Fake)(nil)
