package chaintest

import (
	"fmt"

	"github.com/R3E-Network/greeno_layer/internal/chain"
)

// PurchaseLog is a scripted TransactionHandler contract state for CallFn.
type PurchaseLog struct {
	Entries []LogEntry
}

// LogEntry is one recorded purchase. Buyer is an account id.
type LogEntry struct {
	Buyer       chain.AccountID
	Timestamp   uint64
	TotalAmount uint64
}

// Call answers getTransactionCount and getTransaction(i).
func (p *PurchaseLog) Call(call chain.ContractCall) (*chain.ContractResult, error) {
	switch call.Function {
	case "getTransactionCount":
		return &chain.ContractResult{Raw: chain.Uint256Word(uint64(len(p.Entries)))}, nil
	case "getTransaction":
		args := call.Params.Args()
		if len(args) != 1 || len(args[0].Uints) != 1 {
			return nil, fmt.Errorf("getTransaction expects one index")
		}
		idx := args[0].Uints[0]
		if idx >= uint64(len(p.Entries)) {
			return nil, &chain.StatusError{Op: "getTransaction", Status: "CONTRACT_REVERT_EXECUTED"}
		}
		entry := p.Entries[idx]
		addr, err := chain.SolidityAddress(entry.Buyer)
		if err != nil {
			return nil, err
		}
		buyer, err := chain.AddressWord(addr)
		if err != nil {
			return nil, err
		}
		raw := append(buyer, chain.Uint256Word(entry.Timestamp)...)
		raw = append(raw, chain.Uint256Word(entry.TotalAmount)...)
		return &chain.ContractResult{Raw: raw}, nil
	default:
		return nil, fmt.Errorf("unexpected contract function %s", call.Function)
	}
}
