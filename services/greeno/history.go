package greeno

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// ContractHistory lists purchases recorded on chain. *Orchestrator
// implements it.
type ContractHistory interface {
	TransactionHistory(ctx context.Context) ([]ContractTransaction, error)
}

// HistoryAggregator merges mirrored records and contract purchases into a
// per-user feed.
type HistoryAggregator struct {
	store    RecordStore
	contract ContractHistory
	logger   *logging.Logger
}

// NewHistoryAggregator creates a HistoryAggregator. contract may be nil when
// no contract is deployed.
func NewHistoryAggregator(store RecordStore, contract ContractHistory, logger *logging.Logger) *HistoryAggregator {
	return &HistoryAggregator{store: store, contract: contract, logger: logger}
}

// Fetch returns every entry involving userID, newest first. Entries with the
// same date keep store entries ahead of contract entries. An empty feed is
// ErrNoTransactions.
func (h *HistoryAggregator) Fetch(ctx context.Context, userID chain.AccountID) ([]HistoryEntry, error) {
	records, err := h.store.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	purchases, err := h.contractPurchases(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records)+len(purchases))
	for _, rec := range records {
		entries = append(entries, fromRecord(rec, userID))
	}
	for _, p := range purchases {
		if p.Buyer != userID {
			continue
		}
		entries = append(entries, fromPurchase(p))
	}

	if len(entries) == 0 {
		return nil, ErrNoTransactions
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}

func (h *HistoryAggregator) contractPurchases(ctx context.Context) ([]ContractTransaction, error) {
	if h.contract == nil {
		return nil, nil
	}
	purchases, err := h.contract.TransactionHistory(ctx)
	if errors.Is(err, ErrContractNotDeployed) {
		h.logger.WithContext(ctx).Debug("No contract deployed; history from store only")
		return nil, nil
	}
	return purchases, err
}

func fromRecord(rec TransactionRecord, user chain.AccountID) HistoryEntry {
	entry := HistoryEntry{
		Date:   rec.Date,
		Power:  rec.Power,
		Price:  rec.Price,
		Type:   EntrySell,
		Source: SourceDatabase,
	}
	if rec.Amount.Valid {
		amount := rec.Amount.Decimal
		entry.Amount = &amount
	}
	if rec.SenderID == user {
		entry.Type = EntryBuy
	}
	return entry
}

var hundred = decimal.NewFromInt(100)

func fromPurchase(p ContractTransaction) HistoryEntry {
	total := decimal.NewFromBigInt(new(big.Int).SetUint64(p.TotalAmount), 0)
	return HistoryEntry{
		Date:   time.Unix(int64(p.Timestamp), 0).UTC(),
		Amount: &total,
		Power:  total.Mul(hundred),
		Price:  decimal.NewFromInt(1),
		Type:   EntryBuy,
		Source: SourceContract,
	}
}
