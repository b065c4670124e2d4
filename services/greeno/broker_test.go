package greeno

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/chain/chaintest"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
)

func newTestBroker(fake *chaintest.Fake, store RecordStore) *Broker {
	b := NewBroker(newTestOrchestrator(fake, testContract), store, testLogger(), metrics.New())
	b.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return b
}

func transferRequest(t *testing.T) TransferRequest {
	t.Helper()
	_, keyText := chaintest.NewKey(t)
	return TransferRequest{
		SenderID:         "0.0.100",
		ReceiverIDs:      StringList{"0.0.200", "0.0.300"},
		Amounts:          AmountList{"12.345", "2"},
		SenderPrivateKey: keyText,
	}
}

func TestBroker_Transfer(t *testing.T) {
	fake := chaintest.New()
	store := NewMemoryStore()
	b := newTestBroker(fake, store)

	outcome, err := b.Transfer(context.Background(), transferRequest(t))
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if !outcome.Persisted {
		t.Error("expected records to be persisted")
	}
	if outcome.Association.Status != chain.StatusSuccess {
		t.Errorf("association status = %q", outcome.Association.Status)
	}
	if !outcome.Purchase.Recorded() {
		t.Error("expected purchase to be recorded")
	}

	records := store.All()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.SenderID != "0.0.100" || first.ReceiverID != "0.0.200" || first.TokenID != testToken {
		t.Errorf("unexpected record: %+v", first)
	}
	if first.Power.String() != "12.345" || !first.Price.Equal(first.Power) {
		t.Errorf("power and price must equal the requested amount: %+v", first)
	}
	if first.Amount.Valid || first.Type != "" {
		t.Errorf("amount and type are not written by transfers: %+v", first)
	}
	if first.ID == "" || first.ID == records[1].ID {
		t.Errorf("records need distinct ids: %q %q", first.ID, records[1].ID)
	}
	if !first.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", first.Date)
	}
}

func TestBroker_ValidationMakesNoLedgerCalls(t *testing.T) {
	fake := chaintest.New()
	store := NewMemoryStore()
	b := newTestBroker(fake, store)

	req := transferRequest(t)
	req.Amounts = AmountList{"5"}

	_, err := b.Transfer(context.Background(), req)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Message != "Mismatched array lengths: 2 receivers but 1 amounts provided" {
		t.Errorf("Message = %q", ve.Message)
	}
	if fake.TotalCalls() != 0 {
		t.Errorf("expected no ledger calls, got %d", fake.TotalCalls())
	}
	if len(store.All()) != 0 {
		t.Error("expected no records")
	}
}

func TestBroker_AlreadyAssociatedSender(t *testing.T) {
	fake := chaintest.New()
	fake.Associated["0.0.100"] = true
	b := newTestBroker(fake, NewMemoryStore())

	outcome, err := b.Transfer(context.Background(), transferRequest(t))
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if outcome.Association.Status != AssociationAlreadyDone {
		t.Errorf("association status = %q", outcome.Association.Status)
	}
	if fake.Calls("TransferTokens") != 1 {
		t.Errorf("expected 1 transfer, got %d", fake.Calls("TransferTokens"))
	}
}

func TestBroker_AssociationFailure(t *testing.T) {
	fake := chaintest.New()
	fake.AssociateFn = func(chain.AccountID, chain.TokenID) (*chain.Receipt, error) {
		return nil, &chain.StatusError{Op: "associate", Status: chain.StatusInvalidSignature}
	}
	b := newTestBroker(fake, NewMemoryStore())

	_, err := b.Transfer(context.Background(), transferRequest(t))
	var ae *AssociationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AssociationError, got %v", err)
	}
	if ae.Account != "0.0.100" {
		t.Errorf("Account = %q", ae.Account)
	}
	if fake.Calls("TransferTokens") != 0 {
		t.Error("transfer must not run after a failed association")
	}
}

func TestBroker_PersistenceFailureIsNotAnError(t *testing.T) {
	fake := chaintest.New()
	store := NewMemoryStore()
	store.ErrorOnNextCall = errors.New("disk full")
	b := newTestBroker(fake, store)

	outcome, err := b.Transfer(context.Background(), transferRequest(t))
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if outcome.Persisted {
		t.Error("expected Persisted = false")
	}
	if outcome.Purchase.Transfer.Status != chain.StatusSuccess {
		t.Errorf("transfer status = %q", outcome.Purchase.Transfer.Status)
	}
}

func TestBroker_RecordFailureStillPersists(t *testing.T) {
	fake := chaintest.New()
	fake.ExecuteFn = func(chain.ContractCall) (*chain.Receipt, error) {
		return nil, errors.New("gas exhausted")
	}
	store := NewMemoryStore()
	b := newTestBroker(fake, store)

	outcome, err := b.Transfer(context.Background(), transferRequest(t))
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	if outcome.Purchase.ContractStatus != ContractStatusNotRecorded || outcome.Purchase.Warning == "" {
		t.Errorf("unexpected purchase: %+v", outcome.Purchase)
	}
	if len(store.All()) != 2 {
		t.Errorf("expected transfer legs mirrored, got %d records", len(store.All()))
	}
}
