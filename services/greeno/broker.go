package greeno

import (
	"context"
	"time"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/logging"
	"github.com/R3E-Network/greeno_layer/internal/metrics"
)

// TransferOutcome is everything a completed transfer request produced.
type TransferOutcome struct {
	Transfer    *ValidatedTransfer
	Association *AssociationResult
	Purchase    *PurchaseResult
	// Persisted is false when mirroring to the store failed.
	Persisted bool
}

// Broker runs a transfer request end to end: validate, associate the sender,
// purchase, then mirror the legs into the store.
type Broker struct {
	orchestrator *Orchestrator
	store        RecordStore
	logger       *logging.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewBroker creates a Broker.
func NewBroker(orchestrator *Orchestrator, store RecordStore, logger *logging.Logger, m *metrics.Metrics) *Broker {
	return &Broker{
		orchestrator: orchestrator,
		store:        store,
		logger:       logger,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Transfer validates req before any ledger call. Association failures come
// back as *AssociationError. Once the transfer succeeds the outcome is
// returned even if recording or persistence failed.
func (b *Broker) Transfer(ctx context.Context, req TransferRequest) (*TransferOutcome, error) {
	validated, err := ValidateTransferRequest(req)
	if err != nil {
		return nil, err
	}

	assoc, err := b.orchestrator.AssociateTokenWithAccount(ctx, validated.Sender, validated.Key)
	if err != nil {
		return nil, &AssociationError{Account: string(validated.Sender), Err: err}
	}

	purchase, err := b.orchestrator.PurchaseTokens(ctx, validated.Sender, validated.Receivers, validated.Amounts, validated.Key)
	if err != nil {
		return nil, err
	}

	outcome := &TransferOutcome{
		Transfer:    validated,
		Association: assoc,
		Purchase:    purchase,
		Persisted:   b.persist(ctx, validated, purchase),
	}
	return outcome, nil
}

func (b *Broker) persist(ctx context.Context, t *ValidatedTransfer, purchase *PurchaseResult) bool {
	if b.store == nil {
		return false
	}
	records := MirrorRecords(b.orchestrator.Config().TokenID, t.Sender, t.Receivers, t.Amounts, b.now())
	if err := b.store.InsertMany(ctx, records); err != nil {
		b.metrics.RecordPersistenceFailure()
		b.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"sender":         t.Sender,
			"receivers":      len(t.Receivers),
			"transaction_id": purchase.Transfer.TransactionID,
		}).Warn("Failed to mirror transfer records")
		return false
	}
	return true
}

// Orchestrator returns the underlying orchestrator.
func (b *Broker) Orchestrator() *Orchestrator {
	return b.orchestrator
}

var _ ContractHistory = (*Orchestrator)(nil)
var _ BalanceReader = (chain.Client)(nil)
