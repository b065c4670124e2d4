package greeno

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/R3E-Network/greeno_layer/internal/chain"
	"github.com/R3E-Network/greeno_layer/internal/database"
)

// RecordStore is the append-only mirror of completed transfers.
type RecordStore interface {
	InsertMany(ctx context.Context, records []TransactionRecord) error
	ListByParticipant(ctx context.Context, account chain.AccountID) ([]TransactionRecord, error)
}

// MirrorRecords builds one record per receiver of a completed transfer.
// Power and price equal the requested amount; Amount and Type stay unset.
// Ids are fresh UUIDs.
func MirrorRecords(token chain.TokenID, sender chain.AccountID, receivers []chain.AccountID, amounts []decimal.Decimal, now time.Time) []TransactionRecord {
	records := make([]TransactionRecord, 0, len(receivers))
	for i, receiver := range receivers {
		records = append(records, TransactionRecord{
			ID:         uuid.NewString(),
			TokenID:    token,
			SenderID:   sender,
			ReceiverID: receiver,
			Power:      amounts[i],
			Price:      amounts[i],
			Date:       now,
		})
	}
	return records
}

// =============================================================================
// SQL store
// =============================================================================

// SQLStore persists records through the database package.
type SQLStore struct {
	repo *database.TransactionRepository
}

// NewSQLStore wraps repo.
func NewSQLStore(repo *database.TransactionRepository) *SQLStore {
	return &SQLStore{repo: repo}
}

func (s *SQLStore) InsertMany(ctx context.Context, records []TransactionRecord) error {
	rows := make([]database.Transaction, len(records))
	for i, rec := range records {
		rows[i] = database.Transaction{
			ID:         rec.ID,
			TokenID:    string(rec.TokenID),
			SenderID:   string(rec.SenderID),
			ReceiverID: string(rec.ReceiverID),
			Amount:     rec.Amount,
			Power:      rec.Power,
			Price:      rec.Price,
			Type:       sql.NullString{String: rec.Type, Valid: rec.Type != ""},
			Date:       rec.Date,
		}
	}
	return s.repo.InsertMany(ctx, rows)
}

func (s *SQLStore) ListByParticipant(ctx context.Context, account chain.AccountID) ([]TransactionRecord, error) {
	rows, err := s.repo.ListByParticipant(ctx, string(account))
	if err != nil {
		return nil, err
	}
	records := make([]TransactionRecord, len(rows))
	for i, row := range rows {
		records[i] = TransactionRecord{
			ID:         row.ID,
			TokenID:    chain.TokenID(row.TokenID),
			SenderID:   chain.AccountID(row.SenderID),
			ReceiverID: chain.AccountID(row.ReceiverID),
			Amount:     row.Amount,
			Power:      row.Power,
			Price:      row.Price,
			Type:       row.Type.String,
			Date:       row.Date,
		}
	}
	return records, nil
}

// =============================================================================
// Memory store
// =============================================================================

// MemoryStore is an in-memory RecordStore for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []TransactionRecord

	// Error injection for testing error paths
	ErrorOnNextCall error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// checkError returns and clears any injected error.
func (m *MemoryStore) checkError() error {
	if m.ErrorOnNextCall != nil {
		err := m.ErrorOnNextCall
		m.ErrorOnNextCall = nil
		return err
	}
	return nil
}

func (m *MemoryStore) InsertMany(_ context.Context, records []TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return err
	}
	for i, rec := range records {
		if rec.ID == "" || rec.SenderID == "" || rec.ReceiverID == "" {
			return fmt.Errorf("%w: record %d is missing identifiers", database.ErrInvalidInput, i)
		}
	}
	for _, rec := range records {
		if rec.Date.IsZero() {
			rec.Date = time.Now().UTC()
		}
		m.records = append(m.records, rec)
	}
	return nil
}

func (m *MemoryStore) ListByParticipant(_ context.Context, account chain.AccountID) ([]TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkError(); err != nil {
		return nil, err
	}
	if account == "" {
		return nil, errors.New("account cannot be empty")
	}
	var out []TransactionRecord
	for _, rec := range m.records {
		if rec.SenderID == account || rec.ReceiverID == account {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// All returns a copy of every stored record in insertion order.
func (m *MemoryStore) All() []TransactionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TransactionRecord(nil), m.records...)
}

var (
	_ RecordStore = (*SQLStore)(nil)
	_ RecordStore = (*MemoryStore)(nil)
)
