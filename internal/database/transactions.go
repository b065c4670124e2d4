package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for rows that fail basic checks.
var ErrInvalidInput = errors.New("invalid input")

// Transaction is one row of the transactions table.
type Transaction struct {
	ID         string              `db:"id"`
	TokenID    string              `db:"token_id"`
	SenderID   string              `db:"sender_id"`
	ReceiverID string              `db:"receiver_id"`
	Amount     decimal.NullDecimal `db:"amount"`
	Power      decimal.Decimal     `db:"power"`
	Price      decimal.Decimal     `db:"price"`
	Type       sql.NullString      `db:"type"`
	Date       time.Time           `db:"date"`
}

const transactionColumns = `id, token_id, sender_id, receiver_id, amount, power, price, type, date`

// TransactionRepository is an append-only store of transfer records.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository wraps db.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// InsertMany writes rows in one transaction; either all rows land or none.
func (r *TransactionRepository) InsertMany(ctx context.Context, rows []Transaction) error {
	if len(rows) == 0 {
		return nil
	}
	for i, row := range rows {
		if row.ID == "" || row.SenderID == "" || row.ReceiverID == "" || row.TokenID == "" {
			return fmt.Errorf("%w: row %d is missing identifiers", ErrInvalidInput, i)
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES (:id, :token_id, :sender_id, :receiver_id, :amount, :power, :price, :type, :date)`
	for _, row := range rows {
		if row.Date.IsZero() {
			row.Date = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("insert transaction %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListByParticipant returns rows where account is sender or receiver,
// newest first.
func (r *TransactionRepository) ListByParticipant(ctx context.Context, account string) ([]Transaction, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account cannot be empty", ErrInvalidInput)
	}

	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY date DESC`)

	var rows []Transaction
	if err := r.db.SelectContext(ctx, &rows, query, account, account); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return rows, nil
}
