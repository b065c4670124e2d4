package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func TestApplyExecutesAllMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS transactions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_transactions_sender").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_transactions_receiver").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_transactions_date").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := Apply(context.Background(), db, DriverPostgres); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(".*").WillReturnError(errors.New("permission denied"))

	if err := Apply(context.Background(), db, DriverPostgres); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertManyRollsBackOnFailure(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer raw.Close()
	repo := NewTransactionRepository(sqlx.NewDb(raw, "sqlmock"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO transactions").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = repo.InsertMany(context.Background(), []Transaction{
		sampleRow("a", "0.0.1", "0.0.2", time.Now()),
		sampleRow("b", "0.0.1", "0.0.3", time.Now()),
	})
	if err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertManyRejectsIncompleteRows(t *testing.T) {
	repo := NewTransactionRepository(nil)
	err := repo.InsertMany(context.Background(), []Transaction{{ID: "x"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	repo := NewTransactionRepository(db)

	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	rows := []Transaction{
		sampleRow("r1", "0.0.100", "0.0.200", older),
		sampleRow("r2", "0.0.300", "0.0.100", newer),
		sampleRow("r3", "0.0.300", "0.0.400", newer),
	}
	rows[0].Amount = decimal.NewNullDecimal(decimal.RequireFromString("12.345"))
	if err := repo.InsertMany(ctx, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.ListByParticipant(ctx, "0.0.100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "r2" || got[1].ID != "r1" {
		t.Errorf("order = %s, %s; want r2, r1", got[0].ID, got[1].ID)
	}
	if !got[1].Date.Equal(older) {
		t.Errorf("date = %v, want %v", got[1].Date, older)
	}
	if !got[1].Amount.Valid || got[1].Amount.Decimal.String() != "12.345" {
		t.Errorf("amount = %+v, want 12.345", got[1].Amount)
	}
	if got[0].Amount.Valid {
		t.Errorf("amount should be NULL, got %v", got[0].Amount.Decimal)
	}
	if !got[1].Power.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("power = %s, want 5.5", got[1].Power)
	}

	// Migrations are idempotent.
	if err := Apply(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("reapply: %v", err)
	}
}

func sampleRow(id, sender, receiver string, date time.Time) Transaction {
	return Transaction{
		ID:         id,
		TokenID:    "0.0.5611505",
		SenderID:   sender,
		ReceiverID: receiver,
		Power:      decimal.RequireFromString("5.5"),
		Price:      decimal.RequireFromString("5.5"),
		Type:       sql.NullString{},
		Date:       date,
	}
}
