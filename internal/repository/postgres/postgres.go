package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"openchannel-rental-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.RequestRepository
	repository.ItemRepository
	repository.TransactionRepository
	repository.RoomRepository
	repository.InventoryRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		RequestRepository:     NewRequestRepository(db),
		ItemRepository:        NewItemRepository(db),
		TransactionRepository: NewTransactionRepository(db),
		RoomRepository:        NewRoomRepository(db),
		InventoryRepository:   NewInventoryRepository(db),
	}
}

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// conn returns the transaction carried on ctx, or the bare pool.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// WithTx runs fn inside one database transaction. The ledger relies on this
// boundary: the validation read (FOR UPDATE), the ledger append and the
// snapshot update must commit as a unit so no caller ever observes a
// half-updated balance.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		// already inside a transaction, join it
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
