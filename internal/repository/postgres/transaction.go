package postgres

import (
	"context"
	"database/sql"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

// Append inserts a ledger entry. performed_at comes from the database clock at
// commit time; it is the ordering key for the balance fold. Entries have no
// UPDATE or DELETE path anywhere in this package.
func (r *transactionRepository) Append(ctx context.Context, tx *domain.RentalTransaction) error {
	query := `INSERT INTO rental_transactions
	          (rental_item_id, room_id, transaction_type, quantity, performed_by, performed_at, condition, notes)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NULLIF($6, ''), $7)
	          RETURNING id, performed_at`
	return conn(ctx, r.db).QueryRowContext(ctx, query, tx.RentalItemID, tx.RoomID, tx.Type,
		tx.Quantity, tx.PerformedBy, string(tx.Condition), tx.Notes).Scan(&tx.ID, &tx.PerformedAt)
}

const transactionColumns = `id, rental_item_id, room_id, transaction_type, quantity,
	performed_by, performed_at, COALESCE(condition, ''), COALESCE(notes, '')`

func scanTransactions(rows *sql.Rows) ([]domain.RentalTransaction, error) {
	defer rows.Close()
	var txs []domain.RentalTransaction
	for rows.Next() {
		var tx domain.RentalTransaction
		var condition string
		if err := rows.Scan(&tx.ID, &tx.RentalItemID, &tx.RoomID, &tx.Type, &tx.Quantity,
			&tx.PerformedBy, &tx.PerformedAt, &condition, &tx.Notes); err != nil {
			return nil, err
		}
		tx.Condition = domain.ReturnCondition(condition)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *transactionRepository) ListByItem(ctx context.Context, itemID int32) ([]domain.RentalTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions
	          WHERE rental_item_id = $1 ORDER BY performed_at, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func (r *transactionRepository) ListByRoom(ctx context.Context, roomID int32) ([]domain.RentalTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM rental_transactions
	          WHERE room_id = $1 ORDER BY performed_at, id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}
