package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

type itemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, request_id, inventory_item_id, quantity_requested,
	quantity_issued, quantity_returned, actual_return_date, created_on`

func scanItem(row interface{ Scan(...interface{}) error }) (*domain.RentalItem, error) {
	item := &domain.RentalItem{}
	err := row.Scan(&item.ID, &item.RequestID, &item.InventoryItemID, &item.QuantityRequested,
		&item.QuantityIssued, &item.QuantityReturned, &item.ActualReturnDate, &item.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *domain.RentalItem) error {
	query := `INSERT INTO rental_items (request_id, inventory_item_id, quantity_requested,
	          quantity_issued, quantity_returned, created_on)
	          VALUES ($1, $2, $3, 0, 0, $4) RETURNING id`
	item.CreatedOn = time.Now()
	return conn(ctx, r.db).QueryRowContext(ctx, query, item.RequestID, item.InventoryItemID,
		item.QuantityRequested, item.CreatedOn).Scan(&item.ID)
}

func (r *itemRepository) GetByID(ctx context.Context, id int32) (*domain.RentalItem, error) {
	query := `SELECT ` + itemColumns + ` FROM rental_items WHERE id = $1`
	return scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *itemRepository) GetForUpdate(ctx context.Context, id int32) (*domain.RentalItem, error) {
	query := `SELECT ` + itemColumns + ` FROM rental_items WHERE id = $1 FOR UPDATE`
	return scanItem(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *itemRepository) ListByRequest(ctx context.Context, requestID int32) ([]domain.RentalItem, error) {
	query := `SELECT ` + itemColumns + ` FROM rental_items WHERE request_id = $1 ORDER BY id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.RentalItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *itemRepository) UpdateSnapshot(ctx context.Context, item *domain.RentalItem) error {
	query := `UPDATE rental_items
	          SET quantity_issued=$1, quantity_returned=$2, actual_return_date=$3
	          WHERE id=$4`
	_, err := conn(ctx, r.db).ExecContext(ctx, query, item.QuantityIssued, item.QuantityReturned,
		item.ActualReturnDate, item.ID)
	return err
}

// ListOverlapping selects lines of other active requests for the same
// inventory item using the half-open overlap predicate
// (existing.start < window.end AND existing.end > window.start).
func (r *itemRepository) ListOverlapping(ctx context.Context, inventoryItemID int32, window domain.Window, excludeRequestID int32) ([]repository.OverlappingLine, error) {
	query := `SELECT ri.request_id, rr.status, ri.quantity_requested, ri.quantity_issued, ri.quantity_returned
	          FROM rental_items ri
	          JOIN rental_requests rr ON rr.id = ri.request_id
	          WHERE ri.inventory_item_id = $1
	            AND rr.status IN ('RESERVED', 'ISSUED')
	            AND rr.requested_start_date < $2
	            AND rr.requested_end_date > $3
	            AND rr.id <> $4`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, inventoryItemID, window.End, window.Start, excludeRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []repository.OverlappingLine
	for rows.Next() {
		var line repository.OverlappingLine
		if err := rows.Scan(&line.RequestID, &line.Status, &line.QuantityRequested,
			&line.QuantityIssued, &line.QuantityReturned); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
