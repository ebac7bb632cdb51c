package postgres

import (
	"context"
	"database/sql"
	"errors"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

type inventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

const inventoryColumns = `id, name, owner_tier, quantity, available_for_rent, status`

func scanInventory(row interface{ Scan(...interface{}) error }) (*domain.InventoryItem, error) {
	item := &domain.InventoryItem{}
	err := row.Scan(&item.ID, &item.Name, &item.OwnerTier, &item.Quantity,
		&item.AvailableForRent, &item.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *inventoryRepository) GetByID(ctx context.Context, id int32) (*domain.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1`
	return scanInventory(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *inventoryRepository) GetForUpdate(ctx context.Context, id int32) (*domain.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1 FOR UPDATE`
	return scanInventory(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}
