package service

import (
	"context"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

// QuantityLedger maintains the authoritative issued/returned/reserved state of
// every rental item as a fold over its append-only transaction history. The
// cached counters on the item row are a read-through snapshot updated in the
// same database transaction as each append, never an independent source of
// truth.
//
// Callers must invoke Append inside a TxRunner transaction with the item row
// locked; otherwise two concurrent appends could both validate against the
// same stale balance.
type QuantityLedger struct {
	itemRepo  repository.ItemRepository
	txRepo    repository.TransactionRepository
	validator *Validator
}

func NewQuantityLedger(itemRepo repository.ItemRepository, txRepo repository.TransactionRepository, validator *Validator) *QuantityLedger {
	return &QuantityLedger{itemRepo: itemRepo, txRepo: txRepo, validator: validator}
}

// ReservedBalance folds reserve − issue − cancel over the item's history,
// floored at 0. Transactions arrive ordered by performed_at, id.
func (l *QuantityLedger) ReservedBalance(ctx context.Context, itemID int32) (int32, error) {
	txs, err := l.txRepo.ListByItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return domain.FoldBalances(txs).Reserved, nil
}

// Append validates the proposed transaction against current balances, inserts
// the immutable record, updates the item snapshot, and stamps
// actual_return_date exactly once when the append closes the item out. The
// enclosing database transaction makes the whole step atomic: either the entry
// is durably appended and every derived counter moves with it, or nothing
// changes.
func (l *QuantityLedger) Append(ctx context.Context, req *domain.RentalRequest, item *domain.RentalItem, txType domain.TransactionType, quantity int32, actorID int32, condition domain.ReturnCondition, notes string) (*domain.RentalTransaction, error) {
	reserved, err := l.ReservedBalance(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if err := l.validator.ValidateItemTransaction(ctx, req, item, reserved, txType, quantity); err != nil {
		return nil, err
	}

	tx := &domain.RentalTransaction{
		RentalItemID: &item.ID,
		Type:         txType,
		Quantity:     quantity,
		PerformedBy:  actorID,
		Condition:    condition,
		Notes:        notes,
	}
	if err := l.txRepo.Append(ctx, tx); err != nil {
		return nil, err
	}

	switch txType {
	case domain.TransactionTypeIssue:
		item.QuantityIssued += quantity
	case domain.TransactionTypeReturn:
		item.QuantityReturned += quantity
	}
	if item.Closed() && item.ActualReturnDate == nil {
		at := tx.PerformedAt
		item.ActualReturnDate = &at
	}
	if err := l.itemRepo.UpdateSnapshot(ctx, item); err != nil {
		return nil, err
	}
	return tx, nil
}

// AppendRoom records a whole-room transaction (quantity always 1). Room state
// lives on the parent request, so no snapshot moves; the entry is audit trail.
func (l *QuantityLedger) AppendRoom(ctx context.Context, req *domain.RentalRequest, roomID int32, txType domain.TransactionType, actorID int32, notes string) (*domain.RentalTransaction, error) {
	if err := l.validator.ValidateRoomTransaction(req, txType, 1); err != nil {
		return nil, err
	}
	tx := &domain.RentalTransaction{
		RoomID:      &roomID,
		Type:        txType,
		Quantity:    1,
		PerformedBy: actorID,
		Notes:       notes,
	}
	if err := l.txRepo.Append(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
