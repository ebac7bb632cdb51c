package service

import (
	"context"
	"fmt"

	"openchannel-rental-backend/internal/domain"
)

// balanceView is the snapshot a rule is checked against. Reserved comes from
// the ledger fold; the other three from the item snapshot maintained in the
// same transaction as every append.
type balanceView struct {
	ItemID    int32
	Requested int32
	Issued    int32
	Returned  int32
	Reserved  int32
}

func (b balanceView) outstandingToReserve() int32 {
	out := b.Requested - b.Reserved - b.Issued
	if out < 0 {
		out = 0
	}
	return out
}

type transactionRule func(b balanceView, q int32) error

// itemTransactionRules is the closed dispatch table for the four transaction
// types. Adding a type without a rule makes every append of it fail loudly.
var itemTransactionRules = map[domain.TransactionType]transactionRule{
	domain.TransactionTypeReserve: func(b balanceView, q int32) error {
		if allowed := b.outstandingToReserve(); q > allowed {
			return &domain.BalanceError{Kind: domain.ErrOverReservation, ItemID: b.ItemID, Requested: q, Allowed: allowed}
		}
		return nil
	},
	domain.TransactionTypeIssue: func(b balanceView, q int32) error {
		if allowed := b.Requested - b.Issued; q > allowed {
			return &domain.BalanceError{Kind: domain.ErrOverIssue, ItemID: b.ItemID, Requested: q, Allowed: allowed}
		}
		if q > b.Reserved {
			return &domain.BalanceError{Kind: domain.ErrOverIssue, ItemID: b.ItemID, Requested: q, Allowed: b.Reserved}
		}
		return nil
	},
	domain.TransactionTypeReturn: func(b balanceView, q int32) error {
		if allowed := b.Issued - b.Returned; q > allowed {
			return &domain.BalanceError{Kind: domain.ErrOverReturn, ItemID: b.ItemID, Requested: q, Allowed: allowed}
		}
		return nil
	},
	domain.TransactionTypeCancel: func(b balanceView, q int32) error {
		if q > b.Reserved {
			return &domain.BalanceError{Kind: domain.ErrOverCancel, ItemID: b.ItemID, Requested: q, Allowed: b.Reserved}
		}
		return nil
	},
}

// Validator is the single gate every proposed transaction passes before the
// ledger commits it. It runs synchronously, inside the same database
// transaction as the append, with the target rows locked.
type Validator struct {
	avail *AvailabilityCalculator
}

func NewValidator(avail *AvailabilityCalculator) *Validator {
	return &Validator{avail: avail}
}

// ValidateItemTransaction checks the balance preconditions for one item-level
// transaction. Reserve additionally checks free stock over the request's own
// window, excluding the request itself.
func (v *Validator) ValidateItemTransaction(ctx context.Context, req *domain.RentalRequest, item *domain.RentalItem, reserved int32, txType domain.TransactionType, quantity int32) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrMalformedTransaction, quantity)
	}
	if !txType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrMalformedTransaction, txType)
	}
	if !req.Status.IsActive() {
		return &domain.InvalidStateError{RequestID: req.ID, Status: req.Status, Operation: string(txType)}
	}

	b := balanceView{
		ItemID:    item.ID,
		Requested: item.QuantityRequested,
		Issued:    item.QuantityIssued,
		Returned:  item.QuantityReturned,
		Reserved:  reserved,
	}
	rule, ok := itemTransactionRules[txType]
	if !ok {
		return fmt.Errorf("%w: no rule for transaction type %q", domain.ErrMalformedTransaction, txType)
	}
	if err := rule(b, quantity); err != nil {
		return err
	}

	if txType == domain.TransactionTypeReserve {
		window := req.Window()
		free, err := v.avail.Available(ctx, item.InventoryItemID, &window, req.ID)
		if err != nil {
			return err
		}
		if quantity > free {
			return &domain.AvailabilityError{InventoryItemID: item.InventoryItemID, Requested: quantity, Available: free}
		}
	}
	return nil
}

// ValidateRoomTransaction applies the same vocabulary at whole-room
// granularity: quantity is always 1 and the gate is the schedule, checked at
// creation time rather than here.
func (v *Validator) ValidateRoomTransaction(req *domain.RentalRequest, txType domain.TransactionType, quantity int32) error {
	if quantity != 1 {
		return fmt.Errorf("%w: room transactions carry quantity 1, got %d", domain.ErrMalformedTransaction, quantity)
	}
	if !txType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", domain.ErrMalformedTransaction, txType)
	}
	if !req.Status.IsActive() {
		return &domain.InvalidStateError{RequestID: req.ID, Status: req.Status, Operation: string(txType)}
	}
	return nil
}
