package domain

import "time"

type TransactionType string

const (
	TransactionTypeReserve TransactionType = "RESERVE"
	TransactionTypeIssue   TransactionType = "ISSUE"
	TransactionTypeReturn  TransactionType = "RETURN"
	TransactionTypeCancel  TransactionType = "CANCEL"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeReserve, TransactionTypeIssue, TransactionTypeReturn, TransactionTypeCancel:
		return true
	}
	return false
}

type ReturnCondition string

const (
	ReturnConditionExcellent ReturnCondition = "EXCELLENT"
	ReturnConditionGood      ReturnCondition = "GOOD"
	ReturnConditionFair      ReturnCondition = "FAIR"
	ReturnConditionPoor      ReturnCondition = "POOR"
)

// RentalTransaction is one append-only ledger entry. It targets exactly one of
// a rental item or a room, never both. Entries are never updated or deleted;
// all balances are folds over the entry stream ordered by PerformedAt (id
// breaks ties).
type RentalTransaction struct {
	ID           int32           `json:"id"`
	RentalItemID *int32          `json:"rental_item_id,omitempty"`
	RoomID       *int32          `json:"room_id,omitempty"`
	Type         TransactionType `json:"type"`
	Quantity     int32           `json:"quantity"`
	PerformedBy  int32           `json:"performed_by"`
	PerformedAt  time.Time       `json:"performed_at"`
	Condition    ReturnCondition `json:"condition,omitempty"` // meaningful on RETURN only
	Notes        string          `json:"notes,omitempty"`
}

// Balances is the fold of an item's transaction stream.
type Balances struct {
	Reserved int32 // net reserve − issue − cancel, floored at 0
	Issued   int32
	Returned int32
}

// FoldBalances derives current balances from a transaction stream. The input
// must already be ordered by performed_at, id.
func FoldBalances(txs []RentalTransaction) Balances {
	var b Balances
	for _, tx := range txs {
		switch tx.Type {
		case TransactionTypeReserve:
			b.Reserved += tx.Quantity
		case TransactionTypeIssue:
			b.Reserved -= tx.Quantity
			b.Issued += tx.Quantity
		case TransactionTypeReturn:
			b.Returned += tx.Quantity
		case TransactionTypeCancel:
			b.Reserved -= tx.Quantity
		}
		if b.Reserved < 0 {
			b.Reserved = 0
		}
	}
	return b
}
