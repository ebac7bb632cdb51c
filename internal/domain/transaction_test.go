package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldBalances(t *testing.T) {
	t.Run("EmptyStream", func(t *testing.T) {
		b := FoldBalances(nil)
		assert.Equal(t, Balances{}, b)
	})

	t.Run("ReserveThenIssue", func(t *testing.T) {
		b := FoldBalances([]RentalTransaction{
			{Type: TransactionTypeReserve, Quantity: 5},
			{Type: TransactionTypeIssue, Quantity: 3},
		})
		assert.Equal(t, int32(2), b.Reserved)
		assert.Equal(t, int32(3), b.Issued)
		assert.Equal(t, int32(0), b.Returned)
	})

	t.Run("FullCycle", func(t *testing.T) {
		b := FoldBalances([]RentalTransaction{
			{Type: TransactionTypeReserve, Quantity: 4},
			{Type: TransactionTypeIssue, Quantity: 4},
			{Type: TransactionTypeReturn, Quantity: 2},
			{Type: TransactionTypeReturn, Quantity: 2},
		})
		assert.Equal(t, int32(0), b.Reserved)
		assert.Equal(t, int32(4), b.Issued)
		assert.Equal(t, int32(4), b.Returned)
	})

	t.Run("CancelReducesReserved", func(t *testing.T) {
		b := FoldBalances([]RentalTransaction{
			{Type: TransactionTypeReserve, Quantity: 5},
			{Type: TransactionTypeCancel, Quantity: 2},
		})
		assert.Equal(t, int32(3), b.Reserved)
	})

	t.Run("ReservedFlooredAtZero", func(t *testing.T) {
		b := FoldBalances([]RentalTransaction{
			{Type: TransactionTypeReserve, Quantity: 2},
			{Type: TransactionTypeCancel, Quantity: 5},
			{Type: TransactionTypeReserve, Quantity: 1},
		})
		assert.Equal(t, int32(1), b.Reserved)
	})
}

func TestTransactionTypeValid(t *testing.T) {
	assert.True(t, TransactionTypeReserve.Valid())
	assert.True(t, TransactionTypeIssue.Valid())
	assert.True(t, TransactionTypeReturn.Valid())
	assert.True(t, TransactionTypeCancel.Valid())
	assert.False(t, TransactionType("SWAP").Valid())
	assert.False(t, TransactionType("").Valid())
}

func TestRentalItemBalances(t *testing.T) {
	item := RentalItem{QuantityRequested: 5, QuantityIssued: 3, QuantityReturned: 1}
	assert.Equal(t, int32(2), item.OutstandingToIssue())
	assert.Equal(t, int32(2), item.OutstandingToReturn())
	assert.False(t, item.Closed())

	item.QuantityReturned = 3
	assert.True(t, item.Closed())

	never := RentalItem{QuantityRequested: 5}
	assert.False(t, never.Closed())
}
