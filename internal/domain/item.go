package domain

import "time"

type InventoryStatus string

const (
	InventoryStatusInStock  InventoryStatus = "IN_STOCK"
	InventoryStatusRepair   InventoryStatus = "REPAIR"
	InventoryStatusRetired  InventoryStatus = "RETIRED"
	InventoryStatusReserved InventoryStatus = "RESERVED"
)

// InventoryItem is the catalog view consumed by the reservation engine. The
// catalog (descriptions, categories, locations) is owned elsewhere; the engine
// only reads quantity and rentability and never writes catalog metadata.
type InventoryItem struct {
	ID               int32           `json:"id"`
	Name             string          `json:"name"`
	OwnerTier        string          `json:"owner_tier"`
	Quantity         int32           `json:"quantity"`
	AvailableForRent bool            `json:"available_for_rent"`
	Status           InventoryStatus `json:"status"`
}

// RentalItem is one inventory line within a request. QuantityIssued and
// QuantityReturned are snapshots derived from the transaction ledger; they are
// never set directly by a caller.
type RentalItem struct {
	ID                int32      `json:"id"`
	RequestID         int32      `json:"request_id"`
	InventoryItemID   int32      `json:"inventory_item_id"`
	QuantityRequested int32      `json:"quantity_requested"`
	QuantityIssued    int32      `json:"quantity_issued"`
	QuantityReturned  int32      `json:"quantity_returned"`
	ActualReturnDate  *time.Time `json:"actual_return_date,omitempty"`
	CreatedOn         time.Time  `json:"created_on"`
}

// OutstandingToIssue is the gap between requested and issued units.
func (i *RentalItem) OutstandingToIssue() int32 {
	return i.QuantityRequested - i.QuantityIssued
}

// OutstandingToReturn is the gap between issued and returned units.
func (i *RentalItem) OutstandingToReturn() int32 {
	return i.QuantityIssued - i.QuantityReturned
}

// Closed reports whether every issued unit came back. Items that never issued
// anything are not closed.
func (i *RentalItem) Closed() bool {
	return i.QuantityIssued > 0 && i.QuantityReturned == i.QuantityIssued
}
