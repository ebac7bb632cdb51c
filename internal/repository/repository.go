package repository

import (
	"context"
	"time"

	"openchannel-rental-backend/internal/domain"
)

// TxRunner executes fn inside one database transaction. The transaction is
// carried on the context passed to fn; repository calls made with that context
// join it. Rolls back when fn errors, commits otherwise.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type RequestRepository interface {
	Create(ctx context.Context, req *domain.RentalRequest) error
	GetByID(ctx context.Context, id int32) (*domain.RentalRequest, error)
	GetByReference(ctx context.Context, reference string) (*domain.RentalRequest, error)
	// GetForUpdate locks the request row for the duration of the enclosing
	// transaction, serializing concurrent mutations of the same request.
	GetForUpdate(ctx context.Context, id int32) (*domain.RentalRequest, error)
	// Update persists status, rental type, actual dates and the requested end
	// date (extension); identity and creation fields never change.
	Update(ctx context.Context, req *domain.RentalRequest) error
	List(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.RentalRequest, int32, error)
	// ListExpiredActive returns active requests whose requested window has
	// fully passed now. Used by the expiry sweep.
	ListExpiredActive(ctx context.Context, now time.Time) ([]domain.RentalRequest, error)
}

// OverlappingLine is a rental line from another active request that overlaps a
// queried window, shaped for the availability fold.
type OverlappingLine struct {
	RequestID         int32
	Status            domain.RequestStatus
	QuantityRequested int32
	QuantityIssued    int32
	QuantityReturned  int32
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.RentalItem) error
	GetByID(ctx context.Context, id int32) (*domain.RentalItem, error)
	// GetForUpdate locks the rental item row; every ledger append against an
	// item holds this lock so validation and append commit atomically.
	GetForUpdate(ctx context.Context, id int32) (*domain.RentalItem, error)
	ListByRequest(ctx context.Context, requestID int32) ([]domain.RentalItem, error)
	// UpdateSnapshot persists the cached quantity_issued / quantity_returned /
	// actual_return_date derived from the ledger.
	UpdateSnapshot(ctx context.Context, item *domain.RentalItem) error
	// ListOverlapping returns lines of other active requests for the same
	// inventory item whose windows overlap the given window (half-open).
	ListOverlapping(ctx context.Context, inventoryItemID int32, window domain.Window, excludeRequestID int32) ([]OverlappingLine, error)
}

type TransactionRepository interface {
	// Append inserts an immutable ledger entry; performed_at is assigned
	// server-side at commit time.
	Append(ctx context.Context, tx *domain.RentalTransaction) error
	ListByItem(ctx context.Context, itemID int32) ([]domain.RentalTransaction, error)
	ListByRoom(ctx context.Context, roomID int32) ([]domain.RentalTransaction, error)
}

type RoomRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Room, error)
	// GetForUpdate locks the room row, serializing concurrent bookings of the
	// same room.
	GetForUpdate(ctx context.Context, id int32) (*domain.Room, error)
	CreateRoomRental(ctx context.Context, rr *domain.RoomRental) error
	ListRoomRentalsByRequest(ctx context.Context, requestID int32) ([]domain.RoomRental, error)
	// ListConflicts returns bookings of active requests for this room whose
	// inherited windows overlap the given window.
	ListConflicts(ctx context.Context, roomID int32, window domain.Window, excludeRequestID int32) ([]domain.RoomConflict, error)
}

type InventoryRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.InventoryItem, error)
	// GetForUpdate locks the catalog row so two concurrent reservations of the
	// same inventory item cannot both pass the availability check.
	GetForUpdate(ctx context.Context, id int32) (*domain.InventoryItem, error)
}
