package service

import (
	"context"
	"time"

	"openchannel-rental-backend/internal/domain"
)

// ItemLine is one equipment line of a new request.
type ItemLine struct {
	InventoryItemID int32 `json:"inventory_item_id"`
	Quantity        int32 `json:"quantity"`
}

// RoomLine is one room booking of a new request.
type RoomLine struct {
	RoomID      int32  `json:"room_id"`
	PeopleCount int32  `json:"people_count"`
	Notes       string `json:"notes"`
}

type CreateRequestInput struct {
	UserID        int32
	CreatedBy     int32
	ContactEmail  string
	ProjectName   string
	Purpose       string
	Notes         string
	Window        domain.Window
	InitialAction domain.InitialAction
	Items         []ItemLine
	Rooms         []RoomLine
}

// MutateInput proposes one ledger transaction against a line of a request.
// Exactly one of RentalItemID / RoomID must be set.
type MutateInput struct {
	RequestID    int32
	RentalItemID int32
	RoomID       int32
	Type         domain.TransactionType
	Quantity     int32
	ActorID      int32
	Condition    domain.ReturnCondition
	Notes        string
}

// RequestDetail is the aggregate view of a request with its lines.
type RequestDetail struct {
	Request domain.RentalRequest `json:"request"`
	Items   []domain.RentalItem  `json:"items"`
	Rooms   []domain.RoomRental  `json:"rooms"`
}

type RoomAvailabilityResult struct {
	Available bool                  `json:"available"`
	Conflicts []domain.RoomConflict `json:"conflicts"`
}

type RentalService interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.RentalRequest, error)
	Mutate(ctx context.Context, input MutateInput) (*domain.RentalTransaction, error)
	CancelRequest(ctx context.Context, requestID, actorID int32) error
	ExtendRequest(ctx context.Context, requestID int32, newEndDate time.Time, actorID int32) error
	// ExpireOverdue reconciles active requests whose window has fully passed;
	// returns how many were closed. Driven by the scheduled sweep.
	ExpireOverdue(ctx context.Context, now time.Time) (int32, error)
	GetRequest(ctx context.Context, requestID int32) (*RequestDetail, error)
	ListRequests(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.RentalRequest, int32, error)
	ListItemTransactions(ctx context.Context, itemID int32) ([]domain.RentalTransaction, error)
}

type AvailabilityService interface {
	// GetAvailability reports free units of an inventory item. A nil window
	// degrades to the global snapshot for non-time-aware callers.
	GetAvailability(ctx context.Context, inventoryItemID int32, window *domain.Window) (int32, error)
}

type RoomScheduleService interface {
	GetRoomAvailability(ctx context.Context, roomID int32, window domain.Window, excludeRequestID int32) (*RoomAvailabilityResult, error)
}

type EmailService interface {
	SendRequestConfirmation(ctx context.Context, email, projectName, reference string, start, end time.Time) error
	SendRequestCancelled(ctx context.Context, email, projectName, reference string) error
	SendRequestClosed(ctx context.Context, email, projectName, reference string) error
}
