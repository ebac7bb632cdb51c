package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

// passthroughTxRunner runs fn directly; the real transaction boundary is
// exercised in the repository tests.
type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockRequestRepo
type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, req *domain.RentalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockRequestRepo) GetByID(ctx context.Context, id int32) (*domain.RentalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalRequest), args.Error(1)
}
func (m *MockRequestRepo) GetByReference(ctx context.Context, reference string) (*domain.RentalRequest, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalRequest), args.Error(1)
}
func (m *MockRequestRepo) GetForUpdate(ctx context.Context, id int32) (*domain.RentalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalRequest), args.Error(1)
}
func (m *MockRequestRepo) Update(ctx context.Context, req *domain.RentalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}
func (m *MockRequestRepo) List(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	args := m.Called(ctx, userID, status, page, pageSize)
	return args.Get(0).([]domain.RentalRequest), args.Get(1).(int32), args.Error(2)
}
func (m *MockRequestRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.RentalRequest, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.RentalRequest), args.Error(1)
}

// MockItemRepo
type MockItemRepo struct {
	mock.Mock
}

func (m *MockItemRepo) Create(ctx context.Context, item *domain.RentalItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
func (m *MockItemRepo) GetByID(ctx context.Context, id int32) (*domain.RentalItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalItem), args.Error(1)
}
func (m *MockItemRepo) GetForUpdate(ctx context.Context, id int32) (*domain.RentalItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RentalItem), args.Error(1)
}
func (m *MockItemRepo) ListByRequest(ctx context.Context, requestID int32) ([]domain.RentalItem, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]domain.RentalItem), args.Error(1)
}
func (m *MockItemRepo) UpdateSnapshot(ctx context.Context, item *domain.RentalItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
func (m *MockItemRepo) ListOverlapping(ctx context.Context, inventoryItemID int32, window domain.Window, excludeRequestID int32) ([]repository.OverlappingLine, error) {
	args := m.Called(ctx, inventoryItemID, window, excludeRequestID)
	return args.Get(0).([]repository.OverlappingLine), args.Error(1)
}

// MockTransactionRepo
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Append(ctx context.Context, tx *domain.RentalTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}
func (m *MockTransactionRepo) ListByItem(ctx context.Context, itemID int32) ([]domain.RentalTransaction, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]domain.RentalTransaction), args.Error(1)
}
func (m *MockTransactionRepo) ListByRoom(ctx context.Context, roomID int32) ([]domain.RentalTransaction, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]domain.RentalTransaction), args.Error(1)
}

// MockRoomRepo
type MockRoomRepo struct {
	mock.Mock
}

func (m *MockRoomRepo) GetByID(ctx context.Context, id int32) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}
func (m *MockRoomRepo) GetForUpdate(ctx context.Context, id int32) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}
func (m *MockRoomRepo) CreateRoomRental(ctx context.Context, rr *domain.RoomRental) error {
	args := m.Called(ctx, rr)
	return args.Error(0)
}
func (m *MockRoomRepo) ListRoomRentalsByRequest(ctx context.Context, requestID int32) ([]domain.RoomRental, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).([]domain.RoomRental), args.Error(1)
}
func (m *MockRoomRepo) ListConflicts(ctx context.Context, roomID int32, window domain.Window, excludeRequestID int32) ([]domain.RoomConflict, error) {
	args := m.Called(ctx, roomID, window, excludeRequestID)
	return args.Get(0).([]domain.RoomConflict), args.Error(1)
}

// MockInventoryRepo
type MockInventoryRepo struct {
	mock.Mock
}

func (m *MockInventoryRepo) GetByID(ctx context.Context, id int32) (*domain.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryItem), args.Error(1)
}
func (m *MockInventoryRepo) GetForUpdate(ctx context.Context, id int32) (*domain.InventoryItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryItem), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendRequestConfirmation(ctx context.Context, email, projectName, reference string, start, end time.Time) error {
	args := m.Called(ctx, email, projectName, reference, start, end)
	return args.Error(0)
}
func (m *MockEmailService) SendRequestCancelled(ctx context.Context, email, projectName, reference string) error {
	args := m.Called(ctx, email, projectName, reference)
	return args.Error(0)
}
func (m *MockEmailService) SendRequestClosed(ctx context.Context, email, projectName, reference string) error {
	args := m.Called(ctx, email, projectName, reference)
	return args.Error(0)
}
