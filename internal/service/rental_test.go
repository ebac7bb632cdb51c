package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

type rentalFixture struct {
	reqRepo  *MockRequestRepo
	itemRepo *MockItemRepo
	txRepo   *MockTransactionRepo
	roomRepo *MockRoomRepo
	invRepo  *MockInventoryRepo
	emailSvc *MockEmailService
	svc      *rentalService
	now      time.Time
}

func newRentalFixture() *rentalFixture {
	f := &rentalFixture{
		reqRepo:  new(MockRequestRepo),
		itemRepo: new(MockItemRepo),
		txRepo:   new(MockTransactionRepo),
		roomRepo: new(MockRoomRepo),
		invRepo:  new(MockInventoryRepo),
		emailSvc: new(MockEmailService),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	calc := NewAvailabilityCalculator(f.itemRepo, f.invRepo)
	validator := NewValidator(calc)
	f.svc = &rentalService{
		txr:         passthroughTxRunner{},
		requestRepo: f.reqRepo,
		itemRepo:    f.itemRepo,
		txRepo:      f.txRepo,
		roomRepo:    f.roomRepo,
		invRepo:     f.invRepo,
		ledger:      NewQuantityLedger(f.itemRepo, f.txRepo, validator),
		avail:       calc,
		schedule:    NewRoomSchedule(f.roomRepo),
		emailSvc:    f.emailSvc,
		now:         func() time.Time { return f.now },
	}
	return f
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	window := domain.Window{Start: mar(5), End: mar(10)}

	t.Run("ReserveHappyPath", func(t *testing.T) {
		f := newRentalFixture()
		inv := &domain.InventoryItem{ID: 1, Quantity: 10, AvailableForRent: true, Status: domain.InventoryStatusInStock}

		f.invRepo.On("GetForUpdate", ctx, int32(1)).Return(inv, nil)
		f.itemRepo.On("ListOverlapping", ctx, int32(1), window, int32(0)).
			Return([]repository.OverlappingLine{}, nil)
		f.reqRepo.On("Create", ctx, mock.AnythingOfType("*domain.RentalRequest")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.RentalRequest).ID = 10
			}).Return(nil)
		f.itemRepo.On("Create", ctx, mock.AnythingOfType("*domain.RentalItem")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.RentalItem).ID = 7
			}).Return(nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{}, nil)
		f.txRepo.On("Append", ctx, mock.AnythingOfType("*domain.RentalTransaction")).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, mock.AnythingOfType("*domain.RentalItem")).Return(nil)
		f.emailSvc.On("SendRequestConfirmation", ctx, "crew@example.org", "Studio shoot",
			mock.AnythingOfType("string"), window.Start, window.End).Return(nil)

		req, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID:       3,
			CreatedBy:    4,
			ContactEmail: "crew@example.org",
			ProjectName:  "Studio shoot",
			Window:       window,
			Items:        []ItemLine{{InventoryItemID: 1, Quantity: 4}},
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestStatusReserved, req.Status)
		assert.Equal(t, domain.RentalTypeEquipment, req.RentalType)
		assert.NotEmpty(t, req.Reference)
		assert.Nil(t, req.ActualStartDate)
		f.emailSvc.AssertExpectations(t)
	})

	t.Run("IssueNowEmitsReserveAndIssue", func(t *testing.T) {
		f := newRentalFixture()
		inv := &domain.InventoryItem{ID: 1, Quantity: 10, AvailableForRent: true, Status: domain.InventoryStatusInStock}

		var appended []domain.TransactionType
		f.invRepo.On("GetForUpdate", ctx, int32(1)).Return(inv, nil)
		f.itemRepo.On("ListOverlapping", ctx, int32(1), window, int32(0)).
			Return([]repository.OverlappingLine{}, nil)
		f.reqRepo.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.RentalRequest).ID = 10 }).Return(nil)
		f.itemRepo.On("Create", ctx, mock.Anything).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.RentalItem).ID = 7 }).Return(nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{}, nil).Once()
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 2},
		}, nil)
		f.txRepo.On("Append", ctx, mock.AnythingOfType("*domain.RentalTransaction")).
			Run(func(args mock.Arguments) {
				appended = append(appended, args.Get(1).(*domain.RentalTransaction).Type)
			}).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, mock.Anything).Return(nil)

		req, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID:        3,
			CreatedBy:     4,
			Window:        window,
			InitialAction: domain.InitialActionIssue,
			Items:         []ItemLine{{InventoryItemID: 1, Quantity: 2}},
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestStatusIssued, req.Status)
		assert.NotNil(t, req.ActualStartDate)
		assert.Equal(t, []domain.TransactionType{domain.TransactionTypeReserve, domain.TransactionTypeIssue}, appended)
	})

	t.Run("InsufficientAvailabilityRejectsWholeRequest", func(t *testing.T) {
		f := newRentalFixture()
		inv := &domain.InventoryItem{ID: 1, Quantity: 3, AvailableForRent: true, Status: domain.InventoryStatusInStock}

		f.invRepo.On("GetForUpdate", ctx, int32(1)).Return(inv, nil)
		f.itemRepo.On("ListOverlapping", ctx, int32(1), window, int32(0)).
			Return([]repository.OverlappingLine{
				{Status: domain.RequestStatusReserved, QuantityRequested: 2},
			}, nil)

		_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID:    3,
			CreatedBy: 4,
			Window:    window,
			Items:     []ItemLine{{InventoryItemID: 1, Quantity: 2}},
		})
		assert.True(t, errors.Is(err, domain.ErrInsufficientAvailability))
		var availErr *domain.AvailabilityError
		assert.True(t, errors.As(err, &availErr))
		assert.Equal(t, int32(1), availErr.Available)
		f.reqRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("OccupiedRoomRejectsWholeRequest", func(t *testing.T) {
		f := newRentalFixture()
		room := &domain.Room{ID: 2, Name: "Studio A", IsActive: true}

		f.roomRepo.On("GetForUpdate", ctx, int32(2)).Return(room, nil)
		f.roomRepo.On("ListConflicts", ctx, int32(2), window, int32(0)).
			Return([]domain.RoomConflict{{RequestID: 99, Status: domain.RequestStatusReserved}}, nil)

		_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID:    3,
			CreatedBy: 4,
			Window:    window,
			Rooms:     []RoomLine{{RoomID: 2, PeopleCount: 5}},
		})
		assert.True(t, errors.Is(err, domain.ErrInsufficientAvailability))
		f.reqRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("PastWindowRejected", func(t *testing.T) {
		f := newRentalFixture()
		_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID:    3,
			CreatedBy: 4,
			Window:    domain.Window{Start: mar(5).AddDate(-1, 0, 0), End: mar(10)},
			Items:     []ItemLine{{InventoryItemID: 1, Quantity: 1}},
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidWindow))
	})

	t.Run("EmptyRequestRejected", func(t *testing.T) {
		f := newRentalFixture()
		_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID: 3, CreatedBy: 4, Window: window,
		})
		assert.True(t, errors.Is(err, domain.ErrMalformedTransaction))
	})

	t.Run("DuplicateInventoryLineRejected", func(t *testing.T) {
		f := newRentalFixture()
		_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			UserID:    3,
			CreatedBy: 4,
			Window:    window,
			Items: []ItemLine{
				{InventoryItemID: 1, Quantity: 2},
				{InventoryItemID: 1, Quantity: 3},
			},
		})
		assert.True(t, errors.Is(err, domain.ErrMalformedTransaction))
		f.invRepo.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	})
}

func TestMutate(t *testing.T) {
	ctx := context.Background()

	t.Run("OverIssueRejected", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 10, InventoryItemID: 1, QuantityRequested: 4}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 4},
			{Type: domain.TransactionTypeIssue, Quantity: 2},
		}, nil)

		_, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7,
			Type: domain.TransactionTypeIssue, Quantity: 3, ActorID: 42,
		})
		assert.True(t, errors.Is(err, domain.ErrOverIssue))
		f.txRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("FinalReturnClosesRequest", func(t *testing.T) {
		f := newRentalFixture()
		performedAt := time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC)
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 10, InventoryItemID: 1,
			QuantityRequested: 4, QuantityIssued: 4, QuantityReturned: 1}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 4},
			{Type: domain.TransactionTypeIssue, Quantity: 4},
			{Type: domain.TransactionTypeReturn, Quantity: 1},
		}, nil)
		f.txRepo.On("Append", ctx, mock.AnythingOfType("*domain.RentalTransaction")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.RentalTransaction).PerformedAt = performedAt
			}).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).
			Return([]domain.RentalItem{{ID: 7, RequestID: 10, InventoryItemID: 1,
				QuantityRequested: 4, QuantityIssued: 4, QuantityReturned: 4}}, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).Return([]domain.RoomRental{}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		tx, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7,
			Type: domain.TransactionTypeReturn, Quantity: 3, ActorID: 42,
			Condition: domain.ReturnConditionGood,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.ReturnConditionGood, tx.Condition)
		assert.Equal(t, domain.RequestStatusReturned, req.Status)
		assert.NotNil(t, req.ActualEndDate)
		assert.Equal(t, performedAt, *req.ActualEndDate)
		assert.NotNil(t, item.ActualReturnDate)
	})

	t.Run("RoomOnlyRequestClosesOnReturn", func(t *testing.T) {
		f := newRentalFixture()
		performedAt := time.Date(2026, 2, 26, 18, 0, 0, 0, time.UTC)
		// window fully in the past relative to the fixture clock
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			RentalType:         domain.RentalTypeRoom,
			RequestedStartDate: mar(1).AddDate(0, 0, -10), RequestedEndDate: mar(1).AddDate(0, 0, -3)}
		room := &domain.Room{ID: 2, IsActive: true}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.roomRepo.On("GetForUpdate", ctx, int32(2)).Return(room, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).
			Return([]domain.RoomRental{{ID: 5, RequestID: 10, RoomID: 2}}, nil)
		f.txRepo.On("Append", ctx, mock.AnythingOfType("*domain.RentalTransaction")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.RentalTransaction).PerformedAt = performedAt
			}).Return(nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		tx, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RoomID: 2,
			Type: domain.TransactionTypeReturn, Quantity: 1, ActorID: 42,
		})
		assert.NoError(t, err)
		assert.NotNil(t, tx.RoomID)
		assert.Equal(t, domain.RequestStatusReturned, req.Status)
		assert.NotNil(t, req.ActualEndDate)
		assert.Equal(t, performedAt, *req.ActualEndDate)
	})

	t.Run("PartialReturnKeepsRequestIssued", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 10, InventoryItemID: 1,
			QuantityRequested: 4, QuantityIssued: 4}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 4},
			{Type: domain.TransactionTypeIssue, Quantity: 4},
		}, nil)
		f.txRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).
			Return([]domain.RentalItem{{ID: 7, RequestID: 10, InventoryItemID: 1,
				QuantityRequested: 4, QuantityIssued: 4, QuantityReturned: 1}}, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).Return([]domain.RoomRental{}, nil)

		_, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7,
			Type: domain.TransactionTypeReturn, Quantity: 1, ActorID: 42,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestStatusIssued, req.Status)
		f.reqRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("FirstIssuePromotesToIssued", func(t *testing.T) {
		f := newRentalFixture()
		performedAt := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 10, InventoryItemID: 1, QuantityRequested: 4}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 4},
		}, nil)
		f.txRepo.On("Append", ctx, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.RentalTransaction).PerformedAt = performedAt
			}).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).
			Return([]domain.RentalItem{{ID: 7, RequestID: 10, InventoryItemID: 1,
				QuantityRequested: 4, QuantityIssued: 2}}, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).Return([]domain.RoomRental{}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		_, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7,
			Type: domain.TransactionTypeIssue, Quantity: 2, ActorID: 42,
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestStatusIssued, req.Status)
		assert.NotNil(t, req.ActualStartDate)
		assert.Equal(t, performedAt, *req.ActualStartDate)
	})

	t.Run("TerminalRequestRejected", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusCancelled}
		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)

		_, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7,
			Type: domain.TransactionTypeIssue, Quantity: 1, ActorID: 42,
		})
		assert.True(t, errors.Is(err, domain.ErrInvalidState))
	})

	t.Run("ItemOfAnotherRequestRejected", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 99, InventoryItemID: 1, QuantityRequested: 4}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)

		_, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7,
			Type: domain.TransactionTypeIssue, Quantity: 1, ActorID: 42,
		})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("BothTargetsRejected", func(t *testing.T) {
		f := newRentalFixture()
		_, err := f.svc.Mutate(ctx, MutateInput{
			RequestID: 10, RentalItemID: 7, RoomID: 2,
			Type: domain.TransactionTypeIssue, Quantity: 1, ActorID: 42,
		})
		assert.True(t, errors.Is(err, domain.ErrMalformedTransaction))

		_, err = f.svc.Mutate(ctx, MutateInput{
			RequestID: 10,
			Type:      domain.TransactionTypeIssue, Quantity: 1, ActorID: 42,
		})
		assert.True(t, errors.Is(err, domain.ErrMalformedTransaction))
	})
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("ReconcilesOutstandingBalances", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Reference: "ref-1", Status: domain.RequestStatusIssued,
			ContactEmail:       "crew@example.org",
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 10, InventoryItemID: 1,
			QuantityRequested: 5, QuantityIssued: 3}

		var appended []domain.RentalTransaction
		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{*item}, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)
		// reserved balance 2 = reserve 5 − issue 3
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 5},
			{Type: domain.TransactionTypeIssue, Quantity: 3},
		}, nil)
		f.txRepo.On("Append", ctx, mock.AnythingOfType("*domain.RentalTransaction")).
			Run(func(args mock.Arguments) {
				appended = append(appended, *args.Get(1).(*domain.RentalTransaction))
			}).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).
			Return([]domain.RoomRental{{ID: 1, RequestID: 10, RoomID: 2}}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)
		f.emailSvc.On("SendRequestCancelled", ctx, "crew@example.org", "", "ref-1").Return(nil)

		err := f.svc.CancelRequest(ctx, 10, 42)
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestStatusCancelled, req.Status)
		assert.NotNil(t, req.ActualEndDate)

		// cancel the reserved remainder, return the issued units, close the room
		assert.Len(t, appended, 3)
		assert.Equal(t, domain.TransactionTypeCancel, appended[0].Type)
		assert.Equal(t, int32(2), appended[0].Quantity)
		assert.Equal(t, domain.TransactionTypeReturn, appended[1].Type)
		assert.Equal(t, int32(3), appended[1].Quantity)
		assert.Equal(t, domain.TransactionTypeReturn, appended[2].Type)
		assert.NotNil(t, appended[2].RoomID)
		f.emailSvc.AssertExpectations(t)
	})

	t.Run("AlreadyTerminalRejected", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusReturned}
		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)

		err := f.svc.CancelRequest(ctx, 10, 42)
		assert.True(t, errors.Is(err, domain.ErrInvalidState))
	})

	t.Run("ReservedOnlyCancelsRoomsAsCancel", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}

		var appended []domain.RentalTransaction
		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{}, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).
			Return([]domain.RoomRental{{ID: 1, RequestID: 10, RoomID: 2}}, nil)
		f.txRepo.On("Append", ctx, mock.AnythingOfType("*domain.RentalTransaction")).
			Run(func(args mock.Arguments) {
				appended = append(appended, *args.Get(1).(*domain.RentalTransaction))
			}).Return(nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		err := f.svc.CancelRequest(ctx, 10, 42)
		assert.NoError(t, err)
		assert.Len(t, appended, 1)
		assert.Equal(t, domain.TransactionTypeCancel, appended[0].Type)
	})
}

func TestExtendRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("EndMustMoveForward", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)

		err := f.svc.ExtendRequest(ctx, 10, mar(8), 42)
		assert.True(t, errors.Is(err, domain.ErrInvalidWindow))
	})

	t.Run("TailValidatedAgainstOtherBookings", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		tail := domain.Window{Start: mar(10), End: mar(15)}
		inv := &domain.InventoryItem{ID: 1, Quantity: 3, AvailableForRent: true, Status: domain.InventoryStatusInStock}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{
			{ID: 7, RequestID: 10, InventoryItemID: 1, QuantityRequested: 3, QuantityIssued: 3},
		}, nil)
		f.invRepo.On("GetByID", ctx, int32(1)).Return(inv, nil)
		// another request holds the stock during the extension tail
		f.itemRepo.On("ListOverlapping", ctx, int32(1), tail, int32(10)).
			Return([]repository.OverlappingLine{
				{Status: domain.RequestStatusReserved, QuantityRequested: 2},
			}, nil)

		err := f.svc.ExtendRequest(ctx, 10, mar(15), 42)
		assert.True(t, errors.Is(err, domain.ErrInsufficientAvailability))
		assert.Equal(t, mar(10), req.RequestedEndDate)
	})

	t.Run("FreeTailExtends", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		tail := domain.Window{Start: mar(10), End: mar(15)}
		inv := &domain.InventoryItem{ID: 1, Quantity: 5, AvailableForRent: true, Status: domain.InventoryStatusInStock}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{
			{ID: 7, RequestID: 10, InventoryItemID: 1, QuantityRequested: 3, QuantityIssued: 3},
		}, nil)
		f.invRepo.On("GetByID", ctx, int32(1)).Return(inv, nil)
		f.itemRepo.On("ListOverlapping", ctx, int32(1), tail, int32(10)).
			Return([]repository.OverlappingLine{}, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).Return([]domain.RoomRental{}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		err := f.svc.ExtendRequest(ctx, 10, mar(15), 42)
		assert.NoError(t, err)
		assert.Equal(t, mar(15), req.RequestedEndDate)
	})

	t.Run("RoomConflictInTailRejected", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		tail := domain.Window{Start: mar(10), End: mar(15)}

		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{}, nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).
			Return([]domain.RoomRental{{ID: 1, RequestID: 10, RoomID: 2}}, nil)
		f.roomRepo.On("ListConflicts", ctx, int32(2), tail, int32(10)).
			Return([]domain.RoomConflict{{RequestID: 99}}, nil)

		err := f.svc.ExtendRequest(ctx, 10, mar(15), 42)
		assert.True(t, errors.Is(err, domain.ErrInsufficientAvailability))
	})
}

func TestExpireOverdue(t *testing.T) {
	ctx := context.Background()
	sweepAt := time.Date(2026, 3, 20, 3, 0, 0, 0, time.UTC)

	t.Run("IssuedRequestEndsReturned", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 10, Status: domain.RequestStatusIssued,
			CreatedBy:          4,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 7, RequestID: 10, InventoryItemID: 1,
			QuantityRequested: 3, QuantityIssued: 3}

		f.reqRepo.On("ListExpiredActive", ctx, sweepAt).Return([]domain.RentalRequest{*req}, nil)
		f.reqRepo.On("GetForUpdate", ctx, int32(10)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(10)).Return([]domain.RentalItem{*item}, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(7)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(7)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 3},
			{Type: domain.TransactionTypeIssue, Quantity: 3},
		}, nil)
		f.txRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(10)).Return([]domain.RoomRental{}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		count, err := f.svc.ExpireOverdue(ctx, sweepAt)
		assert.NoError(t, err)
		assert.Equal(t, int32(1), count)
		assert.Equal(t, domain.RequestStatusReturned, req.Status)
		assert.NotNil(t, req.ActualEndDate)
	})

	t.Run("NeverIssuedEndsCancelled", func(t *testing.T) {
		f := newRentalFixture()
		req := &domain.RentalRequest{ID: 11, Status: domain.RequestStatusReserved,
			CreatedBy:          4,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 8, RequestID: 11, InventoryItemID: 1, QuantityRequested: 2}

		f.reqRepo.On("ListExpiredActive", ctx, sweepAt).Return([]domain.RentalRequest{*req}, nil)
		f.reqRepo.On("GetForUpdate", ctx, int32(11)).Return(req, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(11)).Return([]domain.RentalItem{*item}, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(8)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(8)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 2},
		}, nil)
		f.txRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(11)).Return([]domain.RoomRental{}, nil)
		f.reqRepo.On("Update", ctx, req).Return(nil)

		count, err := f.svc.ExpireOverdue(ctx, sweepAt)
		assert.NoError(t, err)
		assert.Equal(t, int32(1), count)
		assert.Equal(t, domain.RequestStatusCancelled, req.Status)
	})

	t.Run("FailingCandidateDoesNotStopSweep", func(t *testing.T) {
		f := newRentalFixture()
		poisoned := domain.RentalRequest{ID: 20, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		healthy := &domain.RentalRequest{ID: 21, Status: domain.RequestStatusReserved,
			CreatedBy:          4,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		item := &domain.RentalItem{ID: 9, RequestID: 21, InventoryItemID: 1, QuantityRequested: 2}

		f.reqRepo.On("ListExpiredActive", ctx, sweepAt).Return([]domain.RentalRequest{poisoned, *healthy}, nil)
		f.reqRepo.On("GetForUpdate", ctx, int32(20)).Return(nil, errors.New("deadlock detected"))
		f.reqRepo.On("GetForUpdate", ctx, int32(21)).Return(healthy, nil)
		f.itemRepo.On("ListByRequest", ctx, int32(21)).Return([]domain.RentalItem{*item}, nil)
		f.itemRepo.On("GetForUpdate", ctx, int32(9)).Return(item, nil)
		f.txRepo.On("ListByItem", ctx, int32(9)).Return([]domain.RentalTransaction{
			{Type: domain.TransactionTypeReserve, Quantity: 2},
		}, nil)
		f.txRepo.On("Append", ctx, mock.Anything).Return(nil)
		f.itemRepo.On("UpdateSnapshot", ctx, item).Return(nil)
		f.roomRepo.On("ListRoomRentalsByRequest", ctx, int32(21)).Return([]domain.RoomRental{}, nil)
		f.reqRepo.On("Update", ctx, healthy).Return(nil)

		count, err := f.svc.ExpireOverdue(ctx, sweepAt)
		assert.NoError(t, err)
		assert.Equal(t, int32(1), count)
		assert.Equal(t, domain.RequestStatusCancelled, healthy.Status)
	})

	t.Run("ExtendedSinceListingIsSkipped", func(t *testing.T) {
		f := newRentalFixture()
		listed := domain.RentalRequest{ID: 12, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(10)}
		// by the time the lock is taken, the request was extended
		current := &domain.RentalRequest{ID: 12, Status: domain.RequestStatusReserved,
			RequestedStartDate: mar(1), RequestedEndDate: mar(30)}

		f.reqRepo.On("ListExpiredActive", ctx, sweepAt).Return([]domain.RentalRequest{listed}, nil)
		f.reqRepo.On("GetForUpdate", ctx, int32(12)).Return(current, nil)

		count, err := f.svc.ExpireOverdue(ctx, sweepAt)
		assert.NoError(t, err)
		assert.Equal(t, int32(0), count)
		f.reqRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
