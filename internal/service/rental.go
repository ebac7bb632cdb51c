package service

import (
	"context"
	"fmt"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/logger"
	"openchannel-rental-backend/internal/repository"

	"github.com/google/uuid"
)

type rentalService struct {
	txr         repository.TxRunner
	requestRepo repository.RequestRepository
	itemRepo    repository.ItemRepository
	txRepo      repository.TransactionRepository
	roomRepo    repository.RoomRepository
	invRepo     repository.InventoryRepository
	ledger      *QuantityLedger
	avail       *AvailabilityCalculator
	schedule    *RoomSchedule
	emailSvc    EmailService
	now         func() time.Time
}

func NewRentalService(
	txr repository.TxRunner,
	requestRepo repository.RequestRepository,
	itemRepo repository.ItemRepository,
	txRepo repository.TransactionRepository,
	roomRepo repository.RoomRepository,
	invRepo repository.InventoryRepository,
	ledger *QuantityLedger,
	avail *AvailabilityCalculator,
	schedule *RoomSchedule,
	emailSvc EmailService,
) RentalService {
	return &rentalService{
		txr:         txr,
		requestRepo: requestRepo,
		itemRepo:    itemRepo,
		txRepo:      txRepo,
		roomRepo:    roomRepo,
		invRepo:     invRepo,
		ledger:      ledger,
		avail:       avail,
		schedule:    schedule,
		emailSvc:    emailSvc,
		now:         time.Now,
	}
}

func deriveRentalType(itemCount, roomCount int) domain.RentalType {
	switch {
	case itemCount > 0 && roomCount > 0:
		return domain.RentalTypeMixed
	case roomCount > 0:
		return domain.RentalTypeRoom
	default:
		return domain.RentalTypeEquipment
	}
}

// CreateRequest validates the window and every requested line before
// committing any of them, then emits the initial reserve (and, for issue-now,
// issue) transactions. All-or-nothing: one bad line rejects the whole request.
func (s *rentalService) CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.RentalRequest, error) {
	now := s.now()
	if err := input.Window.Validate(now); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 && len(input.Rooms) == 0 {
		return nil, fmt.Errorf("%w: request has no items and no rooms", domain.ErrMalformedTransaction)
	}
	if input.InitialAction == "" {
		input.InitialAction = domain.InitialActionReserve
	}
	if input.InitialAction != domain.InitialActionReserve && input.InitialAction != domain.InitialActionIssue {
		return nil, fmt.Errorf("%w: unknown initial action %q", domain.ErrMalformedTransaction, input.InitialAction)
	}
	seen := make(map[int32]bool, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrMalformedTransaction, line.Quantity)
		}
		if seen[line.InventoryItemID] {
			return nil, fmt.Errorf("%w: inventory item %d listed more than once", domain.ErrMalformedTransaction, line.InventoryItemID)
		}
		seen[line.InventoryItemID] = true
	}

	var req *domain.RentalRequest
	err := s.txr.WithTx(ctx, func(ctx context.Context) error {
		// Lock and check every line up front so nothing is written for a
		// request that fails on its last line.
		lockedInv := make([]*domain.InventoryItem, len(input.Items))
		for i, line := range input.Items {
			inv, err := s.invRepo.GetForUpdate(ctx, line.InventoryItemID)
			if err != nil {
				return err
			}
			free, err := s.avail.AvailableLocked(ctx, inv, &input.Window, 0)
			if err != nil {
				return err
			}
			if line.Quantity > free {
				return &domain.AvailabilityError{InventoryItemID: inv.ID, Requested: line.Quantity, Available: free}
			}
			lockedInv[i] = inv
		}
		for _, line := range input.Rooms {
			room, err := s.roomRepo.GetForUpdate(ctx, line.RoomID)
			if err != nil {
				return err
			}
			available, conflicts, err := s.schedule.IsAvailable(ctx, room, input.Window, 0, now)
			if err != nil {
				return err
			}
			if !available {
				return &domain.RoomOccupiedError{RoomID: room.ID, Conflicts: conflicts}
			}
		}

		req = &domain.RentalRequest{
			Reference:          uuid.NewString(),
			UserID:             input.UserID,
			CreatedBy:          input.CreatedBy,
			ContactEmail:       input.ContactEmail,
			ProjectName:        input.ProjectName,
			Purpose:            input.Purpose,
			Notes:              input.Notes,
			RequestedStartDate: input.Window.Start,
			RequestedEndDate:   input.Window.End,
			Status:             domain.RequestStatusReserved,
			RentalType:         deriveRentalType(len(input.Items), len(input.Rooms)),
		}
		if input.InitialAction == domain.InitialActionIssue {
			req.Status = domain.RequestStatusIssued
			start := now
			req.ActualStartDate = &start
		}
		if err := s.requestRepo.Create(ctx, req); err != nil {
			return err
		}

		for i, line := range input.Items {
			item := &domain.RentalItem{
				RequestID:         req.ID,
				InventoryItemID:   lockedInv[i].ID,
				QuantityRequested: line.Quantity,
			}
			if err := s.itemRepo.Create(ctx, item); err != nil {
				return err
			}
			if _, err := s.ledger.Append(ctx, req, item, domain.TransactionTypeReserve, line.Quantity, input.CreatedBy, "", ""); err != nil {
				return err
			}
			if input.InitialAction == domain.InitialActionIssue {
				if _, err := s.ledger.Append(ctx, req, item, domain.TransactionTypeIssue, line.Quantity, input.CreatedBy, "", ""); err != nil {
					return err
				}
			}
		}
		for _, line := range input.Rooms {
			rr := &domain.RoomRental{
				RequestID:   req.ID,
				RoomID:      line.RoomID,
				PeopleCount: line.PeopleCount,
				Notes:       line.Notes,
			}
			if err := s.roomRepo.CreateRoomRental(ctx, rr); err != nil {
				return err
			}
			if _, err := s.ledger.AppendRoom(ctx, req, line.RoomID, domain.TransactionTypeReserve, input.CreatedBy, ""); err != nil {
				return err
			}
			if input.InitialAction == domain.InitialActionIssue {
				if _, err := s.ledger.AppendRoom(ctx, req, line.RoomID, domain.TransactionTypeIssue, input.CreatedBy, ""); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("rental request created",
		"request_id", req.ID, "reference", req.Reference, "status", req.Status,
		"rental_type", req.RentalType, "items", len(input.Items), "rooms", len(input.Rooms))
	s.notifyConfirmation(ctx, req)
	return req, nil
}

// Mutate proposes one ledger transaction against a line of an active request.
// The targeted rows are locked for the duration of the database transaction,
// so validation and append commit as one unit.
func (s *rentalService) Mutate(ctx context.Context, input MutateInput) (*domain.RentalTransaction, error) {
	if (input.RentalItemID == 0) == (input.RoomID == 0) {
		return nil, fmt.Errorf("%w: exactly one of rental item or room must be targeted", domain.ErrMalformedTransaction)
	}

	var result *domain.RentalTransaction
	var req *domain.RentalRequest
	err := s.txr.WithTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requestRepo.GetForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if !req.Status.IsActive() {
			return &domain.InvalidStateError{RequestID: req.ID, Status: req.Status, Operation: string(input.Type)}
		}

		if input.RentalItemID != 0 {
			item, err := s.itemRepo.GetForUpdate(ctx, input.RentalItemID)
			if err != nil {
				return err
			}
			if item.RequestID != req.ID {
				return domain.ErrNotFound
			}
			if input.Type == domain.TransactionTypeReserve {
				// serialize against concurrent reservations of the same stock
				if _, err := s.invRepo.GetForUpdate(ctx, item.InventoryItemID); err != nil {
					return err
				}
			}
			result, err = s.ledger.Append(ctx, req, item, input.Type, input.Quantity, input.ActorID, input.Condition, input.Notes)
			if err != nil {
				return err
			}
		} else {
			result, err = s.mutateRoom(ctx, req, input)
			if err != nil {
				return err
			}
		}
		return s.refreshStatus(ctx, req, result, s.now())
	})
	if err != nil {
		return nil, err
	}
	if req.Status == domain.RequestStatusReturned {
		s.notifyClosed(ctx, req)
	}
	return result, nil
}

func (s *rentalService) mutateRoom(ctx context.Context, req *domain.RentalRequest, input MutateInput) (*domain.RentalTransaction, error) {
	room, err := s.roomRepo.GetForUpdate(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}
	rentals, err := s.roomRepo.ListRoomRentalsByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	var booked bool
	for _, rr := range rentals {
		if rr.RoomID == room.ID {
			booked = true
			break
		}
	}
	if !booked {
		if input.Type != domain.TransactionTypeReserve {
			return nil, domain.ErrNotFound
		}
		// reserving a room mid-request attaches it, gated by the schedule
		available, conflicts, err := s.schedule.IsAvailable(ctx, room, req.Window(), req.ID, s.now())
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, &domain.RoomOccupiedError{RoomID: room.ID, Conflicts: conflicts}
		}
		rr := &domain.RoomRental{RequestID: req.ID, RoomID: room.ID, Notes: input.Notes}
		if err := s.roomRepo.CreateRoomRental(ctx, rr); err != nil {
			return nil, err
		}
		if req.RentalType == domain.RentalTypeEquipment {
			req.RentalType = domain.RentalTypeMixed
		}
	}
	return s.ledger.AppendRoom(ctx, req, room.ID, input.Type, input.ActorID, input.Notes)
}

// CancelRequest reconciles every outstanding balance and moves the request to
// CANCELLED: reserved balances are settled with cancel transactions, already
// issued quantity with return transactions, so no dangling balance survives.
func (s *rentalService) CancelRequest(ctx context.Context, requestID, actorID int32) error {
	var req *domain.RentalRequest
	err := s.txr.WithTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.requestRepo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.IsActive() {
			return &domain.InvalidStateError{RequestID: req.ID, Status: req.Status, Operation: "cancel"}
		}
		if err := s.settleRequest(ctx, req, actorID, "settled on cancellation"); err != nil {
			return err
		}
		now := s.now()
		req.Status = domain.RequestStatusCancelled
		if req.ActualEndDate == nil {
			req.ActualEndDate = &now
		}
		return s.requestRepo.Update(ctx, req)
	})
	if err != nil {
		return err
	}

	logger.Info("rental request cancelled", "request_id", req.ID, "reference", req.Reference)
	s.notifyCancelled(ctx, req)
	return nil
}

// settleRequest drives every item to zero reserved balance and zero
// outstanding returns, and closes out each booked room. Must run with the
// request row locked.
func (s *rentalService) settleRequest(ctx context.Context, req *domain.RentalRequest, actorID int32, note string) error {
	items, err := s.itemRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	for i := range items {
		item, err := s.itemRepo.GetForUpdate(ctx, items[i].ID)
		if err != nil {
			return err
		}
		reserved, err := s.ledger.ReservedBalance(ctx, item.ID)
		if err != nil {
			return err
		}
		if reserved > 0 {
			if _, err := s.ledger.Append(ctx, req, item, domain.TransactionTypeCancel, reserved, actorID, "", note); err != nil {
				return err
			}
		}
		if out := item.OutstandingToReturn(); out > 0 {
			if _, err := s.ledger.Append(ctx, req, item, domain.TransactionTypeReturn, out, actorID, "", note); err != nil {
				return err
			}
		}
	}

	rooms, err := s.roomRepo.ListRoomRentalsByRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	roomTxType := domain.TransactionTypeCancel
	if req.Status == domain.RequestStatusIssued {
		roomTxType = domain.TransactionTypeReturn
	}
	for _, rr := range rooms {
		if _, err := s.ledger.AppendRoom(ctx, req, rr.RoomID, roomTxType, actorID, note); err != nil {
			return err
		}
	}
	return nil
}

// ExtendRequest widens the reservation window. The extension tail
// [current end, new end) is re-validated against other bookings before the
// window moves, for both equipment lines and rooms.
func (s *rentalService) ExtendRequest(ctx context.Context, requestID int32, newEndDate time.Time, actorID int32) error {
	return s.txr.WithTx(ctx, func(ctx context.Context) error {
		req, err := s.requestRepo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.IsActive() {
			return &domain.InvalidStateError{RequestID: req.ID, Status: req.Status, Operation: "extend"}
		}
		if !newEndDate.After(req.RequestedEndDate) {
			return &domain.InvalidWindowError{Start: req.RequestedStartDate, End: newEndDate,
				Reason: "extended end date must be after the current end date"}
		}

		tail := domain.Window{Start: req.RequestedEndDate, End: newEndDate}
		items, err := s.itemRepo.ListByRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			demand := item.OutstandingToReturn()
			if req.Status == domain.RequestStatusReserved {
				demand = item.QuantityRequested - item.QuantityIssued
			}
			if demand <= 0 {
				continue
			}
			free, err := s.avail.Available(ctx, item.InventoryItemID, &tail, req.ID)
			if err != nil {
				return err
			}
			if demand > free {
				return &domain.AvailabilityError{InventoryItemID: item.InventoryItemID, Requested: demand, Available: free}
			}
		}
		rooms, err := s.roomRepo.ListRoomRentalsByRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		for _, rr := range rooms {
			conflicts, err := s.schedule.Conflicts(ctx, rr.RoomID, tail, req.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &domain.RoomOccupiedError{RoomID: rr.RoomID, Conflicts: conflicts}
			}
		}

		logger.Info("rental request extended",
			"request_id", req.ID, "old_end", req.RequestedEndDate, "new_end", newEndDate, "actor", actorID)
		req.RequestedEndDate = newEndDate
		return s.requestRepo.Update(ctx, req)
	})
}

// ExpireOverdue walks active requests whose window has fully passed and forces
// the same reconciliation cancellation performs, finishing in RETURNED when
// anything was ever issued and CANCELLED otherwise. Invoked by the scheduled
// sweep, not by interactive callers.
func (s *rentalService) ExpireOverdue(ctx context.Context, now time.Time) (int32, error) {
	expired, err := s.requestRepo.ListExpiredActive(ctx, now)
	if err != nil {
		return 0, err
	}
	var count int32
	for _, candidate := range expired {
		err := s.txr.WithTx(ctx, func(ctx context.Context) error {
			req, err := s.requestRepo.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !req.Status.IsActive() || req.RequestedEndDate.After(now) {
				// resolved or extended since the sweep listed it
				return nil
			}
			if err := s.settleRequest(ctx, req, req.CreatedBy, "settled by expiry sweep"); err != nil {
				return err
			}
			items, err := s.itemRepo.ListByRequest(ctx, req.ID)
			if err != nil {
				return err
			}
			final := domain.RequestStatusCancelled
			for _, item := range items {
				if item.QuantityIssued > 0 {
					final = domain.RequestStatusReturned
					break
				}
			}
			if req.Status == domain.RequestStatusIssued {
				final = domain.RequestStatusReturned
			}
			req.Status = final
			if req.ActualEndDate == nil {
				end := now
				req.ActualEndDate = &end
			}
			count++
			return s.requestRepo.Update(ctx, req)
		})
		if err != nil {
			// one poisoned request must not starve the rest of the sweep
			logger.Error("failed to expire rental request", "request_id", candidate.ID, "error", err)
			continue
		}
	}
	return count, nil
}

func (s *rentalService) GetRequest(ctx context.Context, requestID int32) (*RequestDetail, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.roomRepo.ListRoomRentalsByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: *req, Items: items, Rooms: rooms}, nil
}

func (s *rentalService) ListRequests(ctx context.Context, userID int32, status string, page, pageSize int32) ([]domain.RentalRequest, int32, error) {
	return s.requestRepo.List(ctx, userID, status, page, pageSize)
}

func (s *rentalService) ListItemTransactions(ctx context.Context, itemID int32) ([]domain.RentalTransaction, error) {
	return s.txRepo.ListByItem(ctx, itemID)
}

func (s *rentalService) notifyConfirmation(ctx context.Context, req *domain.RentalRequest) {
	if s.emailSvc == nil || req.ContactEmail == "" {
		return
	}
	if err := s.emailSvc.SendRequestConfirmation(ctx, req.ContactEmail, req.ProjectName, req.Reference,
		req.RequestedStartDate, req.RequestedEndDate); err != nil {
		logger.Warn("failed to send confirmation email", "request_id", req.ID, "error", err)
	}
}

func (s *rentalService) notifyCancelled(ctx context.Context, req *domain.RentalRequest) {
	if s.emailSvc == nil || req.ContactEmail == "" {
		return
	}
	if err := s.emailSvc.SendRequestCancelled(ctx, req.ContactEmail, req.ProjectName, req.Reference); err != nil {
		logger.Warn("failed to send cancellation email", "request_id", req.ID, "error", err)
	}
}

func (s *rentalService) notifyClosed(ctx context.Context, req *domain.RentalRequest) {
	if s.emailSvc == nil || req.ContactEmail == "" {
		return
	}
	if err := s.emailSvc.SendRequestClosed(ctx, req.ContactEmail, req.ProjectName, req.Reference); err != nil {
		logger.Warn("failed to send closure email", "request_id", req.ID, "error", err)
	}
}
