package service

import (
	"context"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/logger"
)

// lineState pairs an item snapshot with its ledger-derived reserved balance
// for lifecycle evaluation.
type lineState struct {
	item     domain.RentalItem
	reserved int32
}

func (l lineState) settled() bool {
	return l.reserved == 0 && l.item.OutstandingToReturn() == 0
}

// requestCloses decides the automatic transition to RETURNED: every item
// settled, at least one unit ever issued, and no room still inside its active
// window. Partial returns keep the request where it is. The issued guard keeps
// a freshly reserved request (all balances zero) from closing instantly; it
// only applies when item lines exist, since a room-only request has nothing
// to issue and closes once its window has passed.
func requestCloses(lines []lineState, rooms []domain.RoomRental, windowEnd time.Time, now time.Time) bool {
	anyIssued := len(lines) == 0
	for _, l := range lines {
		if !l.settled() {
			return false
		}
		if l.item.QuantityIssued > 0 {
			anyIssued = true
		}
	}
	if !anyIssued {
		return false
	}
	if len(rooms) > 0 && now.Before(windowEnd) {
		return false
	}
	return true
}

// refreshStatus is the single state-transition authority: it re-derives the
// request status from aggregate item and room state after every ledger
// mutation, instead of scattering transitions across call sites. It must run
// inside the same transaction as the mutation it follows.
func (s *rentalService) refreshStatus(ctx context.Context, req *domain.RentalRequest, lastTx *domain.RentalTransaction, now time.Time) error {
	items, err := s.itemRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	rooms, err := s.roomRepo.ListRoomRentalsByRequest(ctx, req.ID)
	if err != nil {
		return err
	}

	lines := make([]lineState, 0, len(items))
	for _, item := range items {
		reserved, err := s.ledger.ReservedBalance(ctx, item.ID)
		if err != nil {
			return err
		}
		lines = append(lines, lineState{item: item, reserved: reserved})
	}

	before := req.Status

	if req.Status == domain.RequestStatusReserved && lastTx != nil && lastTx.Type == domain.TransactionTypeIssue {
		req.Status = domain.RequestStatusIssued
		if req.ActualStartDate == nil {
			at := lastTx.PerformedAt
			req.ActualStartDate = &at
		}
	}

	if req.Status == domain.RequestStatusIssued && requestCloses(lines, rooms, req.RequestedEndDate, now) {
		req.Status = domain.RequestStatusReturned
		if req.ActualEndDate == nil {
			at := now
			if lastTx != nil {
				at = lastTx.PerformedAt
			}
			req.ActualEndDate = &at
		}
	}

	if req.Status == before {
		return nil
	}
	logger.Info("request status transition",
		"request_id", req.ID, "reference", req.Reference, "from", before, "to", req.Status)
	return s.requestRepo.Update(ctx, req)
}
