package service

import (
	"context"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/repository"
)

// AvailabilityCalculator answers "how many units of inventory item X are free
// for window [start, end)" by folding the still-conflicting demand of every
// other active request overlapping the window. A single global counter cannot
// express per-period availability when bookings are sequential, so the scan is
// the source of truth and any cached catalog counters are derived from it.
type AvailabilityCalculator struct {
	itemRepo repository.ItemRepository
	invRepo  repository.InventoryRepository
}

func NewAvailabilityCalculator(itemRepo repository.ItemRepository, invRepo repository.InventoryRepository) *AvailabilityCalculator {
	return &AvailabilityCalculator{itemRepo: itemRepo, invRepo: invRepo}
}

// ConflictingDemand folds overlapping lines into the unit count they still
// hold against the queried window: the not-yet-issued portion of reserved
// requests plus the checked-out-not-returned portion of issued ones.
func ConflictingDemand(lines []repository.OverlappingLine) int32 {
	var demand int32
	for _, line := range lines {
		switch line.Status {
		case domain.RequestStatusReserved:
			demand += line.QuantityRequested - line.QuantityIssued
		case domain.RequestStatusIssued:
			demand += line.QuantityIssued - line.QuantityReturned
		}
	}
	return demand
}

// globalWindow spans all representable bookings; scanning it degrades the
// windowed fold to the global snapshot.
func globalWindow() domain.Window {
	return domain.Window{
		Start: time.Time{},
		End:   time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Available computes free units for the window, excluding the lines of
// excludeRequestID (0 excludes nothing). The caller is responsible for window
// sanity; zero-length and inverted windows are rejected upstream.
func (c *AvailabilityCalculator) Available(ctx context.Context, inventoryItemID int32, window *domain.Window, excludeRequestID int32) (int32, error) {
	inv, err := c.invRepo.GetByID(ctx, inventoryItemID)
	if err != nil {
		return 0, err
	}
	return c.availableOf(ctx, inv, window, excludeRequestID)
}

// AvailableLocked is Available against an already-locked catalog row; used on
// the reserve path where the caller holds the FOR UPDATE lock.
func (c *AvailabilityCalculator) AvailableLocked(ctx context.Context, inv *domain.InventoryItem, window *domain.Window, excludeRequestID int32) (int32, error) {
	return c.availableOf(ctx, inv, window, excludeRequestID)
}

func (c *AvailabilityCalculator) availableOf(ctx context.Context, inv *domain.InventoryItem, window *domain.Window, excludeRequestID int32) (int32, error) {
	if !inv.AvailableForRent || inv.Status == domain.InventoryStatusRetired {
		return 0, nil
	}
	scan := globalWindow()
	if window != nil {
		scan = *window
	}
	lines, err := c.itemRepo.ListOverlapping(ctx, inv.ID, scan, excludeRequestID)
	if err != nil {
		return 0, err
	}
	free := inv.Quantity - ConflictingDemand(lines)
	if free < 0 {
		free = 0
	}
	return free, nil
}

type availabilityService struct {
	calc *AvailabilityCalculator
}

func NewAvailabilityService(calc *AvailabilityCalculator) AvailabilityService {
	return &availabilityService{calc: calc}
}

func (s *availabilityService) GetAvailability(ctx context.Context, inventoryItemID int32, window *domain.Window) (int32, error) {
	if window != nil && !window.End.After(window.Start) {
		return 0, &domain.InvalidWindowError{Start: window.Start, End: window.End, Reason: "end date must be after start date"}
	}
	return s.calc.Available(ctx, inventoryItemID, window, 0)
}
