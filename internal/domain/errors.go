package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel validation errors. Handlers match on these with errors.Is; the
// concrete error types below carry the detail a caller needs to correct the
// request.
var (
	ErrInvalidWindow            = errors.New("invalid reservation window")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrOverReservation          = errors.New("reservation exceeds outstanding request")
	ErrOverIssue                = errors.New("issue exceeds reserved or requested quantity")
	ErrOverReturn               = errors.New("return exceeds outstanding issued quantity")
	ErrOverCancel               = errors.New("cancel exceeds reserved balance")
	ErrInvalidState             = errors.New("request state does not permit this operation")
	ErrMalformedTransaction     = errors.New("malformed transaction")
	ErrNotFound                 = errors.New("not found")
)

type InvalidWindowError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid reservation window [%s, %s): %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Reason)
}

func (e *InvalidWindowError) Unwrap() error { return ErrInvalidWindow }

// BalanceError is an over-* violation: the proposed quantity exceeds what
// the current balances permit.
type BalanceError struct {
	Kind      error // one of ErrOverReservation, ErrOverIssue, ErrOverReturn, ErrOverCancel
	ItemID    int32
	Requested int32
	Allowed   int32
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s: item %d: requested %d, allowed %d", e.Kind, e.ItemID, e.Requested, e.Allowed)
}

func (e *BalanceError) Unwrap() error { return e.Kind }

type AvailabilityError struct {
	InventoryItemID int32
	Requested       int32
	Available       int32
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("insufficient availability: inventory item %d: requested %d, available %d",
		e.InventoryItemID, e.Requested, e.Available)
}

func (e *AvailabilityError) Unwrap() error { return ErrInsufficientAvailability }

type RoomOccupiedError struct {
	RoomID    int32
	Conflicts []RoomConflict
}

func (e *RoomOccupiedError) Error() string {
	return fmt.Sprintf("insufficient availability: room %d occupied by %d overlapping booking(s)",
		e.RoomID, len(e.Conflicts))
}

func (e *RoomOccupiedError) Unwrap() error { return ErrInsufficientAvailability }

type InvalidStateError struct {
	RequestID int32
	Status    RequestStatus
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("request %d is %s: operation %q not permitted", e.RequestID, e.Status, e.Operation)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
