package domain

import "time"

type RequestStatus string

const (
	RequestStatusDraft     RequestStatus = "DRAFT"
	RequestStatusReserved  RequestStatus = "RESERVED"
	RequestStatusIssued    RequestStatus = "ISSUED"
	RequestStatusReturned  RequestStatus = "RETURNED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// IsActive reports whether the request still accepts ledger mutations.
// Terminal requests (RETURNED, CANCELLED) are immutable.
func (s RequestStatus) IsActive() bool {
	return s == RequestStatusReserved || s == RequestStatusIssued
}

func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusReturned || s == RequestStatusCancelled
}

type RentalType string

const (
	RentalTypeEquipment RentalType = "EQUIPMENT"
	RentalTypeRoom      RentalType = "ROOM"
	RentalTypeMixed     RentalType = "MIXED"
)

type RentalRequest struct {
	ID                 int32         `json:"id"`
	Reference          string        `json:"reference"` // opaque public id, UUID
	UserID             int32         `json:"user_id"`
	CreatedBy          int32         `json:"created_by"`
	ContactEmail       string        `json:"contact_email,omitempty"`
	ProjectName        string        `json:"project_name"`
	Purpose            string        `json:"purpose"`
	Notes              string        `json:"notes"`
	RequestedStartDate time.Time     `json:"requested_start_date"`
	RequestedEndDate   time.Time     `json:"requested_end_date"`
	ActualStartDate    *time.Time    `json:"actual_start_date,omitempty"`
	ActualEndDate      *time.Time    `json:"actual_end_date,omitempty"`
	Status             RequestStatus `json:"status"`
	RentalType         RentalType    `json:"rental_type"`
	CreatedOn          time.Time     `json:"created_on"`
	UpdatedOn          time.Time     `json:"updated_on"`
}

// Window returns the reservation window as a half-open interval [start, end).
func (r *RentalRequest) Window() Window {
	return Window{Start: r.RequestedStartDate, End: r.RequestedEndDate}
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. A window ending
// exactly when another begins does not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Validate checks the window invariants for a new reservation: end strictly
// after start, neither bound in the past.
func (w Window) Validate(now time.Time) error {
	if !w.End.After(w.Start) {
		return &InvalidWindowError{Start: w.Start, End: w.End, Reason: "end date must be after start date"}
	}
	if w.Start.Before(now) {
		return &InvalidWindowError{Start: w.Start, End: w.End, Reason: "start date is in the past"}
	}
	return nil
}

// InitialAction selects the transactions emitted when a request is created:
// reserve for later pickup, or issue immediately.
type InitialAction string

const (
	InitialActionReserve InitialAction = "RESERVE"
	InitialActionIssue   InitialAction = "ISSUE"
)
