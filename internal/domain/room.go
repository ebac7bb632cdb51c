package domain

import "time"

// Room is a bookable space (studio, edit suite). Occupancy is exclusive per
// room and window; capacity is advisory and not enforced by the ledger.
type Room struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Capacity  int32     `json:"capacity"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"is_active"`
	CreatedOn time.Time `json:"created_on"`
}

// RoomRental links a request to a room, one row per (request, room) pair. The
// time window is inherited from the parent request.
type RoomRental struct {
	ID          int32     `json:"id"`
	RequestID   int32     `json:"request_id"`
	RoomID      int32     `json:"room_id"`
	PeopleCount int32     `json:"people_count"`
	Notes       string    `json:"notes"`
	CreatedOn   time.Time `json:"created_on"`
}

// RoomConflict is one overlapping booking, shaped for display to the caller.
type RoomConflict struct {
	RequestID   int32         `json:"request_id"`
	Reference   string        `json:"reference"`
	UserID      int32         `json:"user_id"`
	ProjectName string        `json:"project_name"`
	Status      RequestStatus `json:"status"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
}
