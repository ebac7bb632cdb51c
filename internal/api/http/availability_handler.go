package http

import (
	"net/http"
	"time"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/service"
)

// AvailabilityHandler serves availability lookups for inventory items and rooms.
type AvailabilityHandler struct {
	availSvc    service.AvailabilityService
	scheduleSvc service.RoomScheduleService
}

func NewAvailabilityHandler(availSvc service.AvailabilityService, scheduleSvc service.RoomScheduleService) *AvailabilityHandler {
	return &AvailabilityHandler{availSvc: availSvc, scheduleSvc: scheduleSvc}
}

// HandleItemAvailability reports free units of an inventory item. Without
// start/end query parameters it returns the global snapshot.
func (h *AvailabilityHandler) HandleItemAvailability(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	window, ok := windowFromQuery(w, r)
	if !ok {
		return
	}

	available, err := h.availSvc.GetAvailability(r.Context(), itemID, window)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := map[string]any{
		"inventory_item_id": itemID,
		"available":         available,
	}
	if window != nil {
		resp["start_date"] = window.Start
		resp["end_date"] = window.End
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRoomAvailability reports whether a room is free over a window, with
// the conflicting bookings when it is not.
func (h *AvailabilityHandler) HandleRoomAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	window, ok := windowFromQuery(w, r)
	if !ok {
		return
	}
	if window == nil {
		writeBadRequest(w, "start_date and end_date are required")
		return
	}

	result, err := h.scheduleSvc.GetRoomAvailability(r.Context(), roomID, *window, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// windowFromQuery parses optional start_date/end_date RFC 3339 parameters.
// Both must be present or both absent.
func windowFromQuery(w http.ResponseWriter, r *http.Request) (*domain.Window, bool) {
	q := r.URL.Query()
	startRaw, endRaw := q.Get("start_date"), q.Get("end_date")

	if startRaw == "" && endRaw == "" {
		return nil, true
	}
	if startRaw == "" || endRaw == "" {
		writeBadRequest(w, "start_date and end_date must be provided together")
		return nil, false
	}

	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		writeBadRequest(w, "invalid start_date, expected RFC 3339")
		return nil, false
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		writeBadRequest(w, "invalid end_date, expected RFC 3339")
		return nil, false
	}

	return &domain.Window{Start: start, End: end}, true
}
