package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"openchannel-rental-backend/internal/domain"
	"openchannel-rental-backend/internal/service"
)

// RentalHandler serves the staff-facing rental request API.
type RentalHandler struct {
	rentalSvc service.RentalService
}

func NewRentalHandler(rentalSvc service.RentalService) *RentalHandler {
	return &RentalHandler{rentalSvc: rentalSvc}
}

type createRequestPayload struct {
	UserID        int32              `json:"user_id"`
	ContactEmail  string             `json:"contact_email"`
	ProjectName   string             `json:"project_name"`
	Purpose       string             `json:"purpose"`
	Notes         string             `json:"notes"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	InitialAction string             `json:"initial_action"`
	Items         []service.ItemLine `json:"items"`
	Rooms         []service.RoomLine `json:"rooms"`
}

// HandleCreateRequest creates a new rental request with its item and room lines.
func (h *RentalHandler) HandleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing claims"})
		return
	}

	action := domain.InitialAction(payload.InitialAction)
	if action == "" {
		action = domain.InitialActionReserve
	}
	if action != domain.InitialActionReserve && action != domain.InitialActionIssue {
		writeBadRequest(w, "initial_action must be RESERVE or ISSUE")
		return
	}

	userID := payload.UserID
	if userID == 0 {
		userID = claims.UserID
	}

	req, err := h.rentalSvc.CreateRequest(r.Context(), service.CreateRequestInput{
		UserID:        userID,
		CreatedBy:     claims.UserID,
		ContactEmail:  payload.ContactEmail,
		ProjectName:   payload.ProjectName,
		Purpose:       payload.Purpose,
		Notes:         payload.Notes,
		Window:        domain.Window{Start: payload.StartDate, End: payload.EndDate},
		InitialAction: action,
		Items:         payload.Items,
		Rooms:         payload.Rooms,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

type mutatePayload struct {
	RentalItemID int32  `json:"rental_item_id,omitempty"`
	RoomID       int32  `json:"room_id,omitempty"`
	Type         string `json:"type"`
	Quantity     int32  `json:"quantity"`
	Condition    string `json:"condition,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// HandleMutate appends one ledger transaction against a line of a request.
func (h *RentalHandler) HandleMutate(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload mutatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing claims"})
		return
	}

	tx, err := h.rentalSvc.Mutate(r.Context(), service.MutateInput{
		RequestID:    requestID,
		RentalItemID: payload.RentalItemID,
		RoomID:       payload.RoomID,
		Type:         domain.TransactionType(payload.Type),
		Quantity:     payload.Quantity,
		ActorID:      claims.UserID,
		Condition:    domain.ReturnCondition(payload.Condition),
		Notes:        payload.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// HandleCancelRequest cancels an active request, reconciling all open lines.
func (h *RentalHandler) HandleCancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing claims"})
		return
	}

	if err := h.rentalSvc.CancelRequest(r.Context(), requestID, claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

type extendPayload struct {
	NewEndDate time.Time `json:"new_end_date"`
}

// HandleExtendRequest moves the end of an active request's window forward.
func (h *RentalHandler) HandleExtendRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var payload extendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing claims"})
		return
	}

	if err := h.rentalSvc.ExtendRequest(r.Context(), requestID, payload.NewEndDate, claims.UserID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

// HandleGetRequest returns a request with its item and room lines.
func (h *RentalHandler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.rentalSvc.GetRequest(r.Context(), requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// HandleListRequests returns a filtered, paginated request listing.
func (h *RentalHandler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var userID int32
	if v := q.Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			writeBadRequest(w, "invalid user_id")
			return
		}
		userID = int32(id)
	}

	page := int32(1)
	if v := q.Get("page"); v != "" {
		p, err := strconv.ParseInt(v, 10, 32)
		if err != nil || p < 1 {
			writeBadRequest(w, "invalid page")
			return
		}
		page = int32(p)
	}

	pageSize := int32(20)
	if v := q.Get("page_size"); v != "" {
		ps, err := strconv.ParseInt(v, 10, 32)
		if err != nil || ps < 1 || ps > 100 {
			writeBadRequest(w, "invalid page_size")
			return
		}
		pageSize = int32(ps)
	}

	requests, total, err := h.rentalSvc.ListRequests(r.Context(), userID, q.Get("status"), page, pageSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requests":  requests,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// HandleListItemTransactions returns the ledger history of one rental item.
func (h *RentalHandler) HandleListItemTransactions(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "itemId")
	if !ok {
		return
	}

	txs, err := h.rentalSvc.ListItemTransactions(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// pathID parses an int32 path variable, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int32, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid "+name)
		return 0, false
	}
	return int32(id), true
}
