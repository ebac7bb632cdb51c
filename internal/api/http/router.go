package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"openchannel-rental-backend/internal/security"
	"openchannel-rental-backend/internal/service"
)

// NewRouter builds the API router. Every /api/v1 route requires a valid
// access token.
func NewRouter(
	tm security.TokenManager,
	rentalSvc service.RentalService,
	availSvc service.AvailabilityService,
	scheduleSvc service.RoomScheduleService,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(mux.MiddlewareFunc(AuthMiddleware(tm)))

	rentalHandler := NewRentalHandler(rentalSvc)
	api.HandleFunc("/requests", rentalHandler.HandleCreateRequest).Methods("POST")
	api.HandleFunc("/requests", rentalHandler.HandleListRequests).Methods("GET")
	api.HandleFunc("/requests/{id}", rentalHandler.HandleGetRequest).Methods("GET")
	api.HandleFunc("/requests/{id}/transactions", rentalHandler.HandleMutate).Methods("POST")
	api.HandleFunc("/requests/{id}/cancel", rentalHandler.HandleCancelRequest).Methods("POST")
	api.HandleFunc("/requests/{id}/extend", rentalHandler.HandleExtendRequest).Methods("POST")
	api.HandleFunc("/items/{itemId}/transactions", rentalHandler.HandleListItemTransactions).Methods("GET")

	availHandler := NewAvailabilityHandler(availSvc, scheduleSvc)
	api.HandleFunc("/inventory/{id}/availability", availHandler.HandleItemAvailability).Methods("GET")
	api.HandleFunc("/rooms/{id}/availability", availHandler.HandleRoomAvailability).Methods("GET")

	return router
}
