package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the routes. idempotency may be nil when Redis is not configured.
func NewRouter(h *Handler, idempotency mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(CORSMiddleware)
	r.Use(LoggingMiddleware(h.Logger))

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(JSONMiddleware)
	api.Use(ActorMiddleware)
	if idempotency != nil {
		api.Use(idempotency)
	}

	// Vendor routes
	api.HandleFunc("/plans", h.CreatePlan).Methods(http.MethodPost)
	api.HandleFunc("/plans/{planId}/departures", h.ListDepartures).Methods(http.MethodGet)
	api.HandleFunc("/plans/{planId}/departures", h.CreateDeparture).Methods(http.MethodPost)
	api.HandleFunc("/plans/{planId}/departures/bulk", h.BulkCreateDepartures).Methods(http.MethodPost)
	api.HandleFunc("/departures/{departureId}", h.GetDeparture).Methods(http.MethodGet)
	api.HandleFunc("/departures/{departureId}", h.UpdateDeparture).Methods(http.MethodPut)
	api.HandleFunc("/departures/{departureId}", h.DeleteDeparture).Methods(http.MethodDelete)
	api.HandleFunc("/departures/{departureId}/bookings", h.ListDepartureBookings).Methods(http.MethodGet)
	api.HandleFunc("/departures/{departureId}/cancel", h.CancelDeparture).Methods(http.MethodPost)
	api.HandleFunc("/departures/{departureId}/cancellation", h.GetCancellationProgress).Methods(http.MethodGet)

	// Internal seat counter
	api.HandleFunc("/departures/{departureId}/seats", h.AdjustSeats).Methods(http.MethodPost)

	// Booking routes
	api.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings", h.ListMyBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}", h.GetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingId}/payment", h.PaymentCallback).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingId}/cancel", h.CancelBooking).Methods(http.MethodPost)

	return r
}
