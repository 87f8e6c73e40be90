package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/models"
	"trip-booking-system/internal/temporal/workflows"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

// WorkflowClient is the part of the Temporal client the handlers use
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type Handler struct {
	Service        *inventory.Service
	TemporalClient WorkflowClient
	TaskQueue      string
	PaymentWindow  time.Duration
	Logger         *logrus.Logger
}

func NewHandler(svc *inventory.Service, temporalClient WorkflowClient, taskQueue string, paymentWindow time.Duration, logger *logrus.Logger) *Handler {
	return &Handler{
		Service:        svc,
		TemporalClient: temporalClient,
		TaskQueue:      taskQueue,
		PaymentWindow:  paymentWindow,
		Logger:         logger,
	}
}

// decode reads an optional JSON body into v
func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// CreatePlan registers a new trip template for the calling vendor
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlanRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	plan, err := h.Service.CreatePlan(r.Context(), req, actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) ListDepartures(w http.ResponseWriter, r *http.Request) {
	departures, err := h.Service.ListDepartures(r.Context(), mux.Vars(r)["planId"], actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DeparturesResponse{Departures: departures, Count: len(departures)})
}

func (h *Handler) CreateDeparture(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDepartureRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	dep, err := h.Service.CreateDeparture(r.Context(), mux.Vars(r)["planId"], req, actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *Handler) BulkCreateDepartures(w http.ResponseWriter, r *http.Request) {
	var req models.BulkCreateDeparturesRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	result, err := h.Service.CreateDepartures(r.Context(), mux.Vars(r)["planId"], req.Departures, actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}

	status := http.StatusCreated
	if result.Succeeded == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func (h *Handler) GetDeparture(w http.ResponseWriter, r *http.Request) {
	dep, err := h.Service.GetDeparture(r.Context(), mux.Vars(r)["departureId"], actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (h *Handler) UpdateDeparture(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateDepartureRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	dep, err := h.Service.UpdateDeparture(r.Context(), mux.Vars(r)["departureId"], req, actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (h *Handler) DeleteDeparture(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDeparture(r.Context(), mux.Vars(r)["departureId"], actorFrom(r)); err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "departure deleted"})
}

func (h *Handler) ListDepartureBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.ListDepartureBookings(r.Context(), mux.Vars(r)["departureId"], actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings, "count": len(bookings)})
}

// CancelDeparture cancels a departure and refunds its bookings. With
// ?async=true the work runs as a Temporal workflow and 202 is returned once
// the preconditions have passed.
func (h *Handler) CancelDeparture(w http.ResponseWriter, r *http.Request) {
	departureID := mux.Vars(r)["departureId"]
	actor := actorFrom(r)

	var req models.CancelDepartureRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	if r.URL.Query().Get("async") != "true" {
		result, err := h.Service.CancelDeparture(r.Context(), departureID, req.Reason, actor)
		if err != nil {
			respondDomainError(w, r, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if _, err := h.Service.PrepareCancellation(r.Context(), departureID, actor); err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}

	run, err := h.TemporalClient.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:        workflows.CancellationWorkflowID(departureID),
		TaskQueue: h.TaskQueue,
	}, workflows.DepartureCancellationWorkflow, models.CancellationInput{
		DepartureID: departureID,
		VendorID:    actor.ID,
		Reason:      req.Reason,
	})
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, models.CancelDepartureAsyncResponse{
		DepartureID: departureID,
		WorkflowID:  run.GetID(),
		RunID:       run.GetRunID(),
	})
}

// GetCancellationProgress reports the state of an asynchronous cancellation
func (h *Handler) GetCancellationProgress(w http.ResponseWriter, r *http.Request) {
	departureID := mux.Vars(r)["departureId"]
	if _, err := h.Service.GetDeparture(r.Context(), departureID, actorFrom(r)); err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}

	val, err := h.TemporalClient.QueryWorkflow(r.Context(), workflows.CancellationWorkflowID(departureID), "", workflows.QueryGetProgress)
	if err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", "no cancellation workflow for this departure")
		return
	}

	var progress models.CancellationProgress
	if err := val.Get(&progress); err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// AdjustSeats exposes the seat counter to internal callers. A rejected
// adjustment is a normal outcome and is answered with applied=false.
func (h *Handler) AdjustSeats(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsAdmin() {
		respondError(w, r, http.StatusForbidden, "forbidden", "seat adjustments are restricted to internal callers")
		return
	}

	var req models.AdjustSeatsRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	departureID := mux.Vars(r)["departureId"]
	applied, err := h.Service.ReserveOrRelease(r.Context(), departureID, req.Delta)
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, models.AdjustSeatsResponse{DepartureID: departureID, Applied: applied})
}

// CreateBooking opens a pending booking and starts its workflow
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	booking, err := h.Service.CreateBooking(r.Context(), req, actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}

	run, err := h.TemporalClient.ExecuteWorkflow(r.Context(), client.StartWorkflowOptions{
		ID:        workflows.BookingWorkflowID(booking.BookingID),
		TaskQueue: h.TaskQueue,
	}, workflows.BookingWorkflow, models.BookingInput{
		BookingID:     booking.BookingID,
		DepartureID:   booking.DepartureID,
		UserID:        booking.UserID,
		PaymentWindow: h.PaymentWindow,
	})
	if err != nil {
		if derr := h.Service.DiscardBooking(r.Context(), booking.BookingID); derr != nil {
			h.Logger.WithError(derr).WithField("booking_id", booking.BookingID).Error("Failed to discard booking")
		}
		respondDomainError(w, r, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateBookingResponse{Booking: *booking, WorkflowID: run.GetID()})
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.ListUserBookings(r.Context(), actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings, "count": len(bookings)})
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.Service.GetBooking(r.Context(), mux.Vars(r)["bookingId"], actorFrom(r))
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// PaymentCallback forwards the payment gateway outcome to the booking workflow
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]

	var req models.PaymentSignal
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Success && req.PaymentID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "paymentId is required for a successful payment")
		return
	}

	signal := workflows.SignalPaymentFailed
	if req.Success {
		signal = workflows.SignalPaymentCompleted
	}
	if err := h.TemporalClient.SignalWorkflow(r.Context(), workflows.BookingWorkflowID(bookingID), "", signal, req); err != nil {
		h.Logger.WithError(err).WithField("booking_id", bookingID).Warn("Payment signal not delivered")
		respondError(w, r, http.StatusConflict, "not_awaiting_payment", "booking is not awaiting payment")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "payment received"})
}

// CancelBooking cancels the caller's booking. Unpaid bookings are cancelled
// through their workflow; paid ones are cancelled and refunded directly.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["bookingId"]
	actor := actorFrom(r)

	var req models.CancelBookingRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	booking, err := h.Service.GetBooking(r.Context(), bookingID, actor)
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}

	if booking.BookingStatus == models.BookingPending && booking.PaymentStatus == models.PaymentPending {
		err := h.TemporalClient.SignalWorkflow(r.Context(), workflows.BookingWorkflowID(bookingID), "",
			workflows.SignalCancelBooking, models.CancelSignal{ActorID: actor.ID, ActorRole: actor.Role, Reason: req.Reason})
		if err == nil {
			writeJSON(w, http.StatusAccepted, map[string]string{"message": "cancellation requested"})
			return
		}
		h.Logger.WithError(err).WithField("booking_id", bookingID).Warn("Cancel signal not delivered, cancelling directly")
	}

	booking, err = h.Service.CancelBooking(r.Context(), bookingID, req.Reason, actor)
	if err != nil {
		respondDomainError(w, r, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
