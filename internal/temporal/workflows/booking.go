package workflows

import (
	"errors"
	"time"

	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/models"
	"trip-booking-system/internal/temporal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	SignalPaymentCompleted = "paymentCompleted"
	SignalPaymentFailed    = "paymentFailed"
	SignalCancelBooking    = "cancelBooking"
	QueryGetStatus         = "getStatus"
)

// DefaultPaymentWindow applies when the input carries none
const DefaultPaymentWindow = 15 * time.Minute

// BookingWorkflowID is the workflow id used for a booking
func BookingWorkflowID(bookingID string) string {
	return "booking-" + bookingID
}

// BookingWorkflow follows a booking from creation until its payment outcome.
// Seats are reserved only when a successful payment arrives; an unpaid booking
// is expired when the payment window closes.
func BookingWorkflow(ctx workflow.Context, input models.BookingInput) (*models.BookingState, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("BookingWorkflow started", "bookingID", input.BookingID)

	window := input.PaymentWindow
	if window <= 0 {
		window = DefaultPaymentWindow
	}

	state := &models.BookingState{
		BookingID:     input.BookingID,
		DepartureID:   input.DepartureID,
		UserID:        input.UserID,
		BookingStatus: models.BookingPending,
		PaymentStatus: models.PaymentPending,
		StartedAt:     workflow.Now(ctx),
	}
	state.ExpiresAt = state.StartedAt.Add(window)

	activityCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})

	err := workflow.SetQueryHandler(ctx, QueryGetStatus, func() (*models.BookingState, error) {
		return state, nil
	})
	if err != nil {
		return nil, err
	}

	completedChan := workflow.GetSignalChannel(ctx, SignalPaymentCompleted)
	failedChan := workflow.GetSignalChannel(ctx, SignalPaymentFailed)
	cancelChan := workflow.GetSignalChannel(ctx, SignalCancelBooking)

	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()
	timerFuture := workflow.NewTimer(timerCtx, window)

	var paymentActivities *activities.PaymentActivities
	var bookingActivities *activities.BookingActivities

	done := false
	for !done {
		selector := workflow.NewSelector(ctx)

		selector.AddReceive(completedChan, func(c workflow.ReceiveChannel, more bool) {
			var payment models.PaymentSignal
			c.Receive(ctx, &payment)
			logger.Info("Received payment completed signal", "paymentID", payment.PaymentID)

			var booking *models.Booking
			err := workflow.ExecuteActivity(activityCtx, paymentActivities.CompletePayment,
				state.BookingID, payment.PaymentID).Get(ctx, &booking)

			switch {
			case err == nil:
				state.BookingStatus = booking.BookingStatus
				state.PaymentStatus = booking.PaymentStatus
				state.Error = ""
				done = true
			case hasErrorType(err, activities.ErrTypeSoldOut):
				state.BookingStatus = models.BookingFailed
				state.PaymentStatus = models.PaymentCompleted
				state.Error = inventory.ErrSoldOut.Error()
				done = true
			case hasErrorType(err, activities.ErrTypeDepartureClosed):
				state.BookingStatus = models.BookingFailed
				state.PaymentStatus = models.PaymentCompleted
				state.Error = inventory.ErrDepartureClosed.Error()
				done = true
			case hasErrorType(err, activities.ErrTypePrecondition, activities.ErrTypeNotFound):
				state.Error = err.Error()
				done = true
			default:
				// Retries exhausted; a repeated signal can still complete the payment.
				logger.Error("Failed to complete payment", "error", err)
				state.Error = err.Error()
			}
		})

		selector.AddReceive(failedChan, func(c workflow.ReceiveChannel, more bool) {
			var payment models.PaymentSignal
			c.Receive(ctx, &payment)
			logger.Info("Received payment failed signal", "reason", payment.Reason)

			err := workflow.ExecuteActivity(activityCtx, paymentActivities.FailPayment,
				state.BookingID, payment.Reason).Get(ctx, nil)
			if err != nil {
				logger.Error("Failed to record payment failure", "error", err)
				state.Error = err.Error()
				done = hasErrorType(err, activities.ErrTypePrecondition, activities.ErrTypeNotFound)
				return
			}
			state.BookingStatus = models.BookingFailed
			state.PaymentStatus = models.PaymentFailed
			done = true
		})

		selector.AddReceive(cancelChan, func(c workflow.ReceiveChannel, more bool) {
			var cancel models.CancelSignal
			c.Receive(ctx, &cancel)
			logger.Info("Received cancel signal", "bookingID", state.BookingID)

			actor := inventory.Actor{ID: cancel.ActorID, Role: cancel.ActorRole}
			var booking *models.Booking
			err := workflow.ExecuteActivity(activityCtx, bookingActivities.CancelBooking,
				state.BookingID, cancel.Reason, actor).Get(ctx, &booking)
			if err != nil {
				logger.Error("Failed to cancel booking", "error", err)
				state.Error = err.Error()
				return
			}
			state.BookingStatus = booking.BookingStatus
			state.PaymentStatus = booking.PaymentStatus
			done = true
		})

		selector.AddFuture(timerFuture, func(f workflow.Future) {
			if err := f.Get(ctx, nil); err != nil {
				return
			}
			logger.Info("Payment window expired", "bookingID", state.BookingID)

			var expired bool
			err := workflow.ExecuteActivity(activityCtx, bookingActivities.ExpireBooking,
				state.BookingID).Get(ctx, &expired)
			if err != nil {
				logger.Error("Failed to expire booking", "error", err)
				state.Error = err.Error()
			} else if expired {
				state.BookingStatus = models.BookingCancelled
				state.PaymentStatus = models.PaymentFailed
			} else {
				state.Error = "booking left pending state before the payment window closed"
			}
			done = true
		})

		selector.Select(ctx)
	}

	logger.Info("BookingWorkflow completed", "bookingID", input.BookingID, "status", state.BookingStatus)
	return state, nil
}

func hasErrorType(err error, types ...string) bool {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return false
	}
	for _, t := range types {
		if appErr.Type() == t {
			return true
		}
	}
	return false
}
