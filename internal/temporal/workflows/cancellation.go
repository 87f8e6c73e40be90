package workflows

import (
	"fmt"
	"time"

	"trip-booking-system/internal/models"
	"trip-booking-system/internal/temporal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetProgress = "getProgress"

// Cancellation stages reported by the progress query
const (
	StagePreparing  = "preparing"
	StageRefunding  = "refunding"
	StageFinalizing = "finalizing"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// CancellationWorkflowID is the workflow id used for a departure cancellation.
// Reusing it keeps a second cancel request from starting a parallel run.
func CancellationWorkflowID(departureID string) string {
	return "departure-cancel-" + departureID
}

// DepartureCancellationWorkflow runs a vendor cancellation durably. Refunds are
// attempted once per booking, in parallel; their failures are aggregated and
// never block marking the departure cancelled.
func DepartureCancellationWorkflow(ctx workflow.Context, input models.CancellationInput) (*models.CancellationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("DepartureCancellationWorkflow started", "departureID", input.DepartureID)

	progress := &models.CancellationProgress{
		DepartureID:   input.DepartureID,
		Stage:         StagePreparing,
		RefundResults: models.RefundResults{Errors: []string{}},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (*models.CancellationProgress, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	defaultCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
		},
	})
	refundCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var cancellationActivities *activities.CancellationActivities

	var plan *models.CancellationPlan
	err := workflow.ExecuteActivity(defaultCtx, cancellationActivities.PrepareCancellation,
		input.DepartureID, input.VendorID).Get(ctx, &plan)
	if err != nil {
		logger.Error("Cancellation rejected", "error", err)
		progress.Stage = StageFailed
		return nil, err
	}

	progress.Stage = StageRefunding
	progress.RefundResults.Total = len(plan.Bookings)

	refundAll := func(bookings []models.Booking) []models.RefundOutcome {
		futures := make([]workflow.Future, len(bookings))
		for i, booking := range bookings {
			futures[i] = workflow.ExecuteActivity(refundCtx, cancellationActivities.RefundBooking,
				booking, input.VendorID, input.Reason)
		}

		outcomes := make([]models.RefundOutcome, len(bookings))
		for i, f := range futures {
			var outcome models.RefundOutcome
			if err := f.Get(ctx, &outcome); err != nil {
				outcome = models.RefundOutcome{
					BookingID: bookings[i].BookingID,
					Error:     fmt.Sprintf("Booking %s: %v", bookings[i].BookingID, err),
				}
			}
			outcomes[i] = outcome
			progress.RefundResults.Add(outcome)
		}
		return outcomes
	}

	outcomes := refundAll(plan.Bookings)

	progress.Stage = StageFinalizing
	var cancelledAt time.Time
	err = workflow.ExecuteActivity(defaultCtx, cancellationActivities.FinalizeCancellation,
		input.DepartureID, input.Reason).Get(ctx, &cancelledAt)
	if err != nil {
		logger.Error("Failed to mark departure cancelled", "error", err)
		progress.Stage = StageFailed
		return nil, err
	}

	// Payments completed while refunding hold seats on a now frozen departure.
	handled := make([]string, len(plan.Bookings))
	for i, booking := range plan.Bookings {
		handled[i] = booking.BookingID
	}
	var late []models.Booking
	err = workflow.ExecuteActivity(defaultCtx, cancellationActivities.RemainingBookings,
		input.DepartureID, handled).Get(ctx, &late)
	if err != nil {
		logger.Error("Failed to list bookings paid during cancellation", "error", err)
	} else if len(late) > 0 {
		logger.Warn("Refunding bookings paid during cancellation", "count", len(late))
		progress.Stage = StageRefunding
		progress.RefundResults.Total += len(late)
		outcomes = append(outcomes, refundAll(late)...)
	}

	progress.Stage = StageCompleted
	logger.Info("DepartureCancellationWorkflow completed",
		"departureID", input.DepartureID,
		"successful", progress.RefundResults.Successful,
		"failed", progress.RefundResults.Failed)

	return &models.CancellationResult{
		DepartureID:   input.DepartureID,
		RefundResults: progress.RefundResults,
		Outcomes:      outcomes,
		CancelledAt:   cancelledAt,
	}, nil
}
