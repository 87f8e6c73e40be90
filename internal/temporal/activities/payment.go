package activities

import (
	"context"

	"trip-booking-system/internal/inventory"
	"trip-booking-system/internal/models"
)

type PaymentActivities struct {
	Service *inventory.Service
}

func NewPaymentActivities(svc *inventory.Service) *PaymentActivities {
	return &PaymentActivities{Service: svc}
}

// CompletePayment confirms a paid booking and reserves its seats
func (a *PaymentActivities) CompletePayment(ctx context.Context, bookingID, paymentID string) (*models.Booking, error) {
	b, err := a.Service.CompletePayment(ctx, bookingID, paymentID)
	if err != nil {
		return nil, nonRetryable(err)
	}
	return b, nil
}

// FailPayment closes a booking whose payment was declined
func (a *PaymentActivities) FailPayment(ctx context.Context, bookingID, reason string) error {
	return nonRetryable(a.Service.FailPayment(ctx, bookingID, reason))
}
