package activities

import (
	"errors"

	"trip-booking-system/internal/inventory"

	"go.temporal.io/sdk/temporal"
)

// Application error types surfaced to workflows
const (
	ErrTypeSoldOut         = "SoldOut"
	ErrTypeDepartureClosed = "DepartureClosed"
	ErrTypeNotFound        = "NotFound"
	ErrTypeForbidden       = "Forbidden"
	ErrTypePrecondition    = "Precondition"
)

// nonRetryable turns domain errors into non-retryable application errors.
// Anything else is returned as is and retried under the activity's policy.
func nonRetryable(err error) error {
	if err == nil {
		return nil
	}

	var errType string
	switch {
	case errors.Is(err, inventory.ErrSoldOut):
		errType = ErrTypeSoldOut
	case errors.Is(err, inventory.ErrDepartureClosed):
		errType = ErrTypeDepartureClosed
	case inventory.IsNotFound(err):
		errType = ErrTypeNotFound
	case inventory.IsForbidden(err):
		errType = ErrTypeForbidden
	case inventory.IsPrecondition(err):
		errType = ErrTypePrecondition
	default:
		return err
	}

	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}
