package inventory

import (
	"math"
	"time"

	"trip-booking-system/internal/models"
)

// RefundPolicy returns the percentage (0..100) of the trip cost refunded when
// a user cancels booking b of departure d at time now
type RefundPolicy func(b models.Booking, d models.Departure, now time.Time) float64

// FlatRefundPolicy refunds the same percentage regardless of timing
func FlatRefundPolicy(percent float64) RefundPolicy {
	percent = clampPercent(percent)
	return func(models.Booking, models.Departure, time.Time) float64 {
		return percent
	}
}

// vendorRefundPercentage applies to every booking of a vendor-cancelled departure
const vendorRefundPercentage = 100.0

func clampPercent(p float64) float64 {
	return math.Max(0, math.Min(100, p))
}

// refundSplit divides the trip cost between the user refund and the vendor payout
func refundSplit(tripCost, percent float64) (refund, payout float64) {
	refund = math.Round(tripCost*clampPercent(percent)) / 100
	payout = math.Round((tripCost-refund)*100) / 100
	return refund, payout
}
