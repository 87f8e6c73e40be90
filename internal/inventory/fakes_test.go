package inventory

import (
	"io"
	"time"

	"trip-booking-system/internal/inventory/inventorytest"
	"trip-booking-system/internal/models"

	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	vendorID = "vendor-1"
	userID   = "user-1"
)

var (
	vendor = Actor{ID: vendorID, Role: models.RoleVendor}
	user   = Actor{ID: userID, Role: models.RoleUser}
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	store   *inventorytest.Store
	refunds *inventorytest.Refunds
	svc     *Service
}

func newFixture(cfg Config) *fixture {
	store := inventorytest.NewStore()
	refunds := inventorytest.NewRefunds()
	svc := NewService(store, refunds, cfg, quietLogger()).WithClock(func() time.Time { return testNow })
	store.PutPlan(models.Plan{PlanID: "plan-1", VendorID: vendorID, Name: "Hill trek", Price: 100, IsActive: true})
	return &fixture{store: store, refunds: refunds, svc: svc}
}

func (f *fixture) addDeparture(id string, capacity, booked int, date time.Time) {
	f.store.PutDeparture(models.Departure{
		DepartureID:    id,
		PlanID:         "plan-1",
		DepartureDate:  date,
		PickupLocation: "Main square",
		PickupTime:     "08:00",
		TotalCapacity:  capacity,
		BookedSeats:    booked,
		Status:         models.DepartureScheduled,
		IsActive:       true,
	})
}

func (f *fixture) addBooking(id, departureID string, people int, bookingStatus, paymentStatus string) {
	f.store.PutBooking(models.Booking{
		BookingID:          id,
		PlanID:             "plan-1",
		DepartureID:        departureID,
		UserID:             userID,
		NumPeople:          people,
		BookingStatus:      bookingStatus,
		PaymentStatus:      paymentStatus,
		TripCost:           100 * float64(people),
		RefundStatus:       models.RefundNone,
		VendorPayoutStatus: models.PayoutPending,
	})
}
