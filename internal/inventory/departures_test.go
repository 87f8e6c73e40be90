package inventory

import (
	"context"
	"testing"
	"time"

	"trip-booking-system/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDeparture() models.CreateDepartureRequest {
	return models.CreateDepartureRequest{
		DepartureDate:  testNow.Add(10 * 24 * time.Hour),
		PickupLocation: "Main square",
		PickupTime:     "07:30",
		TotalCapacity:  12,
	}
}

func TestCreateDeparture(t *testing.T) {
	ctx := context.Background()

	t.Run("Scheduled and empty", func(t *testing.T) {
		f := newFixture(DefaultConfig())

		dep, err := f.svc.CreateDeparture(ctx, "plan-1", validDeparture(), vendor)
		require.NoError(t, err)
		assert.Equal(t, models.DepartureScheduled, dep.Status)
		assert.True(t, dep.IsActive)
		assert.Equal(t, 0, dep.BookedSeats)
		assert.Equal(t, 12, dep.TotalCapacity)
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture(DefaultConfig())

		past := validDeparture()
		past.DepartureDate = testNow.Add(-time.Hour)
		tooBig := validDeparture()
		tooBig.TotalCapacity = 101
		empty := validDeparture()
		empty.TotalCapacity = 0
		noPickup := validDeparture()
		noPickup.PickupLocation = " "

		for _, req := range []models.CreateDepartureRequest{past, tooBig, empty, noPickup} {
			_, err := f.svc.CreateDeparture(ctx, "plan-1", req, vendor)
			assert.True(t, IsPrecondition(err), "expected precondition error, got %v", err)
		}
		assert.Zero(t, f.store.DepartureCount())
	})

	t.Run("Other vendor's plan", func(t *testing.T) {
		f := newFixture(DefaultConfig())

		_, err := f.svc.CreateDeparture(ctx, "plan-1", validDeparture(), Actor{ID: "vendor-2", Role: models.RoleVendor})
		assert.True(t, IsForbidden(err))
	})

	t.Run("Unknown plan", func(t *testing.T) {
		f := newFixture(DefaultConfig())

		_, err := f.svc.CreateDeparture(ctx, "plan-404", validDeparture(), vendor)
		assert.True(t, IsNotFound(err))
	})
}

func TestCreateDepartures_PartialSuccess(t *testing.T) {
	f := newFixture(DefaultConfig())
	bad := validDeparture()
	bad.TotalCapacity = 0

	result, err := f.svc.CreateDepartures(context.Background(), "plan-1",
		[]models.CreateDepartureRequest{validDeparture(), bad, validDeparture()}, vendor)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "departure 2")
	assert.Equal(t, 2, f.store.DepartureCount())
}

func TestUpdateDeparture(t *testing.T) {
	ctx := context.Background()

	t.Run("Capacity below bookings", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 10, 6, testNow.Add(48*time.Hour))

		capacity := 5
		_, err := f.svc.UpdateDeparture(ctx, "dep-1", models.UpdateDepartureRequest{TotalCapacity: &capacity}, vendor)
		require.Error(t, err)
		assert.Equal(t, "cannot reduce capacity below current bookings (6)", err.Error())
		assert.Equal(t, 10, f.store.Departure("dep-1").TotalCapacity)
	})

	t.Run("Fields and capacity", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 10, 6, testNow.Add(48*time.Hour))

		capacity := 6
		location := "North gate"
		dep, err := f.svc.UpdateDeparture(ctx, "dep-1", models.UpdateDepartureRequest{
			TotalCapacity:  &capacity,
			PickupLocation: &location,
		}, vendor)
		require.NoError(t, err)
		assert.Equal(t, 6, dep.TotalCapacity)
		assert.Equal(t, "North gate", dep.PickupLocation)
	})

	t.Run("Cancel through update is refused", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 10, 0, testNow.Add(48*time.Hour))

		status := models.DepartureCancelled
		_, err := f.svc.UpdateDeparture(ctx, "dep-1", models.UpdateDepartureRequest{Status: &status}, vendor)
		assert.True(t, IsPrecondition(err))
		assert.True(t, f.store.Departure("dep-1").IsActive)
	})

	t.Run("Complete through update is refused", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 10, 2, testNow.Add(48*time.Hour))
		f.addBooking("bk-1", "dep-1", 2, models.BookingConfirmed, models.PaymentCompleted)
		before := f.store.Mutations()

		status := models.DepartureCompleted
		_, err := f.svc.UpdateDeparture(ctx, "dep-1", models.UpdateDepartureRequest{Status: &status}, vendor)
		require.Error(t, err)
		assert.True(t, IsPrecondition(err))

		dep := f.store.Departure("dep-1")
		assert.Equal(t, models.DepartureScheduled, dep.Status)
		assert.True(t, dep.IsActive)
		assert.Equal(t, models.BookingConfirmed, f.store.Booking("bk-1").BookingStatus)
		assert.Equal(t, before, f.store.Mutations())
	})
}

func TestDeleteDeparture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(DefaultConfig())
	f.addDeparture("dep-1", 10, 2, testNow.Add(48*time.Hour))
	f.addDeparture("dep-2", 10, 0, testNow.Add(48*time.Hour))

	err := f.svc.DeleteDeparture(ctx, "dep-1", vendor)
	assert.True(t, IsPrecondition(err))

	require.NoError(t, f.svc.DeleteDeparture(ctx, "dep-2", vendor))
	_, err = f.svc.GetDeparture(ctx, "dep-2", vendor)
	assert.True(t, IsNotFound(err))
}

func TestListDepartures_NewestFirst(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.addDeparture("dep-early", 10, 0, testNow.Add(24*time.Hour))
	f.addDeparture("dep-late", 10, 0, testNow.Add(96*time.Hour))

	deps, err := f.svc.ListDepartures(context.Background(), "plan-1", vendor)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "dep-late", deps[0].DepartureID)
}

func TestFlatRefundPolicy(t *testing.T) {
	assert.Equal(t, 100.0, FlatRefundPolicy(150)(models.Booking{}, models.Departure{}, testNow))
	refund, payout := refundSplit(250, 80)
	assert.Equal(t, 200.0, refund)
	assert.Equal(t, 50.0, payout)
}
