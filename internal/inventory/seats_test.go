package inventory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trip-booking-system/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveOrRelease(t *testing.T) {
	ctx := context.Background()
	future := testNow.Add(72 * time.Hour)

	t.Run("Boundary at capacity", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 5, 4, future)

		ok, err := f.svc.ReserveOrRelease(ctx, "dep-1", 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 5, f.store.Departure("dep-1").BookedSeats)

		ok, err = f.svc.ReserveOrRelease(ctx, "dep-1", 1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 5, f.store.Departure("dep-1").BookedSeats)

		ok, err = f.svc.ReserveOrRelease(ctx, "dep-1", -5)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, f.store.Departure("dep-1").BookedSeats)
	})

	t.Run("Closed departure only releases", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 5, 2, future)
		d := f.store.Departure("dep-1")
		d.Status = models.DepartureCancelled
		d.IsActive = false
		f.store.PutDeparture(d)

		ok, err := f.svc.ReserveOrRelease(ctx, "dep-1", 1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 2, f.store.Departure("dep-1").BookedSeats)

		ok, err = f.svc.ReserveOrRelease(ctx, "dep-1", -2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, f.store.Departure("dep-1").BookedSeats)
	})

	t.Run("No over-release", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 5, 0, future)

		ok, err := f.svc.ReserveOrRelease(ctx, "dep-1", -1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, f.store.Departure("dep-1").BookedSeats)
	})

	t.Run("Zero delta", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 5, 0, future)

		_, err := f.svc.ReserveOrRelease(ctx, "dep-1", 0)
		assert.True(t, IsPrecondition(err))
	})

	t.Run("Unknown departure", func(t *testing.T) {
		f := newFixture(DefaultConfig())

		ok, err := f.svc.ReserveOrRelease(ctx, "missing", 1)
		assert.False(t, ok)
		assert.True(t, IsNotFound(err))
	})

	t.Run("Store failure propagates", func(t *testing.T) {
		f := newFixture(DefaultConfig())
		f.addDeparture("dep-1", 5, 0, future)
		f.store.FailAdjustments(errors.New("connection reset"))

		ok, err := f.svc.ReserveOrRelease(ctx, "dep-1", 1)
		assert.False(t, ok)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
		assert.False(t, IsNotFound(err))
	})
}

func TestReserveOrRelease_ConcurrentLastSeat(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.addDeparture("dep-1", 1, 0, testNow.Add(72*time.Hour))

	var wg sync.WaitGroup
	var granted int32
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := f.svc.ReserveOrRelease(context.Background(), "dep-1", 1)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), granted)
	assert.Equal(t, 1, f.store.Departure("dep-1").BookedSeats)
}

func TestReserveOrRelease_RandomConcurrentDeltasStayInBounds(t *testing.T) {
	f := newFixture(DefaultConfig())
	const capacity = 8
	f.addDeparture("dep-1", capacity, 0, testNow.Add(72*time.Hour))

	var wg sync.WaitGroup
	var applied int64
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				delta := rng.Intn(7) - 3
				if delta == 0 {
					delta = 1
				}
				ok, err := f.svc.ReserveOrRelease(context.Background(), "dep-1", delta)
				assert.NoError(t, err)
				if ok {
					atomic.AddInt64(&applied, int64(delta))
				}
				booked := f.store.Departure("dep-1").BookedSeats
				assert.GreaterOrEqual(t, booked, 0)
				assert.LessOrEqual(t, booked, capacity)
			}
		}(int64(w))
	}
	wg.Wait()

	assert.Equal(t, int(applied), f.store.Departure("dep-1").BookedSeats)
}
