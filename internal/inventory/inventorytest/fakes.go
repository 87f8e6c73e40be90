// Package inventorytest provides in-memory doubles of the inventory store and
// refund service for tests.
package inventorytest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"trip-booking-system/internal/database"
	"trip-booking-system/internal/models"
)

// Store keeps the same conditional-update contract as the MySQL store, with a
// mutex standing in for row-level atomicity. It returns the database package's
// sentinel errors.
type Store struct {
	mu         sync.Mutex
	plans      map[string]models.Plan
	departures map[string]models.Departure
	bookings   map[string]models.Booking

	adjustErr error
	cancelErr error
	mutations int
}

func NewStore() *Store {
	return &Store{
		plans:      map[string]models.Plan{},
		departures: map[string]models.Departure{},
		bookings:   map[string]models.Booking{},
	}
}

func (m *Store) AdjustBookedSeats(_ context.Context, departureID string, delta int, at time.Time) (models.SeatAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return models.SeatAdjustment{}, m.adjustErr
	}
	d, ok := m.departures[departureID]
	if !ok {
		return models.SeatAdjustment{}, database.ErrDepartureNotFound
	}
	next := d.BookedSeats + delta
	if next < 0 || next > d.TotalCapacity || (delta > 0 && !d.OpenForBooking()) {
		return models.SeatAdjustment{Applied: false, Current: &d}, nil
	}
	d.BookedSeats = next
	d.UpdatedAt = at
	m.departures[departureID] = d
	m.mutations++
	current := d
	return models.SeatAdjustment{Applied: true, Current: &current}, nil
}

func (m *Store) SetCapacity(_ context.Context, departureID string, capacity int, at time.Time) (models.SeatAdjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departures[departureID]
	if !ok {
		return models.SeatAdjustment{}, database.ErrDepartureNotFound
	}
	if d.BookedSeats > capacity {
		return models.SeatAdjustment{Current: &d}, nil
	}
	d.TotalCapacity = capacity
	d.UpdatedAt = at
	m.departures[departureID] = d
	m.mutations++
	current := d
	return models.SeatAdjustment{Applied: true, Current: &current}, nil
}

func (m *Store) GetDeparture(_ context.Context, departureID string) (*models.Departure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departures[departureID]
	if !ok {
		return nil, database.ErrDepartureNotFound
	}
	return &d, nil
}

func (m *Store) ListDeparturesByPlan(_ context.Context, planID string) ([]models.Departure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Departure{}
	for _, d := range m.departures {
		if d.PlanID == planID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureDate.After(out[j].DepartureDate) })
	return out, nil
}

func (m *Store) ListDueDepartures(_ context.Context, before time.Time) ([]models.Departure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Departure{}
	for _, d := range m.departures {
		if d.IsActive && d.DepartureDate.Before(before) &&
			(d.Status == models.DepartureScheduled || d.Status == models.DepartureConfirmed) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Store) CreateDeparture(_ context.Context, d *models.Departure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departures[d.DepartureID] = *d
	m.mutations++
	return nil
}

func (m *Store) UpdateDeparture(_ context.Context, departureID string, upd models.DepartureUpdate, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departures[departureID]
	if !ok {
		return database.ErrDepartureNotFound
	}
	if upd.DepartureDate != nil {
		d.DepartureDate = *upd.DepartureDate
	}
	if upd.PickupLocation != nil {
		d.PickupLocation = *upd.PickupLocation
	}
	if upd.PickupTime != nil {
		d.PickupTime = *upd.PickupTime
	}
	if upd.Status != nil {
		d.Status = *upd.Status
	}
	d.UpdatedAt = at
	m.departures[departureID] = d
	m.mutations++
	return nil
}

func (m *Store) MarkDepartureCancelled(_ context.Context, departureID, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancelErr != nil {
		return m.cancelErr
	}
	d, ok := m.departures[departureID]
	if !ok {
		return database.ErrDepartureNotFound
	}
	d.Status = models.DepartureCancelled
	d.IsActive = false
	d.CancelledAt = &at
	d.CancellationReason = &reason
	d.UpdatedAt = at
	m.departures[departureID] = d
	m.mutations++
	return nil
}

func (m *Store) MarkDepartureCompleted(_ context.Context, departureID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departures[departureID]
	if !ok {
		return database.ErrDepartureNotFound
	}
	d.Status = models.DepartureCompleted
	d.IsActive = false
	d.UpdatedAt = at
	m.departures[departureID] = d
	m.mutations++
	return nil
}

func (m *Store) DeleteDeparture(_ context.Context, departureID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.departures[departureID]
	if !ok {
		return database.ErrDepartureNotFound
	}
	if d.BookedSeats > 0 {
		return database.ErrDepartureHasBookings
	}
	delete(m.departures, departureID)
	m.mutations++
	return nil
}

func (m *Store) CreateBooking(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.BookingID] = *b
	m.mutations++
	return nil
}

func (m *Store) GetBooking(_ context.Context, bookingID string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, database.ErrBookingNotFound
	}
	return &b, nil
}

func (m *Store) listBookings(match func(models.Booking) bool) []models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingID < out[j].BookingID })
	return out
}

func (m *Store) ListBookingsByDeparture(_ context.Context, departureID string) ([]models.Booking, error) {
	return m.listBookings(func(b models.Booking) bool { return b.DepartureID == departureID }), nil
}

func (m *Store) ListBookingsByUser(_ context.Context, userID string) ([]models.Booking, error) {
	return m.listBookings(func(b models.Booking) bool { return b.UserID == userID }), nil
}

func (m *Store) TransitionBooking(_ context.Context, bookingID string, guard models.BookingGuard, patch models.BookingPatch, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return false, database.ErrBookingNotFound
	}
	if guard.BookingStatus != "" && b.BookingStatus != guard.BookingStatus {
		return false, nil
	}
	if guard.PaymentStatus != "" && b.PaymentStatus != guard.PaymentStatus {
		return false, nil
	}
	if guard.RefundStatus != "" && b.RefundStatus != guard.RefundStatus {
		return false, nil
	}
	if patch.BookingStatus != nil {
		b.BookingStatus = *patch.BookingStatus
	}
	if patch.PaymentStatus != nil {
		b.PaymentStatus = *patch.PaymentStatus
	}
	if patch.PaymentID != nil {
		b.PaymentID = patch.PaymentID
	}
	if patch.RefundStatus != nil {
		b.RefundStatus = *patch.RefundStatus
	}
	if patch.RefundPercentage != nil {
		b.RefundPercentage = patch.RefundPercentage
	}
	if patch.RefundAmount != nil {
		b.RefundAmount = patch.RefundAmount
	}
	if patch.VendorPayoutStatus != nil {
		b.VendorPayoutStatus = *patch.VendorPayoutStatus
	}
	if patch.VendorPayoutAmount != nil {
		b.VendorPayoutAmount = patch.VendorPayoutAmount
	}
	if patch.CancelledAt != nil {
		b.CancelledAt = patch.CancelledAt
	}
	if patch.CancellationReason != nil {
		b.CancellationReason = patch.CancellationReason
	}
	b.UpdatedAt = at
	m.bookings[bookingID] = b
	m.mutations++
	return true, nil
}

func (m *Store) DeleteBooking(_ context.Context, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.HoldsSeats() {
		return database.ErrBookingNotFound
	}
	delete(m.bookings, bookingID)
	m.mutations++
	return nil
}

func (m *Store) CreatePlan(_ context.Context, p *models.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.PlanID] = *p
	m.mutations++
	return nil
}

func (m *Store) GetPlan(_ context.Context, planID string) (*models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planID]
	if !ok {
		return nil, database.ErrPlanNotFound
	}
	return &p, nil
}

// PutPlan, PutDeparture and PutBooking seed records without counting as mutations
func (m *Store) PutPlan(p models.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.PlanID] = p
}

func (m *Store) PutDeparture(d models.Departure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departures[d.DepartureID] = d
}

func (m *Store) PutBooking(b models.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.BookingID] = b
}

// FailAdjustments makes every seat update return err
func (m *Store) FailAdjustments(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustErr = err
}

// FailCancellations makes MarkDepartureCancelled return err
func (m *Store) FailCancellations(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelErr = err
}

func (m *Store) DepartureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.departures)
}

func (m *Store) Departure(id string) models.Departure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.departures[id]
}

func (m *Store) Booking(id string) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id]
}

// Mutations counts successful writes
func (m *Store) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// Refunds records refund requests and fails the ones registered with FailFor
type Refunds struct {
	mu       sync.Mutex
	failures map[string]error
	requests []models.RefundRequest
}

func NewRefunds() *Refunds {
	return &Refunds{failures: map[string]error{}}
}

func (f *Refunds) FailFor(bookingID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[bookingID] = errors.New("refund API failed")
}

func (f *Refunds) RequestRefund(_ context.Context, req models.RefundRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.failures[req.BookingID]
}

func (f *Refunds) Calls() []models.RefundRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RefundRequest(nil), f.requests...)
}
