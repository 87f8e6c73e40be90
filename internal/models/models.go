package models

import "time"

// Departure statuses
const (
	DepartureScheduled = "scheduled"
	DepartureConfirmed = "confirmed"
	DepartureCancelled = "cancelled"
	DepartureCompleted = "completed"
)

// Booking statuses
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
	BookingFailed    = "failed"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Refund statuses
const (
	RefundNone       = "none"
	RefundRequested  = "requested"
	RefundProcessing = "processing"
	RefundCompleted  = "completed"
	RefundRejected   = "rejected"
)

// Vendor payout statuses
const (
	PayoutPending    = "pending"
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutFailed     = "failed"
)

// Actor roles as forwarded by the gateway
const (
	RoleUser   = "user"
	RoleVendor = "vendor"
	RoleAdmin  = "admin"
)

// IsDepartureStatus reports whether s is a known departure status.
func IsDepartureStatus(s string) bool {
	switch s {
	case DepartureScheduled, DepartureConfirmed, DepartureCancelled, DepartureCompleted:
		return true
	}
	return false
}

// Plan is the reusable trip template a vendor authors
type Plan struct {
	PlanID    string    `json:"planId" db:"plan_id"`
	VendorID  string    `json:"vendorId" db:"vendor_id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Departure is one scheduled occurrence of a plan with its own seat counter.
// BookedSeats is only ever changed through the conditional seat update.
type Departure struct {
	DepartureID        string     `json:"departureId" db:"departure_id"`
	PlanID             string     `json:"planId" db:"plan_id"`
	DepartureDate      time.Time  `json:"departureDate" db:"departure_date"`
	PickupLocation     string     `json:"pickupLocation" db:"pickup_location"`
	PickupTime         string     `json:"pickupTime" db:"pickup_time"`
	TotalCapacity      int        `json:"totalCapacity" db:"total_capacity"`
	BookedSeats        int        `json:"bookedSeats" db:"booked_seats"`
	Status             string     `json:"status" db:"status"`
	IsActive           bool       `json:"isActive" db:"is_active"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CancellationReason *string    `json:"cancellationReason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" db:"updated_at"`
}

// AvailableSeats returns the seats still open for booking
func (d *Departure) AvailableSeats() int {
	if d.BookedSeats >= d.TotalCapacity {
		return 0
	}
	return d.TotalCapacity - d.BookedSeats
}

// OpenForBooking reports whether seats may still be reserved on the departure
func (d *Departure) OpenForBooking() bool {
	return d.IsActive && (d.Status == DepartureScheduled || d.Status == DepartureConfirmed)
}

// HasDeparted reports whether the departure date is before now
func (d *Departure) HasDeparted(now time.Time) bool {
	return d.DepartureDate.Before(now)
}

// Booking is a user's reservation of seats on one departure
type Booking struct {
	BookingID          string     `json:"bookingId" db:"booking_id"`
	PlanID             string     `json:"planId" db:"plan_id"`
	DepartureID        string     `json:"departureId" db:"departure_id"`
	UserID             string     `json:"userId" db:"user_id"`
	NumPeople          int        `json:"numPeople" db:"num_people"`
	PaymentStatus      string     `json:"paymentStatus" db:"payment_status"`
	BookingStatus      string     `json:"bookingStatus" db:"booking_status"`
	PaymentID          *string    `json:"paymentId,omitempty" db:"payment_id"`
	TripCost           float64    `json:"tripCost" db:"trip_cost"`
	RefundStatus       string     `json:"refundStatus" db:"refund_status"`
	RefundPercentage   *float64   `json:"refundPercentage,omitempty" db:"refund_percentage"`
	RefundAmount       *float64   `json:"refundAmount,omitempty" db:"refund_amount"`
	VendorPayoutStatus string     `json:"vendorPayoutStatus" db:"vendor_payout_status"`
	VendorPayoutAmount *float64   `json:"vendorPayoutAmount,omitempty" db:"vendor_payout_amount"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CancellationReason *string    `json:"cancellationReason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" db:"updated_at"`
}

// HoldsSeats reports whether the booking currently counts towards bookedSeats
func (b *Booking) HoldsSeats() bool {
	return b.BookingStatus == BookingConfirmed && b.PaymentStatus == PaymentCompleted
}

// SeatAdjustment is the outcome of a conditional seat update.
// Current is the record after the update, or as it stood when the predicate failed.
type SeatAdjustment struct {
	Applied bool
	Current *Departure
}

// BookingGuard is the state a booking must be in for a transition to apply.
// Empty fields are not checked.
type BookingGuard struct {
	BookingStatus string
	PaymentStatus string
	RefundStatus  string
}

// BookingPatch lists the booking fields a transition writes. Nil fields are left untouched.
type BookingPatch struct {
	BookingStatus      *string
	PaymentStatus      *string
	PaymentID          *string
	RefundStatus       *string
	RefundPercentage   *float64
	RefundAmount       *float64
	VendorPayoutStatus *string
	VendorPayoutAmount *float64
	CancelledAt        *time.Time
	CancellationReason *string
}

// DepartureUpdate lists the vendor-editable departure fields. Nil fields are left untouched.
type DepartureUpdate struct {
	DepartureDate  *time.Time
	PickupLocation *string
	PickupTime     *string
	Status         *string
}

// RefundOutcome is the result of refunding a single booking
type RefundOutcome struct {
	BookingID string `json:"bookingId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// RefundResults summarises the refunds of a departure cancellation
type RefundResults struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

// Add records one outcome in the summary
func (r *RefundResults) Add(o RefundOutcome) {
	if o.Success {
		r.Successful++
		return
	}
	r.Failed++
	r.Errors = append(r.Errors, o.Error)
}

// CancellationResult represents the outcome of a vendor departure cancellation
type CancellationResult struct {
	DepartureID   string          `json:"departureId"`
	RefundResults RefundResults   `json:"refundResults"`
	Outcomes      []RefundOutcome `json:"outcomes"`
	CancelledAt   time.Time       `json:"cancelledAt"`
}

// BulkResult reports partial success of a batch operation
type BulkResult struct {
	Total      int         `json:"total"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Errors     []string    `json:"errors"`
	Departures []Departure `json:"departures"`
}

// BookingInput represents booking workflow input
type BookingInput struct {
	BookingID     string        `json:"bookingId"`
	DepartureID   string        `json:"departureId"`
	UserID        string        `json:"userId"`
	PaymentWindow time.Duration `json:"paymentWindow"`
}

// BookingState represents the current booking workflow state
type BookingState struct {
	BookingID     string    `json:"bookingId"`
	DepartureID   string    `json:"departureId"`
	UserID        string    `json:"userId"`
	BookingStatus string    `json:"bookingStatus"`
	PaymentStatus string    `json:"paymentStatus"`
	StartedAt     time.Time `json:"startedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Error         string    `json:"error,omitempty"`
}

// PaymentSignal carries the gateway outcome into the booking workflow
type PaymentSignal struct {
	PaymentID string `json:"paymentId"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
}

// CancelSignal asks a pending booking workflow to cancel on behalf of an actor
type CancelSignal struct {
	ActorID   string `json:"actorId"`
	ActorRole string `json:"actorRole"`
	Reason    string `json:"reason,omitempty"`
}

// CancellationInput represents departure cancellation workflow input
type CancellationInput struct {
	DepartureID string `json:"departureId"`
	VendorID    string `json:"vendorId"`
	Reason      string `json:"reason"`
}

// CancellationPlan is what the cancellation workflow needs after preconditions pass
type CancellationPlan struct {
	Departure Departure `json:"departure"`
	Bookings  []Booking `json:"bookings"`
}

// CancellationProgress is returned by the cancellation workflow query
type CancellationProgress struct {
	DepartureID   string        `json:"departureId"`
	Stage         string        `json:"stage"`
	RefundResults RefundResults `json:"refundResults"`
}

// API Request/Response models

type CreatePlanRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type CreateDepartureRequest struct {
	DepartureDate  time.Time `json:"departureDate"`
	PickupLocation string    `json:"pickupLocation"`
	PickupTime     string    `json:"pickupTime"`
	TotalCapacity  int       `json:"totalCapacity"`
}

type BulkCreateDeparturesRequest struct {
	Departures []CreateDepartureRequest `json:"departures"`
}

type UpdateDepartureRequest struct {
	DepartureDate  *time.Time `json:"departureDate,omitempty"`
	PickupLocation *string    `json:"pickupLocation,omitempty"`
	PickupTime     *string    `json:"pickupTime,omitempty"`
	TotalCapacity  *int       `json:"totalCapacity,omitempty"`
	Status         *string    `json:"status,omitempty"`
}

type CancelDepartureRequest struct {
	Reason string `json:"reason"`
}

type AdjustSeatsRequest struct {
	Delta int `json:"delta"`
}

type AdjustSeatsResponse struct {
	DepartureID string `json:"departureId"`
	Applied     bool   `json:"applied"`
}

type CreateBookingRequest struct {
	DepartureID string `json:"departureId"`
	NumPeople   int    `json:"numPeople"`
}

type CreateBookingResponse struct {
	Booking    Booking `json:"booking"`
	WorkflowID string  `json:"workflowId"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type CancelDepartureAsyncResponse struct {
	DepartureID string `json:"departureId"`
	WorkflowID  string `json:"workflowId"`
	RunID       string `json:"runId"`
}

type DeparturesResponse struct {
	Departures []Departure `json:"departures"`
	Count      int         `json:"count"`
}

// RefundRequest is sent to the user platform's refund endpoint
type RefundRequest struct {
	BookingID          string `json:"bookingId"`
	VendorCancellation bool   `json:"vendorCancellation"`
	VendorID           string `json:"vendorId,omitempty"`
}
