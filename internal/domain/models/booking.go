package models

import (
	"time"

	"busbooking/internal/domain"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// SeatDetail pairs a selected seat with its passenger and the price charged
// for it at booking time.
type SeatDetail struct {
	SeatNumber    string `json:"seatNumber"`
	SeatType      string `json:"seatType,omitempty"`
	Price         int64  `json:"price"`
	PassengerName string `json:"passengerName,omitempty"`
}

type Booking struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	BusID         string       `json:"busId"`
	TravelDate    time.Time    `json:"travelDate"`
	SeatDetails   []SeatDetail `json:"seatDetails"`
	TotalSeats    int          `json:"totalSeats"`
	TotalAmount   int64        `json:"totalAmount"`
	Status        string       `json:"status"`
	PaymentID     string       `json:"paymentId,omitempty"`
	OrderID       string       `json:"orderId,omitempty"`
	PaymentStatus string       `json:"paymentStatus"`
	CancelReason  string       `json:"cancellationReason,omitempty"`
	CancelledAt   *time.Time   `json:"cancelledAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// Related entities, populated on list/detail reads.
	Bus  *Bus  `json:"bus,omitempty"`
	User *User `json:"user,omitempty"`
}

// SeatNumbers extracts the seat identifiers held by this booking.
func (b Booking) SeatNumbers() []string {
	out := make([]string, 0, len(b.SeatDetails))
	for _, s := range b.SeatDetails {
		out = append(out, s.SeatNumber)
	}
	return out
}

// IsTerminal reports whether the lifecycle allows no further transitions.
func (b Booking) IsTerminal() bool {
	return b.Status == BookingConfirmed || b.Status == BookingCancelled
}

// CancellationCutoff is how close to departure a booking may still be
// cancelled. Exactly at the cutoff is allowed.
const CancellationCutoff = 2 * time.Hour

// CanCancelAt checks the lifecycle and departure-window guards for
// cancellation. Confirmed and cancelled are terminal states.
func (b Booking) CanCancelAt(now, departure time.Time) error {
	if b.IsTerminal() {
		return domain.ConflictError{Resource: "booking", Msg: "already " + b.Status}
	}
	if departure.Sub(now) < CancellationCutoff {
		return domain.ValidationError{Msg: "bookings can only be cancelled at least 2 hours before departure"}
	}
	return nil
}
