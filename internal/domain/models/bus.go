package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"busbooking/internal/domain"
)

const (
	SeatAvailable = "available"
	SeatBooked    = "booked"
	SeatBlocked   = "blocked"
)

var BusTypes = []string{"AC", "Non-AC", "Sleeper", "Semi-Sleeper"}

// Seat is the canonical per-seat record. Price 0 means the bus fare applies.
type Seat struct {
	Status   string `json:"status"`
	SeatType string `json:"seatType,omitempty"`
	Price    int64  `json:"price,omitempty"`
}

// SeatMap maps a seat identifier to its current reservation state. All
// transitions happen in memory; persistence goes through the bus repository
// which guards the write with the bus version counter.
type SeatMap map[string]Seat

type Bus struct {
	ID            string    `json:"id"`
	BusNumber     string    `json:"busNumber"`
	BusName       string    `json:"busName"`
	Source        string    `json:"source"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	TotalSeats    int       `json:"totalSeats"`
	Fare          int64     `json:"fare"`
	BusType       string    `json:"busType"`
	IsActive      bool      `json:"isActive"`
	SeatMap       SeatMap   `json:"seatMap"`
	Version       int64     `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewSeatMap builds the default layout of n available seats numbered 1..n.
func NewSeatMap(n int) SeatMap {
	m := make(SeatMap, n)
	for i := 1; i <= n; i++ {
		m[strconv.Itoa(i)] = Seat{Status: SeatAvailable}
	}
	return m
}

// AvailableSeats lists seat identifiers with status available, in stable
// numeric-then-lexical order.
func (m SeatMap) AvailableSeats() []string {
	out := make([]string, 0, len(m))
	for id, seat := range m {
		if seat.Status == SeatAvailable {
			out = append(out, id)
		}
	}
	sortSeatIDs(out)
	return out
}

// AvailableCount counts seats with status available.
func (m SeatMap) AvailableCount() int {
	n := 0
	for _, seat := range m {
		if seat.Status == SeatAvailable {
			n++
		}
	}
	return n
}

// AreAvailable reports whether every given seat exists and is available.
func (m SeatMap) AreAvailable(seatIDs []string) bool {
	for _, id := range seatIDs {
		seat, ok := m[id]
		if !ok || seat.Status != SeatAvailable {
			return false
		}
	}
	return true
}

// Transition moves the given seats to the target status on a copy of the map.
// The receiver is never mutated, so a failed persist cannot leave a half
// applied layout behind. Unknown seat identifiers are validation errors.
func (m SeatMap) Transition(seatIDs []string, target string) (SeatMap, error) {
	switch target {
	case SeatAvailable, SeatBooked, SeatBlocked:
	default:
		return nil, domain.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown seat status %q", target)}
	}

	next := make(SeatMap, len(m))
	for id, seat := range m {
		next[id] = seat
	}
	for _, id := range seatIDs {
		seat, ok := next[id]
		if !ok {
			return nil, domain.ValidationError{Field: "seats", Msg: fmt.Sprintf("seat %s does not exist on this bus", id)}
		}
		seat.Status = target
		next[id] = seat
	}
	return next, nil
}

// SeatPrice resolves the effective price of a seat against the bus fare.
func (b Bus) SeatPrice(seatID string) int64 {
	if seat, ok := b.SeatMap[seatID]; ok && seat.Price > 0 {
		return seat.Price
	}
	return b.Fare
}

// Validate checks catalog invariants on create/update.
func (b Bus) Validate() error {
	if b.BusNumber == "" {
		return domain.ValidationError{Field: "busNumber", Msg: "required"}
	}
	if b.Source == "" || b.Destination == "" {
		return domain.ValidationError{Field: "route", Msg: "source and destination are required"}
	}
	if !b.ArrivalTime.After(b.DepartureTime) {
		return domain.ValidationError{Field: "arrivalTime", Msg: "must be after departure time"}
	}
	if b.TotalSeats <= 0 {
		return domain.ValidationError{Field: "totalSeats", Msg: "must be positive"}
	}
	if b.Fare <= 0 {
		return domain.ValidationError{Field: "fare", Msg: "must be positive"}
	}
	valid := false
	for _, t := range BusTypes {
		if b.BusType == t {
			valid = true
			break
		}
	}
	if !valid {
		return domain.ValidationError{Field: "busType", Msg: "must be one of AC, Non-AC, Sleeper, Semi-Sleeper"}
	}
	if len(b.SeatMap) > 0 && len(b.SeatMap) != b.TotalSeats {
		return domain.ValidationError{Field: "seatMap", Msg: "seat map size must match totalSeats"}
	}
	return nil
}

func sortSeatIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.Atoi(ids[i])
		b, berr := strconv.Atoi(ids[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		if aerr == nil {
			return true
		}
		if berr == nil {
			return false
		}
		return ids[i] < ids[j]
	})
}
